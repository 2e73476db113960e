package task

import (
	"context"
	"errors"

	"github.com/tarikstafford/reve-app-sub000/internal/telemetry"
)

// Wake sources, used as metric labels.
const (
	WakeSourceNotify   = "notify"
	WakeSourceSchedule = "schedule"
	WakeSourceRedis    = "redis"
)

// WakeSignal is a level-triggered wake-up for the worker pool. Any number of
// wakes before the pool reads the signal collapse into one.
type WakeSignal struct {
	ch chan struct{}
}

var _ Notifier = (*WakeSignal)(nil)

// NewWakeSignal creates a WakeSignal.
func NewWakeSignal() *WakeSignal {
	return &WakeSignal{ch: make(chan struct{}, 1)}
}

// Wake signals the pool without blocking.
func (w *WakeSignal) Wake(source string) {
	telemetry.QueueWakeups.WithLabelValues(source).Inc()
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Notify implements Notifier.
func (w *WakeSignal) Notify(context.Context) error {
	w.Wake(WakeSourceNotify)
	return nil
}

// C returns the channel the pool waits on.
func (w *WakeSignal) C() <-chan struct{} {
	return w.ch
}

// MultiNotifier notifies every member and joins their errors.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
