package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultWakeChannel is the pub/sub channel used for cross-instance wake-ups.
const DefaultWakeChannel = "reve:queue:wake"

// NewRedisClient creates a Redis client from a redis:// URL.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	return redis.NewClient(opts), nil
}

// RedisNotifier publishes wake-ups on a Redis channel so that a task
// created on one instance wakes the workers of every instance.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

var _ Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier creates a RedisNotifier on channel.
func NewRedisNotifier(client *redis.Client, channel string, logger *slog.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultWakeChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  logger.With(slog.String("component", "redis_notifier")),
	}
}

// Notify implements Notifier.
func (n *RedisNotifier) Notify(ctx context.Context) error {
	if err := n.client.Publish(ctx, n.channel, "wake").Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", n.channel, err)
	}
	return nil
}

// Listen subscribes to the wake channel and forwards every message to wake
// until ctx is cancelled or the returned stop function is called. The
// subscription is confirmed before Listen returns.
func (n *RedisNotifier) Listen(ctx context.Context, wake *WakeSignal) (stop func(), err error) {
	sub := n.client.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", n.channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				wake.Wake(WakeSourceRedis)
			}
		}
	}()

	n.logger.Info("listening for queue wake-ups", slog.String("channel", n.channel))

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := sub.Close(); err != nil {
				n.logger.Warn("failed to close redis subscription", slog.String("error", err.Error()))
			}
			wg.Wait()
		})
	}, nil
}
