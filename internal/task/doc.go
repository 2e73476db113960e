// Package task drives queued media generation to completion.
//
// An Orchestrator runs one processing cycle: it returns stuck tasks to the
// queue, claims the oldest pending task and hands it to a Reconciler, which
// resolves the image, then the video, re-uploads both to durable storage and
// finalizes the entity and the task together. Failures are recorded against
// the task's attempt budget. The same Reconciler, in check-only mode, backs
// the RecoveryScanner that catches up entities whose provider jobs finished
// after their worker went away.
//
// TaskRunner keeps a pool of workers that run cycles until the queue is
// drained. Workers are woken by a WakeSignal fed from entity creation, a cron
// schedule and, optionally, Redis pub/sub across instances.
package task
