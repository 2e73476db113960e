// Package service contains the use cases that sit between the HTTP surface
// and the stores.
//
// EntityService creates a dream or manifestation together with its queue
// task in one transaction and wakes the worker pool; listing runs the
// recovery scan inline so finished provider work shows up without waiting
// for a worker. QueueService exposes the operator actions (stats, listing,
// retrying a failed task). TxFinalizer writes the entity and task completion
// in a single transaction and is the task.Finalizer used in production.
package service
