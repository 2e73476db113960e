// Package generation provides uniform access to the external image and video
// generation providers. Each provider is asynchronous: a task is submitted,
// then its status is checked until a result URL is available.
//
// The Client exposes three operations per media path: create (submit and
// return the provider's task handle), check (one non-blocking status query),
// and poll (block until a result, a failure, or the poll budget is spent).
// Checks never create provider tasks, so they are safe to repeat.
package generation
