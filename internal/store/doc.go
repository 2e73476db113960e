// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic. Queue task transitions are conditional
// on the current status so concurrent workers coordinate through the
// database alone.
package store
