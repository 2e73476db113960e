// Package app assembles the media pipeline from configuration: stores,
// providers, storage, the queue orchestrator and its workers, and the
// services behind the HTTP handlers. Both cmd/server and cmd/mediactl
// build their dependencies through New.
package app
