// Package storage re-hosts provider-generated media under stable,
// deterministic paths.
//
// Provider result URLs are short-lived. The Uploader downloads them and
// writes the bytes to a Backend, returning the backend's public URL,
// which is what gets persisted on entities and queue tasks.
package storage
