// Package gcs implements storage.Backend on Google Cloud Storage.
package gcs
