// Package uploader retries staged recordings against the traffic backend.
//
// Recordings land in the staging registry when an interactive save fails.
// The worker polls for pending rows, claims each one so concurrent workers
// never double-upload, and keeps the audio on disk until the backend
// acknowledges it.
package uploader
