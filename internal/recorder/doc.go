// Package recorder orchestrates the voice-tracking workflow: it drives the
// capture session, applies the operator's trim choice, uploads finished takes
// to the traffic backend, and keeps the local take mirror in sync.
//
// The recorder never mutates the mirror optimistically. Mutations go to the
// backend first; the mirror is refreshed from the response. When an upload
// fails the encoded audio is written to the staging directory and registered
// for retry, so a dead backend never costs the operator a take.
package recorder
