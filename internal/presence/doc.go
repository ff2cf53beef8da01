// Package presence maintains a live, best-effort event stream with every
// other client editing the same daily log.
//
// This is a presence and notification surface, not a CRDT or operational
// transform engine: no delivery or ordering guarantee is made across
// reconnects, and consumers must treat a users_list frame as the
// authoritative snapshot that supersedes anything received before it.
//
// Unexpected closes trigger exponential backoff reconnection up to a fixed
// attempt ceiling; after that the channel stays down until Reconnect is
// called. Disconnect cancels the single outstanding reconnect timer and is
// idempotent.
package presence
