// Package traffic is the REST client for the traffic backend's voice
// endpoints: take upload, listing, selection, deletion, standalone test
// recordings, and the LibreTime playout push.
//
// The backend owns take state; this client never mutates local views on its
// own. HTTP failures are wrapped with the services taxonomy so callers can
// keep staged audio for retry.
package traffic
