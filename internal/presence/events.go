package presence

import "encoding/json"

// EventKind tags presence channel frames.
type EventKind string

const (
	KindUserJoined   EventKind = "user_joined"
	KindUserLeft     EventKind = "user_left"
	KindUsersList    EventKind = "users_list"
	KindCursorUpdate EventKind = "cursor_update"
	KindSpotUpdate   EventKind = "spot_update"
	KindLogLock      EventKind = "log_lock"
	KindTyping       EventKind = "typing"
	KindPing         EventKind = "ping"
	KindPong         EventKind = "pong"
)

var knownKinds = map[EventKind]struct{}{
	KindUserJoined:   {},
	KindUserLeft:     {},
	KindUsersList:    {},
	KindCursorUpdate: {},
	KindSpotUpdate:   {},
	KindLogLock:      {},
	KindTyping:       {},
	KindPing:         {},
	KindPong:         {},
}

// Known reports whether the kind belongs to the supported union. Unknown
// kinds are logged and dropped so newer servers stay compatible.
func (k EventKind) Known() bool {
	_, ok := knownKinds[k]
	return ok
}

// Cursor is a position within the shared daily log.
type Cursor struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// User identifies a connected editor.
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Event is one presence channel frame. Fields beyond Kind and the user
// identity are populated per kind; Payload carries anything the union does
// not model so events can be forwarded losslessly.
type Event struct {
	Kind     EventKind       `json:"type"`
	UserID   string          `json:"user_id,omitempty"`
	Username string          `json:"username,omitempty"`
	Users    []User          `json:"users,omitempty"`
	Cursor   *Cursor         `json:"cursor,omitempty"`
	SpotID   string          `json:"spot_id,omitempty"`
	Locked   *bool           `json:"locked,omitempty"`
	Typing   *bool           `json:"typing,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
