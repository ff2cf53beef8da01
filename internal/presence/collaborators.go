package presence

import (
	"sort"
	"sync"
	"time"
)

// Collaborator is the latest known state for one connected editor. Only the
// most recent cursor, spot, and lock flag are retained; the channel is a
// presence surface, not an edit history.
type Collaborator struct {
	UserID    string
	Username  string
	Cursor    *Cursor
	SpotID    string
	HoldsLock bool
	LastSeen  time.Time
}

// CollaboratorSet tracks connected editors keyed by user ID.
type CollaboratorSet struct {
	mu    sync.RWMutex
	users map[string]Collaborator
	now   func() time.Time
}

// NewCollaboratorSet constructs an empty set.
func NewCollaboratorSet() *CollaboratorSet {
	return &CollaboratorSet{
		users: make(map[string]Collaborator),
		now:   time.Now,
	}
}

// Apply folds one inbound event into the set. A users_list event is the
// authoritative snapshot and replaces all prior state; anything received
// before it after a reconnect is superseded.
func (s *CollaboratorSet) Apply(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	switch event.Kind {
	case KindUsersList:
		replacement := make(map[string]Collaborator, len(event.Users))
		for _, user := range event.Users {
			existing, ok := s.users[user.UserID]
			if !ok {
				existing = Collaborator{UserID: user.UserID}
			}
			existing.Username = user.Username
			existing.LastSeen = now
			replacement[user.UserID] = existing
		}
		s.users = replacement
	case KindUserJoined:
		if event.UserID == "" {
			return
		}
		s.users[event.UserID] = Collaborator{
			UserID:   event.UserID,
			Username: event.Username,
			LastSeen: now,
		}
	case KindUserLeft:
		delete(s.users, event.UserID)
	case KindCursorUpdate:
		collab, ok := s.users[event.UserID]
		if !ok {
			collab = Collaborator{UserID: event.UserID, Username: event.Username}
		}
		collab.Cursor = event.Cursor
		collab.LastSeen = now
		s.users[event.UserID] = collab
	case KindSpotUpdate:
		collab, ok := s.users[event.UserID]
		if !ok {
			collab = Collaborator{UserID: event.UserID, Username: event.Username}
		}
		collab.SpotID = event.SpotID
		collab.LastSeen = now
		s.users[event.UserID] = collab
	case KindLogLock:
		collab, ok := s.users[event.UserID]
		if !ok {
			collab = Collaborator{UserID: event.UserID, Username: event.Username}
		}
		if event.Locked != nil {
			collab.HoldsLock = *event.Locked
		}
		collab.LastSeen = now
		s.users[event.UserID] = collab
	}
}

// Reset empties the set, used when the connection drops.
func (s *CollaboratorSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]Collaborator)
}

// Len returns the number of tracked collaborators.
func (s *CollaboratorSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Snapshot returns collaborators ordered by username then user ID.
func (s *CollaboratorSet) Snapshot() []Collaborator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Collaborator, 0, len(s.users))
	for _, collab := range s.users {
		out = append(out, collab)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
