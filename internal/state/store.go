package state

import (
	"strconv"
	"strings"
	"sync"
)

// Notification is an unread inbox entry. Records the user has already
// read are never stored.
type Notification struct {
	ID        int
	Kind      string
	Message   string
	Timestamp string
	Read      bool
}

// Friend is one row of the buddy list.
type Friend struct {
	ID     int
	Name   string
	Online bool
	Typing bool
	Unread int
}

type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteCancelled InviteStatus = "cancelled"
)

// Invite is a pending game invite pushed by the backend.
type Invite struct {
	SessionID int
	GameType  string
	Status    InviteStatus
	HostName  string
}

// Store serializes access to the collections shared between the socket
// receive loop and the presentation context: notifications, friends and
// game invites. The lock is held for the mutation only; readers take
// snapshots and iterate outside it.
type Store struct {
	mu            sync.Mutex
	notifications []Notification
	friends       []Friend
	invites       []Invite
}

func NewStore() *Store {
	return &Store{}
}

// UpsertNotification adds a notification. Already-read records are
// dropped outright. Duplicate suppression keys on the (id, message)
// pair rather than id alone: the backend reuses ids under test, and two
// distinct messages under one id are both worth showing. Reports
// whether the record was added.
func (s *Store) UpsertNotification(n Notification) bool {
	if n.Read {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.notifications {
		if have.ID == n.ID && have.Message == n.Message {
			return false
		}
	}
	s.notifications = append(s.notifications, n)
	return true
}

// RemoveNotification removes the first record with the given id.
// Reindexing any selection cursor is the presentation layer's problem.
func (s *Store) RemoveNotification(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, have := range s.notifications {
		if have.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return true
		}
	}
	return false
}

// NotificationsSnapshot returns a point-in-time copy safe to iterate
// without the lock.
func (s *Store) NotificationsSnapshot() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// SetFriends replaces the friend list, carrying unread counters over
// from any existing record so a list reload does not wipe badges.
func (s *Store) SetFriends(list []Friend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := make(map[int]int, len(s.friends))
	for _, f := range s.friends {
		prev[f.ID] = f.Unread
	}
	s.friends = make([]Friend, len(list))
	copy(s.friends, list)
	for i := range s.friends {
		if n, ok := prev[s.friends[i].ID]; ok {
			s.friends[i].Unread = n
		}
	}
}

// SetFriendsCompact loads the friend list from the backend's compact
// alternate encoding: "name,id,flag" tuples joined by '|'. Entries that
// predate the id field ("name,flag") still load with id -1. Returns the
// number of friends parsed.
func (s *Store) SetFriendsCompact(encoded string) int {
	var list []Friend
	for _, entry := range strings.Split(encoded, "|") {
		parts := strings.Split(entry, ",")
		switch len(parts) {
		case 3:
			id, err := strconv.Atoi(parts[1])
			if err != nil {
				id = -1
			}
			list = append(list, Friend{Name: parts[0], ID: id, Online: onlineFlag(parts[2])})
		case 2:
			list = append(list, Friend{Name: parts[0], ID: -1, Online: onlineFlag(parts[1])})
		}
	}
	s.SetFriends(list)
	return len(list)
}

func onlineFlag(s string) bool {
	return strings.TrimSpace(s) == "1"
}

// UpdatePresence applies a presence push; last write wins.
func (s *Store) UpdatePresence(friendID int, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.friends {
		if s.friends[i].ID == friendID {
			s.friends[i].Online = online
			if !online {
				s.friends[i].Typing = false
			}
			return
		}
	}
}

// UpdateTyping applies a typing indicator push.
func (s *Store) UpdateTyping(friendID int, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.friends {
		if s.friends[i].ID == friendID {
			s.friends[i].Typing = typing
			return
		}
	}
}

// IncrementUnread bumps the unread badge for a friend whose chat is not
// currently displayed.
func (s *Store) IncrementUnread(friendID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.friends {
		if s.friends[i].ID == friendID {
			s.friends[i].Unread++
			return
		}
	}
}

// ClearUnread zeroes the unread badge when the conversation is opened
// and returns the previous count. Idempotent: a second call returns 0.
func (s *Store) ClearUnread(friendID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.friends {
		if s.friends[i].ID == friendID {
			prev := s.friends[i].Unread
			s.friends[i].Unread = 0
			return prev
		}
	}
	return 0
}

// FriendsSnapshot returns a point-in-time copy of the friend list.
func (s *Store) FriendsSnapshot() []Friend {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Friend, len(s.friends))
	copy(out, s.friends)
	return out
}

// UpsertInvite adds or updates the invite for a session.
func (s *Store) UpsertInvite(inv Invite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invites {
		if s.invites[i].SessionID == inv.SessionID {
			s.invites[i] = inv
			return
		}
	}
	s.invites = append(s.invites, inv)
}

// RemoveInviteIfCancelled drops the invite for a session when its
// status is cancelled. Reports whether a record was removed.
func (s *Store) RemoveInviteIfCancelled(sessionID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invites {
		if s.invites[i].SessionID == sessionID && s.invites[i].Status == InviteCancelled {
			s.invites = append(s.invites[:i], s.invites[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveInvite drops the invite for a session regardless of status,
// used after the local user responds to it.
func (s *Store) RemoveInvite(sessionID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invites {
		if s.invites[i].SessionID == sessionID {
			s.invites = append(s.invites[:i], s.invites[i+1:]...)
			return true
		}
	}
	return false
}

// InvitesSnapshot returns a point-in-time copy of the pending invites.
func (s *Store) InvitesSnapshot() []Invite {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Invite, len(s.invites))
	copy(out, s.invites)
	return out
}
