package notify

import (
	"sync"

	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/crm"
)

// Store holds pending notifications in arrival order, oldest first.
//
// Add does not de-duplicate: a notification added twice with the same id
// shows up twice, and Remove takes out one entry at a time. Callers that
// need idempotence must filter upstream.
type Store struct {
	mu    sync.RWMutex
	items []crm.Notification
	bus   *bus.Bus
}

// NewStore creates an empty store. b may be nil.
func NewStore(b *bus.Bus) *Store {
	return &Store{bus: b}
}

// Add appends a notification.
func (s *Store) Add(n crm.Notification) {
	s.mu.Lock()
	s.items = append(s.items, n)
	s.mu.Unlock()
	s.bus.Emit(bus.NotificationAdded, n)
}

// Remove deletes the first notification with the given id. It reports
// whether an entry was removed.
func (s *Store) Remove(id string) bool {
	n, ok := s.take(id)
	if ok {
		s.bus.Emit(bus.NotificationRemoved, n)
	}
	return ok
}

// Open dismisses the notification and returns the client it points to,
// for navigation to that client's conversation.
func (s *Store) Open(id string) (crm.ID, bool) {
	n, ok := s.take(id)
	if !ok {
		return "", false
	}
	s.bus.Emit(bus.NotificationRemoved, n)
	return n.ClientID, true
}

// Clear removes every notification.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
	s.bus.Emit(bus.NotificationCleared, nil)
}

// List returns a snapshot of the pending notifications.
func (s *Store) List() []crm.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crm.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of pending notifications.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) take(id string) (crm.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return n, true
		}
	}
	return crm.Notification{}, false
}
