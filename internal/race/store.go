package race

import (
	"sync"

	"speedway/internal/config"
)

// RoomInfo is returned by the read-only API for the room list.
type RoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	State   string `json:"state"`
}

// Store is the only shared mutable resource in the system: the mapping of
// room code to room. Rooms are created on the first join of a code and
// destroyed in the same operation that removes the last member.
type Store struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	cfg    config.RaceConfig
	limits config.ResourceLimits
}

// NewStore creates an empty room store.
func NewStore(cfg config.RaceConfig, limits config.ResourceLimits) *Store {
	return &Store{
		rooms:  make(map[string]*Room),
		cfg:    cfg,
		limits: limits,
	}
}

// Get returns the room for code, or nil.
func (s *Store) Get(code string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[code]
}

// GetOrCreate returns the room for code, creating it if needed.
func (s *Store) GetOrCreate(code string) (*Room, error) {
	if code == "" {
		return nil, ErrCodeRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rooms[code]; ok {
		return r, nil
	}
	if len(s.rooms) >= s.limits.MaxRooms {
		return nil, ErrTooManyRooms
	}

	r := NewRoom(code, s.cfg, s.limits)
	s.rooms[code] = r
	return r, nil
}

// Remove deletes a room from the store.
func (s *Store) Remove(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

// Count returns the number of active rooms.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// List returns code, member count and state for every active room.
func (s *Store) List() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RoomInfo, 0, len(s.rooms))
	for code, r := range s.rooms {
		out = append(out, RoomInfo{
			Code:    code,
			Players: r.MemberCount(),
			State:   r.State().String(),
		})
	}
	return out
}

// ForEach calls fn for every active room. fn must not call back into the
// store; rooms lock themselves.
func (s *Store) ForEach(fn func(*Room)) {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.RUnlock()

	for _, r := range rooms {
		fn(r)
	}
}
