package store

import "sync"

// MemoryStore keeps users in a map.
type MemoryStore struct {
	mu    sync.Mutex
	users map[int]string
}

// Put stores a user name.
func (s *MemoryStore) Put(id int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[int]string)
	}
	s.users[id] = name
}
