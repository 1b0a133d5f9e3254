package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-run development.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int
	lists  map[Destination][]Item
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[Destination][]Item)}
}

func (s *MemoryStore) Append(_ context.Context, dest Destination, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	copied := make(json.RawMessage, len(payload))
	copy(copied, payload)
	s.lists[dest] = append(s.lists[dest], Item{
		Handle:  strconv.Itoa(s.nextID),
		Payload: copied,
	})
	return nil
}

func (s *MemoryStore) DequeueNext(_ context.Context, dest Destination) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[dest]
	if len(list) == 0 {
		return nil, ErrEmpty
	}
	item := list[0]
	return &item, nil
}

func (s *MemoryStore) Remove(_ context.Context, dest Destination, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[dest]
	for i := range list {
		if list[i].Handle == item.Handle {
			s.lists[dest] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrEmpty
}

func (s *MemoryStore) Len(_ context.Context, dest Destination) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists[dest]), nil
}

func (s *MemoryStore) Close() error { return nil }
