package memory

import (
	"sync"

	"github.com/yndnr/skillgate-go/pkg/cmap"
)

// IDSet is a concurrent-safe set of record IDs.
type IDSet struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// NewIDSet creates a new ID set.
func NewIDSet() *IDSet {
	return &IDSet{
		items: make(map[string]struct{}),
	}
}

// Add adds an ID to the set.
func (s *IDSet) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = struct{}{}
}

// Remove removes an ID from the set.
func (s *IDSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Contains checks if an ID is in the set.
func (s *IDSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Len returns the number of items in the set.
func (s *IDSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of all IDs.
func (s *IDSet) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]string, 0, len(s.items))
	for id := range s.items {
		items = append(items, id)
	}
	return items
}

// OwnerIndex maps a user ID to the IDs of the tokens it owns.
type OwnerIndex struct {
	index *cmap.Map[*IDSet]
}

// NewOwnerIndex creates a new owner index.
func NewOwnerIndex() *OwnerIndex {
	return &OwnerIndex{
		index: cmap.New[*IDSet](),
	}
}

// Add adds a token to the owner's set.
func (i *OwnerIndex) Add(userID, tokenID string) {
	set := i.index.Update(userID, func(set *IDSet, ok bool) *IDSet {
		if !ok {
			return NewIDSet()
		}
		return set
	})
	set.Add(tokenID)
}

// Remove removes a token from the owner's set.
func (i *OwnerIndex) Remove(userID, tokenID string) {
	set, ok := i.index.Get(userID)
	if !ok {
		return
	}

	set.Remove(tokenID)

	if set.Len() == 0 {
		i.index.Delete(userID)
	}
}

// Get returns all token IDs for a user.
func (i *OwnerIndex) Get(userID string) []string {
	set, ok := i.index.Get(userID)
	if !ok {
		return nil
	}
	return set.Items()
}

// Count returns the number of tokens for a user.
func (i *OwnerIndex) Count(userID string) int {
	set, ok := i.index.Get(userID)
	if !ok {
		return 0
	}
	return set.Len()
}
