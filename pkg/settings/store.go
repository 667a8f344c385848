package settings

import (
	"sync"
)

// Change reports that one property was modified.
type Change struct {
	Property string
	Old      Values
	New      Values
}

// Store supplies preferences and publishes their changes.
type Store interface {
	// Values returns the current preferences.
	Values() Values

	// SetValues replaces the preferences and notifies subscribers once per
	// changed property.
	SetValues(v Values) error

	// Subscribe registers fn for change notifications and returns a
	// function that removes it.
	Subscribe(fn func(Change)) (unsubscribe func())
}

// notifier fans changes out to subscribers. Callbacks run on the
// goroutine that made the change, after the store released its lock.
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

func (n *notifier) Subscribe(fn func(Change)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs == nil {
		n.subs = make(map[int]func(Change))
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

func (n *notifier) notify(old, updated Values) {
	props := Diff(old, updated)
	if len(props) == 0 {
		return
	}

	n.mu.Lock()
	subs := make([]func(Change), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, prop := range props {
		change := Change{Property: prop, Old: old, New: updated}
		for _, fn := range subs {
			fn(change)
		}
	}
}

// MemoryStore keeps preferences in memory.
type MemoryStore struct {
	notifier

	mu     sync.RWMutex
	values Values
}

// NewMemoryStore creates a store holding initial.
func NewMemoryStore(initial Values) *MemoryStore {
	return &MemoryStore{values: initial.Normalize()}
}

// Values implements Store.
func (s *MemoryStore) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone()
}

// SetValues implements Store.
func (s *MemoryStore) SetValues(v Values) error {
	v = v.Normalize()

	s.mu.Lock()
	old := s.values
	s.values = v
	s.mu.Unlock()

	s.notify(old, v.Clone())
	return nil
}
