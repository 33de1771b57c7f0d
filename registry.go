package ballot

import (
	"sync"
	"time"
)

// NewRegistry creates an empty election registry. Ids start at 1 so that the
// zero value is never a valid election id.
func NewRegistry() *Registry {
	return &Registry{
		elections: make(map[uint64]*Election),
	}
}

// Registry owns the set of elections and the monotonic id counter. Its lock
// covers only id allocation and map access; all per-election state is
// guarded by the election's own lock so operations on different elections
// proceed in parallel.
type Registry struct {
	mu        sync.RWMutex
	nextID    uint64
	elections map[uint64]*Election
}

// Create allocates the next sequential election id, stores the record, and
// returns it. Ids are never reused.
func (r *Registry) Create(title, department, description string, start, end time.Time) *Election {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	election := newElection(r.nextID, title, department, description, start, end)
	r.elections[election.id] = election
	return election
}

// Get returns the election with the given id or nil if it is unknown.
func (r *Registry) Get(id uint64) *Election {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.elections[id]
}

// Count returns the number of registered elections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.elections)
}

// All returns the registered elections in no particular order. The expiry
// sweep uses this to find elections whose window has lapsed.
func (r *Registry) All() []*Election {
	r.mu.RLock()
	defer r.mu.RUnlock()

	elections := make([]*Election, 0, len(r.elections))
	for _, election := range r.elections {
		elections = append(elections, election)
	}
	return elections
}
