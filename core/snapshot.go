package core

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// StateRef is an opaque handle to a post-state snapshot. The concrete state
// representation lives outside the core (an external executor's cached
// state); the chain store only needs to hold, evict, and hand back
// references to it.
type StateRef interface{}

// InMemoryBlockStates is the bounded LRU of post-state snapshots keyed by
// the hash of the block they represent. It wraps hashicorp/golang-lru/v2,
// the same LRU the teacher pulls in as an indirect dependency, but adds the
// self-shrinking policy spec.md §4B/§9 calls for: an ordinary fixed-capacity
// LRU doesn't model "the ceiling itself erodes under pressure", so Insert
// calls Cache.Resize to lower the ceiling (floored at minInMemoryLimit)
// before letting the library's own eviction run the rest of the way down.
type InMemoryBlockStates struct {
	mu               sync.Mutex
	cache            *lru.Cache[BlockHash, StateRef]
	inMemoryLimit    int
	minInMemoryLimit int
}

// NewInMemoryBlockStates constructs the cache with the given starting and
// floor capacities.
func NewInMemoryBlockStates(inMemoryLimit, minInMemoryLimit int) *InMemoryBlockStates {
	if minInMemoryLimit > inMemoryLimit {
		minInMemoryLimit = inMemoryLimit
	}
	if minInMemoryLimit < 1 {
		minInMemoryLimit = 1
	}
	c, _ := lru.New[BlockHash, StateRef](inMemoryLimit)
	return &InMemoryBlockStates{
		cache:            c,
		inMemoryLimit:    inMemoryLimit,
		minInMemoryLimit: minInMemoryLimit,
	}
}

// Insert adds or refreshes the snapshot for hash. If the cache is already
// at capacity and does not already hold hash, the limit itself shrinks by
// one (never below minInMemoryLimit) before the library evicts its own
// oldest entries down to the new limit.
func (s *InMemoryBlockStates) Insert(hash BlockHash, state StateRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cache.Contains(hash) && s.cache.Len() >= s.inMemoryLimit {
		if s.inMemoryLimit > s.minInMemoryLimit {
			s.inMemoryLimit--
			s.cache.Resize(s.inMemoryLimit)
		}
	}
	s.cache.Add(hash, state)
}

// Get returns the snapshot for hash and true, or false if it has been
// evicted or was never present — "history beyond retention is lost, read
// returns not found" rather than an error.
func (s *InMemoryBlockStates) Get(hash BlockHash) (StateRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Get(hash)
}

// Len returns the number of snapshots currently present.
func (s *InMemoryBlockStates) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// Limit returns the current (possibly shrunk) in-memory limit.
func (s *InMemoryBlockStates) Limit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inMemoryLimit
}
