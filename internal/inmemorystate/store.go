// Package inmemorystate provides the sharded, in-memory implementation of
// the propstate.Store interface. Slots live in per-bucket mutex-guarded
// maps, so claims on different keys proceed fully in parallel; the claim
// itself is a state transition, not a lock held for the duration of the
// computation.
package inmemorystate

import (
	"sync"

	"github.com/vk/propgrid/internal/pattern"
	"github.com/vk/propgrid/internal/propkey"
	"github.com/vk/propgrid/internal/propstate"
)

const shardCount = 64

// slot is the state of one (computation, key) property.
type slot struct {
	phase propstate.Phase
	owner uint64
	value any
	pat   *pattern.Pattern
	// done is closed when the current generation's owner publishes or
	// abandons. It survives an invalidation of a mid-flight slot so waiters
	// still wake on the owner's (stale) publish.
	done chan struct{}
}

type shard struct {
	mu    sync.Mutex
	slots map[propkey.PropertyKey]*slot
}

// Store implements propstate.Store. Pattern references held by evaluated
// slots are released back to the cache on invalidation and clear.
type Store struct {
	patterns *pattern.Cache
	shards   [shardCount]shard
}

// New creates an empty property-state table. Released dependency patterns
// are returned to the given cache.
func New(patterns *pattern.Cache) *Store {
	s := &Store{patterns: patterns}
	for i := range s.shards {
		s.shards[i].slots = make(map[propkey.PropertyKey]*slot)
	}
	return s
}

var _ propstate.Store = (*Store)(nil)

func (s *Store) shardFor(key propkey.PropertyKey) *shard {
	return &s.shards[key.KeyHash%shardCount]
}

// Claim implements propstate.Store.
func (s *Store) Claim(key propkey.PropertyKey, owner uint64) propstate.Claim {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sl, ok := sh.slots[key]
	if !ok {
		sl = &slot{}
		sh.slots[key] = sl
	}

	switch sl.phase {
	case propstate.Evaluated:
		return propstate.Claim{Outcome: propstate.OutcomeEvaluated, Value: sl.value}
	case propstate.Unevaluated:
		sl.phase = propstate.Computing
		sl.owner = owner
		if sl.done == nil {
			sl.done = make(chan struct{})
		}
		return propstate.Claim{Outcome: propstate.OutcomeWon}
	default: // Computing
		if sl.owner == owner {
			return propstate.Claim{Outcome: propstate.OutcomeSelfOwned}
		}
		return propstate.Claim{Outcome: propstate.OutcomeBusy, Done: sl.done}
	}
}

// Publish implements propstate.Store.
func (s *Store) Publish(key propkey.PropertyKey, owner uint64, value any, deps *pattern.Pattern) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sl, ok := sh.slots[key]
	if !ok {
		// Cleared while computing; recreate so wait-free readers see a value.
		sl = &slot{}
		sh.slots[key] = sl
	}

	if sl.pat != nil {
		s.patterns.Release(sl.pat)
	}
	sl.phase = propstate.Evaluated
	sl.owner = 0
	sl.value = value
	sl.pat = deps
	if sl.done != nil {
		close(sl.done)
		sl.done = nil
	}
}

// Abandon implements propstate.Store.
func (s *Store) Abandon(key propkey.PropertyKey, owner uint64) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sl, ok := sh.slots[key]
	if !ok {
		return
	}

	if sl.phase == propstate.Computing && sl.owner == owner {
		sl.phase = propstate.Unevaluated
		sl.owner = 0
		sl.value = nil
		if sl.done != nil {
			close(sl.done)
			sl.done = nil
		}
		return
	}

	// An invalidation can strip ownership while the computation is still
	// running. The slot is then Unevaluated with nobody left to close the
	// generation's done channel, so the erroring ex-owner closes it here;
	// waiters wake and re-claim.
	if sl.phase == propstate.Unevaluated && sl.done != nil {
		close(sl.done)
		sl.done = nil
	}
}

// Lookup implements propstate.Store.
func (s *Store) Lookup(key propkey.PropertyKey) (any, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sl, ok := sh.slots[key]
	if !ok || sl.phase != propstate.Evaluated {
		return nil, false
	}
	return sl.value, true
}

// PatternOf implements propstate.Store.
func (s *Store) PatternOf(key propkey.PropertyKey) (*pattern.Pattern, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sl, ok := sh.slots[key]
	if !ok || sl.phase != propstate.Evaluated {
		return nil, false
	}
	return sl.pat, true
}

// Invalidate implements propstate.Store.
func (s *Store) Invalidate(key propkey.PropertyKey) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sl, ok := sh.slots[key]
	if !ok {
		// Never queried; conceptually already Unevaluated.
		return
	}
	if sl.pat != nil {
		s.patterns.Release(sl.pat)
		sl.pat = nil
	}
	// The done channel is deliberately kept: if the slot was mid-computation,
	// waiters still wake when the owner publishes its stale value.
	sl.phase = propstate.Unevaluated
	sl.owner = 0
	sl.value = nil
}

// Clear implements propstate.Store.
func (s *Store) Clear() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for _, sl := range sh.slots {
			if sl.pat != nil {
				s.patterns.Release(sl.pat)
			}
			if sl.done != nil {
				close(sl.done)
			}
		}
		sh.slots = make(map[propkey.PropertyKey]*slot)
		sh.mu.Unlock()
	}
}

// Counts implements propstate.Store.
func (s *Store) Counts() propstate.Counts {
	var c propstate.Counts
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for _, sl := range sh.slots {
			switch sl.phase {
			case propstate.Evaluated:
				c.Evaluated++
			case propstate.Computing:
				c.Computing++
			default:
				c.Unevaluated++
			}
		}
		sh.mu.Unlock()
	}
	return c
}
