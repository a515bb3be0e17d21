// Package inmemoryrel provides a simple, thread-safe, in-memory
// implementation of the relstore.Store interface.
package inmemoryrel

import (
	"fmt"
	"sync"

	"github.com/vk/propgrid/internal/nodeid"
	"github.com/vk/propgrid/internal/relstore"
)

// edges holds the stored relationships of one node.
type edges struct {
	parent      *nodeid.ID
	children    []nodeid.ID
	nextSibling *nodeid.ID
	prevSibling *nodeid.ID
}

// Store implements relstore.Store using a map and an RWMutex. Derived
// traversals re-walk the graph under a read lock on every call.
type Store struct {
	mu    sync.RWMutex
	nodes map[nodeid.ID]*edges
}

// New creates a new, empty in-memory relationship store.
func New() relstore.Store {
	return &Store{nodes: make(map[nodeid.ID]*edges)}
}

// Establish sets a direct edge on node, creating its entry on first touch.
func (s *Store) Establish(node nodeid.ID, kind relstore.Kind, target nodeid.ID) error {
	if kind.Derived() {
		return fmt.Errorf("relationship %q is derived and cannot be established directly", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.nodes[node]
	if !ok {
		e = &edges{}
		s.nodes[node] = e
	}

	switch kind {
	case relstore.Parent:
		e.parent = &target
	case relstore.Children:
		e.children = append(e.children, target)
	case relstore.NextSibling:
		e.nextSibling = &target
	case relstore.PrevSibling:
		e.prevSibling = &target
	}
	return nil
}

// Resolve returns the related nodes for the given kind.
func (s *Store) Resolve(node nodeid.ID, kind relstore.Kind) []nodeid.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case relstore.Parent:
		return optional(s.entry(node).parent)
	case relstore.Children:
		return append([]nodeid.ID(nil), s.entry(node).children...)
	case relstore.NextSibling:
		return optional(s.entry(node).nextSibling)
	case relstore.PrevSibling:
		return optional(s.entry(node).prevSibling)
	case relstore.PreviousSiblings:
		return s.chain(node, func(e *edges) *nodeid.ID { return e.prevSibling })
	case relstore.NextSiblings:
		return s.chain(node, func(e *edges) *nodeid.ID { return e.nextSibling })
	case relstore.Siblings:
		out := s.chain(node, func(e *edges) *nodeid.ID { return e.prevSibling })
		return append(out, s.chain(node, func(e *edges) *nodeid.ID { return e.nextSibling })...)
	case relstore.Ancestors:
		return s.chain(node, func(e *edges) *nodeid.ID { return e.parent })
	case relstore.Descendants:
		return s.descendants(node, map[nodeid.ID]struct{}{node: {}})
	default:
		return nil
	}
}

// Len returns the number of nodes with stored edges.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Clear removes all edges.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = make(map[nodeid.ID]*edges)
}

var empty = &edges{}

// entry returns the node's edges or an empty placeholder. Callers must hold
// at least the read lock.
func (s *Store) entry(node nodeid.ID) *edges {
	if e, ok := s.nodes[node]; ok {
		return e
	}
	return empty
}

// chain follows one single-valued edge to exhaustion, e.g. the parent chain
// for Ancestors. A node already visited ends the walk, so a malformed edge
// cycle terminates instead of spinning under the read lock. Callers must
// hold the read lock.
func (s *Store) chain(node nodeid.ID, next func(*edges) *nodeid.ID) []nodeid.ID {
	seen := map[nodeid.ID]struct{}{node: {}}
	var out []nodeid.ID
	cur := next(s.entry(node))
	for cur != nil {
		if _, ok := seen[*cur]; ok {
			break
		}
		seen[*cur] = struct{}{}
		out = append(out, *cur)
		cur = next(s.entry(*cur))
	}
	return out
}

// descendants returns children plus, recursively, their descendants, in
// pre-order. The seen set bounds the walk on malformed cyclic structures.
// Callers must hold the read lock.
func (s *Store) descendants(node nodeid.ID, seen map[nodeid.ID]struct{}) []nodeid.ID {
	var out []nodeid.ID
	for _, child := range s.entry(node).children {
		if _, ok := seen[child]; ok {
			continue
		}
		seen[child] = struct{}{}
		out = append(out, child)
		out = append(out, s.descendants(child, seen)...)
	}
	return out
}

func optional(id *nodeid.ID) []nodeid.ID {
	if id == nil {
		return nil
	}
	return []nodeid.ID{*id}
}
