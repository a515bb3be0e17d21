// Package database ties the property engine together: the property-state
// table, the reverse-dependency index, the pattern cache, the input store
// and the relationship graph, plus the orchestration logic for query
// execution and invalidation.
//
// A Database is constructed once and passed explicitly to every call site;
// there is no hidden singleton, so tests can run several independent
// instances in one process.
package database

import (
	"log/slog"
	"sync/atomic"

	"github.com/vk/propgrid/internal/inmemoryrel"
	"github.com/vk/propgrid/internal/inmemorystate"
	"github.com/vk/propgrid/internal/nodeid"
	"github.com/vk/propgrid/internal/pattern"
	"github.com/vk/propgrid/internal/propkey"
	"github.com/vk/propgrid/internal/propstate"
	"github.com/vk/propgrid/internal/relstore"
	"github.com/vk/propgrid/internal/shardmap"
	"github.com/vk/propgrid/internal/track"
)

// Database is the central coordinator for query execution, memoization,
// dependency tracking and invalidation. All of its stores are safe for
// concurrent use; computations for different keys proceed fully in
// parallel, while the claim protocol serializes computations of one key.
type Database struct {
	log      *slog.Logger
	patterns *pattern.Cache
	states   propstate.Store

	// dependents maps a property to the properties that read it. It is
	// populated additively when a computation finishes and never pruned
	// when a later generation records a smaller dependency set; stale
	// entries can only cause over-invalidation, never wrong results.
	dependents *shardmap.Map[propkey.PropertyKey, []propkey.PropertyKey]

	// inputs holds externally supplied values. Inputs are not memoized,
	// only recorded as dependency targets for invalidation.
	inputs *shardmap.Map[propkey.PropertyKey, any]

	rels relstore.Store

	nextNode  atomic.Uint64
	nextOwner atomic.Uint64
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(db *Database) { db.log = logger }
}

// New creates an empty Database.
func New(opts ...Option) *Database {
	patterns := pattern.NewCache()
	byHash := func(k propkey.PropertyKey) uint64 { return k.KeyHash }
	db := &Database{
		log:        slog.Default(),
		patterns:   patterns,
		states:     inmemorystate.New(patterns),
		dependents: shardmap.New[propkey.PropertyKey, []propkey.PropertyKey](byHash),
		inputs:     shardmap.New[propkey.PropertyKey, any](byHash),
		rels:       inmemoryrel.New(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// NewContext mints a dependency-tracking context for one call chain, with a
// claim-owner token unique within this Database.
func (db *Database) NewContext() *track.Context {
	return track.New(db.nextOwner.Add(1))
}

// CreateNode allocates the next node ID. The first node of a session is
// nodeid.Document.
func (db *Database) CreateNode() nodeid.ID {
	return nodeid.ID(db.nextNode.Add(1) - 1)
}

// EstablishRelationship sets a direct structural edge on node.
func (db *Database) EstablishRelationship(node nodeid.ID, kind relstore.Kind, target nodeid.ID) error {
	return db.rels.Establish(node, kind, target)
}

// ResolveRelationship returns the nodes related to node by kind. Derived
// kinds re-walk the graph on every call; they are not memoized.
func (db *Database) ResolveRelationship(node nodeid.ID, kind relstore.Kind) []nodeid.ID {
	return db.rels.Resolve(node, kind)
}

// Clear drops all memoized state, inputs and dependency indices. The node
// allocator and the relationship graph survive; node IDs are never reused
// within a session.
func (db *Database) Clear() {
	db.states.Clear()
	db.dependents.Clear()
	db.inputs.Clear()
	db.log.Debug("database cleared")
}

// Stats is a diagnostic snapshot. It is not used by any correctness-
// critical code path.
type Stats struct {
	Properties propstate.Counts
	Patterns   pattern.Stats
	Inputs     int
	Nodes      uint64
	RelNodes   int
}

// Stats returns a point-in-time snapshot of the engine's tables.
func (db *Database) Stats() Stats {
	return Stats{
		Properties: db.states.Counts(),
		Patterns:   db.patterns.Stats(),
		Inputs:     db.inputs.Len(),
		Nodes:      db.nextNode.Load(),
		RelNodes:   db.rels.Len(),
	}
}

// addDependent records that dependent reads the property identified by on.
// The entry list is deduplicated on insert but never pruned.
func (db *Database) addDependent(on, dependent propkey.PropertyKey) {
	db.dependents.Update(on, func(list []propkey.PropertyKey, _ bool) ([]propkey.PropertyKey, bool) {
		for _, existing := range list {
			if existing == dependent {
				return list, true
			}
		}
		return append(list, dependent), true
	})
}

// invalidateKey marks key Unevaluated and transitively invalidates every
// dependent found in the reverse index. An explicit worklist with a visited
// set bounds stack depth on deep graphs and visits each key of a diamond
// exactly once; the index is re-read as each key is popped, so dependents
// appended by concurrent activity are picked up.
func (db *Database) invalidateKey(root propkey.PropertyKey) {
	visited := make(map[propkey.PropertyKey]struct{})
	work := []propkey.PropertyKey{root}

	for len(work) > 0 {
		key := work[len(work)-1]
		work = work[:len(work)-1]
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		db.states.Invalidate(key)

		deps, _ := db.dependents.Get(key)
		for _, dependent := range deps {
			if _, seen := visited[dependent]; !seen {
				work = append(work, dependent)
			}
		}
	}

	if n := len(visited); n > 1 {
		db.log.Debug("transitive invalidation", "root", root.String(), "invalidated", n)
	}
}
