package database

import (
	"fmt"

	"github.com/vk/propgrid/internal/pattern"
	"github.com/vk/propgrid/internal/propkey"
	"github.com/vk/propgrid/internal/propstate"
	"github.com/vk/propgrid/internal/track"
)

// QueryDef is the contract a consumer implements to define a derived
// computation. Execute may call Query on other definitions any number of
// times; every such read is tracked as a dependency automatically.
//
// Name must be unique across all queries and inputs in the process; it is
// the computation's identity in every PropertyKey.
type QueryDef[K comparable, V any] interface {
	Name() propkey.QueryID
	Execute(db *Database, key K, tc *track.Context) (V, error)
}

// InputDef is the contract for externally supplied facts. Inputs are leaves
// of the dependency graph: never derived, never memoized, but recorded as
// dependency targets so a SetInput invalidates everything downstream.
type InputDef[K comparable, V any] interface {
	Name() propkey.QueryID
	DefaultValue(key K) V
}

// Named is anything carrying a computation identity; both QueryDef and
// InputDef implementations satisfy it.
type Named interface {
	Name() propkey.QueryID
}

// Query executes q for key, returning the memoized value when one exists.
//
// The caller's context records the dependency on key unconditionally, even
// on a cache hit, so the caller's own dependency pattern stays complete.
// When the slot is unresolved, exactly one chain claims it and runs
// Execute; losers wait for the winner's published value. A computation that
// re-enters a key already executing on its own chain fails the whole chain
// with a *track.CycleError.
func Query[K comparable, V any](db *Database, q QueryDef[K, V], key K, tc *track.Context) (V, error) {
	var zero V
	dep := propkey.NewDependency(q.Name(), key)
	prop := dep.Key()

	tc.RecordDependency(dep)

	for {
		claim := db.states.Claim(prop, tc.Owner())
		switch claim.Outcome {
		case propstate.OutcomeEvaluated:
			return castValue[V](prop, claim.Value), nil

		case propstate.OutcomeBusy:
			// Another chain owns the slot; wake on its publish or abandon
			// and re-check. No timeout: waits are bounded by the owner's
			// computation, and cycles are caught by the claim itself.
			<-claim.Done
			continue

		case propstate.OutcomeSelfOwned:
			return zero, tc.Cycle(dep)

		case propstate.OutcomeWon:
			if err := tc.BeginQuery(dep); err != nil {
				db.states.Abandon(prop, tc.Owner())
				return zero, err
			}

			value, err := q.Execute(db, key, tc)
			deps := tc.EndQuery()
			if err != nil {
				db.states.Abandon(prop, tc.Owner())
				return zero, fmt.Errorf("executing %s: %w", prop, err)
			}

			pat := db.patterns.Intern(deps)
			for _, d := range deps {
				db.addDependent(d.Key(), prop)
			}
			db.states.Publish(prop, tc.Owner(), value, pat)
			return value, nil
		}
	}
}

// SetInput publishes an externally supplied value and invalidates the
// key's slot and, transitively, its dependents.
func SetInput[K comparable, V any](db *Database, in InputDef[K, V], key K, value V) {
	prop := propkey.New(in.Name(), key)
	db.inputs.Set(prop, value)
	db.invalidateKey(prop)
}

// GetInput reads the most recently published value for key, bypassing the
// memoization machinery. When no value has been set, the input's per-key
// default is returned. A non-nil tc records the read as a dependency of the
// currently executing computation.
func GetInput[K comparable, V any](db *Database, in InputDef[K, V], key K, tc *track.Context) V {
	prop := propkey.New(in.Name(), key)
	if tc != nil {
		tc.RecordDependency(prop.Dep())
	}
	if raw, ok := db.inputs.Get(prop); ok {
		return castValue[V](prop, raw)
	}
	return in.DefaultValue(key)
}

// Invalidate forces the slot for (q, key) back to Unevaluated, along with
// everything that transitively depends on it.
func Invalidate[K comparable](db *Database, q Named, key K) {
	db.invalidateKey(propkey.New(q.Name(), key))
}

// PatternOf returns the interned dependency pattern handle of an evaluated
// property, for diagnostics and tests. Handles of computations with equal
// dependency lists are identity-equal.
func PatternOf[K comparable](db *Database, q Named, key K) (*pattern.Pattern, bool) {
	return db.states.PatternOf(propkey.New(q.Name(), key))
}

// castValue asserts the stored value's type. A mismatch means two different
// computations were given colliding identities; that is a programmer error
// and fails loudly rather than silently.
func castValue[V any](key propkey.PropertyKey, raw any) V {
	v, ok := raw.(V)
	if !ok {
		var want V
		panic(fmt.Sprintf("propgrid: property %s holds %T but caller expects %T; computation identities collide", key, raw, want))
	}
	return v
}
