// Package propstate defines the interface for the property-state table: the
// per-key slot machine at the heart of the engine.
//
// # Why Property State Exists
//
// Every (computation, key) pair owns exactly one slot, which is always in
// exactly one of three states:
//   - **Unevaluated**: never computed, or invalidated since.
//   - **Computing**: one chain holds the claim and is executing the
//     computation right now.
//   - **Evaluated**: a value and its interned dependency pattern are stored.
//
// The claim transition (Unevaluated -> Computing) is the sole gate against
// duplicate concurrent execution of the same key: exactly one chain wins it
// per generation of the value, everyone else waits for the winner's result.
//
// # Transitions
//
//	Unevaluated -> Computing        via Claim (winner only)
//	Computing   -> Evaluated        via Publish (owner only, normal path)
//	Computing   -> Unevaluated      via Abandon (owner only, error path)
//	Evaluated|Computing -> Unevaluated  via Invalidate (unconditional)
//
// Invalidation is deliberately not synchronized with an in-flight
// computation of the same key: the owner still publishes its now-stale
// value, and the next invalidation-triggered query recomputes. Callers that
// need strict freshness re-query after a known input change.
//
// # Thread-Safety
//
// Implementations must be safe for concurrent use across all methods, with
// per-key or per-bucket granularity so different keys never serialize on a
// global lock. See internal/inmemorystate for the reference implementation.
package propstate

import (
	"github.com/vk/propgrid/internal/pattern"
	"github.com/vk/propgrid/internal/propkey"
)

// Phase is the current state of one property slot.
type Phase int

const (
	Unevaluated Phase = iota
	Computing
	Evaluated
)

func (p Phase) String() string {
	switch p {
	case Unevaluated:
		return "unevaluated"
	case Computing:
		return "computing"
	case Evaluated:
		return "evaluated"
	default:
		return "unknown"
	}
}

// Outcome is the result of a Claim attempt.
type Outcome int

const (
	// OutcomeEvaluated means the slot already holds a value; Claim.Value is set.
	OutcomeEvaluated Outcome = iota
	// OutcomeWon means the caller now owns the slot and must finish with
	// Publish or Abandon.
	OutcomeWon
	// OutcomeBusy means another chain owns the slot; wait on Claim.Done and
	// retry the claim.
	OutcomeBusy
	// OutcomeSelfOwned means the calling chain already owns the slot: the
	// computation re-entered its own key, which is a dependency cycle.
	OutcomeSelfOwned
)

// Claim is the result of an atomic claim attempt on a slot.
type Claim struct {
	Outcome Outcome
	// Value holds the stored value when Outcome is OutcomeEvaluated.
	Value any
	// Done is closed when the current owner publishes or abandons; valid
	// when Outcome is OutcomeBusy.
	Done <-chan struct{}
}

// Counts is a snapshot of slot phases, for diagnostics only.
type Counts struct {
	Evaluated   int
	Computing   int
	Unevaluated int
}

// Total returns the number of slots in the table.
func (c Counts) Total() int {
	return c.Evaluated + c.Computing + c.Unevaluated
}

// Store is the property-state table.
type Store interface {
	// Claim atomically attempts the Unevaluated -> Computing transition for
	// key on behalf of owner. See Outcome for the four possible results.
	Claim(key propkey.PropertyKey, owner uint64) Claim

	// Publish stores the computed value and its interned dependency pattern,
	// transitioning the slot to Evaluated and waking all waiters. It is
	// unconditional: a slot invalidated mid-computation still receives the
	// (stale) value.
	Publish(key propkey.PropertyKey, owner uint64, value any, deps *pattern.Pattern)

	// Abandon releases a claim without publishing, returning the slot to
	// Unevaluated and waking waiters so one of them can re-claim. Only the
	// owner's abandon has any effect.
	Abandon(key propkey.PropertyKey, owner uint64)

	// Lookup returns the stored value if the slot is currently Evaluated.
	Lookup(key propkey.PropertyKey) (any, bool)

	// PatternOf returns the interned dependency pattern of an Evaluated slot.
	PatternOf(key propkey.PropertyKey) (*pattern.Pattern, bool)

	// Invalidate forces the slot back to Unevaluated, releasing its pattern
	// reference. A slot that was never created is left untouched.
	Invalidate(key propkey.PropertyKey)

	// Clear drops every slot, releasing all pattern references and waking
	// any waiters.
	Clear()

	// Counts returns a snapshot of slot phases.
	Counts() Counts
}
