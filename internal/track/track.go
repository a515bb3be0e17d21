// Package track records, during the execution of one computation, every
// other computation it reads. Each call chain carries exactly one Context;
// nested queries open nested recording scopes on it.
package track

import (
	"strings"

	"github.com/vk/propgrid/internal/propkey"
)

// Context tracks dependencies for one call chain. It is not safe for
// concurrent use; every chain (worker, test goroutine, caller thread) must
// own its own Context.
type Context struct {
	owner uint64
	// stack holds the keys currently being computed by this chain, used for
	// cycle detection across arbitrary recursion depth.
	stack []propkey.Dependency
	// scopes holds one open recording list per stack frame.
	scopes [][]propkey.Dependency
}

// New creates a Context with the given claim-owner token. The token
// identifies this chain in the property-state table, so a re-entrant claim
// of a key the chain already owns is detected as a cycle.
func New(owner uint64) *Context {
	return &Context{owner: owner}
}

// Owner returns the claim-owner token of this chain.
func (c *Context) Owner() uint64 {
	return c.owner
}

// BeginQuery opens a recording scope for the computation identified by dep.
// It fails with a *CycleError if dep is already on this chain's stack.
func (c *Context) BeginQuery(dep propkey.Dependency) error {
	for _, active := range c.stack {
		if active == dep {
			return c.Cycle(dep)
		}
	}
	c.stack = append(c.stack, dep)
	c.scopes = append(c.scopes, nil)
	return nil
}

// Cycle builds the CycleError for a re-entry of dep, with the chain's
// current stack as the path.
func (c *Context) Cycle(dep propkey.Dependency) *CycleError {
	cycle := append([]propkey.Dependency(nil), c.stack...)
	return &CycleError{Cycle: append(cycle, dep)}
}

// RecordDependency appends dep to the innermost open scope. Outside of any
// query execution (a top-level call) there is nothing to record into.
func (c *Context) RecordDependency(dep propkey.Dependency) {
	if len(c.scopes) == 0 {
		return
	}
	top := len(c.scopes) - 1
	for _, existing := range c.scopes[top] {
		if existing == dep {
			return
		}
	}
	c.scopes[top] = append(c.scopes[top], dep)
}

// EndQuery closes the innermost scope and returns its recorded list, in
// recording order, ready for interning.
func (c *Context) EndQuery() []propkey.Dependency {
	if len(c.scopes) == 0 {
		return nil
	}
	top := len(c.scopes) - 1
	recorded := c.scopes[top]
	c.scopes = c.scopes[:top]
	c.stack = c.stack[:len(c.stack)-1]
	return recorded
}

// Depth returns the number of computations currently executing on this
// chain. Used by diagnostics and tests.
func (c *Context) Depth() int {
	return len(c.stack)
}

// CycleError reports that a computation, directly or transitively, queried
// itself before finishing. It fails the whole query chain.
type CycleError struct {
	Cycle []propkey.Dependency
}

func (e *CycleError) Error() string {
	var sb strings.Builder
	sb.WriteString("dependency cycle detected: ")
	for i, dep := range e.Cycle {
		if i > 0 {
			sb.WriteString(" -> ")
		}
		sb.WriteString(dep.String())
	}
	return sb.String()
}
