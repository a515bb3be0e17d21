// Package propkey defines the identity types of the property engine: the key
// that names "which computation, for which input", and the dependency edge
// recorded when one computation reads another.
//
// Construction is deterministic and side-effect-free. The runtime key only
// needs to be comparable; it is hashed, never stored.
package propkey

import (
	"fmt"
	"hash/maphash"
)

// QueryID is the compile-time identity of a computation. Every Query and
// Input implementation registers exactly one ID via its Name method; two
// different computations must never share an ID.
type QueryID string

// PropertyKey uniquely names one memoization slot: a computation identity
// combined with the hash of its runtime key.
type PropertyKey struct {
	Query   QueryID
	KeyHash uint64
}

// Dependency is a PropertyKey viewed from the perspective of "X reads Y".
type Dependency struct {
	Query   QueryID
	KeyHash uint64
}

// seed is fixed for the process so equal keys always hash equally.
var seed = maphash.MakeSeed()

// HashKey hashes an arbitrary comparable runtime key.
func HashKey[K comparable](key K) uint64 {
	return maphash.Comparable(seed, key)
}

// New builds the PropertyKey for a computation and runtime key.
func New[K comparable](query QueryID, key K) PropertyKey {
	return PropertyKey{Query: query, KeyHash: HashKey(key)}
}

// NewDependency builds the Dependency edge for a computation and runtime key.
func NewDependency[K comparable](query QueryID, key K) Dependency {
	return Dependency{Query: query, KeyHash: HashKey(key)}
}

// Key converts the dependency edge back into the slot key it points at.
func (d Dependency) Key() PropertyKey {
	return PropertyKey{Query: d.Query, KeyHash: d.KeyHash}
}

// Dep converts a slot key into its dependency-edge view.
func (k PropertyKey) Dep() Dependency {
	return Dependency{Query: k.Query, KeyHash: k.KeyHash}
}

func (k PropertyKey) String() string {
	return fmt.Sprintf("%s#%016x", k.Query, k.KeyHash)
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s#%016x", d.Query, d.KeyHash)
}
