// Package relstore defines the interface for the structural relationship
// graph: parent/children/sibling edges between nodes, independent of
// computed properties.
//
// # Why Relationship Store Exists
//
// The relationship graph has a separate lifecycle from the property-state
// table: edges are established explicitly by consumers, read far less often
// than computed properties, and survive a Clear of the memoized state.
// Keeping it as its own store means structure queries never contend with
// property-table traffic.
//
// # Direct and derived relationships
//
// Parent, Children, NextSibling and PrevSibling are stored edges. The
// remaining kinds (PreviousSiblings, NextSiblings, Siblings, Ancestors,
// Descendants) are derived on every Resolve call by walking the stored
// edges to exhaustion — they are deliberately not memoized.
//
// Edges are one-directional: establishing a Children edge does not create
// the inverse Parent edge. Consumers that want both must establish both.
package relstore

import "github.com/vk/propgrid/internal/nodeid"

// Kind identifies one relationship between nodes.
type Kind int

const (
	Parent Kind = iota
	Children
	NextSibling
	PrevSibling

	// Derived kinds, computed on demand from the stored edges.
	PreviousSiblings
	NextSiblings
	Siblings
	Ancestors
	Descendants
)

func (k Kind) String() string {
	switch k {
	case Parent:
		return "parent"
	case Children:
		return "children"
	case NextSibling:
		return "next-sibling"
	case PrevSibling:
		return "prev-sibling"
	case PreviousSiblings:
		return "previous-siblings"
	case NextSiblings:
		return "next-siblings"
	case Siblings:
		return "siblings"
	case Ancestors:
		return "ancestors"
	case Descendants:
		return "descendants"
	default:
		return "unknown"
	}
}

// Derived reports whether the kind is computed by traversal rather than
// stored directly.
func (k Kind) Derived() bool {
	return k >= PreviousSiblings
}

// Store is the structural relationship graph.
//
// Implementations must be safe for concurrent use; reads dominate writes.
type Store interface {
	// Establish sets a direct edge on node. Parent, NextSibling and
	// PrevSibling replace the previous edge; Children appends, preserving
	// insertion order. Establishing a derived kind is an error.
	Establish(node nodeid.ID, kind Kind, target nodeid.ID) error

	// Resolve returns the nodes related to node by kind. Direct kinds read
	// the stored edge; derived kinds walk the graph on every call. A node
	// with no entry resolves to an empty result, never an error.
	Resolve(node nodeid.ID, kind Kind) []nodeid.ID

	// Len returns the number of nodes with at least one stored edge.
	Len() int

	// Clear removes all edges.
	Clear()
}
