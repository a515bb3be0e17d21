// Package nodeid provides the opaque identifier type for nodes in the
// structural relationship graph.
//
// IDs are densely allocated by the database, starting at zero, and are never
// reused while a session is alive. Removing a node's relationships does not
// retract its ID.
package nodeid

import "fmt"

// ID is the opaque, densely-allocated identifier for a graph node.
type ID uint64

// Document is the root of the entire tree.
const Document ID = 0

// String serializes the ID into its canonical form, e.g. "node[42]".
func (id ID) String() string {
	return fmt.Sprintf("node[%d]", uint64(id))
}
