package scene

import (
	"fmt"

	"github.com/vk/propgrid/internal/database"
	"github.com/vk/propgrid/internal/nodeid"
	"github.com/vk/propgrid/internal/relstore"
	"github.com/vk/propgrid/internal/workqueue"
)

// BoundQuery is a scene query resolved against allocated node IDs, ready to
// submit to the pool.
type BoundQuery struct {
	Node        string
	ID          nodeid.ID
	Computation string
	Priority    workqueue.Priority
}

// Built is the result of materializing a Scene into a database.
type Built struct {
	IDs     map[string]nodeid.ID
	Queries []BoundQuery
}

// Build allocates a node per declaration, wires the structural edges, and
// publishes the scene's input values into db.
//
// Edges are established explicitly in both directions: Parent on the child,
// Children on the parent, and NextSibling/PrevSibling chains between
// consecutive children of the same parent, in declaration order.
func (s *Scene) Build(db *database.Database) (*Built, error) {
	ids := make(map[string]nodeid.ID, len(s.Nodes))
	for _, n := range s.Nodes {
		if _, exists := ids[n.Name]; exists {
			return nil, fmt.Errorf("duplicate node %q", n.Name)
		}
		ids[n.Name] = db.CreateNode()
	}

	childrenOf := make(map[string][]nodeid.ID)
	for _, n := range s.Nodes {
		if n.Parent == "" {
			continue
		}
		parentID, ok := ids[n.Parent]
		if !ok {
			return nil, fmt.Errorf("node %q references unknown parent %q", n.Name, n.Parent)
		}
		childID := ids[n.Name]

		if err := db.EstablishRelationship(childID, relstore.Parent, parentID); err != nil {
			return nil, fmt.Errorf("linking %q to parent %q: %w", n.Name, n.Parent, err)
		}
		if err := db.EstablishRelationship(parentID, relstore.Children, childID); err != nil {
			return nil, fmt.Errorf("linking %q to child %q: %w", n.Parent, n.Name, err)
		}
		childrenOf[n.Parent] = append(childrenOf[n.Parent], childID)
	}

	for parent, children := range childrenOf {
		for i := 1; i < len(children); i++ {
			prev, next := children[i-1], children[i]
			if err := db.EstablishRelationship(prev, relstore.NextSibling, next); err != nil {
				return nil, fmt.Errorf("sibling chain under %q: %w", parent, err)
			}
			if err := db.EstablishRelationship(next, relstore.PrevSibling, prev); err != nil {
				return nil, fmt.Errorf("sibling chain under %q: %w", parent, err)
			}
		}
	}

	for _, in := range s.Inputs {
		id, ok := ids[in.Node]
		if !ok {
			return nil, fmt.Errorf("input %q references unknown node %q", in.Property, in.Node)
		}
		database.SetInput(db, NodeInput{Property: in.Property}, id, in.Value)
	}

	built := &Built{IDs: ids}
	for _, q := range s.Queries {
		id, ok := ids[q.Node]
		if !ok {
			return nil, fmt.Errorf("query %q references unknown node %q", q.Computation, q.Node)
		}
		built.Queries = append(built.Queries, BoundQuery{
			Node:        q.Node,
			ID:          id,
			Computation: q.Computation,
			Priority:    q.Priority,
		})
	}
	return built, nil
}
