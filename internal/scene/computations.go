package scene

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/propgrid/internal/database"
	"github.com/vk/propgrid/internal/nodeid"
	"github.com/vk/propgrid/internal/propkey"
	"github.com/vk/propgrid/internal/relstore"
	"github.com/vk/propgrid/internal/track"
)

// NodeInput identifies one named property value supplied per node by the
// scene's input blocks. Unset values read as cty null.
type NodeInput struct {
	Property string
}

func (i NodeInput) Name() propkey.QueryID {
	return propkey.QueryID("scene.input." + i.Property)
}

func (i NodeInput) DefaultValue(key nodeid.ID) cty.Value {
	return cty.NullVal(cty.DynamicPseudoType)
}

// InheritedValue resolves a named property on a node the way cascading
// styles do: the node's own input wins, otherwise the nearest ancestor with
// a value for the property. Every probed node is recorded as a dependency,
// so changing any input along the path invalidates the result.
type InheritedValue struct {
	Property string
}

func (q InheritedValue) Name() propkey.QueryID {
	return propkey.QueryID("scene.inherited." + q.Property)
}

func (q InheritedValue) Execute(db *database.Database, key nodeid.ID, tc *track.Context) (cty.Value, error) {
	in := NodeInput{Property: q.Property}
	if v := database.GetInput(db, in, key, tc); !v.IsNull() {
		return v, nil
	}
	for _, ancestor := range db.ResolveRelationship(key, relstore.Ancestors) {
		if v := database.GetInput(db, in, ancestor, tc); !v.IsNull() {
			return v, nil
		}
	}
	return cty.NullVal(cty.DynamicPseudoType), nil
}

// SubtreeCount counts a node plus all of its descendants, recursively
// querying each child so every subtree result is memoized independently.
type SubtreeCount struct{}

func (SubtreeCount) Name() propkey.QueryID { return "scene.subtree-count" }

func (q SubtreeCount) Execute(db *database.Database, key nodeid.ID, tc *track.Context) (int, error) {
	total := 1
	for _, child := range db.ResolveRelationship(key, relstore.Children) {
		n, err := database.Query(db, q, child, tc)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Evaluate runs one bound query against db and renders the result for
// logging. Computation names are "subtree-count" or "inherited.<property>".
func Evaluate(db *database.Database, q BoundQuery, tc *track.Context) (string, error) {
	switch {
	case q.Computation == "subtree-count":
		n, err := database.Query(db, SubtreeCount{}, q.ID, tc)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil

	case strings.HasPrefix(q.Computation, "inherited."):
		property := strings.TrimPrefix(q.Computation, "inherited.")
		v, err := database.Query(db, InheritedValue{Property: property}, q.ID, tc)
		if err != nil {
			return "", err
		}
		return formatValue(v), nil

	default:
		return "", fmt.Errorf("unknown computation %q", q.Computation)
	}
}

func formatValue(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return v.AsBigFloat().Text('g', -1)
	case cty.Bool:
		return strconv.FormatBool(v.True())
	default:
		return v.GoString()
	}
}
