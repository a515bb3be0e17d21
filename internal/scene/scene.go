// Package scene loads declarative scene files and materializes them into a
// database: nodes with structural relationships, externally supplied property
// values, and the queries the caller wants evaluated.
//
// A scene may be split across any number of .hcl files under one directory
// tree; declaration order within and across files (sorted by path) defines
// node order and therefore sibling order.
package scene

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/propgrid/internal/ctxlog"
	"github.com/vk/propgrid/internal/fsutil"
	"github.com/vk/propgrid/internal/workqueue"
)

// Node is one declared scene node. Parent is empty for roots.
type Node struct {
	Name   string
	Parent string
}

// Input is one externally supplied property value on a node.
type Input struct {
	Node     string
	Property string
	Value    cty.Value
}

// QueryRequest asks for one computation on one node, at a given priority.
type QueryRequest struct {
	Node        string
	Computation string
	Priority    workqueue.Priority
}

// Scene is the format-agnostic model of a loaded scene.
type Scene struct {
	Nodes   []Node
	Inputs  []Input
	Queries []QueryRequest
}

// hclSceneFile is the decoding target for one scene file.
type hclSceneFile struct {
	Nodes   []*hclNode  `hcl:"node,block"`
	Inputs  []*hclInput `hcl:"input,block"`
	Queries []*hclQuery `hcl:"query,block"`
}

type hclNode struct {
	Name   string `hcl:"name,label"`
	Parent string `hcl:"parent,optional"`
}

type hclInput struct {
	Property string    `hcl:"property,label"`
	Node     string    `hcl:"node"`
	Value    cty.Value `hcl:"value"`
}

type hclQuery struct {
	Computation string `hcl:"computation,label"`
	Node        string `hcl:"node"`
	Priority    string `hcl:"priority,optional"`
}

// Load finds and parses every .hcl file under path into one Scene.
func Load(ctx context.Context, path string) (*Scene, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading scene from path", "path", path)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find scene files in %s: %w", path, err)
	}

	scene := &Scene{}
	if len(files) == 0 {
		logger.Warn("No .hcl scene files found in path, returning empty scene", "path", path)
		return scene, nil
	}

	parser := hclparse.NewParser()
	for _, file := range files {
		if err := scene.appendFile(file, parser); err != nil {
			return nil, err
		}
	}

	logger.Debug("Scene loaded.",
		"files", len(files),
		"nodes", len(scene.Nodes),
		"inputs", len(scene.Inputs),
		"queries", len(scene.Queries),
	)
	return scene, nil
}

func (s *Scene) appendFile(filePath string, parser *hclparse.Parser) error {
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse scene file %s: %w", filePath, diags)
	}

	var parsed hclSceneFile
	diags = gohcl.DecodeBody(hclFile.Body, nil, &parsed)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode scene file %s: %w", filePath, diags)
	}

	for _, n := range parsed.Nodes {
		s.Nodes = append(s.Nodes, Node{Name: n.Name, Parent: n.Parent})
	}
	for _, in := range parsed.Inputs {
		if in.Value.IsNull() {
			return fmt.Errorf("input %q on node %q in %s: value must not be null", in.Property, in.Node, filePath)
		}
		s.Inputs = append(s.Inputs, Input{Node: in.Node, Property: in.Property, Value: in.Value})
	}
	for _, q := range parsed.Queries {
		priority, err := parsePriority(q.Priority)
		if err != nil {
			return fmt.Errorf("query %q on node %q in %s: %w", q.Computation, q.Node, filePath, err)
		}
		s.Queries = append(s.Queries, QueryRequest{Node: q.Node, Computation: q.Computation, Priority: priority})
	}
	return nil
}

// parsePriority maps the optional priority attribute to a pool band. Queries
// default to High, matching initial-load semantics.
func parsePriority(raw string) (workqueue.Priority, error) {
	switch raw {
	case "":
		return workqueue.High, nil
	case "critical":
		return workqueue.Critical, nil
	case "high":
		return workqueue.High, nil
	case "low":
		return workqueue.Low, nil
	default:
		return 0, fmt.Errorf("unknown priority %q (want critical, high or low)", raw)
	}
}
