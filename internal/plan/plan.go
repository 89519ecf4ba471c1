// Package plan defines the plan-tree schema the execution engine
// evaluates: a DAG of Scan and Join nodes over already-materialized input
// tables. Plan construction and optimization are out of scope (spec.md
// §1); this package only holds the shapes a caller hands to
// internal/exec.Evaluate.
package plan

import (
	"fmt"

	"github.com/tinycolex/colexec/internal/errs"
	"github.com/tinycolex/colexec/internal/table"
)

// NodeID identifies a node within a Plan's Nodes slice.
type NodeID uint32

// OutputAttr describes one column of a node's output schema: the column
// index in the relevant source (the base table for a Scan, or the
// concatenated left/right output for a Join) and its declared type.
type OutputAttr struct {
	SourceCol uint32
	Type      table.Type
}

// Node is either a ScanNode or a JoinNode.
type Node interface {
	OutputAttrs() []OutputAttr
	planNode()
}

// ScanNode references one input table by index; which of its columns are
// projected, and in what order, is entirely determined by Output's
// SourceCol entries (spec.md §6: "ScanNode { base_table_id: u32 }", with
// output_attrs carried by every node).
type ScanNode struct {
	BaseTableID uint32
	Output      []OutputAttr
}

func (s *ScanNode) OutputAttrs() []OutputAttr { return s.Output }
func (s *ScanNode) planNode()                 {}

// JoinNode references two child nodes, a build-side flag, the two
// join-attribute column indices (relative to each child's own output
// schema), and the projection.
type JoinNode struct {
	Left, Right        NodeID
	LeftAttr, RightAttr uint32
	BuildLeft           bool
	Output              []OutputAttr
}

func (j *JoinNode) OutputAttrs() []OutputAttr { return j.Output }
func (j *JoinNode) planNode()                 {}

// Plan is a directed acyclic tree of nodes with a designated root, plus the
// already-materialized input tables the leaves (Scan nodes) read from.
type Plan struct {
	Inputs []*table.ColumnarTable
	Nodes  []Node
	Root   NodeID
}

// Node returns the node at id, or ErrOutOfRange if id is not a valid index.
func (p *Plan) Node(id NodeID) (Node, error) {
	if int(id) >= len(p.Nodes) {
		return nil, fmt.Errorf("%w: node %d (have %d nodes)", errs.ErrOutOfRange, id, len(p.Nodes))
	}
	return p.Nodes[id], nil
}

// Input returns the input table at idx, or ErrOutOfRange if idx is not a
// valid index.
func (p *Plan) Input(idx uint32) (*table.ColumnarTable, error) {
	if int(idx) >= len(p.Inputs) {
		return nil, fmt.Errorf("%w: input %d (have %d inputs)", errs.ErrOutOfRange, idx, len(p.Inputs))
	}
	return p.Inputs[idx], nil
}
