// Package exec implements the plan evaluator of spec.md §4.6: a recursive
// walk of a plan.Plan's node tree that evaluates Scan nodes by projection
// and Join nodes by build/probe/materialize, dispatched per node type the
// same way the teacher's internal/engine/exec.go walks a query plan's
// operator tree (processJoins and friends) with a type switch per node
// kind.
package exec

import (
	"fmt"

	"github.com/tinycolex/colexec/internal/column"
	"github.com/tinycolex/colexec/internal/errs"
	"github.com/tinycolex/colexec/internal/framepool"
	"github.com/tinycolex/colexec/internal/join"
	"github.com/tinycolex/colexec/internal/plan"
	"github.com/tinycolex/colexec/internal/table"
)

// Strategy selects which hash-join algorithm Evaluate uses for every Join
// node in the plan (spec.md §4.4-§4.5 describe three: a chained map, an
// unchained-table-backed variant, and an N-way partitioned parallel one).
type Strategy int

const (
	// StrategySimple is the single-threaded chained-map join, the
	// default when concurrency is disabled (spec.md §4.4).
	StrategySimple Strategy = iota
	// StrategyUnchained is the single-threaded unchained-table-backed
	// join, re-verifying keys to rule out hash collisions.
	StrategyUnchained
	// StrategyPartitioned is the N-shard, P-worker parallel join
	// (spec.md §4.5).
	StrategyPartitioned
)

// Options configures a single Evaluate call.
type Options struct {
	Strategy  Strategy
	Partition join.PartitionConfig
	// Frames caps the memory held by intermediate evaluator output tables
	// (scan and join nodes alike) (spec.md §3's "owned by the evaluator frame that
	// produced them" lifecycle); 0 leaves it unbounded.
	Frames framepool.Policy
}

// Evaluate walks p's node tree from its root and returns the materialized
// result table, or the first error encountered (spec.md §7: "errors
// surface immediately out of execute; no partial result is returned").
//
// Every node's output table, scan and join alike, is registered with a
// framepool.Pool under its plan.NodeID as it's produced, holding one
// reference on behalf of its parent, and Released by the parent once it
// has finished consuming it (the root's output is never Released) —
// the plan tree's node ids double as frame ids since a tree (unlike a
// general DAG) never needs a node's output read by more than one parent
// at a time.
func Evaluate(p *plan.Plan, opts Options) (*table.ColumnarTable, error) {
	frames := framepool.New(opts.Frames)
	return evalNode(p, p.Root, frames, opts)
}

func evalNode(p *plan.Plan, id plan.NodeID, frames *framepool.Pool, opts Options) (*table.ColumnarTable, error) {
	n, err := p.Node(id)
	if err != nil {
		return nil, err
	}
	var out *table.ColumnarTable
	switch node := n.(type) {
	case *plan.ScanNode:
		out, err = evalScan(p, node)
	case *plan.JoinNode:
		out, err = evalJoin(p, node, frames, opts)
	default:
		return nil, fmt.Errorf("exec: unhandled plan node type %T", n)
	}
	if err != nil {
		return nil, err
	}
	frames.Put(framepool.FrameID(id), out)
	return out, nil
}

func evalScan(p *plan.Plan, n *plan.ScanNode) (*table.ColumnarTable, error) {
	src, err := p.Input(n.BaseTableID)
	if err != nil {
		return nil, err
	}
	out := &table.ColumnarTable{Columns: make([]*table.Column, len(n.Output))}
	for i, attr := range n.Output {
		if int(attr.SourceCol) >= len(src.Columns) {
			return nil, fmt.Errorf("%w: scan projects column %d, source table has %d columns",
				errs.ErrColumnMismatch, attr.SourceCol, len(src.Columns))
		}
		out.Columns[i] = src.Columns[attr.SourceCol]
	}
	out.NumRows = src.NumRows
	return out, nil
}

func evalJoin(p *plan.Plan, n *plan.JoinNode, frames *framepool.Pool, opts Options) (*table.ColumnarTable, error) {
	left, err := evalNode(p, n.Left, frames, opts)
	if err != nil {
		return nil, err
	}
	right, err := evalNode(p, n.Right, frames, opts)
	if err != nil {
		return nil, err
	}
	// evalNode registers each child's output at refcount 1 on its behalf;
	// once this node has finished reading both (build/probe/materialize
	// below), it releases them, making them eviction candidates (spec.md
	// §3: released when the parent consumes them).
	defer frames.Release(framepool.FrameID(n.Left))
	defer frames.Release(framepool.FrameID(n.Right))

	leftWidth := left.Width()

	var buildSide, probeSide *table.ColumnarTable
	var buildAttr, probeAttr uint32
	if n.BuildLeft {
		buildSide, buildAttr = left, n.LeftAttr
		probeSide, probeAttr = right, n.RightAttr
	} else {
		buildSide, buildAttr = right, n.RightAttr
		probeSide, probeAttr = left, n.LeftAttr
	}
	if int(buildAttr) >= len(buildSide.Columns) || int(probeAttr) >= len(probeSide.Columns) {
		return nil, fmt.Errorf("%w: join attribute out of range", errs.ErrColumnMismatch)
	}
	buildCol := buildSide.Columns[buildAttr]
	probeCol := probeSide.Columns[probeAttr]

	// matches are always (probeRow, buildRow) pairs; swap back to
	// (left, right) by consulting BuildLeft, per spec.md §4.4's exposed
	// property test hook.
	var matches []join.MatchPair
	switch opts.Strategy {
	case StrategyUnchained:
		matches, err = join.UnchainedJoin(buildCol, probeCol)
	case StrategyPartitioned:
		matches, err = join.PartitionedJoin(buildCol, probeCol, opts.Partition)
	default:
		matches, err = join.SimpleJoin(buildCol, probeCol)
	}
	if err != nil {
		return nil, err
	}

	out := &table.ColumnarTable{Columns: make([]*table.Column, len(n.Output))}
	for i, attr := range n.Output {
		col, err := materialize(left, right, leftWidth, attr, n.BuildLeft, matches)
		if err != nil {
			return nil, err
		}
		out.Columns[i] = col
	}
	out.NumRows = len(matches)
	return out, nil
}

// materialize builds one output column of a Join node's result: for each
// match pair, the value at the correct side's row index (left or right,
// determined by comparing the output attribute's source_col against the
// left child's output width), or null if the source was null.
func materialize(left, right *table.ColumnarTable, leftWidth int, attr plan.OutputAttr, buildLeft bool, matches []join.MatchPair) (*table.Column, error) {
	var src *table.ColumnarTable
	var srcIdx uint32
	var fromLeft bool
	if int(attr.SourceCol) < leftWidth {
		src, srcIdx, fromLeft = left, attr.SourceCol, true
	} else {
		src, srcIdx, fromLeft = right, attr.SourceCol-uint32(leftWidth), false
	}
	if int(srcIdx) >= len(src.Columns) {
		return nil, fmt.Errorf("%w: output attribute references column %d past source width", errs.ErrColumnMismatch, srcIdx)
	}
	srcCol := src.Columns[srcIdx]

	rowFor := func(m join.MatchPair) int {
		if buildLeft == fromLeft {
			return m.BuildRow
		}
		return m.ProbeRow
	}

	switch attr.Type {
	case table.TypeI32:
		vals, err := column.ReadAsI32(srcCol)
		if err != nil {
			return nil, err
		}
		w := column.NewI32Writer()
		for _, m := range matches {
			v := vals[rowFor(m)]
			w.Append(v.Value, v.Valid)
		}
		return w.Finish(), nil
	case table.TypeI64:
		vals, err := column.ReadAsI64(srcCol)
		if err != nil {
			return nil, err
		}
		w := column.NewI64Writer()
		for _, m := range matches {
			v := vals[rowFor(m)]
			w.Append(v.Value, v.Valid)
		}
		return w.Finish(), nil
	case table.TypeF64:
		vals, err := column.ReadAsF64(srcCol)
		if err != nil {
			return nil, err
		}
		w := column.NewF64Writer()
		for _, m := range matches {
			v := vals[rowFor(m)]
			w.Append(v.Value, v.Valid)
		}
		return w.Finish(), nil
	case table.TypeString:
		vals, err := column.ReadAsString(srcCol)
		if err != nil {
			return nil, err
		}
		w := column.NewStringWriter()
		for _, m := range matches {
			v := vals[rowFor(m)]
			w.Append(v.Value, v.Valid)
		}
		return w.Finish(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported output attribute type %s", errs.ErrIncompatibleCast, attr.Type)
	}
}
