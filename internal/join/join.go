// Package join implements the hash-join operator of spec.md §4.4 in three
// variants that share the same contract (MatchPair pairs of probe/build row
// indices, build-side type dispatch, null keys never match, VARCHAR keys
// rejected): Simple (a single chained Go map, grounded in the teacher's
// internal/engine/optimizations.go HashJoinOptimizer), Unchained (backed by
// internal/hashtable's directory+Bloom table, with an explicit key
// re-verification step the bare hash table does not perform itself), and
// Partitioned (N-way sharded, P-worker parallel build/probe, grounded in the
// teacher's internal/storage/concurrency.go worker-pool idiom).
package join

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/tinycolex/colexec/internal/errs"
	"github.com/tinycolex/colexec/internal/table"
)

// MatchPair is one output row of a join: the probe-side row index paired
// with the build-side row index it matched.
type MatchPair struct {
	ProbeRow int
	BuildRow int
}

// checkJoinable rejects join keys the engine does not support and
// mismatched build/probe column types, per spec.md §4.4: "VARCHAR as a
// join key type is not supported" and "the implementation enforces the
// build side's type and assumes the probe side matches it."
func checkJoinable(buildCol, probeCol *table.Column) error {
	if buildCol.Typ == table.TypeString {
		return fmt.Errorf("%w: join key type %s", errs.ErrUnsupportedKeyType, buildCol.Typ)
	}
	if buildCol.Typ != probeCol.Typ {
		return fmt.Errorf("%w: build key type %s, probe key type %s", errs.ErrColumnMismatch, buildCol.Typ, probeCol.Typ)
	}
	return nil
}

// SortMatches orders matches by (ProbeRow, BuildRow). The three join
// variants make no ordering guarantee of their own (partitioning and
// worker scheduling are free to reorder output), so tests compare join
// results after sorting rather than relying on a particular variant's
// incidental order (spec.md §9 Open Question: comparing join outputs).
func SortMatches(m []MatchPair) []MatchPair {
	out := make([]MatchPair, len(m))
	copy(out, m)
	slices.SortFunc(out, func(a, b MatchPair) int {
		if a.ProbeRow != b.ProbeRow {
			return a.ProbeRow - b.ProbeRow
		}
		return a.BuildRow - b.BuildRow
	})
	return out
}
