package join

import (
	"github.com/tinycolex/colexec/internal/column"
	"github.com/tinycolex/colexec/internal/table"
)

// SimpleJoin is the chained-hash-table join variant: the build side is
// materialized into a Go map keyed by the actual key value, the probe side
// is scanned once against it. Grounded in the teacher's
// internal/engine/optimizations.go HashJoinOptimizer.processHashJoin, which
// does the same thing over map[any][]Row; this rewrite generalizes it into
// one typed map per scalar type instead of boxing every key into an
// interface, dispatched by the build column's declared type.
func SimpleJoin(buildCol, probeCol *table.Column) ([]MatchPair, error) {
	if err := checkJoinable(buildCol, probeCol); err != nil {
		return nil, err
	}
	switch buildCol.Typ {
	case table.TypeI32:
		return simpleJoinI32(buildCol, probeCol)
	case table.TypeI64:
		return simpleJoinI64(buildCol, probeCol)
	case table.TypeF64:
		return simpleJoinF64(buildCol, probeCol)
	default:
		return nil, checkJoinable(buildCol, probeCol)
	}
}

func simpleJoinI32(buildCol, probeCol *table.Column) ([]MatchPair, error) {
	buildVals, err := column.ReadAsI32(buildCol)
	if err != nil {
		return nil, err
	}
	probeVals, err := column.ReadAsI32(probeCol)
	if err != nil {
		return nil, err
	}
	ht := make(map[int32][]int32, len(buildVals))
	for row, v := range buildVals {
		if !v.Valid {
			continue
		}
		ht[v.Value] = append(ht[v.Value], int32(row))
	}
	var out []MatchPair
	for row, v := range probeVals {
		if !v.Valid {
			continue
		}
		for _, b := range ht[v.Value] {
			out = append(out, MatchPair{ProbeRow: row, BuildRow: int(b)})
		}
	}
	return out, nil
}

func simpleJoinI64(buildCol, probeCol *table.Column) ([]MatchPair, error) {
	buildVals, err := column.ReadAsI64(buildCol)
	if err != nil {
		return nil, err
	}
	probeVals, err := column.ReadAsI64(probeCol)
	if err != nil {
		return nil, err
	}
	ht := make(map[int64][]int32, len(buildVals))
	for row, v := range buildVals {
		if !v.Valid {
			continue
		}
		ht[v.Value] = append(ht[v.Value], int32(row))
	}
	var out []MatchPair
	for row, v := range probeVals {
		if !v.Valid {
			continue
		}
		for _, b := range ht[v.Value] {
			out = append(out, MatchPair{ProbeRow: row, BuildRow: int(b)})
		}
	}
	return out, nil
}

func simpleJoinF64(buildCol, probeCol *table.Column) ([]MatchPair, error) {
	buildVals, err := column.ReadAsF64(buildCol)
	if err != nil {
		return nil, err
	}
	probeVals, err := column.ReadAsF64(probeCol)
	if err != nil {
		return nil, err
	}
	ht := make(map[float64][]int32, len(buildVals))
	for row, v := range buildVals {
		if !v.Valid {
			continue
		}
		ht[v.Value] = append(ht[v.Value], int32(row))
	}
	var out []MatchPair
	for row, v := range probeVals {
		if !v.Valid {
			continue
		}
		for _, b := range ht[v.Value] {
			out = append(out, MatchPair{ProbeRow: row, BuildRow: int(b)})
		}
	}
	return out, nil
}
