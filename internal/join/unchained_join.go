package join

import (
	"github.com/tinycolex/colexec/internal/column"
	"github.com/tinycolex/colexec/internal/hashtable"
	"github.com/tinycolex/colexec/internal/table"
)

// UnchainedJoin is the hash-join variant backed by internal/hashtable's
// directory+Bloom-filter table. hashtable.Table.Probe only guarantees a
// hash match, not a key match (spec.md §4.3, §9); this layer closes that
// gap by re-reading the candidate's actual build-side value and comparing
// it against the probe key before emitting a MatchPair, so a 64-bit hash
// collision between two distinct keys can never produce a false match.
func UnchainedJoin(buildCol, probeCol *table.Column) ([]MatchPair, error) {
	if err := checkJoinable(buildCol, probeCol); err != nil {
		return nil, err
	}
	switch buildCol.Typ {
	case table.TypeI32:
		return unchainedJoinI32(buildCol, probeCol)
	case table.TypeI64:
		return unchainedJoinI64(buildCol, probeCol)
	case table.TypeF64:
		return unchainedJoinF64(buildCol, probeCol)
	default:
		return nil, checkJoinable(buildCol, probeCol)
	}
}

func unchainedJoinI32(buildCol, probeCol *table.Column) ([]MatchPair, error) {
	buildVals, err := column.ReadAsI32(buildCol)
	if err != nil {
		return nil, err
	}
	probeVals, err := column.ReadAsI32(probeCol)
	if err != nil {
		return nil, err
	}

	entries := make([]hashtable.HashedRow, 0, len(buildVals))
	for row, v := range buildVals {
		if !v.Valid {
			continue
		}
		entries = append(entries, hashtable.HashedRow{Hash: hashtable.HashI32(v.Value), Row: row})
	}
	ht := hashtable.Build(entries)

	var out []MatchPair
	var cand []int32
	for row, v := range probeVals {
		if !v.Valid {
			continue
		}
		cand = cand[:0]
		cand = ht.Probe(hashtable.HashI32(v.Value), cand)
		for _, b := range cand {
			if buildVals[b].Value != v.Value {
				continue
			}
			out = append(out, MatchPair{ProbeRow: row, BuildRow: int(b)})
		}
	}
	return out, nil
}

func unchainedJoinI64(buildCol, probeCol *table.Column) ([]MatchPair, error) {
	buildVals, err := column.ReadAsI64(buildCol)
	if err != nil {
		return nil, err
	}
	probeVals, err := column.ReadAsI64(probeCol)
	if err != nil {
		return nil, err
	}

	entries := make([]hashtable.HashedRow, 0, len(buildVals))
	for row, v := range buildVals {
		if !v.Valid {
			continue
		}
		entries = append(entries, hashtable.HashedRow{Hash: hashtable.HashI64(v.Value), Row: row})
	}
	ht := hashtable.Build(entries)

	var out []MatchPair
	var cand []int32
	for row, v := range probeVals {
		if !v.Valid {
			continue
		}
		cand = cand[:0]
		cand = ht.Probe(hashtable.HashI64(v.Value), cand)
		for _, b := range cand {
			if buildVals[b].Value != v.Value {
				continue
			}
			out = append(out, MatchPair{ProbeRow: row, BuildRow: int(b)})
		}
	}
	return out, nil
}

func unchainedJoinF64(buildCol, probeCol *table.Column) ([]MatchPair, error) {
	buildVals, err := column.ReadAsF64(buildCol)
	if err != nil {
		return nil, err
	}
	probeVals, err := column.ReadAsF64(probeCol)
	if err != nil {
		return nil, err
	}

	entries := make([]hashtable.HashedRow, 0, len(buildVals))
	for row, v := range buildVals {
		if !v.Valid {
			continue
		}
		entries = append(entries, hashtable.HashedRow{Hash: hashtable.HashF64(v.Value), Row: row})
	}
	ht := hashtable.Build(entries)

	var out []MatchPair
	var cand []int32
	for row, v := range probeVals {
		if !v.Valid {
			continue
		}
		cand = cand[:0]
		cand = ht.Probe(hashtable.HashF64(v.Value), cand)
		for _, b := range cand {
			if buildVals[b].Value != v.Value {
				continue
			}
			out = append(out, MatchPair{ProbeRow: row, BuildRow: int(b)})
		}
	}
	return out, nil
}
