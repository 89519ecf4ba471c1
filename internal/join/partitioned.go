package join

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/tinycolex/colexec/internal/column"
	"github.com/tinycolex/colexec/internal/errs"
	"github.com/tinycolex/colexec/internal/hashtable"
	"github.com/tinycolex/colexec/internal/table"
	"github.com/tinycolex/colexec/internal/workerpool"
)

// NumShards is the fixed shard count spec.md §4.5 partitions the hash
// table by: the key hash's low log2(NumShards) bits select a shard.
const NumShards = 32

const shardMask = NumShards - 1

func shardOf(hash uint64) int {
	return int(hash & shardMask)
}

// PartitionConfig controls the partitioned join's worker count and
// progress logging.
type PartitionConfig struct {
	// Workers is P, the number of build/probe worker goroutines. <=0
	// selects DefaultPartitionConfig().Workers.
	Workers int
	// Pin requests advisory thread-to-core pinning for each worker
	// (spec.md §4.5). Off by default: it only helps on a dedicated,
	// unshared machine and actively hurts when the process shares cores
	// with other work.
	Pin bool
	// Logger receives state-machine transitions (BuildRunning,
	// BuildDone, ProbeRunning, ProbeDone). Nil disables logging.
	Logger *log.Logger
}

// DefaultPartitionConfig returns one worker per CPU, capped at the
// documented target of 32 (spec.md §4.5).
func DefaultPartitionConfig() PartitionConfig {
	p := runtime.NumCPU()
	if p > NumShards {
		p = NumShards
	}
	if p < 1 {
		p = 1
	}
	return PartitionConfig{Workers: p}
}

func (c PartitionConfig) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

// extractor reads a key column into a closure mapping a local (sub-column)
// row index to its (boxed key value, key hash, validity) triple. Keeping
// the type dispatch to this one function per type, instead of duplicating
// the sharding/worker orchestration below four times, follows the same
// "type-id switch selects the right typed implementation" shape the
// teacher uses for its builtin function table
// (internal/engine/exec.go's getAllFunctions), just over join-key
// types instead of SQL function names.
type extractor func(col *table.Column) (values func(localRow int) (key any, hash uint64, valid bool), n int, err error)

func extractorFor(typ table.Type) (extractor, error) {
	switch typ {
	case table.TypeI32:
		return extractI32, nil
	case table.TypeI64:
		return extractI64, nil
	case table.TypeF64:
		return extractF64, nil
	default:
		return nil, fmt.Errorf("%w: join key type %s", errs.ErrUnsupportedKeyType, typ)
	}
}

func extractI32(col *table.Column) (func(int) (any, uint64, bool), int, error) {
	vals, err := column.ReadAsI32(col)
	if err != nil {
		return nil, 0, err
	}
	return func(row int) (any, uint64, bool) {
		v := vals[row]
		if !v.Valid {
			return nil, 0, false
		}
		return v.Value, hashtable.HashI32(v.Value), true
	}, len(vals), nil
}

func extractI64(col *table.Column) (func(int) (any, uint64, bool), int, error) {
	vals, err := column.ReadAsI64(col)
	if err != nil {
		return nil, 0, err
	}
	return func(row int) (any, uint64, bool) {
		v := vals[row]
		if !v.Valid {
			return nil, 0, false
		}
		return v.Value, hashtable.HashI64(v.Value), true
	}, len(vals), nil
}

func extractF64(col *table.Column) (func(int) (any, uint64, bool), int, error) {
	vals, err := column.ReadAsF64(col)
	if err != nil {
		return nil, 0, err
	}
	return func(row int) (any, uint64, bool) {
		v := vals[row]
		if !v.Valid {
			return nil, 0, false
		}
		return v.Value, hashtable.HashF64(v.Value), true
	}, len(vals), nil
}

// shard is one of NumShards build-side partitions: an exact-key map (not a
// hash-only bucket, unlike internal/hashtable) guarded by its own mutex so
// build workers touching different shards never contend.
type shard struct {
	mu  sync.Mutex
	rows map[any][]int32
}

// PartitionedJoin runs the N-shard, P-worker parallel hash join of
// spec.md §4.5. Build workers each scan a disjoint page range of buildCol,
// partition their rows into NumShards thread-local maps, then fold those
// into the global shards under a per-shard lock (BuildRunning ->
// BuildDone is a hard fence: workerpool.Run does not return until every
// build worker has joined). Probe workers then each scan a disjoint page
// range of probeCol against the now-read-only shards and emit their
// matches into a private buffer, concatenated after ProbeDone.
func PartitionedJoin(buildCol, probeCol *table.Column, cfg PartitionConfig) ([]MatchPair, error) {
	if err := checkJoinable(buildCol, probeCol); err != nil {
		return nil, err
	}
	extract, err := extractorFor(buildCol.Typ)
	if err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultPartitionConfig().Workers
	}

	shards := make([]shard, NumShards)
	for i := range shards {
		shards[i].rows = make(map[any][]int32)
	}

	cfg.logf("join: BuildRunning (workers=%d)", cfg.Workers)
	buildRanges := column.PageRanges(buildCol, cfg.Workers)
	err = workerpool.Run(len(buildRanges), cfg.Workers, func(w int) error {
		if cfg.Pin {
			workerpool.Pin(w)
		}
		r := buildRanges[w]
		sub, startRow := column.Slice(buildCol, r[0], r[1])
		values, n, err := extract(sub)
		if err != nil {
			return err
		}
		local := make([]map[any][]int32, NumShards)
		for i := range local {
			local[i] = make(map[any][]int32)
		}
		for row := 0; row < n; row++ {
			key, hash, valid := values(row)
			if !valid {
				continue
			}
			s := shardOf(hash)
			local[s][key] = append(local[s][key], int32(startRow+row))
		}
		for s, m := range local {
			if len(m) == 0 {
				continue
			}
			shards[s].mu.Lock()
			for k, rows := range m {
				shards[s].rows[k] = append(shards[s].rows[k], rows...)
			}
			shards[s].mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cfg.logf("join: BuildDone")

	cfg.logf("join: ProbeRunning (workers=%d)", cfg.Workers)
	probeRanges := column.PageRanges(probeCol, cfg.Workers)
	buffers := make([][]MatchPair, len(probeRanges))
	err = workerpool.Run(len(probeRanges), cfg.Workers, func(w int) error {
		if cfg.Pin {
			workerpool.Pin(w)
		}
		r := probeRanges[w]
		sub, startRow := column.Slice(probeCol, r[0], r[1])
		values, n, err := extract(sub)
		if err != nil {
			return err
		}
		var buf []MatchPair
		for row := 0; row < n; row++ {
			key, hash, valid := values(row)
			if !valid {
				continue
			}
			s := shardOf(hash)
			for _, b := range shards[s].rows[key] {
				buf = append(buf, MatchPair{ProbeRow: startRow + row, BuildRow: int(b)})
			}
		}
		buffers[w] = buf
		return nil
	})
	if err != nil {
		return nil, err
	}
	cfg.logf("join: ProbeDone")

	var out []MatchPair
	for _, b := range buffers {
		out = append(out, b...)
	}
	return out, nil
}
