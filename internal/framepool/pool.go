// Package framepool tracks the lifecycle of intermediate ColumnarTables
// produced while evaluating a plan tree (spec.md §3: "All intermediate
// tables are owned by the evaluator frame that produced them and are
// released when the parent consumes them.").
//
// Adapted from the teacher's internal/storage/bufferpool.go BufferPool: the
// same memory-accounting-plus-LRU-doubly-linked-list shape, repurposed from
// a tenant/table-name keyed, eviction-on-overflow cache of on-disk-backable
// *storage.Table values into a frame-id keyed, refcounted cache of
// *table.ColumnarTable evaluator frames. A frame the evaluator is still
// holding a reference to is never evicted regardless of memory pressure;
// only frames every holder has Released become eviction candidates, and
// then only under a configured memory budget (0, the default, disables
// eviction entirely, matching DefaultMemoryPolicy's "unlimited" default).
package framepool

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/tinycolex/colexec/internal/table"
)

// FrameID identifies one evaluator frame's output table within a Pool.
// exec assigns these per plan.NodeID as each node is evaluated.
type FrameID uint32

// Policy configures a Pool's memory budget.
type Policy struct {
	// MaxBytes caps total tracked frame size; 0 means unlimited (no
	// eviction), matching the teacher's DefaultMemoryPolicy.
	MaxBytes int64
}

type entry struct {
	id       FrameID
	table    *table.ColumnarTable
	size     int64
	refcount int
	elem     *list.Element // position in lru, nil while refcount > 0
}

// Pool owns every live intermediate ColumnarTable produced during one plan
// evaluation. Acquire pins a frame so it survives eviction; Release unpins
// it, making it an eviction candidate once nothing else holds it.
type Pool struct {
	mu       sync.Mutex
	policy   Policy
	entries  map[FrameID]*entry
	lru      *list.List // least-recently-released frames at the front
	curBytes int64

	evictions int64
}

// New creates a Pool under the given policy.
func New(policy Policy) *Pool {
	return &Pool{
		policy:  policy,
		entries: make(map[FrameID]*entry),
		lru:     list.New(),
	}
}

// EstimateTableSize approximates a ColumnarTable's resident byte footprint
// as the sum of its columns' page bytes, grounded in the teacher's
// EstimateTableSize/EstimateColumnSize (which summed per-value estimates
// instead, since the teacher's tables were row-oriented; this engine's
// tables are already page-bytes, so the estimate is exact rather than
// heuristic).
func EstimateTableSize(t *table.ColumnarTable) int64 {
	var total int64
	for _, col := range t.Columns {
		for _, page := range col.Pages {
			total += int64(len(page))
		}
	}
	return total
}

// Put registers a frame's table with an initial refcount of 1 (the
// producing call holds the first reference) under id.
func (p *Pool) Put(id FrameID, t *table.ColumnarTable) {
	size := EstimateTableSize(t)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[id] = &entry{id: id, table: t, size: size, refcount: 1}
	p.curBytes += size
	p.maybeEvict()
}

// Acquire increments a frame's refcount, pinning it against eviction, and
// returns its table. Acquiring a frame the pool evicted or never saw
// returns (nil, false).
func (p *Pool) Acquire(id FrameID) (*table.ColumnarTable, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return nil, false
	}
	if e.refcount == 0 && e.elem != nil {
		p.lru.Remove(e.elem)
		e.elem = nil
	}
	e.refcount++
	return e.table, true
}

// Release decrements a frame's refcount. At zero, the frame becomes an
// eviction candidate (added to the LRU tail) rather than being dropped
// immediately, so a parent that re-visits a just-finished sibling frame
// within the same evaluation can still Acquire it.
func (p *Pool) Release(id FrameID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok || e.refcount == 0 {
		return
	}
	e.refcount--
	if e.refcount == 0 {
		e.elem = p.lru.PushBack(e)
		p.maybeEvict()
	}
}

// maybeEvict drops least-recently-released frames until the pool is back
// under its memory budget or no more evictable frames remain. Must be
// called with p.mu held.
func (p *Pool) maybeEvict() {
	if p.policy.MaxBytes <= 0 {
		return
	}
	for p.curBytes > p.policy.MaxBytes {
		front := p.lru.Front()
		if front == nil {
			return
		}
		e := front.Value.(*entry)
		p.lru.Remove(front)
		delete(p.entries, e.id)
		p.curBytes -= e.size
		p.evictions++
	}
}

// Stats reports current pool occupancy, for diagnostics.
type Stats struct {
	Bytes     int64
	Frames    int
	Evictions int64
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Bytes: p.curBytes, Frames: len(p.entries), Evictions: p.evictions}
}

// MustAcquire is a test/debug convenience that panics on a missing frame;
// production code should always check Acquire's ok return instead.
func (p *Pool) MustAcquire(id FrameID) *table.ColumnarTable {
	t, ok := p.Acquire(id)
	if !ok {
		panic(fmt.Sprintf("framepool: frame %d not found", id))
	}
	return t
}
