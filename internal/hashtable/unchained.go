package hashtable

// Compile-time layout constants (spec.md §4.3).
const (
	DirLog2         = 14
	DirSize         = 1 << DirLog2 // 16384 slots, plus one sentinel at DirSize
	PointerBits     = 48
	FilterBits      = 16
	hashToSlotShift = 64 - DirLog2

	pointerMask = (uint64(1) << PointerBits) - 1
)

// slotOf returns the directory slot for a full 64-bit hash: its high
// DirLog2 bits.
func slotOf(hash uint64) uint32 {
	return uint32(hash >> hashToSlotShift)
}

// tagOf derives the 16-bit Bloom tag for a hash: four 4-bit nibbles of the
// hash each select one of the 16 filter bits.
func tagOf(hash uint64) uint16 {
	var tag uint16
	tag |= 1 << (hash & 0xF)
	tag |= 1 << ((hash >> 4) & 0xF)
	tag |= 1 << ((hash >> 8) & 0xF)
	tag |= 1 << ((hash >> 12) & 0xF)
	return tag
}

// pack combines a 48-bit tuple-storage offset and a 16-bit filter into one
// directory word. A portable (non-pointer-arithmetic) packing, per
// spec.md §9.
func pack(offset uint64, filter uint16) uint64 {
	return (offset & pointerMask) | (uint64(filter) << PointerBits)
}

func unpackOffset(entry uint64) uint64 {
	return entry & pointerMask
}

func unpackFilter(entry uint64) uint16 {
	return uint16(entry >> PointerBits)
}

// HashedRow pairs a build-side row index with its key's precomputed hash.
// The hashtable package is deliberately key-type agnostic: the caller
// (internal/join) computes the hash with the right hashtable.HashI32 /
// HashI64 / HashF64 / HashString function for its join column's type and
// skips null keys before handing rows to Build.
type HashedRow struct {
	Hash uint64
	Row  int
}

// Table is a read-only, one-shot hash table: built once from a
// materialized key column, probed any number of times, never resized. It
// does not verify key equality — every stored entry whose hash matches the
// probe hash is returned as a candidate; collision handling (if the caller
// has no downstream equality filter) is the caller's responsibility
// (spec.md §4.3, §9).
type Table struct {
	directory [DirSize + 1]uint64
	rows      []int32
	hashes    []uint64
}

// Build constructs the table from the given (hash, row) pairs. Null keys
// must already be excluded by the caller.
func Build(entries []HashedRow) *Table {
	t := &Table{}
	var counts [DirSize]int32
	var filters [DirSize]uint16
	slots := make([]uint32, len(entries))
	for i, e := range entries {
		s := slotOf(e.Hash)
		slots[i] = s
		counts[s]++
		filters[s] |= tagOf(e.Hash)
	}

	var offsets [DirSize + 1]uint64
	var running uint64
	for i := 0; i < DirSize; i++ {
		offsets[i] = running
		running += uint64(counts[i])
		t.directory[i] = pack(offsets[i], filters[i])
	}
	offsets[DirSize] = running
	t.directory[DirSize] = pack(running, 0)

	t.rows = make([]int32, len(entries))
	t.hashes = make([]uint64, len(entries))
	cursor := offsets
	for i, e := range entries {
		s := slots[i]
		pos := cursor[s]
		cursor[s]++
		t.rows[pos] = int32(e.Row)
		t.hashes[pos] = e.Hash
	}
	return t
}

// Probe returns the build-side row indices whose stored hash equals hash.
// The Bloom filter is consulted first to short-circuit slots that cannot
// possibly contain a match.
func (t *Table) Probe(hash uint64, dst []int32) []int32 {
	slot := slotOf(hash)
	entry := t.directory[slot]
	next := t.directory[slot+1]
	filter := unpackFilter(entry)
	if tagOf(hash)&^filter != 0 {
		return dst
	}
	start := unpackOffset(entry)
	end := unpackOffset(next)
	for i := start; i < end; i++ {
		if t.hashes[i] == hash {
			dst = append(dst, t.rows[i])
		}
	}
	return dst
}

// Len returns the number of entries stored (excludes the sentinel slot).
func (t *Table) Len() int {
	return len(t.rows)
}
