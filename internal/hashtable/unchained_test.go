package hashtable

import "testing"

func TestUnchainedBuildProbe(t *testing.T) {
	keys := []int32{1, 1, 2, 3, 100000, -7}
	entries := make([]HashedRow, len(keys))
	for i, k := range keys {
		entries[i] = HashedRow{Hash: HashI32(k), Row: i}
	}
	tbl := Build(entries)
	if tbl.Len() != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), tbl.Len())
	}

	// probing for key 1 should surface both its rows as candidates
	var dst []int32
	dst = tbl.Probe(HashI32(1), dst)
	if len(dst) != 2 {
		t.Fatalf("expected 2 candidates for key 1, got %d (%v)", len(dst), dst)
	}
	for _, row := range dst {
		if keys[row] != 1 {
			t.Fatalf("probe for key 1 returned row %d with key %d", row, keys[row])
		}
	}

	// a key never inserted should yield no candidates (absent a hash
	// collision, which this small fixed key set does not exhibit)
	dst = dst[:0]
	dst = tbl.Probe(HashI32(999), dst)
	if len(dst) != 0 {
		t.Fatalf("expected no candidates for an absent key, got %v", dst)
	}
}

func TestUnchainedBuildEmpty(t *testing.T) {
	tbl := Build(nil)
	if tbl.Len() != 0 {
		t.Fatalf("expected 0 entries, got %d", tbl.Len())
	}
	var dst []int32
	dst = tbl.Probe(HashI32(1), dst)
	if len(dst) != 0 {
		t.Fatalf("expected no candidates from an empty table, got %v", dst)
	}
}

func TestSlotInRangeAndTagNonzero(t *testing.T) {
	h := HashI32(12345)
	s := slotOf(h)
	if s >= DirSize {
		t.Fatalf("slot %d out of directory range [0,%d)", s, DirSize)
	}
	tag := tagOf(h)
	if tag == 0 {
		t.Fatal("expected a nonzero Bloom tag for a nonzero hash")
	}
}
