package join

import (
	"testing"

	"github.com/tinycolex/colexec/internal/column"
	"github.com/tinycolex/colexec/internal/table"
)

// mkI32 builds an i32 column from vals, treating index i as null when
// nulls[i] is true.
func mkI32(t *testing.T, vals []int32, nulls map[int]bool) *table.Column {
	t.Helper()
	w := column.NewI32Writer()
	for i, v := range vals {
		w.Append(v, !nulls[i])
	}
	return w.Finish()
}

func TestSimpleJoinCardinality(t *testing.T) {
	build := mkI32(t, []int32{1, 1, 2, 3}, nil)
	probe := mkI32(t, []int32{1, 1, 2, 3}, nil)
	matches, err := SimpleJoin(build, probe)
	if err != nil {
		t.Fatalf("SimpleJoin: %v", err)
	}
	// count_B(1)=2, count_P(1)=2 -> 4; count_B(2)*count_P(2)=1; count_B(3)*count_P(3)=1
	if len(matches) != 6 {
		t.Fatalf("expected 6 matches, got %d: %v", len(matches), matches)
	}
}

func TestSimpleJoinNullKeysNeverMatch(t *testing.T) {
	build := mkI32(t, []int32{1, 0, 2}, map[int]bool{1: true})
	probe := mkI32(t, []int32{1, 0, 2}, map[int]bool{1: true})
	matches, err := SimpleJoin(build, probe)
	if err != nil {
		t.Fatalf("SimpleJoin: %v", err)
	}
	for _, m := range matches {
		if m.ProbeRow == 1 || m.BuildRow == 1 {
			t.Fatalf("a null row participated in a match: %v", m)
		}
	}
	if len(matches) != 2 {
		t.Fatalf("expected matches for rows 0 and 2 only, got %v", matches)
	}
}

func TestUnchainedJoinAgreesWithSimple(t *testing.T) {
	build := mkI32(t, []int32{1, 1, 2, 3, 5, -9, 1000000}, nil)
	probe := mkI32(t, []int32{1, 3, 3, 7, 5}, nil)

	simple, err := SimpleJoin(build, probe)
	if err != nil {
		t.Fatalf("SimpleJoin: %v", err)
	}
	unchained, err := UnchainedJoin(build, probe)
	if err != nil {
		t.Fatalf("UnchainedJoin: %v", err)
	}
	a := SortMatches(simple)
	b := SortMatches(unchained)
	if len(a) != len(b) {
		t.Fatalf("match count differs: simple=%d unchained=%d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("match %d differs: simple=%v unchained=%v", i, a[i], b[i])
		}
	}
}

func TestStringJoinKeyRejected(t *testing.T) {
	w := column.NewStringWriter()
	w.Append("a", true)
	col := w.Finish()
	if _, err := SimpleJoin(col, col); err == nil {
		t.Fatal("expected SimpleJoin to reject a string join key")
	}
	if _, err := UnchainedJoin(col, col); err == nil {
		t.Fatal("expected UnchainedJoin to reject a string join key")
	}
}
