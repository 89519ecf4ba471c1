package colexec_test

import (
	"errors"
	"testing"

	"github.com/tinycolex/colexec"
	"github.com/tinycolex/colexec/internal/column"
	"github.com/tinycolex/colexec/internal/join"
	"github.com/tinycolex/colexec/internal/plan"
	"github.com/tinycolex/colexec/internal/table"
	"github.com/tinycolex/colexec/internal/testhelper"
)

var errNullInOutput = errors.New("unexpected null in join output column")

func loadFixtures(t *testing.T) map[string]*table.ColumnarTable {
	t.Helper()
	tables, err := testhelper.LoadFixtures("testdata/fixtures.yml")
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	return tables
}

// selfEquiJoinPlan builds the plan used by scenarios 1-6: scan left and
// right from the same column index in each of two (possibly identical)
// input tables, join on column 0, project both join columns.
func selfEquiJoinPlan(left, right *table.ColumnarTable, buildLeft bool) *plan.Plan {
	return &plan.Plan{
		Inputs: []*table.ColumnarTable{left, right},
		Nodes: []plan.Node{
			&plan.ScanNode{BaseTableID: 0, Output: []plan.OutputAttr{{SourceCol: 0, Type: table.TypeI32}}},
			&plan.ScanNode{BaseTableID: 1, Output: []plan.OutputAttr{{SourceCol: 0, Type: table.TypeI32}}},
			&plan.JoinNode{
				Left: 0, Right: 1,
				LeftAttr: 0, RightAttr: 0,
				BuildLeft: buildLeft,
				Output: []plan.OutputAttr{
					{SourceCol: 0, Type: table.TypeI32},
					{SourceCol: 1, Type: table.TypeI32},
				},
			},
		},
		Root: 2,
	}
}

type wantRow struct{ a, b int32 }

func wantRows(pairs ...[2]int32) []wantRow {
	out := make([]wantRow, len(pairs))
	for i, p := range pairs {
		out[i] = wantRow{p[0], p[1]}
	}
	return out
}

func checkI32Pairs(t *testing.T, got *table.ColumnarTable, want []wantRow) {
	t.Helper()
	if got.Width() != 2 {
		t.Fatalf("expected 2 output columns, got %d", got.Width())
	}
	if got.NumRows != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), got.NumRows)
	}
	a, err := columnValues(got.Columns[0])
	if err != nil {
		t.Fatalf("read col 0: %v", err)
	}
	b, err := columnValues(got.Columns[1])
	if err != nil {
		t.Fatalf("read col 1: %v", err)
	}
	gotRows := make([]wantRow, len(a))
	for i := range a {
		gotRows[i] = wantRow{a[i], b[i]}
	}
	sortRows(gotRows)
	sorted := append([]wantRow(nil), want...)
	sortRows(sorted)
	if len(gotRows) != len(sorted) {
		t.Fatalf("row count mismatch after sort: got %v want %v", gotRows, sorted)
	}
	for i := range gotRows {
		if gotRows[i] != sorted[i] {
			t.Fatalf("row %d mismatch: got %v want %v (full got=%v want=%v)", i, gotRows[i], sorted[i], gotRows, sorted)
		}
	}
}

func sortRows(rows []wantRow) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0; j-- {
			if rows[j].a < rows[j-1].a || (rows[j].a == rows[j-1].a && rows[j].b < rows[j-1].b) {
				rows[j], rows[j-1] = rows[j-1], rows[j]
			} else {
				break
			}
		}
	}
}

func columnValues(col *table.Column) ([]int32, error) {
	opts, err := column.ReadAsI32(col)
	if err != nil {
		return nil, err
	}
	vals := make([]int32, len(opts))
	for i, v := range opts {
		if !v.Valid {
			return nil, errNullInOutput
		}
		vals[i] = v.Value
	}
	return vals, nil
}

func TestScenarios(t *testing.T) {
	fx := loadFixtures(t)

	scenarios := []struct {
		name  string
		left  string
		right string
		want  []wantRow
	}{
		{"empty_x_empty", "empty_i32", "empty_i32", wantRows()},
		{"singleton_match", "one_1", "one_1", wantRows([2]int32{1, 1})},
		{"no_dupes_all_match", "seq_123", "seq_123", wantRows([2]int32{1, 1}, [2]int32{2, 2}, [2]int32{3, 3})},
		{"disjoint_no_match", "seq_123", "seq_456", wantRows()},
		{"duplicate_keys_cartesian", "dup_1123", "dup_1123",
			wantRows([2]int32{1, 1}, [2]int32{1, 1}, [2]int32{1, 1}, [2]int32{1, 1}, [2]int32{2, 2}, [2]int32{3, 3})},
		{"null_keys_excluded", "dup_with_null", "dup_with_null",
			wantRows([2]int32{1, 1}, [2]int32{1, 1}, [2]int32{1, 1}, [2]int32{1, 1}, [2]int32{2, 2}, [2]int32{3, 3})},
	}

	strategies := []struct {
		name string
		opt  colexec.ContextOption
	}{
		{"simple", colexec.WithJoinStrategy(colexec.JoinSimple)},
		{"unchained", colexec.WithJoinStrategy(colexec.JoinUnchained)},
		{"partitioned", colexec.WithPartitionConfig(colexec.PartitionConfig{Workers: 4})},
	}

	for _, sc := range scenarios {
		sc := sc
		for _, st := range strategies {
			st := st
			t.Run(sc.name+"/"+st.name, func(t *testing.T) {
				p := selfEquiJoinPlan(fx[sc.left], fx[sc.right], true)
				ctx := colexec.NewContext(st.opt)
				defer ctx.Close()
				got, err := colexec.Execute(p, ctx)
				if err != nil {
					t.Fatalf("execute: %v", err)
				}
				checkI32Pairs(t, got, sc.want)
			})
		}
	}
}

// TestBuildSideSymmetry is property #4: swapping build_left must not
// change the result multiset once output rows are sorted.
func TestBuildSideSymmetry(t *testing.T) {
	fx := loadFixtures(t)
	left, right := fx["dup_1123"], fx["dup_1123"]

	pLeft := selfEquiJoinPlan(left, right, true)
	pRight := selfEquiJoinPlan(left, right, false)

	ctx := colexec.NewContext()
	defer ctx.Close()

	gotLeft, err := colexec.Execute(pLeft, ctx)
	if err != nil {
		t.Fatalf("execute build_left=true: %v", err)
	}
	gotRight, err := colexec.Execute(pRight, ctx)
	if err != nil {
		t.Fatalf("execute build_left=false: %v", err)
	}
	want := wantRows([2]int32{1, 1}, [2]int32{1, 1}, [2]int32{1, 1}, [2]int32{1, 1}, [2]int32{2, 2}, [2]int32{3, 3})
	checkI32Pairs(t, gotLeft, want)
	checkI32Pairs(t, gotRight, want)
}

// TestSelfJoinProjectsStringColumn is scenario 7.
func TestSelfJoinProjectsStringColumn(t *testing.T) {
	fx := loadFixtures(t)
	src := fx["key_and_label"]

	p := &plan.Plan{
		Inputs: []*table.ColumnarTable{src},
		Nodes: []plan.Node{
			&plan.ScanNode{BaseTableID: 0, Output: []plan.OutputAttr{
				{SourceCol: 0, Type: table.TypeI32},
				{SourceCol: 1, Type: table.TypeString},
			}},
			&plan.ScanNode{BaseTableID: 0, Output: []plan.OutputAttr{
				{SourceCol: 0, Type: table.TypeI32},
			}},
			&plan.JoinNode{
				Left: 0, Right: 1,
				LeftAttr: 0, RightAttr: 0,
				BuildLeft: true,
				Output: []plan.OutputAttr{
					{SourceCol: 0, Type: table.TypeI32}, // left k
					{SourceCol: 2, Type: table.TypeI32}, // right k (leftWidth=2)
					{SourceCol: 1, Type: table.TypeString}, // left s
				},
			},
		},
		Root: 2,
	}

	ctx := colexec.NewContext()
	defer ctx.Close()
	got, err := colexec.Execute(p, ctx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.NumRows != 6 {
		t.Fatalf("expected 6 rows, got %d", got.NumRows)
	}
}

// TestUnsupportedStringJoinKey checks JoinError::UnsupportedKeyType.
func TestUnsupportedStringJoinKey(t *testing.T) {
	fx := loadFixtures(t)
	src := fx["key_and_label"]

	p := &plan.Plan{
		Inputs: []*table.ColumnarTable{src},
		Nodes: []plan.Node{
			&plan.ScanNode{BaseTableID: 0, Output: []plan.OutputAttr{{SourceCol: 1, Type: table.TypeString}}},
			&plan.ScanNode{BaseTableID: 0, Output: []plan.OutputAttr{{SourceCol: 1, Type: table.TypeString}}},
			&plan.JoinNode{
				Left: 0, Right: 1, LeftAttr: 0, RightAttr: 0, BuildLeft: true,
				Output: []plan.OutputAttr{{SourceCol: 0, Type: table.TypeString}},
			},
		},
		Root: 2,
	}
	ctx := colexec.NewContext()
	defer ctx.Close()
	_, err := colexec.Execute(p, ctx)
	if err == nil {
		t.Fatal("expected an error for a string join key")
	}
	if !errors.Is(err, colexec.ErrUnsupportedKeyType) {
		t.Fatalf("expected ErrUnsupportedKeyType, got %v", err)
	}
}

// TestPartitioningInvariance is property #5: the partitioned join's match
// multiset equals the simple join's, for the same inputs.
func TestPartitioningInvariance(t *testing.T) {
	fx := loadFixtures(t)
	buildCol := fx["dup_1123"].Columns[0]
	probeCol := fx["dup_1123"].Columns[0]

	simple, err := join.SimpleJoin(buildCol, probeCol)
	if err != nil {
		t.Fatalf("simple join: %v", err)
	}
	partitioned, err := join.PartitionedJoin(buildCol, probeCol, join.PartitionConfig{Workers: 4})
	if err != nil {
		t.Fatalf("partitioned join: %v", err)
	}
	a := join.SortMatches(simple)
	b := join.SortMatches(partitioned)
	if len(a) != len(b) {
		t.Fatalf("match count differs: simple=%d partitioned=%d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("match %d differs: simple=%v partitioned=%v", i, a[i], b[i])
		}
	}
}
