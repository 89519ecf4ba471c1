package framepool

import (
	"testing"

	"github.com/tinycolex/colexec/internal/column"
	"github.com/tinycolex/colexec/internal/table"
)

func makeFrame(rows int) *table.ColumnarTable {
	w := column.NewI32Writer()
	for i := 0; i < rows; i++ {
		w.Append(int32(i), true)
	}
	return &table.ColumnarTable{Columns: []*table.Column{w.Finish()}, NumRows: rows}
}

func TestPutAcquireRelease(t *testing.T) {
	p := New(Policy{})
	f := makeFrame(10)
	p.Put(1, f)

	got, ok := p.Acquire(1)
	if !ok {
		t.Fatal("expected frame 1 to be present")
	}
	if got != f {
		t.Fatal("Acquire returned a different table than Put stored")
	}
	p.Release(1) // drops the Acquire's reference
	p.Release(1) // drops Put's initial reference

	if _, ok := p.Acquire(2); ok {
		t.Fatal("expected frame 2 to be absent")
	}
}

func TestUnboundedPolicyNeverEvicts(t *testing.T) {
	p := New(Policy{})
	for i := FrameID(0); i < 100; i++ {
		p.Put(i, makeFrame(50))
		p.Release(i)
	}
	if stats := p.Stats(); stats.Evictions != 0 {
		t.Fatalf("expected no evictions under an unlimited policy, got %d", stats.Evictions)
	}
}

func TestMemoryBudgetEvictsReleasedFrames(t *testing.T) {
	// Each frame is small; set a budget that only fits a couple at once.
	f := makeFrame(1)
	size := EstimateTableSize(f)
	p := New(Policy{MaxBytes: size * 2})

	p.Put(1, f)
	p.Release(1)
	p.Put(2, makeFrame(1))
	p.Release(2)
	p.Put(3, makeFrame(1))
	p.Release(3)

	if _, ok := p.Acquire(1); ok {
		t.Fatal("expected the oldest released frame to have been evicted")
	}
	if _, ok := p.Acquire(3); !ok {
		t.Fatal("expected the most recently released frame to still be present")
	}
}

func TestAcquiredFrameSurvivesMemoryPressure(t *testing.T) {
	f := makeFrame(1)
	size := EstimateTableSize(f)
	p := New(Policy{MaxBytes: size})

	p.Put(1, f)
	// still holding the Put reference (never released), so frame 1 must
	// never be evicted no matter how much pressure follows
	for i := FrameID(2); i < 20; i++ {
		p.Put(i, makeFrame(1))
		p.Release(i)
	}
	if _, ok := p.Acquire(1); !ok {
		t.Fatal("expected a held (unreleased) frame to survive eviction")
	}
}
