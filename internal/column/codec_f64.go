package column

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tinycolex/colexec/internal/errs"
	"github.com/tinycolex/colexec/internal/table"
)

const f64DataOffset = 8

// F64PageIterator is a lazy, finite, non-restartable sequence of
// (logical_row_index, Option<float64>) over one column's page list.
type F64PageIterator struct {
	col         *table.Column
	pageIdx     int
	rowInPage   int
	numRows     int
	nonNullSeen int
	page        []byte
	rowsSeen    int

	cur      float64
	curValid bool
	err      error
}

// NewF64PageIterator creates an iterator over col, which must be of type
// table.TypeF64.
func NewF64PageIterator(col *table.Column) *F64PageIterator {
	return &F64PageIterator{col: col}
}

// Next advances to the next logical row.
func (it *F64PageIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.rowInPage >= it.numRows {
		if it.pageIdx >= len(it.col.Pages) {
			return false
		}
		if err := it.loadPage(it.col.Pages[it.pageIdx]); err != nil {
			it.err = err
			return false
		}
		it.pageIdx++
	}
	if it.rowsSeen >= it.col.Rows {
		it.err = fmt.Errorf("%w: column declares %d rows", errs.ErrRowOverflow, it.col.Rows)
		return false
	}
	bitmap := it.page[PageSize-ceilDiv8(it.numRows):]
	valid := bitmapGet(bitmap, it.rowInPage)
	if valid {
		off := f64DataOffset + it.nonNullSeen*8
		it.cur = math.Float64frombits(binary.LittleEndian.Uint64(it.page[off : off+8]))
		it.nonNullSeen++
	} else {
		it.cur = 0
	}
	it.curValid = valid
	it.rowInPage++
	it.rowsSeen++
	return true
}

func (it *F64PageIterator) loadPage(page []byte) error {
	it.page = page
	it.numRows = int(binary.LittleEndian.Uint16(page[0:2]))
	it.rowInPage = 0
	it.nonNullSeen = 0
	if it.rowsSeen+it.numRows > it.col.Rows {
		return fmt.Errorf("%w: column declares %d rows", errs.ErrRowOverflow, it.col.Rows)
	}
	return nil
}

// Value returns the current row's value and validity.
func (it *F64PageIterator) Value() (float64, bool) {
	return it.cur, it.curValid
}

// Err returns the terminal iteration error, if any.
func (it *F64PageIterator) Err() error {
	return it.err
}

// F64Writer builds a table.Column of type F64.
type F64Writer struct {
	pages [][]byte
	vals  []float64
	valid []bool
	rows  int
}

// NewF64Writer returns a fresh writer.
func NewF64Writer() *F64Writer {
	return &F64Writer{}
}

// Append adds one logical row. If valid is false, v is ignored.
func (w *F64Writer) Append(v float64, valid bool) {
	tentativeRows := w.rows + 1
	tentativeNonNull := len(w.vals)
	if valid {
		tentativeNonNull++
	}
	required := f64DataOffset + tentativeNonNull*8 + ceilDiv8(tentativeRows)
	if required > PageSize && w.rows > 0 {
		w.flush()
		tentativeRows = 1
		tentativeNonNull = 0
		if valid {
			tentativeNonNull = 1
		}
	}
	w.rows = tentativeRows
	w.valid = append(w.valid, valid)
	if valid {
		w.vals = append(w.vals, v)
	}
}

func (w *F64Writer) flush() {
	if w.rows == 0 {
		return
	}
	page := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(page[0:2], uint16(w.rows))
	for i, v := range w.vals {
		off := f64DataOffset + i*8
		binary.LittleEndian.PutUint64(page[off:off+8], math.Float64bits(v))
	}
	bitmap := page[PageSize-ceilDiv8(w.rows):]
	for i, ok := range w.valid {
		if ok {
			bitmapSet(bitmap, i)
		}
	}
	w.pages = append(w.pages, page)
	w.vals = w.vals[:0]
	w.valid = w.valid[:0]
	w.rows = 0
}

// Finish finalizes the column, flushing any pending page.
func (w *F64Writer) Finish() *table.Column {
	w.flush()
	total := 0
	for _, p := range w.pages {
		total += int(binary.LittleEndian.Uint16(p[0:2]))
	}
	return &table.Column{Typ: table.TypeF64, Pages: w.pages, Rows: total}
}
