package column

import (
	"encoding/binary"
	"fmt"

	"github.com/tinycolex/colexec/internal/errs"
	"github.com/tinycolex/colexec/internal/table"
)

const i64DataOffset = 8

// I64PageIterator is a lazy, finite, non-restartable sequence of
// (logical_row_index, Option<int64>) over one column's page list.
type I64PageIterator struct {
	col         *table.Column
	pageIdx     int
	rowInPage   int
	numRows     int
	nonNullSeen int
	page        []byte
	rowsSeen    int

	cur      int64
	curValid bool
	err      error
}

// NewI64PageIterator creates an iterator over col, which must be of type
// table.TypeI64.
func NewI64PageIterator(col *table.Column) *I64PageIterator {
	return &I64PageIterator{col: col}
}

// Next advances to the next logical row.
func (it *I64PageIterator) Next() bool {
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
		off := i64DataOffset + it.nonNullSeen*8
		it.cur = int64(binary.LittleEndian.Uint64(it.page[off : off+8]))
		it.nonNullSeen++
	} else {
		it.cur = 0
	}
	it.curValid = valid
	it.rowInPage++
	it.rowsSeen++
	return true
}

func (it *I64PageIterator) loadPage(page []byte) error {
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
func (it *I64PageIterator) Value() (int64, bool) {
	return it.cur, it.curValid
}

// Err returns the terminal iteration error, if any.
func (it *I64PageIterator) Err() error {
	return it.err
}

// I64Writer builds a table.Column of type I64.
type I64Writer struct {
	pages [][]byte
	vals  []int64
	valid []bool
	rows  int
}

// NewI64Writer returns a fresh writer.
func NewI64Writer() *I64Writer {
	return &I64Writer{}
}

// Append adds one logical row. If valid is false, v is ignored.
func (w *I64Writer) Append(v int64, valid bool) {
	tentativeRows := w.rows + 1
	tentativeNonNull := len(w.vals)
	if valid {
		tentativeNonNull++
	}
	required := i64DataOffset + tentativeNonNull*8 + ceilDiv8(tentativeRows)
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

func (w *I64Writer) flush() {
	if w.rows == 0 {
		return
	}
	page := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(page[0:2], uint16(w.rows))
	for i, v := range w.vals {
		off := i64DataOffset + i*8
		binary.LittleEndian.PutUint64(page[off:off+8], uint64(v))
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
func (w *I64Writer) Finish() *table.Column {
	w.flush()
	total := 0
	for _, p := range w.pages {
		total += int(binary.LittleEndian.Uint16(p[0:2]))
	}
	return &table.Column{Typ: table.TypeI64, Pages: w.pages, Rows: total}
}
