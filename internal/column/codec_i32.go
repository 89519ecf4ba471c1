package column

import (
	"encoding/binary"
	"fmt"

	"github.com/tinycolex/colexec/internal/errs"
	"github.com/tinycolex/colexec/internal/table"
)

const i32DataOffset = 4

// I32PageIterator is a lazy, finite, non-restartable sequence of
// (logical_row_index, Option<int32>) over one column's page list.
type I32PageIterator struct {
	col         *table.Column
	pageIdx     int
	rowInPage   int
	numRows     int
	numNonNull  int
	nonNullSeen int
	page        []byte
	rowsSeen    int

	cur      int32
	curValid bool
	err      error
}

// NewI32PageIterator creates an iterator over col, which must be of type
// table.TypeI32.
func NewI32PageIterator(col *table.Column) *I32PageIterator {
	return &I32PageIterator{col: col}
}

// Next advances to the next logical row and reports whether one was
// available. Once it returns false (exhausted or erred), Err reports the
// terminal error, if any.
func (it *I32PageIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.rowInPage >= it.numRows {
			if it.pageIdx >= len(it.col.Pages) {
				return false
			}
			if err := it.loadPage(it.col.Pages[it.pageIdx]); err != nil {
				it.err = err
				return false
			}
			it.pageIdx++
			continue
		}
		break
	}
	if it.rowsSeen >= it.col.Rows {
		it.err = fmt.Errorf("%w: column declares %d rows", errs.ErrRowOverflow, it.col.Rows)
		return false
	}
	bitmap := it.page[PageSize-ceilDiv8(it.numRows):]
	valid := bitmapGet(bitmap, it.rowInPage)
	if valid {
		off := i32DataOffset + it.nonNullSeen*4
		it.cur = int32(binary.LittleEndian.Uint32(it.page[off : off+4]))
		it.nonNullSeen++
	} else {
		it.cur = 0
	}
	it.curValid = valid
	it.rowInPage++
	it.rowsSeen++
	return true
}

func (it *I32PageIterator) loadPage(page []byte) error {
	it.page = page
	it.numRows = int(binary.LittleEndian.Uint16(page[0:2]))
	it.rowInPage = 0
	it.nonNullSeen = 0
	if it.rowsSeen+it.numRows > it.col.Rows {
		return fmt.Errorf("%w: column declares %d rows", errs.ErrRowOverflow, it.col.Rows)
	}
	return nil
}

// Value returns the current row's value and whether it is non-null. Valid
// only after Next returns true.
func (it *I32PageIterator) Value() (int32, bool) {
	return it.cur, it.curValid
}

// Err returns the terminal iteration error, if any.
func (it *I32PageIterator) Err() error {
	return it.err
}

// I32Writer builds a table.Column of type I32 one value at a time,
// splitting pages as the fixed-width layout fills.
type I32Writer struct {
	pages  [][]byte
	vals   []int32
	valid  []bool
	rows   int
}

// NewI32Writer returns a fresh writer.
func NewI32Writer() *I32Writer {
	return &I32Writer{}
}

// Append adds one logical row. If valid is false, v is ignored.
func (w *I32Writer) Append(v int32, valid bool) {
	tentativeRows := w.rows + 1
	tentativeNonNull := len(w.vals)
	if valid {
		tentativeNonNull++
	}
	required := i32DataOffset + tentativeNonNull*4 + ceilDiv8(tentativeRows)
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

func (w *I32Writer) flush() {
	if w.rows == 0 {
		return
	}
	page := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(page[0:2], uint16(w.rows))
	for i, v := range w.vals {
		off := i32DataOffset + i*4
		binary.LittleEndian.PutUint32(page[off:off+4], uint32(v))
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
func (w *I32Writer) Finish() *table.Column {
	w.flush()
	total := 0
	for _, p := range w.pages {
		total += int(binary.LittleEndian.Uint16(p[0:2]))
	}
	return &table.Column{Typ: table.TypeI32, Pages: w.pages, Rows: total}
}
