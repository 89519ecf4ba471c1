package column

import (
	"encoding/binary"
	"fmt"

	"github.com/tinycolex/colexec/internal/errs"
	"github.com/tinycolex/colexec/internal/table"
)

// StringPageIterator is a lazy, finite, non-restartable sequence of
// (logical_row_index, Option<string>) over one column's page list. It
// transparently merges a long-string start page with its continuation
// pages into a single logical row.
type StringPageIterator struct {
	col      *table.Column
	pageIdx  int
	rowsSeen int

	inBatch     bool
	page        []byte
	numRows     int
	rowInPage   int
	numNonNull  int
	nonNullSeen int
	offsetsBase int
	charsBase   int
	prevOffset  int

	cur      string
	curValid bool
	err      error
}

// NewStringPageIterator creates an iterator over col, which must be of type
// table.TypeString.
func NewStringPageIterator(col *table.Column) *StringPageIterator {
	return &StringPageIterator{col: col}
}

// Next advances to the next logical row.
func (it *StringPageIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.inBatch && it.rowInPage < it.numRows {
		return it.nextBatchRow()
	}
	for {
		if it.pageIdx >= len(it.col.Pages) {
			return false
		}
		page := it.col.Pages[it.pageIdx]
		numRows := binary.LittleEndian.Uint16(page[0:2])
		switch numRows {
		case rowsLongStringStart:
			it.pageIdx++
			buf, err := it.collectLongString(page)
			if err != nil {
				it.err = err
				return false
			}
			if it.rowsSeen >= it.col.Rows {
				it.err = fmt.Errorf("%w: column declares %d rows", errs.ErrRowOverflow, it.col.Rows)
				return false
			}
			it.cur = string(buf)
			it.curValid = true
			it.rowsSeen++
			it.inBatch = false
			return true
		case rowsLongStringCont:
			it.err = fmt.Errorf("%w: continuation page without preceding start", errs.ErrMalformedPage)
			return false
		default:
			if err := it.loadBatchPage(page); err != nil {
				it.err = err
				return false
			}
			it.pageIdx++
			if it.numRows == 0 {
				continue
			}
			return it.nextBatchRow()
		}
	}
}

// collectLongString reads a 0xFFFF start page and every immediately
// following 0xFFFE continuation page, concatenating their payloads.
func (it *StringPageIterator) collectLongString(startPage []byte) ([]byte, error) {
	count := int(binary.LittleEndian.Uint16(startPage[2:4]))
	if 4+count > PageSize {
		return nil, fmt.Errorf("%w: long string start count overflows page", errs.ErrMalformedPage)
	}
	buf := append([]byte(nil), startPage[4:4+count]...)
	for it.pageIdx < len(it.col.Pages) {
		next := it.col.Pages[it.pageIdx]
		nr := binary.LittleEndian.Uint16(next[0:2])
		if nr != rowsLongStringCont {
			break
		}
		it.pageIdx++
		c := int(binary.LittleEndian.Uint16(next[2:4]))
		if 4+c > PageSize {
			return nil, fmt.Errorf("%w: long string continuation count overflows page", errs.ErrMalformedPage)
		}
		buf = append(buf, next[4:4+c]...)
	}
	return buf, nil
}

func (it *StringPageIterator) loadBatchPage(page []byte) error {
	it.page = page
	it.numRows = int(binary.LittleEndian.Uint16(page[0:2]))
	it.numNonNull = int(binary.LittleEndian.Uint16(page[2:4]))
	it.rowInPage = 0
	it.nonNullSeen = 0
	it.prevOffset = 0
	it.offsetsBase = 4
	it.charsBase = 4 + 2*it.numNonNull
	bitmapStart := PageSize - ceilDiv8(it.numRows)
	if it.charsBase > bitmapStart {
		return fmt.Errorf("%w: offset table overflows page", errs.ErrMalformedPage)
	}
	if it.rowsSeen+it.numRows > it.col.Rows {
		return fmt.Errorf("%w: column declares %d rows", errs.ErrRowOverflow, it.col.Rows)
	}
	it.inBatch = true
	return nil
}

func (it *StringPageIterator) nextBatchRow() bool {
	bitmap := it.page[PageSize-ceilDiv8(it.numRows):]
	valid := bitmapGet(bitmap, it.rowInPage)
	if valid {
		offOff := it.offsetsBase + it.nonNullSeen*2
		end := int(binary.LittleEndian.Uint16(it.page[offOff : offOff+2]))
		bitmapStart := PageSize - ceilDiv8(it.numRows)
		if end < it.prevOffset || it.charsBase+end > bitmapStart {
			it.err = fmt.Errorf("%w: string offset out of range", errs.ErrMalformedPage)
			return false
		}
		it.cur = string(it.page[it.charsBase+it.prevOffset : it.charsBase+end])
		it.prevOffset = end
		it.nonNullSeen++
	} else {
		it.cur = ""
	}
	it.curValid = valid
	it.rowInPage++
	it.rowsSeen++
	return true
}

// Value returns the current row's value and validity.
func (it *StringPageIterator) Value() (string, bool) {
	return it.cur, it.curValid
}

// Err returns the terminal iteration error, if any.
func (it *StringPageIterator) Err() error {
	return it.err
}

// StringWriter builds a table.Column of type String, choosing short-batch
// pages for strings that fit and long-string start/continuation pages for
// ones that don't (spec.md §4.1). Because every long string is emitted in
// one call as a complete start-plus-continuations run, a 0xFFFE page can
// never be the first page this writer produces for a column.
type StringWriter struct {
	pages   [][]byte
	offsets []uint16
	chars   []byte
	valid   []bool
	rows    int
}

// NewStringWriter returns a fresh writer.
func NewStringWriter() *StringWriter {
	return &StringWriter{}
}

// Append adds one logical row. If valid is false, s is ignored.
func (w *StringWriter) Append(s string, valid bool) {
	if !valid {
		tentativeRows := w.rows + 1
		required := 4 + 2*len(w.offsets) + len(w.chars) + ceilDiv8(tentativeRows)
		if required > PageSize && w.rows > 0 {
			w.flushBatch()
			tentativeRows = 1
		}
		w.rows = tentativeRows
		w.valid = append(w.valid, false)
		return
	}
	b := []byte(s)
	tentativeRows := w.rows + 1
	tentativeNonNull := len(w.offsets) + 1
	tentativeChars := len(w.chars) + len(b)
	required := 4 + 2*tentativeNonNull + tentativeChars + ceilDiv8(tentativeRows)
	if required <= PageSize {
		w.commitString(b)
		return
	}
	w.flushBatch()
	freshRequired := 4 + 2 + len(b) + ceilDiv8(1)
	if freshRequired <= PageSize {
		w.commitString(b)
		return
	}
	w.emitLongString(b)
}

func (w *StringWriter) commitString(b []byte) {
	w.chars = append(w.chars, b...)
	w.offsets = append(w.offsets, uint16(len(w.chars)))
	w.valid = append(w.valid, true)
	w.rows++
}

func (w *StringWriter) flushBatch() {
	if w.rows == 0 {
		return
	}
	page := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(page[0:2], uint16(w.rows))
	binary.LittleEndian.PutUint16(page[2:4], uint16(len(w.offsets)))
	offBase := 4
	for i, off := range w.offsets {
		o := offBase + i*2
		binary.LittleEndian.PutUint16(page[o:o+2], off)
	}
	charsBase := offBase + 2*len(w.offsets)
	copy(page[charsBase:charsBase+len(w.chars)], w.chars)
	bitmap := page[PageSize-ceilDiv8(w.rows):]
	for i, ok := range w.valid {
		if ok {
			bitmapSet(bitmap, i)
		}
	}
	w.pages = append(w.pages, page)
	w.offsets = w.offsets[:0]
	w.chars = w.chars[:0]
	w.valid = w.valid[:0]
	w.rows = 0
}

// emitLongString writes one 0xFFFF start page followed by as many 0xFFFE
// continuation pages as needed, each filled to capacity except the last.
func (w *StringWriter) emitLongString(b []byte) {
	capPerPage := PageSize - 4
	n := len(b)
	if n > capPerPage {
		n = capPerPage
	}
	page := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(page[0:2], rowsLongStringStart)
	binary.LittleEndian.PutUint16(page[2:4], uint16(n))
	copy(page[4:4+n], b[:n])
	w.pages = append(w.pages, page)

	remaining := b[n:]
	for len(remaining) > 0 {
		m := len(remaining)
		if m > capPerPage {
			m = capPerPage
		}
		cp := make([]byte, PageSize)
		binary.LittleEndian.PutUint16(cp[0:2], rowsLongStringCont)
		binary.LittleEndian.PutUint16(cp[2:4], uint16(m))
		copy(cp[4:4+m], remaining[:m])
		w.pages = append(w.pages, cp)
		remaining = remaining[m:]
	}
}

// Finish finalizes the column, flushing any pending batch page.
func (w *StringWriter) Finish() *table.Column {
	w.flushBatch()
	if len(w.pages) > 0 && binary.LittleEndian.Uint16(w.pages[0][0:2]) == rowsLongStringCont {
		panic("column: string column starts with a continuation page")
	}
	total := 0
	for _, p := range w.pages {
		nr := binary.LittleEndian.Uint16(p[0:2])
		switch nr {
		case rowsLongStringStart:
			total++
		case rowsLongStringCont:
		default:
			total += int(nr)
		}
	}
	return &table.Column{Typ: table.TypeString, Pages: w.pages, Rows: total}
}
