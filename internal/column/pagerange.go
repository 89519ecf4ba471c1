package column

import (
	"encoding/binary"

	"github.com/tinycolex/colexec/internal/table"
)

// PageRowCount returns the number of new logical rows a single page
// contributes to its column: 0 for a string continuation page, 1 for a
// string start page, its declared num_rows field otherwise.
func PageRowCount(typ table.Type, page []byte) int {
	nr := binary.LittleEndian.Uint16(page[0:2])
	if typ == table.TypeString {
		switch nr {
		case rowsLongStringStart:
			return 1
		case rowsLongStringCont:
			return 0
		}
	}
	return int(nr)
}

// Slice returns a column sharing pages [a,b) of col, with Rows set to the
// sum of those pages' logical row contributions, plus the global row index
// the sub-column's row 0 corresponds to in col. Used to hand each parallel
// worker a disjoint, contiguous row range of a column (spec.md §4.5: "...
// compute each range's global starting row index via a prefix sum over
// page row counts.").
func Slice(col *table.Column, a, b int) (sub *table.Column, startRow int) {
	for i := 0; i < a; i++ {
		startRow += PageRowCount(col.Typ, col.Pages[i])
	}
	subRows := 0
	for i := a; i < b; i++ {
		subRows += PageRowCount(col.Typ, col.Pages[i])
	}
	return &table.Column{Typ: col.Typ, Pages: col.Pages[a:b], Rows: subRows}, startRow
}

// PageRanges splits a column's page list into up to p contiguous,
// approximately equal (by page count) ranges.
func PageRanges(col *table.Column, p int) [][2]int {
	n := len(col.Pages)
	if p > n {
		p = n
	}
	if p <= 0 {
		return nil
	}
	ranges := make([][2]int, 0, p)
	base := n / p
	rem := n % p
	start := 0
	for i := 0; i < p; i++ {
		size := base
		if i < rem {
			size++
		}
		end := start + size
		if size > 0 {
			ranges = append(ranges, [2]int{start, end})
		}
		start = end
	}
	return ranges
}
