package column

import (
	"fmt"

	"github.com/tinycolex/colexec/internal/errs"
	"github.com/tinycolex/colexec/internal/table"
)

// OptI32 is an optional 32-bit signed integer.
type OptI32 struct {
	Value int32
	Valid bool
}

// OptI64 is an optional 64-bit signed integer.
type OptI64 struct {
	Value int64
	Valid bool
}

// OptF64 is an optional 64-bit float.
type OptF64 struct {
	Value float64
	Valid bool
}

// OptString is an optional string.
type OptString struct {
	Value string
	Valid bool
}

// ReadAsI32 materializes col as a sequence of Option<int32> of exactly
// col.Rows entries. Only an I32 column may be read this way.
func ReadAsI32(col *table.Column) ([]OptI32, error) {
	if col.Typ != table.TypeI32 {
		return nil, fmt.Errorf("%w: cannot read %s column as i32", errs.ErrIncompatibleCast, col.Typ)
	}
	out := make([]OptI32, 0, col.Rows)
	it := NewI32PageIterator(col)
	for it.Next() {
		v, ok := it.Value()
		out = append(out, OptI32{Value: v, Valid: ok})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadAsI64 materializes col as a sequence of Option<int64>. i32 columns
// are widened losslessly; i64 columns are read directly; any other type is
// rejected.
func ReadAsI64(col *table.Column) ([]OptI64, error) {
	switch col.Typ {
	case table.TypeI64:
		out := make([]OptI64, 0, col.Rows)
		it := NewI64PageIterator(col)
		for it.Next() {
			v, ok := it.Value()
			out = append(out, OptI64{Value: v, Valid: ok})
		}
		if err := it.Err(); err != nil {
			return nil, err
		}
		return out, nil
	case table.TypeI32:
		src, err := ReadAsI32(col)
		if err != nil {
			return nil, err
		}
		out := make([]OptI64, len(src))
		for i, v := range src {
			out[i] = OptI64{Value: int64(v.Value), Valid: v.Valid}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot read %s column as i64", errs.ErrIncompatibleCast, col.Typ)
	}
}

// ReadAsF64 materializes col as a sequence of Option<float64>. i32 and i64
// columns are widened (lossy for i64 beyond 2^53, permitted by spec); f64
// columns are read directly; any other type is rejected.
func ReadAsF64(col *table.Column) ([]OptF64, error) {
	switch col.Typ {
	case table.TypeF64:
		out := make([]OptF64, 0, col.Rows)
		it := NewF64PageIterator(col)
		for it.Next() {
			v, ok := it.Value()
			out = append(out, OptF64{Value: v, Valid: ok})
		}
		if err := it.Err(); err != nil {
			return nil, err
		}
		return out, nil
	case table.TypeI32:
		src, err := ReadAsI32(col)
		if err != nil {
			return nil, err
		}
		out := make([]OptF64, len(src))
		for i, v := range src {
			out[i] = OptF64{Value: float64(v.Value), Valid: v.Valid}
		}
		return out, nil
	case table.TypeI64:
		src, err := ReadAsI64(col)
		if err != nil {
			return nil, err
		}
		out := make([]OptF64, len(src))
		for i, v := range src {
			out[i] = OptF64{Value: float64(v.Value), Valid: v.Valid}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot read %s column as f64", errs.ErrIncompatibleCast, col.Typ)
	}
}

// ReadAsString materializes col as a sequence of Option<string>. Only a
// String column may be read this way: reading a numeric column as string,
// or a string column as numeric, is a programming error rejected with
// ErrIncompatibleCast (spec.md §4.2).
func ReadAsString(col *table.Column) ([]OptString, error) {
	if col.Typ != table.TypeString {
		return nil, fmt.Errorf("%w: cannot read %s column as string", errs.ErrIncompatibleCast, col.Typ)
	}
	out := make([]OptString, 0, col.Rows)
	it := NewStringPageIterator(col)
	for it.Next() {
		v, ok := it.Value()
		out = append(out, OptString{Value: v, Valid: ok})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
