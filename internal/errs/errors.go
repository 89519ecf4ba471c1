// Package errs defines the error taxonomy shared by every execution-engine
// component (column, hashtable, join, exec). Each sentinel is compared with
// errors.Is; call sites wrap it with fmt.Errorf's %w to add positional
// context (page index, column index, row index), the same layering the
// teacher's pager and compile packages use for their own errors.
package errs

import "errors"

var (
	// ErrOutOfRange: a plan references an input or node that does not exist.
	ErrOutOfRange = errors.New("plan: out of range")

	// ErrColumnMismatch: a projection references a column index past the
	// source width.
	ErrColumnMismatch = errors.New("schema: column mismatch")

	// ErrRowOverflow: a page's row count would push the cumulative row
	// index past the column's declared total.
	ErrRowOverflow = errors.New("read: row overflow")

	// ErrMalformedPage: a continuation page without a preceding start page,
	// an overflowing offset, or a truncated payload.
	ErrMalformedPage = errors.New("read: malformed page")

	// ErrUnsupportedKeyType: a join was requested on a string column.
	ErrUnsupportedKeyType = errors.New("join: unsupported key type")

	// ErrIncompatibleCast: a column was read at a type the data model does
	// not allow widening or narrowing to.
	ErrIncompatibleCast = errors.New("type: incompatible cast")
)
