// Package colexec is the embeddable columnar analytic join engine of
// spec.md: a page-based column format, typed readers/writers over it, an
// unchained hash table, three hash-join variants, and a plan evaluator
// tying them together. There is no CLI, no environment-variable
// configuration, and no on-disk state (spec.md §6) — callers build a
// plan.Plan in memory and call Execute.
package colexec

import (
	"log"

	"github.com/tinycolex/colexec/internal/errs"
	"github.com/tinycolex/colexec/internal/exec"
	"github.com/tinycolex/colexec/internal/framepool"
	"github.com/tinycolex/colexec/internal/join"
	"github.com/tinycolex/colexec/internal/plan"
	"github.com/tinycolex/colexec/internal/table"
)

// Error taxonomy (spec.md §7), re-exported as sentinels so a caller can
// use errors.Is(err, colexec.ErrOutOfRange) without reaching into an
// internal package.
var (
	// ErrOutOfRange: PlanError::OutOfRange — a plan references an input or
	// node that does not exist.
	ErrOutOfRange = errs.ErrOutOfRange
	// ErrColumnMismatch: SchemaError::ColumnMismatch — a projection
	// references a column index past the source width.
	ErrColumnMismatch = errs.ErrColumnMismatch
	// ErrRowOverflow: ReadError::RowOverflow — a page's row count would
	// exceed the column's declared total.
	ErrRowOverflow = errs.ErrRowOverflow
	// ErrMalformedPage: ReadError::MalformedPage — a malformed page
	// (orphan continuation, overflowing offset, truncated payload).
	ErrMalformedPage = errs.ErrMalformedPage
	// ErrUnsupportedKeyType: JoinError::UnsupportedKeyType — a join was
	// requested on a string column.
	ErrUnsupportedKeyType = errs.ErrUnsupportedKeyType
	// ErrIncompatibleCast: TypeError::IncompatibleCast — a column was read
	// at a type the widening rules do not permit.
	ErrIncompatibleCast = errs.ErrIncompatibleCast
)

// JoinStrategy selects the hash-join algorithm every Join node in a plan
// uses for one Execute call.
type JoinStrategy = exec.Strategy

const (
	JoinSimple      = exec.StrategySimple
	JoinUnchained   = exec.StrategyUnchained
	JoinPartitioned = exec.StrategyPartitioned
)

// PartitionConfig configures the partitioned join's worker count, thread
// pinning, and progress logging (spec.md §4.5). Meaningful only when
// Context.Strategy is JoinPartitioned.
type PartitionConfig = join.PartitionConfig

// Context is the reserved implementation-state handle spec.md §6 calls
// build_context()/destroy_context(): which join algorithm Execute uses,
// plus where it logs state-machine transitions. It carries no connections,
// files, or other resources that Close must release today, but the hook
// exists so a future concurrency backend (e.g. a long-lived worker pool)
// has somewhere to attach without changing Execute's signature.
type Context struct {
	strategy      JoinStrategy
	partition     PartitionConfig
	logger        *log.Logger
	frameMaxBytes int64
}

// ContextOption configures a Context built by NewContext.
type ContextOption func(*Context)

// WithJoinStrategy selects which hash-join algorithm Execute uses for
// every Join node in the plan. The default, when concurrency is disabled
// (no WithJoinStrategy / WithPartitionConfig given), is JoinSimple,
// matching spec.md §4.4's "Simple variant ... used when concurrency is
// disabled."
func WithJoinStrategy(s JoinStrategy) ContextOption {
	return func(c *Context) { c.strategy = s }
}

// WithPartitionConfig selects JoinPartitioned and configures its worker
// count, pinning, and logging in one call.
func WithPartitionConfig(cfg PartitionConfig) ContextOption {
	return func(c *Context) {
		c.strategy = JoinPartitioned
		c.partition = cfg
	}
}

// WithLogger attaches a logger that receives partitioned-join
// state-machine transitions (spec.md §4.5). Nil (the default) disables
// logging, matching the core's "does not log" propagation policy for
// everything except this opt-in diagnostic.
func WithLogger(l *log.Logger) ContextOption {
	return func(c *Context) { c.logger = l }
}

// WithFrameMemoryLimit caps the total size of intermediate result tables
// (every scan and join node's output) Execute keeps alive at once
// (spec.md §3's evaluator-frame ownership model); 0, the default, leaves
// it unbounded. Only meaningful for plans deep or wide enough that
// intermediate join results would otherwise accumulate.
func WithFrameMemoryLimit(maxBytes int64) ContextOption {
	return func(c *Context) { c.frameMaxBytes = maxBytes }
}

// NewContext builds a Context. With no options, joins run single-threaded
// via the Simple variant.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{strategy: JoinSimple}
	for _, opt := range opts {
		opt(c)
	}
	if c.strategy == JoinPartitioned {
		if c.logger != nil {
			c.partition.Logger = c.logger
		}
		if c.partition.Workers <= 0 {
			c.partition.Workers = join.DefaultPartitionConfig().Workers
		}
	}
	return c
}

// Close releases any resources the Context holds. It is a no-op today
// (see Context's doc comment) but kept so callers can defer it without
// caring whether a future version needs it.
func (c *Context) Close() {}

// Execute walks p's node tree from its root and returns the materialized
// result table, or the first error encountered — synchronously, with no
// partial result on failure (spec.md §7).
func Execute(p *plan.Plan, ctx *Context) (*table.ColumnarTable, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	return exec.Evaluate(p, exec.Options{
		Strategy:  ctx.strategy,
		Partition: ctx.partition,
		Frames:    framepool.Policy{MaxBytes: ctx.frameMaxBytes},
	})
}
