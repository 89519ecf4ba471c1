//go:build !linux

package workerpool

// Pin is a no-op on platforms without sched_setaffinity; thread pinning is
// an advisory scheduling hint only (spec.md §4.5), never required for
// correctness.
func Pin(workerIndex int) {}
