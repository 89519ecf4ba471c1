//go:build linux

package workerpool

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin advisorily binds the calling goroutine's OS thread to CPU core
// (workerIndex mod NumCPU), per spec.md §4.5's pinning hint for build and
// probe workers. It locks the goroutine to its OS thread first, since
// sched_setaffinity applies to the calling thread, not the goroutine.
// Failures are ignored: pinning is a scheduling hint, not correctness-
// affecting, so an unprivileged or containerized environment that can't
// set affinity still runs correctly, just without the hint.
func Pin(workerIndex int) {
	runtime.LockOSThread()
	n := runtime.NumCPU()
	if n == 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(workerIndex % n)
	_ = unix.SchedSetaffinity(0, &set)
}
