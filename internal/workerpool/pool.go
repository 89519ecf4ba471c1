// Package workerpool provides the bounded-fan-out helper the partitioned
// join (internal/join) runs its build and probe phases on. Grounded in the
// teacher's internal/storage/concurrency.go WorkerPool: a semaphore-bounded
// goroutine pool joined by a sync.WaitGroup. The partitioned join's
// workload is a fixed, known-upfront set of page-range tasks rather than an
// open queue of incoming requests, so this rewrite drops the teacher's
// channel-based work queue and context-timeout machinery in favor of a
// single Run call that fans a fixed task count out and joins it.
package workerpool

import (
	"fmt"
	"sync"
)

// Run executes task(0), task(1), ..., task(n-1) concurrently, at most
// `limit` at a time (limit<=0 or limit>n means n, i.e. unbounded). A panic
// inside a task is recovered and reported as that task's error rather than
// taking down the process, mirroring the teacher's worker loop isolating
// one request's failure from the rest of the pool. Run returns the first
// non-nil error encountered, by task index, after every task has finished;
// it always waits for all tasks to complete even if one fails early.
func Run(n int, limit int, task func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	sem := make(chan struct{}, limit)
	errsOut := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					errsOut[i] = fmt.Errorf("worker %d panicked: %v", i, r)
				}
			}()
			errsOut[i] = task(i)
		}(i)
	}
	wg.Wait()

	for _, err := range errsOut {
		if err != nil {
			return err
		}
	}
	return nil
}
