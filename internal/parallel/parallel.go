// Package parallel provides the work-pulling loop used by index
// construction and query scoring.
package parallel

import (
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// For runs fn(i) for every i in [begin, end). With numThreads <= 1 the
// loop runs serially on the calling goroutine. Otherwise numThreads
// workers pull indices from a shared counter, so uneven per-index work
// balances itself. The first error stops the pulling loop of every
// worker and is returned after all workers have finished.
func For(begin, end, numThreads uint64, fn func(i uint64) error) error {
	if numThreads <= 1 {
		for i := begin; i < end; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	counter := atomic.NewUint64(begin)
	failed := atomic.NewBool(false)

	var g errgroup.Group
	for t := uint64(0); t < numThreads; t++ {
		g.Go(func() error {
			for !failed.Load() {
				i := counter.Inc() - 1
				if i >= end {
					return nil
				}
				if err := fn(i); err != nil {
					failed.Store(true)
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
