// Package parallel runs index ranges across a bounded set of goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Workers returns n clamped to [1, items], with n <= 0 meaning one worker per CPU.
func Workers(n, items int) int {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > items {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Parallelize splits [0, items) into contiguous chunks, one per CPU, and calls
// fn(start, end) for each chunk concurrently. It returns when all chunks are done.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := Workers(0, items)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) inline when items <= threshold
// and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEach calls fn(i) for every i in [0, items) on at most workers goroutines.
// Work is handed out by index, so results written to fn's own slot are
// independent of scheduling.
func ForEach(items, workers int, fn func(i int)) {
	if items == 0 {
		return
	}
	workers = Workers(workers, items)
	if workers == 1 {
		for i := 0; i < items; i++ {
			fn(i)
		}
		return
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	for i := 0; i < items; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}
