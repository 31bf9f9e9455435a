// Package parallel splits row-indexed work across CPU cores.
package parallel

import (
	"runtime"
	"sync"
)

// Rows divides n row indices over the available CPU cores and runs fn
// on each contiguous [start, end) chunk concurrently.
func Rows(n int, fn func(start, end int)) {
	if n == 0 {
		return
	}
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
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

// RowsWithThreshold runs fn sequentially when n is at or below the
// threshold, where goroutine overhead would dominate.
func RowsWithThreshold(n, threshold int, fn func(start, end int)) {
	if n <= threshold {
		fn(0, n)
		return
	}
	Rows(n, fn)
}
