package kron

import (
	"sync"
)

// parallelFor splits [0, n) into contiguous chunks of ceil(n/threads) and runs fn on each chunk in its own goroutine.
// It returns after every chunk completes.
func parallelFor(threads, n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if threads <= 1 || n == 1 {
		fn(0, n)
		return
	}

	chunk := (n + threads - 1) / threads
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(start, end)
		}()
	}
	wg.Wait()
}
