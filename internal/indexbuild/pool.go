package indexbuild

import "sync"

// runPool dispatches n items to a fixed-size pool of workers, calling fn(i)
// for each item index in [0,n). Workers pull from a shared index channel —
// the Go analogue of the source's shared work-queue worker pool (spec.md
// §4.4/§5), without its polling loop.
func runPool(workers, n int, fn func(i int)) {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if n == 0 {
		return
	}

	indices := make(chan int, n)
	for i := 0; i < n; i++ {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				fn(i)
			}
		}()
	}
	wg.Wait()
}
