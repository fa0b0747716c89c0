package build

import (
	"context"
	"sync"
)

// Outcome pairs a request with its result or error for batch builds.
type Outcome struct {
	Request Request
	Result  *Result
	Err     error
}

// All runs independent builds concurrently and returns outcomes in request
// order. Requests sharing a resolved token map (Request.Tokens) may do so
// safely; the map is read-only inside the pipeline.
func (b *Builder) All(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			res, err := b.Build(ctx, req)
			outcomes[i] = Outcome{Request: req, Result: res, Err: err}
		}(i, req)
	}
	wg.Wait()

	return outcomes
}
