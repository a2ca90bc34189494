package analysis

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// forEach runs fn for 0..n-1 on at most limit goroutines (GOMAXPROCS when
// limit <= 0). fn writes to its own output slot, so no locking is needed.
// Only cancellation of ctx is reported.
func forEach(ctx context.Context, limit, n int, fn func(i int)) error {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
