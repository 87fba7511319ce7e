// Package batch fans work out in fixed-size groups and fans the results back
// in, in input order.
package batch

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultSize is the number of concurrent calls per group.
const DefaultSize = 20

type indexed[R any] struct {
	idx int
	val R
}

// Run applies fn to every input. Inputs are processed in consecutive groups
// of size; within a group all calls run concurrently. Groups run one after
// another. The returned slice has one result per input in input order, no
// matter in which order the calls completed. The first error cancels the
// remaining calls of its group and is returned.
func Run[T, R any](ctx context.Context, inputs []T, size int, fn func(ctx context.Context, idx int, in T) (R, error)) ([]R, error) {
	if size < 1 {
		size = DefaultSize
	}
	out := make([]R, 0, len(inputs))

	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))

		results := make(chan indexed[R], end-start)
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				r, err := fn(gctx, i, inputs[i])
				if err != nil {
					return err
				}
				results <- indexed[R]{idx: i, val: r}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		close(results)

		group := make([]indexed[R], 0, end-start)
		for r := range results {
			group = append(group, r)
		}
		sort.Slice(group, func(a, b int) bool { return group[a].idx < group[b].idx })
		for _, r := range group {
			out = append(out, r.val)
		}
	}
	return out, nil
}

// Each is Run for calls that only mutate their input in place.
func Each[T any](ctx context.Context, inputs []T, size int, fn func(ctx context.Context, idx int, in T) error) error {
	_, err := Run(ctx, inputs, size, func(ctx context.Context, idx int, in T) (struct{}, error) {
		return struct{}{}, fn(ctx, idx, in)
	})
	return err
}
