package jobpool

import "context"

// ForEach applies fn to each item on a pool of size workers.
// It builds one job per item and delegates to RunAll, returning the aggregated
// error (errors.Join) or nil when all succeed.
func ForEach[T any](ctx context.Context, size uint, items []T, fn func(T) error, opts ...Option) error {
	if len(items) == 0 {
		return nil
	}
	jobs := make([]func() error, 0, len(items))
	for i := range items {
		item := items[i] // capture
		jobs = append(jobs, func() error { return fn(item) })
	}
	return RunAll(ctx, size, jobs, opts...)
}
