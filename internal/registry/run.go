package registry

import "golang.org/x/sync/errgroup"

// RunConcurrentQueries runs one goroutine per query, each acquiring its
// own registration against the
// registry's current snapshot and releasing it on exit, regardless of
// whether the query function itself errors. If any query returns an
// error, the first one is returned once every query has finished;
// results are indexed positionally.
func RunConcurrentQueries[T any](r *Registry, queries []func(*Snapshot) (T, error)) ([]T, error) {
	results := make([]T, len(queries))
	var g errgroup.Group
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			h := r.Acquire()
			defer h.Release()
			result, err := q(h.Snapshot())
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
