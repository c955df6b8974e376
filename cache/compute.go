package cache

import (
	"context"
	"errors"

	"github.com/furechan/tempcache/observe"
)

type computed[T any] struct {
	value   T
	outcome observe.Outcome
}

// GetOrCompute returns the cached value for key, or calls compute and stores
// its result.
//
// The cache fails open: an item that cannot be loaded is logged and
// recomputed, and a result that cannot be saved is logged and returned
// anyway. Errors from compute and from encoding key are returned and nothing
// is stored. Concurrent calls for the same key within the process share one
// compute, which runs with the first caller's context values but without its
// cancellation: a caller whose ctx ends returns ctx.Err() while the others
// still receive the result, and the result is still stored. A nil store always
// calls compute.
func GetOrCompute[T any](ctx context.Context, s *Store, key any, compute func(context.Context) (T, error)) (T, error) {
	if s == nil {
		return compute(ctx)
	}

	var result T
	err := s.mw.Run(ctx, s.meta, "get_or_compute", func(ctx context.Context) (observe.Outcome, error) {
		digest, err := s.keyer.Digest(key)
		if err != nil {
			return observe.OutcomeError, err
		}

		// The shared compute must outlive any single caller's cancellation.
		flight := s.flight.DoChan(digest, func() (any, error) {
			return resolve(context.WithoutCancel(ctx), s, digest, compute)
		})
		var v any
		select {
		case res := <-flight:
			if res.Err != nil {
				return observe.OutcomeError, res.Err
			}
			v = res.Val
		case <-ctx.Done():
			return observe.OutcomeError, ctx.Err()
		}

		c, ok := v.(computed[T])
		if !ok {
			// Another caller used the same key with a different result type.
			c, err = resolve(ctx, s, digest, compute)
			if err != nil {
				return observe.OutcomeError, err
			}
		}
		result = c.value
		return c.outcome, nil
	})
	return result, err
}

func resolve[T any](ctx context.Context, s *Store, digest string, compute func(context.Context) (T, error)) (computed[T], error) {
	if !s.breaker.allow() {
		v, err := compute(ctx)
		return computed[T]{value: v, outcome: observe.OutcomeBypass}, err
	}
	defer s.breaker.done()

	it, err := s.ItemForDigest(ctx, digest)
	if err != nil {
		return computed[T]{}, err
	}

	// A failed lazy delete leaves an expired file behind; never serve it.
	if !it.OlderThan(s.Expiry()) {
		var v T
		err := it.Load(ctx, &v)
		switch {
		case err == nil:
			s.breaker.record(nil)
			return computed[T]{value: v, outcome: observe.OutcomeHit}, nil
		case errors.Is(err, ErrNotFound):
		default:
			s.reportFailure(ctx, "load", it.path, err)
		}
	}

	v, err := compute(ctx)
	if err != nil {
		return computed[T]{}, err
	}

	outcome := observe.OutcomeMiss
	if err := it.Save(ctx, v); err != nil {
		s.reportFailure(ctx, "save", it.path, err)
		outcome = observe.OutcomeBypass
	} else {
		s.breaker.record(nil)
	}
	return computed[T]{value: v, outcome: outcome}, nil
}
