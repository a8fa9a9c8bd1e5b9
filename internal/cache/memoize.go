package cache

import (
	"context"
	"time"
)

// Typed returns the cached value for key when it holds a T.
func Typed[T any](c *ResultCache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Memoize wraps fn so that calls whose arguments produce the same key return
// the cached result until it expires. Errors are returned but never cached,
// and neither is a result computed while an invalidation happened, since it
// may predate the write that caused it. fn must be idempotent.
func Memoize[A, R any](
	c *ResultCache,
	keyFn func(A) string,
	ttl time.Duration,
	fn func(context.Context, A) (R, error),
) func(context.Context, A) (R, error) {
	return func(ctx context.Context, arg A) (R, error) {
		key := keyFn(arg)
		if cached, ok := Typed[R](c, key); ok {
			return cached, nil
		}

		gen := c.Generation()
		result, err := fn(ctx, arg)
		if err != nil {
			return result, err
		}

		c.SetIfGeneration(key, result, ttl, gen)
		return result, nil
	}
}
