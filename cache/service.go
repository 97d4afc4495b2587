package cache

import "context"

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// ResponseCache is a short-lived memo of decoded responses keyed by logical query.
// A stale entry and an absent entry are indistinguishable to callers.
type ResponseCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Invalidate(key string)
	Clear()
}

// FetchFn is the function signature GetOrFetch expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// GetOrFetch returns the cached value for key when it is fresh and of type T.
// Otherwise it calls fetchFn, stores a successful result and returns it.
// Errors are never cached.
func GetOrFetch[T any](ctx context.Context, c ResponseCache, key string, fetchFn FetchFn[T]) (T, error) {
	if cached, ok := c.Get(key); ok {
		if value, ok := cached.(T); ok {
			return value, nil
		}
	}

	value, err := fetchFn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, value)
	return value, nil
}
