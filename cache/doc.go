// Package cache provides the response cache contract and key serialization
// used by the storefront repositories.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - ResponseCache: short-TTL memoization of decoded responses keyed by logical query
//   - KeySerializer: builds stable cache keys from operation names and arguments
//
// The default ResponseCache is backed by sturdyc (see internal/cacheinfra).
// A stale entry is reported exactly like an absent one: callers only ever see
// a hit or a miss.
//
// # Basic Usage
//
//	c, err := cache.NewResponseCache(cache.DefaultConfig())
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("GetByID", 5) // "GetByID::5"
//
//	product, err := cache.GetOrFetch(ctx, c, key, func(ctx context.Context) (Product, error) {
//		return fetchProduct(ctx, 5)
//	})
//
// # Key Serialization Strategy
//
// Keys always start with the operation name followed by KeySeparator, so a
// repository can invalidate every variant of an operation by prefix.
// Arguments are rendered as:
//
//   - Basic types: direct string representation
//   - Pointers and interfaces: the pointed-to value, or "nil"
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key-value pairs for deterministic output
//   - Anything else: its String method, or a JSON rendering
//
// Argument lists longer than MaxKeyLength are replaced by an xxhash digest.
//
// # Concurrency
//
// Two concurrent misses on the same key may both fetch and both store; the
// last write wins. Entries are immutable snapshots, so this is harmless.
package cache
