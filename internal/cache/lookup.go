// Package cache holds the Redis-backed accelerators in front of the durable store:
// the URL resolution cache, the geo cache and the short code membership set.
// None of them is authoritative; callers fall back to the source of truth on a miss.
package cache

// Lookup is the result of a cache read: either a hit carrying a value or a miss.
type Lookup[T any] struct {
	Value T
	Hit   bool
}

// Hit wraps a cached value.
func Hit[T any](v T) Lookup[T] {
	return Lookup[T]{Value: v, Hit: true}
}

// Miss reports that the key is absent.
func Miss[T any]() Lookup[T] {
	return Lookup[T]{}
}
