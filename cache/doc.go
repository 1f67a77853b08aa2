// Package cache memoizes runnable outputs in a byte store.
//
// Two stores are provided: an in-process MemoryStore and a RedisStore built
// on go-redis. WithCache wraps any runnable whose input and output encode to
// JSON:
//
//	store := cache.NewMemoryStore()
//	cached := runnable.Apply(expensive, cache.WithCache[string, int](store, cache.Options[string]{TTL: time.Minute}))
//
// A cached runnable is stateful. Concurrent misses for the same key may both
// compute; the last write wins.
package cache
