// Package storage provides storage interfaces and implementations
// for the redisless server.
//
// The storage layer abstracts the underlying data storage mechanism,
// allowing for different implementations. MemoryStorage is the in-memory
// backend used by default.
//
// Basic usage:
//
//	stor := storage.NewMemory()
//	defer stor.Close()
//
//	_ = stor.Set("counter", []byte("12"), nil)
//	n, err := stor.IncrBy("counter", 1) // n == 13
//	value, exists := stor.Get("counter") // "13", true
//
// Values are byte strings. A value whose bytes form a signed 64-bit decimal
// integer can be changed with IncrBy and DecrBy; reads always return the
// textual form regardless of how the value was written.
//
// The package supports:
//   - Thread-safe operations sharded by key hash
//   - Atomic read-modify-write counters with overflow detection
//   - Expiration handling with sampled background cleanup
//   - Glob-style key enumeration
package storage
