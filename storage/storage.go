package storage

import "time"

// Storage defines the interface for data storage operations
type Storage interface {
	// String operations
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, expiry *time.Time) error
	SetWithOptions(key string, value []byte, opts SetOptions) (SetResult, error)
	Append(key string, value []byte) (int64, error)
	StrLen(key string) int64

	// Numeric operations. The read-modify-write is atomic per key.
	IncrBy(key string, delta int64) (int64, error)
	DecrBy(key string, delta int64) (int64, error)

	// Key operations
	Del(keys ...string) int64
	Exists(keys ...string) int64
	Keys(pattern string) []string
	Scan(cursor uint64, match string, count int64) (uint64, []string)
	KeyCount() int64
	FlushAll() error

	// Expiration operations
	Expire(key string, expiry time.Time) bool
	Persist(key string) bool
	TTL(key string) time.Duration
	PTTL(key string) time.Duration

	// Type operations
	Type(key string) ValueType
	Encoding(key string) (Encoding, bool)

	// Info and stats
	MemoryUsage() int64
	Info() map[string]interface{}

	// Shutdown
	Close() error
}

// SetOptions controls a conditional write
type SetOptions struct {
	// Expiry is the absolute expiration time, nil for none
	Expiry *time.Time
	// KeepTTL retains the existing expiration instead of clearing it
	KeepTTL bool
	// OnlyIfAbsent writes only when the key does not exist (NX)
	OnlyIfAbsent bool
	// OnlyIfPresent writes only when the key exists (XX)
	OnlyIfPresent bool
}

// SetResult reports what a conditional write did
type SetResult struct {
	// Written is false when an NX/XX condition prevented the write
	Written bool
	// Old is the previous textual value, valid when Existed is true
	Old     []byte
	Existed bool
}

// CleanupConfig holds configuration for incremental cleanup
type CleanupConfig struct {
	// Interval between cleanup cycles
	Interval time.Duration
	// SampleSize is the number of keys to sample per round
	SampleSize int
	// MaxRounds is the maximum number of rounds per cleanup cycle
	MaxRounds int
	// BatchSize is the number of keys to delete in each batch
	BatchSize int
	// ExpiredThreshold continues cleanup if this percentage of sampled keys are expired
	ExpiredThreshold float64
}

// CleanupConfigDefault provides balanced performance for most use cases.
// Similar to Redis native behavior.
var CleanupConfigDefault = CleanupConfig{
	Interval:         time.Second,
	SampleSize:       20,
	MaxRounds:        4,
	BatchSize:        10,
	ExpiredThreshold: 0.25,
}
