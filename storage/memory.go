package storage

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	randv2 "math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// shard represents a single shard of data with its own lock
type shard struct {
	mu   sync.RWMutex
	data map[string]*Value
}

// MemoryStorage implements an in-memory storage engine.
//
// Keys are spread over a power-of-two number of shards, each guarded by its
// own RWMutex. Read-modify-write operations hold the write lock of the key's
// shard for their whole duration, so they are atomic per key while keys in
// other shards proceed in parallel.
type MemoryStorage struct {
	shards []shard

	// Sharding configuration
	shardCount int
	shardMask  uint64

	closed atomic.Bool

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}

	// Fixed at construction; the cleanup goroutine reads it without locking
	cleanupConfig CleanupConfig

	// Random number generator for sampling, only used by the cleanup goroutine
	rng *randv2.Rand
}

// MemoryOption is a function that configures a MemoryStorage instance
type MemoryOption func(*MemoryStorage)

// WithShardCount sets the number of shards for the storage
// The number is automatically rounded up to the next power of 2 for optimal performance
func WithShardCount(count int) MemoryOption {
	return func(s *MemoryStorage) {
		if count > 0 {
			s.shardCount = nextPowerOf2(count)
			s.shardMask = uint64(s.shardCount - 1)
		}
	}
}

// WithCleanupConfig sets the expired key cleanup configuration
func WithCleanupConfig(config CleanupConfig) MemoryOption {
	return func(s *MemoryStorage) {
		if config.Interval <= 0 {
			config.Interval = CleanupConfigDefault.Interval
		}
		s.cleanupConfig = config
	}
}

// NewMemory creates a new in-memory storage instance with default number of shards (64)
func NewMemory(opts ...MemoryOption) *MemoryStorage {
	s := &MemoryStorage{
		shardCount:    64,
		shardMask:     63,
		cleanupStop:   make(chan struct{}),
		cleanupDone:   make(chan struct{}),
		cleanupConfig: CleanupConfigDefault,
		rng:           randv2.New(randv2.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.shards = s.newShards()

	go s.cleanupExpiredKeys()

	return s
}

func (s *MemoryStorage) newShards() []shard {
	shards := make([]shard, s.shardCount)
	for i := range shards {
		shards[i].data = make(map[string]*Value)
	}
	return shards
}

// nextPowerOf2 returns the next power of 2 >= n
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// keyHash computes the hash for a key and returns the shard index
func (s *MemoryStorage) keyHash(key string) uint64 {
	return xxhash.Sum64String(key) & s.shardMask
}

// shardFor returns the shard owning key
func (s *MemoryStorage) shardFor(key string) *shard {
	return &s.shards[s.keyHash(key)]
}

// lookup returns the live value for key. Caller holds the shard lock.
func (sh *shard) lookup(key string) (*Value, bool) {
	value, exists := sh.data[key]
	if !exists || value.IsExpired() {
		return nil, false
	}
	return value, true
}

// Get retrieves a value by key
func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	value, exists := sh.data[key]
	if !exists {
		sh.mu.RUnlock()
		return nil, false
	}

	if value.IsExpired() {
		sh.mu.RUnlock()
		s.deleteExpiredKey(key)
		return nil, false
	}

	result := value.Bytes()
	sh.mu.RUnlock()

	return result, true
}

// Set stores a value with optional expiration
func (s *MemoryStorage) Set(key string, value []byte, expiry *time.Time) error {
	if s.closed.Load() {
		return ErrClosed
	}

	sh := s.shardFor(key)
	newValue := newStringValue(value, expiry)

	sh.mu.Lock()
	sh.data[key] = newValue
	sh.mu.Unlock()

	return nil
}

// SetWithOptions stores a value subject to NX/XX conditions, optionally
// keeping the existing TTL, and reports the previous value
func (s *MemoryStorage) SetWithOptions(key string, value []byte, opts SetOptions) (SetResult, error) {
	if s.closed.Load() {
		return SetResult{}, ErrClosed
	}

	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	var result SetResult
	old, exists := sh.lookup(key)
	if exists {
		result.Existed = true
		result.Old = old.Bytes()
	}

	if (opts.OnlyIfAbsent && exists) || (opts.OnlyIfPresent && !exists) {
		return result, nil
	}

	expiry := opts.Expiry
	if opts.KeepTTL && exists {
		expiry = old.Expiry
	}

	sh.data[key] = newStringValue(value, expiry)
	result.Written = true
	return result, nil
}

// Append appends value to the string at key and returns the new length
func (s *MemoryStorage) Append(key string, value []byte) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	var data []byte
	var expiry *time.Time
	if old, exists := sh.lookup(key); exists {
		data = old.Bytes()
		expiry = old.Expiry
	}
	data = append(data, value...)

	sh.data[key] = newStringValue(data, expiry)
	return int64(len(data)), nil
}

// StrLen returns the length of the string at key, 0 when missing
func (s *MemoryStorage) StrLen(key string) int64 {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, exists := sh.lookup(key)
	if !exists {
		return 0
	}
	return int64(value.Len())
}

// IncrBy atomically adds delta to the integer stored at key.
//
// A missing key counts as 0. A value that is not a signed 64-bit decimal
// integer yields ErrNotInteger, and a result outside the int64 range yields
// ErrOverflow; in both cases the stored value is left untouched. The key's
// expiration is preserved.
func (s *MemoryStorage) IncrBy(key string, delta int64) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	var current int64
	var expiry *time.Time
	if value, exists := sh.lookup(key); exists {
		n, err := value.Int()
		if err != nil {
			return 0, err
		}
		current = n
		expiry = value.Expiry
	}

	next, err := addInt64(current, delta)
	if err != nil {
		return 0, err
	}

	sh.data[key] = newIntValue(next, expiry)
	return next, nil
}

// DecrBy atomically subtracts delta from the integer stored at key.
// It shares IncrBy's locking and error semantics.
func (s *MemoryStorage) DecrBy(key string, delta int64) (int64, error) {
	if delta == minInt64 {
		return 0, ErrOverflow
	}
	return s.IncrBy(key, -delta)
}

// Del deletes one or more keys
func (s *MemoryStorage) Del(keys ...string) int64 {
	shards := s.shards
	deleted := int64(0)

	// Group keys by shard to minimize lock contention
	keysByShard := make(map[uint64][]string)
	for _, key := range keys {
		shardIdx := s.keyHash(key)
		keysByShard[shardIdx] = append(keysByShard[shardIdx], key)
	}

	for shardIdx, shardKeys := range keysByShard {
		sh := &shards[shardIdx]
		sh.mu.Lock()
		for _, key := range shardKeys {
			if value, exists := sh.data[key]; exists {
				delete(sh.data, key)
				if !value.IsExpired() {
					deleted++
				}
			}
		}
		sh.mu.Unlock()
	}

	return deleted
}

// Exists counts how many of keys exist. A key given twice counts twice.
func (s *MemoryStorage) Exists(keys ...string) int64 {
	shards := s.shards
	count := int64(0)

	for _, key := range keys {
		sh := &shards[s.keyHash(key)]
		sh.mu.RLock()
		if _, exists := sh.lookup(key); exists {
			count++
		}
		sh.mu.RUnlock()
	}

	return count
}

// Expire sets expiration for a key. An expiry that is not in the future
// deletes the key.
func (s *MemoryStorage) Expire(key string, expiry time.Time) bool {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	value, exists := sh.lookup(key)
	if !exists {
		return false
	}

	if !expiry.After(time.Now()) {
		delete(sh.data, key)
		return true
	}

	value.Expiry = &expiry
	return true
}

// Persist removes the expiration of a key. It reports whether a timeout
// was removed.
func (s *MemoryStorage) Persist(key string) bool {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	value, exists := sh.lookup(key)
	if !exists || value.Expiry == nil {
		return false
	}

	value.Expiry = nil
	return true
}

// TTL returns the time to live for a key
func (s *MemoryStorage) TTL(key string) time.Duration {
	return s.ttl(key, time.Second)
}

// PTTL returns the time to live for a key in milliseconds
func (s *MemoryStorage) PTTL(key string) time.Duration {
	return s.ttl(key, time.Millisecond)
}

// ttl returns -2 units for a missing key and -1 unit for a key without expiry
func (s *MemoryStorage) ttl(key string, unit time.Duration) time.Duration {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, exists := sh.lookup(key)
	if !exists {
		return -2 * unit
	}

	if value.Expiry == nil {
		return -1 * unit
	}

	return time.Until(*value.Expiry)
}

// Keys returns all keys matching the glob-style pattern:
// * matches any number of characters (including zero)
// ? matches a single character
// [abc] matches any character in the brackets, [^abc] negates
// [a-z] matches any character in the range
// \x matches x literally
func (s *MemoryStorage) Keys(pattern string) []string {
	shards := s.shards
	keys := make([]string, 0)
	matchAll := pattern == "*"

	for i := range shards {
		sh := &shards[i]
		sh.mu.RLock()
		for key, value := range sh.data {
			if value.IsExpired() {
				continue
			}
			if matchAll || MatchPattern(key, pattern) {
				keys = append(keys, key)
			}
		}
		sh.mu.RUnlock()
	}

	return keys
}

// Scan provides cursor-based iteration over keys.
//
// The cursor encodes a shard index in its upper 32 bits and a scan position
// in the lower 32 bits. A key's position is derived from its hash, so it
// does not move when other keys are added or removed: every key present for
// the whole iteration is returned at least once. Keys sharing a position are
// never split across calls, so a call may return slightly more than count
// keys. A returned cursor of 0 means the iteration is complete.
func (s *MemoryStorage) Scan(cursor uint64, match string, count int64) (uint64, []string) {
	if count <= 0 {
		count = 10
	}

	shards := s.shards
	shardIdx := int(cursor >> 32)
	from := uint32(cursor)
	keys := make([]string, 0, count)

	for ; shardIdx < len(shards); shardIdx++ {
		sh := &shards[shardIdx]
		sh.mu.RLock()
		entries := make([]scanEntry, 0, len(sh.data))
		for key, value := range sh.data {
			if value.IsExpired() {
				continue
			}
			if pos := scanPosition(key); pos >= from {
				entries = append(entries, scanEntry{pos: pos, key: key})
			}
		}
		sh.mu.RUnlock()

		sort.Slice(entries, func(i, j int) bool {
			if entries[i].pos != entries[j].pos {
				return entries[i].pos < entries[j].pos
			}
			return entries[i].key < entries[j].key
		})

		for i, e := range entries {
			if int64(len(keys)) >= count && (i == 0 || e.pos != entries[i-1].pos) {
				return uint64(shardIdx)<<32 | uint64(e.pos), keys
			}
			if match == "" || match == "*" || MatchPattern(e.key, match) {
				keys = append(keys, e.key)
			}
		}
		from = 0
	}

	return 0, keys
}

type scanEntry struct {
	pos uint32
	key string
}

// scanPosition orders keys within a shard. It uses the hash bits above the
// ones that pick the shard.
func scanPosition(key string) uint32 {
	return uint32(xxhash.Sum64String(key) >> 32)
}

// KeyCount returns the number of keys, including expired keys not yet reclaimed
func (s *MemoryStorage) KeyCount() int64 {
	shards := s.shards
	count := int64(0)

	for i := range shards {
		sh := &shards[i]
		sh.mu.RLock()
		count += int64(len(sh.data))
		sh.mu.RUnlock()
	}

	return count
}

// FlushAll removes all keys
func (s *MemoryStorage) FlushAll() error {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.data = make(map[string]*Value)
		sh.mu.Unlock()
	}

	return nil
}

// Type returns the type of a key, ValueTypeNone when it does not exist
func (s *MemoryStorage) Type(key string) ValueType {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, exists := sh.lookup(key)
	if !exists {
		return ValueTypeNone
	}

	return value.Type
}

// Encoding returns the in-memory encoding of the value at key
func (s *MemoryStorage) Encoding(key string) (Encoding, bool) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, exists := sh.lookup(key)
	if !exists {
		return EncodingRaw, false
	}

	return value.Encoding, true
}

// MemoryUsage returns current memory usage in bytes
func (s *MemoryStorage) MemoryUsage() int64 {
	shards := s.shards
	usage := int64(0)

	for i := range shards {
		sh := &shards[i]
		sh.mu.RLock()
		for key, value := range sh.data {
			usage += int64(len(key))
			usage += calculateValueSize(value)
		}
		sh.mu.RUnlock()
	}

	return usage
}

// Info returns storage information
func (s *MemoryStorage) Info() map[string]interface{} {
	shards := s.shards
	keys, expires := int64(0), int64(0)

	for i := range shards {
		sh := &shards[i]
		sh.mu.RLock()
		keys += int64(len(sh.data))
		for _, value := range sh.data {
			if value.Expiry != nil {
				expires++
			}
		}
		sh.mu.RUnlock()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"keys":         keys,
		"expires":      expires,
		"memory_usage": s.MemoryUsage(),
		"go_memory":    m.Alloc,
		"shards":       s.shardCount,
	}
}

// Close stops the background cleanup. Writes fail with ErrClosed afterwards.
func (s *MemoryStorage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.cleanupStop)
	<-s.cleanupDone
	return nil
}

// calculateValueSize estimates the size of a value in bytes
func calculateValueSize(value *Value) int64 {
	if value == nil {
		return 0
	}

	// safe: intentional use of unsafe.Sizeof for memory accounting
	return int64(unsafe.Sizeof(*value)) + int64(len(value.raw))
}

// cleanupExpiredKeys runs in background to clean up expired keys
func (s *MemoryStorage) cleanupExpiredKeys() {
	defer close(s.cleanupDone)

	ticker := time.NewTicker(s.cleanupConfig.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.cleanupStop:
			return
		case <-ticker.C:
			s.performCleanup()
		}
	}
}

// performCleanup removes expired keys using incremental sampling approach
func (s *MemoryStorage) performCleanup() {
	shards := s.shards

	for i := range shards {
		s.cleanupShard(&shards[i], s.cleanupConfig)
	}
}

// cleanupShard performs incremental cleanup on a single shard
func (s *MemoryStorage) cleanupShard(sh *shard, config CleanupConfig) {
	for round := 0; round < config.MaxRounds; round++ {
		expiredKeys := s.sampleAndFindExpiredInShard(sh, config.SampleSize)

		if len(expiredKeys) == 0 {
			break
		}

		s.deleteExpiredKeysInShardBatched(sh, expiredKeys, config.BatchSize)

		expiredRatio := float64(len(expiredKeys)) / float64(config.SampleSize)
		if expiredRatio < config.ExpiredThreshold {
			break
		}

		runtime.Gosched()
	}
}

// sampleAndFindExpiredInShard samples keys and finds expired ones in a specific shard
func (s *MemoryStorage) sampleAndFindExpiredInShard(sh *shard, sampleSize int) []string {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	if len(sh.data) == 0 || sampleSize <= 0 {
		return nil
	}

	actualSampleSize := sampleSize
	if len(sh.data) < sampleSize {
		actualSampleSize = len(sh.data)
	}

	// Reservoir sampling
	sampledKeys := make([]string, 0, actualSampleSize)
	i := 0
	for key := range sh.data {
		if i < actualSampleSize {
			sampledKeys = append(sampledKeys, key)
		} else if j := s.rng.IntN(i + 1); j < actualSampleSize {
			sampledKeys[j] = key
		}
		i++
	}

	expiredKeys := make([]string, 0, len(sampledKeys))
	for _, key := range sampledKeys {
		if value, exists := sh.data[key]; exists && value.IsExpired() {
			expiredKeys = append(expiredKeys, key)
		}
	}

	return expiredKeys
}

// deleteExpiredKeysInShardBatched deletes expired keys in batches to minimize lock time
func (s *MemoryStorage) deleteExpiredKeysInShardBatched(sh *shard, expiredKeys []string, batchSize int) {
	if batchSize <= 0 {
		batchSize = len(expiredKeys)
	}

	for i := 0; i < len(expiredKeys); i += batchSize {
		end := min(i+batchSize, len(expiredKeys))

		sh.mu.Lock()
		for _, key := range expiredKeys[i:end] {
			// Double-check expiration under write lock
			if value, exists := sh.data[key]; exists && value.IsExpired() {
				delete(sh.data, key)
			}
		}
		sh.mu.Unlock()

		if end < len(expiredKeys) {
			runtime.Gosched()
		}
	}
}

// deleteExpiredKey safely deletes an expired key without race conditions
func (s *MemoryStorage) deleteExpiredKey(key string) {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if value, exists := sh.data[key]; exists && value.IsExpired() {
		delete(sh.data, key)
	}
}
