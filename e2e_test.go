package redisless_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raniellyferreira/redisless"
)

func startClient(t *testing.T, opts ...redisless.Option) (*redisless.Server, *redis.Client) {
	t.Helper()

	srv, _ := newTestServer(t, opts...)
	_, err := srv.Start()
	require.NoError(t, err)
	t.Cleanup(func() { srv.Stop() })

	client := redis.NewClient(&redis.Options{
		Addr:     srv.Addr(),
		Protocol: 2,
	})
	t.Cleanup(func() { client.Close() })
	return srv, client
}

func TestRedisClientIncrDecr(t *testing.T) {
	ctx := context.Background()
	_, client := startClient(t)

	require.NoError(t, client.Ping(ctx).Err())

	require.NoError(t, client.Set(ctx, "some_number", "12", 0).Err())
	n, err := client.Incr(ctx, "some_number").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)

	got, err := client.Get(ctx, "some_number").Result()
	require.NoError(t, err)
	assert.Equal(t, "13", got)

	require.NoError(t, client.Set(ctx, "n", "100", 0).Err())
	n, err = client.Decr(ctx, "n").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(99), n)

	n, err = client.Incr(ctx, "missing").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisClientIncrByDecrBy(t *testing.T) {
	ctx := context.Background()
	_, client := startClient(t)

	require.NoError(t, client.Set(ctx, "0", "12", 0).Err())
	n, err := client.IncrBy(ctx, "0", 500).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(512), n)

	n, err = client.IncrBy(ctx, "0", -10).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(502), n)

	require.NoError(t, client.Set(ctx, "63", "89", 0).Err())
	n, err = client.DecrBy(ctx, "63", 10).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(79), n)

	n, err = client.DecrBy(ctx, "63", -100).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(179), n)
}

func TestRedisClientSetOverwrites(t *testing.T) {
	ctx := context.Background()
	_, client := startClient(t)

	require.NoError(t, client.Set(ctx, "k", "first", 0).Err())
	require.NoError(t, client.Set(ctx, "k", "second", 0).Err())

	got, err := client.Get(ctx, "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	// the key's identity does not depend on the type it was written with
	require.NoError(t, client.Set(ctx, "12", "5", 0).Err())
	require.NoError(t, client.Set(ctx, "12", 1200, 0).Err())
	got, err = client.Get(ctx, "12").Result()
	require.NoError(t, err)
	assert.Equal(t, "1200", got)

	_, err = client.Get(ctx, "nope").Result()
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRedisClientIncrErrors(t *testing.T) {
	ctx := context.Background()
	_, client := startClient(t)

	require.NoError(t, client.Set(ctx, "text", "abc", 0).Err())
	_, err := client.Incr(ctx, "text").Result()
	require.Error(t, err)
	assert.Equal(t, "ERR value is not an integer or out of range", err.Error())

	got, err := client.Get(ctx, "text").Result()
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	require.NoError(t, client.Set(ctx, "max", fmt.Sprint(int64(math.MaxInt64)), 0).Err())
	_, err = client.Incr(ctx, "max").Result()
	require.Error(t, err)
	assert.Equal(t, "ERR increment or decrement would overflow", err.Error())

	// the connection survives command errors
	assert.NoError(t, client.Ping(ctx).Err())
}

func TestRedisClientConcurrentIncr(t *testing.T) {
	ctx := context.Background()
	_, client := startClient(t)

	const workers = 20
	const perWorker = 50

	var wg sync.WaitGroup
	var failures atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := client.Incr(ctx, "counter").Err(); err != nil {
					failures.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	require.Zero(t, failures.Load())
	got, err := client.Get(ctx, "counter").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), got)
}

func TestRedisClientExpiryAndKeys(t *testing.T) {
	ctx := context.Background()
	_, client := startClient(t)

	require.NoError(t, client.Set(ctx, "session", "x", time.Hour).Err())
	ttl, err := client.TTL(ctx, "session").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, client.Set(ctx, "user:1", "a", 0).Err())
	require.NoError(t, client.Set(ctx, "user:2", "b", 0).Err())

	keys, err := client.Keys(ctx, "user:*").Result()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, keys)

	var scanned []string
	iter := client.Scan(ctx, 0, "user:*", 1).Iterator()
	for iter.Next(ctx) {
		scanned = append(scanned, iter.Val())
	}
	require.NoError(t, iter.Err())
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, scanned)

	deleted, err := client.Del(ctx, "user:1", "user:2", "missing").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	size, err := client.DBSize(ctx).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestRedisClientPipeline(t *testing.T) {
	ctx := context.Background()
	_, client := startClient(t)

	pipe := client.Pipeline()
	incrs := make([]*redis.IntCmd, 100)
	for i := range incrs {
		incrs[i] = pipe.Incr(ctx, "pipelined")
	}
	_, err := pipe.Exec(ctx)
	require.NoError(t, err)

	for i, cmd := range incrs {
		assert.Equal(t, int64(i+1), cmd.Val())
	}
}

func TestRedisClientScripting(t *testing.T) {
	ctx := context.Background()
	_, client := startClient(t)

	script := redis.NewScript(`return redis.call('INCRBY', KEYS[1], ARGV[1])`)

	n, err := script.Run(ctx, client, []string{"scripted"}, 5).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = script.Run(ctx, client, []string{"scripted"}, 5).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	_, err = client.EvalSha(ctx, strings.Repeat("0", 40), nil).Result()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "NOSCRIPT"))
}

func TestRedisClientInfo(t *testing.T) {
	ctx := context.Background()
	_, client := startClient(t)

	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())

	info, err := client.Info(ctx).Result()
	require.NoError(t, err)
	assert.Contains(t, info, "# Server")
	assert.Contains(t, info, "redisless_version:"+redisless.Version)
	assert.Contains(t, info, "db0:keys=1")
}

func TestStopClosesClientConnections(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	_, err := srv.Start()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr:       srv.Addr(),
		Protocol:   2,
		MaxRetries: -1,
	})
	defer client.Close()
	require.NoError(t, client.Ping(ctx).Err())

	_, err = srv.Stop()
	require.NoError(t, err)

	assert.Error(t, client.Ping(ctx).Err())
}

type recordingMetrics struct {
	mu       sync.Mutex
	commands map[string]int
	errors   map[string]int
	conns    int
}

func (m *recordingMetrics) RecordCommandProcessed(cmd string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[cmd]++
}

func (m *recordingMetrics) RecordError(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[errorType]++
}

func (m *recordingMetrics) RecordConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns++
}

func TestMetricsCollector(t *testing.T) {
	ctx := context.Background()
	metrics := &recordingMetrics{commands: map[string]int{}, errors: map[string]int{}}
	_, client := startClient(t, redisless.WithMetrics(metrics))

	require.NoError(t, client.Set(ctx, "text", "abc", 0).Err())
	require.Error(t, client.Incr(ctx, "text").Err())

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.GreaterOrEqual(t, metrics.conns, 1)
	assert.Equal(t, 1, metrics.commands["set"]+metrics.commands["SET"])
	assert.Equal(t, 1, metrics.errors["not_integer"])
}
