package redisless_test

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raniellyferreira/redisless"
	"github.com/raniellyferreira/redisless/storage"
)

func newTestServer(t *testing.T, opts ...redisless.Option) (*redisless.Server, storage.Storage) {
	t.Helper()

	stor := storage.NewMemory()
	t.Cleanup(func() { stor.Close() })

	opts = append([]redisless.Option{redisless.WithLogger(redisless.NopLogger())}, opts...)
	srv, err := redisless.New(stor, 0, opts...)
	require.NoError(t, err)
	return srv, stor
}

func TestNewValidatesConfig(t *testing.T) {
	stor := storage.NewMemory()
	defer stor.Close()

	_, err := redisless.New(nil, 6379)
	assert.ErrorIs(t, err, redisless.ErrInvalidConfig)

	for _, port := range []int{-1, 65536} {
		_, err = redisless.New(stor, port)
		assert.ErrorIs(t, err, redisless.ErrInvalidConfig, "port %d", port)
	}

	invalid := []redisless.Option{
		redisless.WithHost("not a host"),
		redisless.WithLogger(nil),
		redisless.WithIdleTimeout(-1),
		redisless.WithShutdownTimeout(0),
		redisless.WithMaxClients(-1),
		redisless.WithScriptCacheSize(0),
	}
	for _, opt := range invalid {
		_, err = redisless.New(stor, 0, opt)
		var cfgErr *redisless.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
		assert.ErrorIs(t, err, redisless.ErrInvalidConfig)
	}

	srv, err := redisless.New(stor, 0, redisless.WithHost("localhost"))
	require.NoError(t, err)
	assert.Equal(t, redisless.StateNotStarted, srv.State())
	assert.Same(t, stor, srv.Storage())
}

func TestServerStateString(t *testing.T) {
	assert.Equal(t, "NotStarted", redisless.StateNotStarted.String())
	assert.Equal(t, "Started", redisless.StateStarted.String())
	assert.Equal(t, "Stopped", redisless.StateStopped.String())
	assert.Equal(t, "Unknown", redisless.ServerState(42).String())
}

func TestStartStopLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	state, err := srv.Start()
	require.NoError(t, err)
	assert.Equal(t, redisless.StateStarted, state)

	state, err = srv.Start()
	require.NoError(t, err)
	assert.Equal(t, redisless.StateStarted, state)

	state, err = srv.Stop()
	require.NoError(t, err)
	assert.Equal(t, redisless.StateStopped, state)

	state, err = srv.Stop()
	require.NoError(t, err)
	assert.Equal(t, redisless.StateStopped, state)
}

func TestStopBeforeStart(t *testing.T) {
	srv, _ := newTestServer(t)

	state, err := srv.Stop()
	assert.Equal(t, redisless.StateNotStarted, state)
	assert.ErrorIs(t, err, redisless.ErrNotStarted)

	var lifecycleErr *redisless.LifecycleError
	require.ErrorAs(t, err, &lifecycleErr)
	assert.Equal(t, "stop", lifecycleErr.Op)

	state, err = srv.Start()
	require.NoError(t, err)
	assert.Equal(t, redisless.StateStarted, state)
	_, _ = srv.Stop()
}

func TestStartAfterStop(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.Start()
	require.NoError(t, err)
	_, err = srv.Stop()
	require.NoError(t, err)

	state, err := srv.Start()
	assert.Equal(t, redisless.StateStopped, state)
	assert.ErrorIs(t, err, redisless.ErrServerStopped)
}

func TestStartBindFailureCanRetry(t *testing.T) {
	occupier, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := occupier.Addr().(*net.TCPAddr).Port

	stor := storage.NewMemory()
	defer stor.Close()

	srv, err := redisless.New(stor, port, redisless.WithLogger(redisless.NopLogger()))
	require.NoError(t, err)

	state, err := srv.Start()
	assert.Equal(t, redisless.StateNotStarted, state)
	var bindErr *redisless.BindError
	require.True(t, errors.As(err, &bindErr))
	assert.Contains(t, bindErr.Addr, "127.0.0.1")

	require.NoError(t, occupier.Close())

	state, err = srv.Start()
	require.NoError(t, err)
	assert.Equal(t, redisless.StateStarted, state)
	_, _ = srv.Stop()
}

func TestStopReleasesPort(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.Start()
	require.NoError(t, err)
	addr := srv.Addr()

	_, err = srv.Stop()
	require.NoError(t, err)

	_, err = net.Dial("tcp", addr)
	assert.Error(t, err, "listener should be closed after Stop")

	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err, "port should be free after Stop")
	ln.Close()
}

func TestStopDoesNotCloseStorage(t *testing.T) {
	srv, stor := newTestServer(t)

	_, err := srv.Start()
	require.NoError(t, err)
	_, err = srv.Stop()
	require.NoError(t, err)

	require.NoError(t, stor.Set("k", []byte("v"), nil))
	got, ok := stor.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))
}

func TestStats(t *testing.T) {
	srv, stor := newTestServer(t)
	require.NoError(t, stor.Set("a", []byte("1"), nil))

	_, err := srv.Start()
	require.NoError(t, err)
	defer srv.Stop()

	stats := srv.Stats()
	assert.Equal(t, "Started", stats["state"])
	assert.Contains(t, stats, "connected_clients")
	assert.EqualValues(t, 1, stats["storage_keys"])
}
