package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimburion/crudkit/pkg/config"
	"github.com/nimburion/crudkit/pkg/server/router"
	"github.com/nimburion/crudkit/pkg/testutil"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.HTTP.Port = 0
	cfg.Management.Port = 0
	return cfg
}

func TestBuildHTTPServers(t *testing.T) {
	cfg := testConfig()
	cfg.Platform = "gorilla"
	opts := &RunOptions{
		Config: cfg,
		Logger: testutil.NewMockLogger(),
		Routes: func(r router.Router) {
			r.GET("/ping", func(c router.Context) error { return c.String(http.StatusOK, "pong") })
		},
	}

	servers, err := BuildHTTPServers(opts)
	require.NoError(t, err)

	assert.Equal(t, "gorilla", servers.Module.Platform().Name())
	require.NotNil(t, servers.Management)

	rec := httptest.NewRecorder()
	servers.Public.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestBuildHTTPServers_RequestLogConfig(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		want    int
	}{
		{name: "enabled", enabled: true, want: 1},
		{name: "disabled", enabled: false, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Observability.RequestLogEnabled = tt.enabled
			log := testutil.NewMockLogger()
			servers, err := BuildHTTPServers(&RunOptions{
				Config: cfg,
				Logger: log,
				Routes: func(r router.Router) {
					r.GET("/ping", func(c router.Context) error { return c.String(http.StatusOK, "pong") })
				},
			})
			require.NoError(t, err)

			servers.Public.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

			var lines int
			for _, entry := range log.EntriesAt("info") {
				if strings.HasPrefix(entry.Msg, "GET - 200: /ping") {
					lines++
				}
			}
			assert.Equal(t, tt.want, lines)
		})
	}
}

func TestBuildHTTPServers_ManagementDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Management.Enabled = false

	servers, err := BuildHTTPServers(&RunOptions{Config: cfg, Logger: testutil.NewMockLogger()})

	require.NoError(t, err)
	assert.Nil(t, servers.Management)
}

func TestBuildHTTPServers_UnknownPlatform(t *testing.T) {
	cfg := testConfig()
	cfg.Platform = "fastify"

	_, err := BuildHTTPServers(&RunOptions{Config: cfg, Logger: testutil.NewMockLogger()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported platform")
}

func TestRunHTTPServers_HooksAndShutdown(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name)
			return nil
		}
	}

	opts := &RunOptions{
		Config:        testConfig(),
		Logger:        testutil.NewMockLogger(),
		StartupHooks:  []LifecycleHook{{Name: "connect", Fn: record("startup")}},
		ShutdownHooks: []LifecycleHook{{Name: "disconnect", Fn: record("shutdown")}},
	}
	servers, err := BuildHTTPServers(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunHTTPServers(ctx, servers, opts) }()

	require.Eventually(t, func() bool {
		return servers.Public.Addr() != "" && servers.Management.Addr() != ""
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("servers did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"startup", "shutdown"}, calls)
}

func TestRunHTTPServers_StartupHookFailure(t *testing.T) {
	opts := &RunOptions{
		Config: testConfig(),
		Logger: testutil.NewMockLogger(),
		StartupHooks: []LifecycleHook{{Name: "connect", Fn: func(context.Context) error {
			return errors.New("mongo unreachable")
		}}},
	}
	servers, err := BuildHTTPServers(opts)
	require.NoError(t, err)

	err = RunHTTPServers(context.Background(), servers, opts)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `startup hook "connect" failed`)
}

func TestRunHTTPServers_RequiresServers(t *testing.T) {
	err := RunHTTPServers(context.Background(), nil, &RunOptions{})
	assert.Error(t, err)
}
