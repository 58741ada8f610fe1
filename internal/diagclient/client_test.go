package diagclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/horizon/internal/infrastructure/config"
	"github.com/GriffinCanCode/horizon/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/horizon/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/horizon/internal/infrastructure/server"
	"github.com/GriffinCanCode/horizon/internal/sysmodule"
)

type fakeSource struct {
	running atomic.Bool
	events  atomic.Uint64
}

func (f *fakeSource) Status() sysmodule.Status {
	return sysmodule.Status{
		Running:     f.running.Load(),
		Events:      f.events.Add(1),
		ReplyTarget: -1,
		Services: []sysmodule.ServiceStatus{
			{Name: "echo:u", MaxSessions: 4, Commands: []string{"Echo", "Sum"}},
		},
	}
}

func newDiagServer(t *testing.T) (*httptest.Server, *fakeSource) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default().Diagnostics
	cfg.StreamInterval = 5 * time.Millisecond
	cfg.RateLimitRPS = 0

	reg := prometheus.NewRegistry()
	src := &fakeSource{}
	srv := server.NewServer(cfg, src, monitoring.NewMetrics(reg), reg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, src
}

func fastRetries() Option {
	return WithRetries(2, time.Millisecond, 5*time.Millisecond)
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewValidatesURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://bad")
	assert.Error(t, err)
	_, err = New("http://127.0.0.1:8090/")
	assert.NoError(t, err)
}

func TestHealth(t *testing.T) {
	ts, src := newDiagServer(t)
	c, err := New(ts.URL, fastRetries())
	require.NoError(t, err)

	assert.ErrorIs(t, c.Health(testContext(t)), ErrUnhealthy, "503 is an answer, not a retry")
	src.running.Store(true)
	assert.NoError(t, c.Health(testContext(t)))
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestStatus(t *testing.T) {
	ts, src := newDiagServer(t)
	src.running.Store(true)
	c, err := New(ts.URL)
	require.NoError(t, err)

	st, err := c.Status(testContext(t))
	require.NoError(t, err)
	assert.True(t, st.Manager.Running)
	assert.Equal(t, -1, st.Manager.ReplyTarget)
	require.Len(t, st.Manager.Services, 1)
	assert.Equal(t, []string{"Echo", "Sum"}, st.Manager.Services[0].Commands)
	require.NotNil(t, st.Metrics)
}

func TestMetrics(t *testing.T) {
	ts, _ := newDiagServer(t)
	c, err := New(ts.URL)
	require.NoError(t, err)

	text, err := c.Metrics(testContext(t))
	require.NoError(t, err)
	assert.Contains(t, text, "horizon_uptime_seconds")
}

func TestRetriesTransientErrors(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"manager":{"running":true,"events":3}}`))
	}))
	defer ts.Close()

	c, err := New(ts.URL, fastRetries())
	require.NoError(t, err)
	st, err := c.Status(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), st.Manager.Events)
	assert.Equal(t, int32(2), hits.Load())
}

func TestBreakerOpensOnUnreachableServer(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := New(url,
		WithRetries(0, time.Millisecond, time.Millisecond),
		WithBreaker(resilience.Settings{
			Cooldown: time.Minute,
			Trip:     func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 2 },
		}))
	require.NoError(t, err)

	for range 2 {
		_, err := c.Status(testContext(t))
		require.Error(t, err)
		assert.False(t, errors.Is(err, resilience.ErrOpen))
	}
	_, err = c.Status(testContext(t))
	assert.ErrorIs(t, err, resilience.ErrOpen)
	assert.Equal(t, resilience.StateOpen, c.BreakerState())
}

func TestWatch(t *testing.T) {
	ts, src := newDiagServer(t)
	src.running.Store(true)
	c, err := New(ts.URL)
	require.NoError(t, err)

	var frames []uint64
	err = c.Watch(testContext(t), 3, func(st *server.StatusResponse) error {
		frames = append(frames, st.Manager.Events)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Less(t, frames[0], frames[2], "each frame is a fresh snapshot")
}

func TestWatchStopsOnHandlerError(t *testing.T) {
	ts, _ := newDiagServer(t)
	c, err := New(ts.URL)
	require.NoError(t, err)

	stop := errors.New("enough")
	err = c.Watch(testContext(t), 0, func(*server.StatusResponse) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestWatchContextCancel(t *testing.T) {
	ts, _ := newDiagServer(t)
	c, err := New(ts.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	err = c.Watch(ctx, 0, func(*server.StatusResponse) error {
		if n++; n == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
