package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"QuoteCache/pkg/config"
	xhttp "QuoteCache/pkg/http"
	applogger "QuoteCache/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
}

type loopWorker struct {
	started, stopped atomic.Bool
}

func (w *loopWorker) Name() string { return "loop" }

func (w *loopWorker) Run(ctx context.Context) error {
	w.started.Store(true)
	<-ctx.Done()
	w.stopped.Store(true)
	return nil
}

func TestAppServesAndShutsDown(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Server.Port = freePort(t)

	srv := xhttp.NewServer(pingHandler{},
		xhttp.WithHost("127.0.0.1"),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithMetrics("/metrics", prometheus.NewRegistry()),
	)
	w := &loopWorker{}
	app := New(cfg, applogger.Nop(), srv, NewScheduler(applogger.Nop()), Workers{w})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	resp, err := http.Get(url + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool { return w.started.Load() }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, w.stopped.Load(), "worker context cancelled on shutdown")
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(applogger.Nop())
	assert.Error(t, s.Add(Job{Name: "bad", Spec: "not a cron", Run: func(context.Context) error { return nil }}))

	var runs atomic.Int32
	require.NoError(t, s.Add(Job{
		Name: "reload",
		Spec: "@every 1s",
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))
	assert.Equal(t, []string{"reload"}, s.Jobs())

	s.Start()
	defer s.Stop(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
