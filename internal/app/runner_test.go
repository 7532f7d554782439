package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/affiliate-desk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	name     string
	startErr error
	block    bool
	stopped  atomic.Bool
	order    *stopOrder
}

type stopOrder struct {
	mu    sync.Mutex
	names []string
}

func (o *stopOrder) add(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
}

func (s *stubService) Name() string { return s.name }

func (s *stubService) Start(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return nil
	}
	return s.startErr
}

func (s *stubService) Stop(context.Context) error {
	s.stopped.Store(true)
	if s.order != nil {
		s.order.add(s.name)
	}
	return nil
}

func TestRunnerStopsAllServicesOnFailure(t *testing.T) {
	failing := &stubService{name: "http", startErr: errors.New("bind failed")}
	blocking := &stubService{name: "worker", block: true}

	err := NewRunner(failing, blocking).Run(context.Background(), time.Second, nil)
	require.EqualError(t, err, "bind failed")
	assert.True(t, failing.stopped.Load())
	assert.True(t, blocking.stopped.Load())
}

func TestRunnerStopsInRegistrationOrder(t *testing.T) {
	order := &stopOrder{}
	httpSvc := &stubService{name: "http", block: true, order: order}
	scheduler := &stubService{name: "scheduler", block: true, order: order}
	consumer := &stubService{name: "worker", block: true, order: order}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	runner := NewRunner(httpSvc, nil, scheduler, consumer)
	assert.Equal(t, []string{"http", "scheduler", "worker"}, runner.Names())
	require.NoError(t, runner.Run(ctx, time.Second, nil))
	assert.Equal(t, []string{"http", "scheduler", "worker"}, order.names)
}

func TestRunnerTreatsSelfExitAsShutdown(t *testing.T) {
	exiting := &stubService{name: "scheduler"}
	blocking := &stubService{name: "http", block: true}
	require.NoError(t, NewRunner(blocking, exiting).Run(context.Background(), time.Second, nil))
	assert.True(t, blocking.stopped.Load())
}

func TestRunnerWithoutServices(t *testing.T) {
	assert.Error(t, NewRunner().Run(context.Background(), time.Second, nil))
	assert.Error(t, NewRunner(nil).Run(context.Background(), time.Second, nil))
	assert.Error(t, RunWithOptions(nil, Options{}))
}

func TestNormalizeOptionsDefaults(t *testing.T) {
	opts := normalizeOptions(Options{})
	assert.Equal(t, ModeAll, opts.Mode)
	assert.Equal(t, defaultShutdownTimeout, opts.ShutdownTimeout)
	assert.NotNil(t, opts.Logger)

	cfg := &config.Config{}
	cfg.Server.ShutdownTimeoutSeconds = 3
	assert.Equal(t, 3*time.Second, normalizeOptions(Options{Config: cfg}).ShutdownTimeout)
}

func TestParseMode(t *testing.T) {
	for raw, want := range map[string]string{"": ModeAll, " API ": ModeAPI, "worker": ModeWorker, "all": ModeAll} {
		got, err := ParseMode(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("cron")
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = BuildRunner(&config.Config{}, "cron")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestHTTPServiceServesUntilStopped(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	svc := NewHTTPService(config.ServerConfig{Host: "127.0.0.1", Port: "0"}, handler)
	assert.Empty(t, svc.Addr())

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()
	require.Eventually(t, func() bool { return svc.Addr() != "" }, time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + svc.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
	require.NoError(t, <-done)
}
