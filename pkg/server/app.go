package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"QuoteCache/pkg/config"
	xhttp "QuoteCache/pkg/http"
	applogger "QuoteCache/pkg/logger"
)

// Worker is a background loop bound to the app lifetime. Run returns once
// ctx is cancelled.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

type Workers []Worker

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	http      *xhttp.Server
	scheduler *Scheduler
	workers   Workers

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, sched *Scheduler, workers Workers) *App {
	return &App{
		cfg:       cfg,
		log:       l,
		http:      srv,
		scheduler: sched,
		workers:   workers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext serves until ctx is done or the listener fails.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.http.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}
	a.startWorkers()
	a.log.Info("quotecache started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("cache", a.cfg.Cache.Backend),
		applogger.Int("workers", len(a.workers)),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.http.Errors():
	}

	return errors.Join(runErr, a.shutdown())
}

func (a *App) startWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	for _, w := range a.workers {
		a.wg.Add(1)
		go func(w Worker) {
			defer a.wg.Done()
			if err := w.Run(ctx); err != nil {
				a.log.Error("worker stopped", applogger.String("worker", w.Name()), applogger.Error(err))
			}
		}(w)
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}

	if a.cancel != nil {
		a.cancel()
		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			a.log.Warn("workers did not stop in time")
		}
	}

	if err := a.http.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}

	a.log.Info("shutdown complete")
	return nil
}
