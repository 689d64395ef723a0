package di

import (
	"context"
	"fmt"
	"time"

	"QuoteCache/internal/calendar"
	"QuoteCache/internal/domain/models"
	"QuoteCache/internal/handler/api"
	"QuoteCache/internal/service/events"
	"QuoteCache/internal/service/freshness"
	"QuoteCache/internal/service/gaps"
	"QuoteCache/internal/service/interval"
	"QuoteCache/internal/usecase"
	"QuoteCache/pkg/cache"
	"QuoteCache/pkg/config"
	xhttp "QuoteCache/pkg/http"
	"QuoteCache/pkg/kafka"
	"QuoteCache/pkg/logger"
	"QuoteCache/pkg/metrics"
	"QuoteCache/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("service", "quotecache"), logger.String("env", cfg.Environment)), nil
}

// ProvideRegistry registers the configured built-in exchanges, then the
// calendar file on top.
func ProvideRegistry(cfg *config.Config) (*calendar.Registry, error) {
	reg := calendar.NewRegistry()
	for _, id := range cfg.Calendars.Exchanges {
		if err := reg.RegisterKnown(id); err != nil {
			return nil, fmt.Errorf("calendar %s: %w", id, err)
		}
	}
	if cfg.Calendars.File != "" {
		if _, err := calendar.LoadFile(reg, cfg.Calendars.File); err != nil {
			return nil, fmt.Errorf("calendars: %w", err)
		}
	}
	return reg, nil
}

func ProvideLocator(reg *calendar.Registry) *interval.Locator {
	return interval.NewLocator(reg)
}

func ProvideEvaluator(loc *interval.Locator) *freshness.Evaluator {
	return freshness.NewEvaluator(loc)
}

func ProvideIdentifier(loc *interval.Locator) *gaps.Identifier {
	return gaps.NewIdentifier(loc)
}

// ProvidePrometheus creates the registry served on the metrics path.
func ProvidePrometheus() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry, cal *calendar.Registry) *metrics.Recorder {
	rec := metrics.New(reg)
	rec.SetCalendars(len(cal.IDs()))
	return rec
}

// ProvideStore builds the configured cache backend. The cleanup closes it.
func ProvideStore(cfg *config.Config) (cache.Store, func(), error) {
	c := cfg.Cache
	memory := func(size int) *cache.MemoryStore {
		return cache.NewMemoryStore(
			cache.WithMemoryMaxSize(size),
			cache.WithMemoryCleanup(c.Memory.CleanupInterval),
		)
	}
	redis := func() (*cache.RedisStore, error) {
		s, err := cache.NewRedisStore(
			cache.WithRedisAddr(c.Redis.Addr),
			cache.WithRedisAuth(c.Redis.Password, c.Redis.DB),
			cache.WithRedisPool(c.Redis.PoolSize, c.Redis.MinIdleConns),
			cache.WithRedisDialTimeout(c.Redis.DialTimeout),
			cache.WithRedisPrefix(c.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return s, nil
	}

	var store cache.Store
	switch c.Backend {
	case "redis":
		s, err := redis()
		if err != nil {
			return nil, nil, err
		}
		store = s
	case "layered":
		s, err := redis()
		if err != nil {
			return nil, nil, err
		}
		store = cache.NewLayeredStore(s, cache.WithLayeredMemorySize(c.Memory.MaxSize))
	default:
		store = memory(c.Memory.MaxSize)
	}
	return store, func() { _ = store.Close() }, nil
}

func ProvidePolicy(cfg *config.Config) (usecase.Policy, error) {
	wm, err := models.ParseWeekMode(cfg.Freshness.WeekMode)
	if err != nil {
		return usecase.Policy{}, err
	}
	return usecase.Policy{
		MaxAge:         func(iv models.Interval) time.Duration { return cfg.MaxAgeFor(iv.String()) },
		TriggerOnClose: cfg.Freshness.TriggerOnClose,
		MergeThreshold: cfg.Gaps.MergeThreshold,
		WeekMode:       wm,
		LockTTL:        cfg.Cache.LockTTL,
		Retention:      cfg.Cache.Retention,
	}, nil
}

func ProvideInstanceID() events.InstanceID {
	return events.NewInstanceID()
}

// ProvideNotifier publishes series events to Kafka. It returns a nil
// notifier when events are disabled.
func ProvideNotifier(
	cfg *config.Config,
	l *logger.Logger,
	reg *prometheus.Registry,
	rec *metrics.Recorder,
	id events.InstanceID,
) (usecase.Notifier, func(), error) {
	if !cfg.Events.Enabled {
		return nil, func() {}, nil
	}
	p, err := kafka.NewProducer(
		kafka.WithBrokers(cfg.Events.Brokers),
		kafka.WithTopic(cfg.Events.Topic),
		kafka.WithCompression(cfg.Events.Compression),
		kafka.WithWriteTimeout(cfg.Events.WriteTimeout),
		kafka.WithProducerMetrics(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("events producer: %w", err)
	}
	n := events.NewNotifier(p, id, rec, l.With(logger.String("component", "events")))
	return n, func() { _ = p.Close() }, nil
}

// ProvideWorkers starts the event listener when events are enabled and the
// store has a local level to evict from.
func ProvideWorkers(cfg *config.Config, l *logger.Logger, store cache.Store, rec *metrics.Recorder, id events.InstanceID) (server.Workers, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	evictor, ok := store.(events.Evictor)
	if !ok {
		l.Info("series events published only", logger.String("cache", cfg.Cache.Backend))
		return nil, nil
	}
	el := l.With(logger.String("component", "events"))
	c, err := kafka.NewConsumer(
		kafka.WithConsumerBrokers(cfg.Events.Brokers),
		kafka.WithConsumerTopic(cfg.Events.Topic),
		// One group per instance so every instance sees every event.
		kafka.WithConsumerGroupID(cfg.Events.GroupPrefix+"-"+string(id)),
		kafka.WithConsumerLatestOnly(true),
		kafka.WithConsumerLogger(el),
	)
	if err != nil {
		return nil, fmt.Errorf("events consumer: %w", err)
	}
	return server.Workers{events.NewWorker(c, events.NewListener(id, evictor, rec, el))}, nil
}

func ProvideQuoteCache(
	store cache.Store,
	loc *interval.Locator,
	fresh *freshness.Evaluator,
	gi *gaps.Identifier,
	rec *metrics.Recorder,
	l *logger.Logger,
	policy usecase.Policy,
	notify usecase.Notifier,
) *usecase.QuoteCache {
	return usecase.NewQuoteCache(store, loc, fresh, gi, rec, l.With(logger.String("component", "quotes")), policy, notify)
}

func ProvideCalendarHandler(l *logger.Logger, loc *interval.Locator, fresh *freshness.Evaluator, gi *gaps.Identifier, policy usecase.Policy) *api.CalendarHandler {
	return api.NewCalendarHandler(l.With(logger.String("component", "api")), loc, fresh, gi, api.Defaults{
		MaxAge:         policy.MaxAge,
		TriggerOnClose: policy.TriggerOnClose,
		MergeThreshold: policy.MergeThreshold,
	})
}

func ProvideQuotesHandler(l *logger.Logger, quotes *usecase.QuoteCache, cal *api.CalendarHandler) *api.QuotesHandler {
	return api.NewQuotesHandler(l.With(logger.String("component", "api")), quotes, cal)
}

// ProvideHTTPServer creates the echo server with every API handler.
func ProvideHTTPServer(
	cfg *config.Config,
	l *logger.Logger,
	reg *prometheus.Registry,
	cal *api.CalendarHandler,
	quotes *api.QuotesHandler,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l.With(logger.String("component", "http"))),
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	opts = append(opts, xhttp.WithMetrics(metricsPath, reg))
	if cfg.Server.RateLimit.Enabled {
		opts = append(opts, xhttp.WithRateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst))
	}
	return xhttp.NewServer(xhttp.Handlers{cal, quotes}, opts...)
}

// ProvideScheduler registers the calendar reload job when a schedule is set.
func ProvideScheduler(cfg *config.Config, l *logger.Logger, reg *calendar.Registry, rec *metrics.Recorder) (*server.Scheduler, error) {
	s := server.NewScheduler(l.With(logger.String("component", "scheduler")))
	if cfg.Calendars.ReloadSchedule == "" || cfg.Calendars.File == "" {
		return s, nil
	}
	err := s.Add(server.Job{
		Name:    "calendar-reload",
		Spec:    cfg.Calendars.ReloadSchedule,
		Timeout: time.Minute,
		Run: func(context.Context) error {
			ids, err := calendar.LoadFile(reg, cfg.Calendars.File)
			if err != nil {
				rec.RecordError("calendar_reload")
				return err
			}
			rec.SetCalendars(len(reg.IDs()))
			l.Info("calendars reloaded", logger.Strings("exchanges", ids))
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, l *logger.Logger, srv *xhttp.Server, sched *server.Scheduler, workers server.Workers) *server.App {
	return server.New(cfg, l, srv, sched, workers)
}
