package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"QuoteCache/internal/domain/models"
	"QuoteCache/internal/service/freshness"
	"QuoteCache/internal/service/gaps"
	"QuoteCache/internal/service/interval"
	"QuoteCache/pkg/cache"
	"QuoteCache/pkg/logger"
	"QuoteCache/pkg/metrics"
)

// Policy holds the freshness and planning knobs applied to every series.
type Policy struct {
	MaxAge         func(models.Interval) time.Duration
	TriggerOnClose bool
	MergeThreshold int
	WeekMode       models.WeekMode
	LockTTL        time.Duration
	// Retention is the hard expiry set on each write; zero disables it.
	Retention time.Duration
}

// Notifier is told about every series write that succeeded.
type Notifier interface {
	SeriesChanged(ctx context.Context, ev models.SeriesEvent) error
}

type nopNotifier struct{}

func (nopNotifier) SeriesChanged(context.Context, models.SeriesEvent) error { return nil }

// QuoteCache plans vendor fetches against the cached series and merges
// fetched candles back in. It never talks to the vendor itself.
type QuoteCache struct {
	store   cache.Store
	loc     *interval.Locator
	fresh   *freshness.Evaluator
	gaps    *gaps.Identifier
	metrics *metrics.Recorder
	log     *logger.Logger
	policy  Policy
	notify  Notifier
	now     func() time.Time
}

func NewQuoteCache(
	store cache.Store,
	loc *interval.Locator,
	fresh *freshness.Evaluator,
	gi *gaps.Identifier,
	rec *metrics.Recorder,
	log *logger.Logger,
	policy Policy,
	notify Notifier,
) *QuoteCache {
	if notify == nil {
		notify = nopNotifier{}
	}
	if policy.MaxAge == nil {
		policy.MaxAge = func(models.Interval) time.Duration { return time.Hour }
	}
	if policy.LockTTL <= 0 {
		policy.LockTTL = 30 * time.Second
	}
	return &QuoteCache{
		store:   store,
		loc:     loc,
		fresh:   fresh,
		gaps:    gi,
		metrics: rec,
		log:     log,
		policy:  policy,
		notify:  notify,
		now:     time.Now,
	}
}

type PlanParams struct {
	Exchange string
	Symbol   string
	Interval models.Interval
	Start    models.Moment
	End      models.Moment
}

// Plan is what the caller must fetch to serve [Start, End).
type Plan struct {
	// Cached holds the points that are still fresh.
	Cached  []models.CachedPoint   `json:"cached"`
	Expired []models.Moment        `json:"expired"`
	Missing []models.IntervalRange `json:"missing"`
}

// Plan loads the cached series, drops expired points and returns the ranges
// that still need fetching. A range with no trading intervals yields an
// empty plan.
func (uc *QuoteCache) Plan(ctx context.Context, p PlanParams) (*Plan, error) {
	start := time.Now()
	defer uc.metrics.RecordLatency("plan", start)

	series, err := uc.load(ctx, p.Exchange, p.Symbol, p.Interval)
	if err != nil {
		uc.metrics.RecordError("cache_read")
		return nil, err
	}

	now := uc.now()
	plan := &Plan{}
	for _, pt := range series.Points {
		expired, err := uc.fresh.IsExpired(freshness.ExpiryQuery{
			Exchange:       p.Exchange,
			Interval:       p.Interval,
			Start:          pt.Start,
			FetchTime:      pt.FetchTime,
			Repaired:       pt.Repaired,
			MaxAge:         uc.policy.MaxAge(p.Interval),
			TriggerOnClose: uc.policy.TriggerOnClose,
			Now:            now,
		})
		switch {
		case errors.Is(err, freshness.ErrStartOutsideInterval):
			// Calendar data changed under the point; refetch it.
			expired = true
		case err != nil:
			return nil, fmt.Errorf("evaluate %s %s: %w", p.Symbol, pt.Start, err)
		}
		if expired {
			plan.Expired = append(plan.Expired, pt.Start)
			continue
		}
		plan.Cached = append(plan.Cached, pt)
	}

	known := make([]models.Moment, len(plan.Cached))
	for i, pt := range plan.Cached {
		known[i] = pt.Start
	}
	missing, err := uc.gaps.MissingRanges(p.Exchange, p.Start, p.End, p.Interval, known,
		uc.policy.MergeThreshold, interval.WithWeekMode(uc.policy.WeekMode))
	switch {
	case errors.Is(err, gaps.ErrNoIntervalsInRange):
	case err != nil:
		return nil, err
	default:
		plan.Missing = missing
	}

	uc.metrics.RecordExpired(p.Interval.String(), len(plan.Expired))
	uc.metrics.RecordMissing(p.Interval.String(), len(plan.Missing))
	uc.log.Debug("quote plan",
		logger.String("exchange", p.Exchange),
		logger.String("symbol", p.Symbol),
		logger.Stringer("interval", p.Interval),
		logger.Int("cached", len(plan.Cached)),
		logger.Int("expired", len(plan.Expired)),
		logger.Int("missing", len(plan.Missing)),
	)
	return plan, nil
}

type MergeParams struct {
	Exchange  string
	Symbol    string
	Interval  models.Interval
	Candles   []models.Candle
	FetchTime time.Time
	Repaired  bool
}

// Merge aligns fetched candles onto the interval grid and writes them over
// the cached series. Daily and weekly starts are resolved by their local
// date. Candles outside any interval are dropped. It returns the number of
// candles stored.
func (uc *QuoteCache) Merge(ctx context.Context, p MergeParams) (int, error) {
	start := time.Now()
	defer uc.metrics.RecordLatency("merge", start)

	opts := []interval.Option{interval.WithWeekMode(uc.policy.WeekMode)}
	// Interday rows are stamped at local midnight; only their date counts.
	var dayLoc *time.Location
	if !p.Interval.IsIntraday() {
		if cal, ok := uc.loc.Registry().Get(p.Exchange); ok {
			dayLoc = cal.Location
		}
	}
	starts := make([]models.Moment, len(p.Candles))
	for i, c := range p.Candles {
		starts[i] = c.Start
		if dayLoc != nil && !c.Start.IsDate() {
			starts[i] = models.DateMoment(c.Start.DateIn(dayLoc))
		}
	}
	aligned := uc.loc.CurrentIntervalBatch(p.Exchange, starts, p.Interval, opts...)

	incoming := make([]models.CachedPoint, 0, len(p.Candles))
	for i, c := range p.Candles {
		r := aligned[i]
		if r.IsZero() {
			uc.log.Warn("candle outside trading intervals",
				logger.String("symbol", p.Symbol),
				logger.Stringer("start", c.Start),
			)
			continue
		}
		c.Start = r.Open
		pt := models.CachedPoint{Candle: c, FetchTime: p.FetchTime, Repaired: p.Repaired}
		if last, err := uc.fresh.LastDataInstant(p.Exchange, r.Open, p.Interval, nil); err == nil {
			pt.Final = !p.FetchTime.Before(last)
		}
		incoming = append(incoming, pt)
	}
	if len(incoming) == 0 {
		return 0, nil
	}

	key := cache.SeriesKey(p.Exchange, p.Symbol, p.Interval)
	err := cache.WithLock(ctx, uc.store, key, uc.policy.LockTTL, func() error {
		series, err := uc.load(ctx, p.Exchange, p.Symbol, p.Interval)
		if err != nil {
			return err
		}
		series.Points = uc.mergePoints(p.Exchange, series.Points, incoming)

		var expireAt *time.Time
		if uc.policy.Retention > 0 {
			t := p.FetchTime.Add(uc.policy.Retention)
			expireAt = &t
		}
		meta := cache.Meta{
			FetchTime: p.FetchTime,
			Tags:      map[string]string{"exchange": p.Exchange, "interval": p.Interval.String()},
		}
		return uc.store.Put(ctx, key, series, meta, expireAt)
	})
	if err != nil {
		uc.metrics.RecordError("cache_write")
		return 0, fmt.Errorf("merge %s: %w", key, err)
	}

	uc.log.Info("quotes merged",
		logger.String("key", key),
		logger.Int("stored", len(incoming)),
		logger.Int("dropped", len(p.Candles)-len(incoming)),
	)
	uc.announce(ctx, models.SeriesEvent{
		Action: models.SeriesMerged, Key: key,
		Exchange: p.Exchange, Symbol: p.Symbol, Interval: p.Interval,
		Points: len(incoming),
	})
	return len(incoming), nil
}

// Invalidate drops the cached series.
func (uc *QuoteCache) Invalidate(ctx context.Context, exchange, symbol string, iv models.Interval) error {
	key := cache.SeriesKey(exchange, symbol, iv)
	if err := uc.store.Delete(ctx, key); err != nil {
		uc.metrics.RecordError("cache_delete")
		return err
	}
	uc.announce(ctx, models.SeriesEvent{
		Action: models.SeriesInvalidated, Key: key,
		Exchange: exchange, Symbol: symbol, Interval: iv,
	})
	return nil
}

// announce never fails the write it reports; peers fall back to hard expiry.
func (uc *QuoteCache) announce(ctx context.Context, ev models.SeriesEvent) {
	if err := uc.notify.SeriesChanged(ctx, ev); err != nil {
		uc.metrics.RecordError("event_publish")
		uc.log.Warn("series event not published", logger.String("key", ev.Key), logger.Error(err))
	}
}

func (uc *QuoteCache) load(ctx context.Context, exchange, symbol string, iv models.Interval) (*models.Series, error) {
	key := cache.SeriesKey(exchange, symbol, iv)
	series, _, err := cache.GetTyped[models.Series](ctx, uc.store, key)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		uc.metrics.RecordLookup(iv.String(), false)
		return &models.Series{Symbol: symbol, Exchange: exchange, Interval: iv}, nil
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	uc.metrics.RecordLookup(iv.String(), true)
	return &series, nil
}

// mergePoints overlays incoming on cached by interval start and returns the
// result in start order.
func (uc *QuoteCache) mergePoints(exchange string, cached, incoming []models.CachedPoint) []models.CachedPoint {
	loc := uc.loc.Registry().Lookup(exchange).Location
	byStart := make(map[int64]int, len(cached)+len(incoming))
	out := make([]models.CachedPoint, 0, len(cached)+len(incoming))
	for _, set := range [][]models.CachedPoint{cached, incoming} {
		for _, pt := range set {
			k := pt.Start.InstantIn(loc).UnixNano()
			if i, ok := byStart[k]; ok {
				out[i] = pt
				continue
			}
			byStart[k] = len(out)
			out = append(out, pt)
		}
	}
	slices.SortFunc(out, func(a, b models.CachedPoint) int {
		return a.Start.InstantIn(loc).Compare(b.Start.InstantIn(loc))
	})
	return out
}
