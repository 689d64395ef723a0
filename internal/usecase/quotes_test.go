package usecase

import (
	"context"
	"testing"
	"time"

	"QuoteCache/internal/calendar"
	"QuoteCache/internal/domain/models"
	"QuoteCache/internal/service/freshness"
	"QuoteCache/internal/service/gaps"
	"QuoteCache/internal/service/interval"
	"QuoteCache/pkg/cache"
	"QuoteCache/pkg/logger"
	"QuoteCache/pkg/metrics"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ny, _ = time.LoadLocation("America/New_York")

func at(d, h, min int) time.Time {
	return time.Date(2022, time.February, d, h, min, 0, 0, ny)
}

func feb(d int) models.Moment {
	return models.DateMoment(civil.Date{Year: 2022, Month: time.February, Day: d})
}

func candle(start models.Moment, close float64) models.Candle {
	return models.Candle{Start: start, Open: close, High: close, Low: close, Close: close, Volume: 100}
}

type recordingNotifier struct {
	events []models.SeriesEvent
	err    error
}

func (n *recordingNotifier) SeriesChanged(_ context.Context, ev models.SeriesEvent) error {
	n.events = append(n.events, ev)
	return n.err
}

func newQuoteCache(t *testing.T) (*QuoteCache, cache.Store) {
	t.Helper()
	reg := calendar.NewRegistry()
	require.NoError(t, reg.Register("NYQ", "America/New_York", 0,
		calendar.WithHolidays(civil.Date{Year: 2022, Month: time.February, Day: 21})))
	loc := interval.NewLocator(reg)
	store := cache.NewMemoryStore(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = store.Close() })

	uc := NewQuoteCache(store, loc, freshness.NewEvaluator(loc), gaps.NewIdentifier(loc),
		metrics.Nop(), logger.Nop(), Policy{
			MaxAge:         func(models.Interval) time.Duration { return time.Hour },
			TriggerOnClose: true,
		}, nil)
	return uc, store
}

func TestMergeAlignsAndDropsClosedDays(t *testing.T) {
	ctx := context.Background()
	uc, store := newQuoteCache(t)

	n, err := uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1,
		Candles:   []models.Candle{candle(feb(9), 3), candle(feb(7), 1), candle(feb(8), 2), candle(feb(12), 9)},
		FetchTime: at(10, 12, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n, "Saturday candle dropped")

	series, _, err := cache.GetTyped[models.Series](ctx, store, cache.SeriesKey("NYQ", "AAPL", models.Days1))
	require.NoError(t, err)
	require.Len(t, series.Points, 3)
	for i, d := range []int{7, 8, 9} {
		assert.True(t, feb(d).Equal(series.Points[i].Start), "sorted by start")
		assert.True(t, series.Points[i].Final, "fetched after settlement")
	}

	_, err = uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1,
		Candles:   []models.Candle{candle(feb(8), 99)},
		FetchTime: at(10, 12, 0),
	})
	require.NoError(t, err)
	series, _, err = cache.GetTyped[models.Series](ctx, store, cache.SeriesKey("NYQ", "AAPL", models.Days1))
	require.NoError(t, err)
	require.Len(t, series.Points, 3)
	assert.Equal(t, 99.0, series.Points[1].Close)
}

func TestMergeAlignsIntradayStarts(t *testing.T) {
	ctx := context.Background()
	uc, store := newQuoteCache(t)

	n, err := uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "AAPL", Interval: models.Mins30,
		Candles: []models.Candle{
			candle(models.InstantMoment(at(7, 10, 7)), 1),
			candle(models.InstantMoment(at(7, 17, 0)), 2),
		},
		FetchTime: at(7, 10, 8),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	series, _, err := cache.GetTyped[models.Series](ctx, store, cache.SeriesKey("NYQ", "AAPL", models.Mins30))
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	assert.True(t, series.Points[0].Start.Time().Equal(at(7, 10, 0)))
	assert.False(t, series.Points[0].Final)
}

func TestMergeResolvesMidnightDailyStartsByDate(t *testing.T) {
	ctx := context.Background()
	uc, store := newQuoteCache(t)

	n, err := uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1,
		Candles: []models.Candle{
			candle(models.InstantMoment(at(7, 0, 0)), 1),
			candle(models.InstantMoment(at(8, 0, 0)), 2),
		},
		FetchTime: at(10, 12, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	series, _, err := cache.GetTyped[models.Series](ctx, store, cache.SeriesKey("NYQ", "AAPL", models.Days1))
	require.NoError(t, err)
	require.Len(t, series.Points, 2)
	assert.True(t, feb(7).Equal(series.Points[0].Start))
	assert.True(t, feb(8).Equal(series.Points[1].Start))

	n, err = uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "AAPL", Interval: models.Week,
		Candles:   []models.Candle{candle(models.InstantMoment(at(7, 0, 0)), 5)},
		FetchTime: at(14, 12, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "weekly row at Monday midnight")
}

func TestPlanReportsMissingAndExpired(t *testing.T) {
	ctx := context.Background()
	uc, _ := newQuoteCache(t)

	_, err := uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1,
		Candles:   []models.Candle{candle(feb(7), 1), candle(feb(8), 2), candle(feb(10), 4)},
		FetchTime: at(10, 12, 0),
	})
	require.NoError(t, err)

	uc.now = func() time.Time { return at(10, 12, 30) }
	plan, err := uc.Plan(ctx, PlanParams{Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1, Start: feb(7), End: feb(14)})
	require.NoError(t, err)
	assert.Len(t, plan.Cached, 3)
	assert.Empty(t, plan.Expired)
	require.Len(t, plan.Missing, 2)
	assert.True(t, models.DateRange(civil.Date{Year: 2022, Month: 2, Day: 9}, civil.Date{Year: 2022, Month: 2, Day: 10}).Equal(plan.Missing[0]))
	assert.True(t, models.DateRange(civil.Date{Year: 2022, Month: 2, Day: 11}, civil.Date{Year: 2022, Month: 2, Day: 12}).Equal(plan.Missing[1]))

	// The Feb 10 bar is still forming and is now older than max age.
	uc.now = func() time.Time { return at(10, 13, 30) }
	plan, err = uc.Plan(ctx, PlanParams{Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1, Start: feb(7), End: feb(14)})
	require.NoError(t, err)
	assert.Len(t, plan.Cached, 2)
	require.Len(t, plan.Expired, 1)
	assert.True(t, feb(10).Equal(plan.Expired[0]))
	require.Len(t, plan.Missing, 1)
	assert.True(t, models.DateRange(civil.Date{Year: 2022, Month: 2, Day: 9}, civil.Date{Year: 2022, Month: 2, Day: 12}).Equal(plan.Missing[0]))
}

func TestPlanReevaluatesFinalPointsAfterCalendarChange(t *testing.T) {
	ctx := context.Background()
	uc, _ := newQuoteCache(t)

	_, err := uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1,
		Candles:   []models.Candle{candle(feb(7), 1), candle(feb(8), 2)},
		FetchTime: at(10, 12, 0),
	})
	require.NoError(t, err)

	require.NoError(t, uc.loc.Registry().Register("NYQ", "America/New_York", 0,
		calendar.WithHolidays(civil.Date{Year: 2022, Month: time.February, Day: 8},
			civil.Date{Year: 2022, Month: time.February, Day: 21})))

	uc.now = func() time.Time { return at(10, 12, 30) }
	plan, err := uc.Plan(ctx, PlanParams{Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1, Start: feb(7), End: feb(9)})
	require.NoError(t, err)
	require.Len(t, plan.Cached, 1)
	assert.True(t, plan.Cached[0].Final)
	require.Len(t, plan.Expired, 1, "final flag does not shield a point the calendar no longer has")
	assert.True(t, feb(8).Equal(plan.Expired[0]))
}

func TestPlanEmptyCacheAndClosedRange(t *testing.T) {
	ctx := context.Background()
	uc, _ := newQuoteCache(t)
	uc.now = func() time.Time { return at(14, 12, 0) }

	plan, err := uc.Plan(ctx, PlanParams{Exchange: "NYQ", Symbol: "MSFT", Interval: models.Days1, Start: feb(7), End: feb(12)})
	require.NoError(t, err)
	assert.Empty(t, plan.Cached)
	require.Len(t, plan.Missing, 1)
	assert.True(t, models.DateRange(civil.Date{Year: 2022, Month: 2, Day: 7}, civil.Date{Year: 2022, Month: 2, Day: 12}).Equal(plan.Missing[0]))

	plan, err = uc.Plan(ctx, PlanParams{Exchange: "NYQ", Symbol: "MSFT", Interval: models.Days1, Start: feb(12), End: feb(14)})
	require.NoError(t, err, "weekend has nothing to fetch")
	assert.Empty(t, plan.Missing)

	_, err = uc.Plan(ctx, PlanParams{Exchange: "NYQ", Symbol: "MSFT", Interval: models.Days1, Start: feb(14), End: feb(7)})
	assert.ErrorIs(t, err, interval.ErrInvalidRange)
}

func TestMergeRespectsLock(t *testing.T) {
	ctx := context.Background()
	uc, store := newQuoteCache(t)

	key := cache.SeriesKey("NYQ", "AAPL", models.Days1)
	ok, err := store.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1,
		Candles:   []models.Candle{candle(feb(7), 1)},
		FetchTime: at(10, 12, 0),
	})
	assert.ErrorIs(t, err, cache.ErrLocked)

	require.NoError(t, store.Unlock(ctx, key))
	n, err := uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1,
		Candles:   []models.Candle{candle(feb(7), 1)},
		FetchTime: at(10, 12, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, uc.Invalidate(ctx, "NYQ", "AAPL", models.Days1))
	_, err = store.Get(ctx, key, nil)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestWritesAreAnnounced(t *testing.T) {
	ctx := context.Background()
	uc, _ := newQuoteCache(t)
	n := &recordingNotifier{}
	uc.notify = n

	_, err := uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "aapl", Interval: models.Days1,
		Candles:   []models.Candle{candle(feb(7), 1), candle(feb(12), 2)},
		FetchTime: at(10, 12, 0),
	})
	require.NoError(t, err)
	require.NoError(t, uc.Invalidate(ctx, "NYQ", "AAPL", models.Days1))

	require.Len(t, n.events, 2)
	assert.Equal(t, models.SeriesMerged, n.events[0].Action)
	assert.Equal(t, "series:NYQ:AAPL:1d", n.events[0].Key)
	assert.Equal(t, 1, n.events[0].Points)
	assert.Equal(t, models.SeriesInvalidated, n.events[1].Action)
	assert.Equal(t, n.events[0].Key, n.events[1].Key)

	n.err = assert.AnError
	_, err = uc.Merge(ctx, MergeParams{
		Exchange: "NYQ", Symbol: "AAPL", Interval: models.Days1,
		Candles:   []models.Candle{candle(feb(8), 1)},
		FetchTime: at(10, 12, 0),
	})
	assert.NoError(t, err, "publish failure does not fail the write")
}
