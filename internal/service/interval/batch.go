package interval

import (
	"time"

	"QuoteCache/internal/domain/models"
)

// Batch forms evaluate the scalar form once per element against a shared
// session memo. Results line up with the input; NoInterval and the zero
// Session mark elements without a result.

func (l *Locator) CurrentIntervalBatch(ex string, ms []models.Moment, iv models.Interval, opts ...Option) []models.IntervalRange {
	q := l.query(ex, opts)
	out := make([]models.IntervalRange, len(ms))
	for i, m := range ms {
		out[i], _ = q.current(m, iv)
	}
	return out
}

func (l *Locator) NextIntervalBatch(ex string, ms []models.Moment, iv models.Interval, opts ...Option) []models.IntervalRange {
	q := l.query(ex, opts)
	out := make([]models.IntervalRange, len(ms))
	for i, m := range ms {
		out[i] = q.next(m, iv)
	}
	return out
}

func (l *Locator) MostRecentIntervalBatch(ex string, ms []models.Moment, iv models.Interval, opts ...Option) []models.IntervalRange {
	q := l.query(ex, opts)
	out := make([]models.IntervalRange, len(ms))
	for i, m := range ms {
		out[i] = q.mostRecent(m, iv)
	}
	return out
}

func (l *Locator) CurrentSessionBatch(ex string, ts []time.Time) []models.Session {
	s := newSessions(l.reg.Lookup(ex))
	out := make([]models.Session, len(ts))
	for i, t := range ts {
		out[i], _ = s.current(t)
	}
	return out
}

func (l *Locator) MostRecentSessionBatch(ex string, ts []time.Time) []models.Session {
	s := newSessions(l.reg.Lookup(ex))
	out := make([]models.Session, len(ts))
	for i, t := range ts {
		out[i] = s.mostRecent(t)
	}
	return out
}

func (l *Locator) NextSessionBatch(ex string, ts []time.Time) []models.Session {
	s := newSessions(l.reg.Lookup(ex))
	out := make([]models.Session, len(ts))
	for i, t := range ts {
		out[i] = s.next(t)
	}
	return out
}
