package interval

import (
	"fmt"
	"time"

	"QuoteCache/internal/domain/models"
	"QuoteCache/pkg/util"
)

// EnumerateIntervals returns every candle of kind iv whose open lies in
// [start, end), ascending. Daily and weekly candles take the precision of
// start; intraday candles are always instants.
func (l *Locator) EnumerateIntervals(ex string, iv models.Interval, start, end models.Moment, opts ...Option) ([]models.IntervalRange, error) {
	q := l.query(ex, opts)
	loc := q.cal.Location
	ts, te := start.InstantIn(loc), end.InstantIn(loc)
	if !ts.Before(te) {
		return nil, fmt.Errorf("%w: [%s, %s)", ErrInvalidRange, start, end)
	}
	return q.enumerate(iv, ts, te, start.IsDate()), nil
}

func (q *query) enumerate(iv models.Interval, ts, te time.Time, asDate bool) []models.IntervalRange {
	first := q.sess.localDate(ts)
	last := q.sess.localDate(te)
	var out []models.IntervalRange

	switch iv {
	case models.Mins1, models.Mins2, models.Mins5, models.Mins15, models.Mins30,
		models.Mins60, models.Mins90, models.Hours1:
		d := iv.Duration()
		for day := first; !day.After(last); day = day.AddDays(1) {
			s, ok := q.sess.on(day)
			if !ok {
				continue
			}
			for open := s.Open; open.Before(s.Close) && open.Before(te); open = open.Add(d) {
				if !open.Before(ts) {
					out = append(out, q.candleAt(s, open, d))
				}
			}
		}
	case models.Days1:
		for day := first; !day.After(last); day = day.AddDays(1) {
			s, ok := q.sess.on(day)
			if !ok {
				continue
			}
			if asDate {
				open := day.In(q.cal.Location)
				if !open.Before(ts) && open.Before(te) {
					out = append(out, models.DateRange(day, day.AddDays(1)))
				}
				continue
			}
			if !s.Open.Before(ts) && s.Open.Before(te) {
				out = append(out, models.InstantRange(s.Open, s.Close))
			}
		}
	case models.Days5, models.Week:
		for mon := util.MondayOf(first); !mon.After(last); mon = mon.AddDays(7) {
			b, ok := q.week(mon)
			if !ok {
				continue
			}
			r := q.weekRange(b, false)
			if open := r.Open.Time(); !open.Before(ts) && open.Before(te) {
				out = append(out, q.weekRange(b, asDate))
			}
		}
	default:
		panic(fmt.Sprintf("interval: unknown interval %d", int(iv)))
	}
	return out
}
