package interval

import (
	"fmt"
	"time"

	"QuoteCache/internal/domain/models"
	"QuoteCache/pkg/util"

	"cloud.google.com/go/civil"
)

// CurrentInterval returns the candle of kind iv covering m, or false when no
// candle covers it (market closed, non-trading week).
func (l *Locator) CurrentInterval(ex string, m models.Moment, iv models.Interval, opts ...Option) (models.IntervalRange, bool) {
	return l.query(ex, opts).current(m, iv)
}

// NextInterval returns the candle after the one covering m or, when none
// covers m, the earliest candle opening after m.
func (l *Locator) NextInterval(ex string, m models.Moment, iv models.Interval, opts ...Option) models.IntervalRange {
	return l.query(ex, opts).next(m, iv)
}

// MostRecentInterval returns the candle covering m or, when none covers it,
// the latest candle closed at or before m.
func (l *Locator) MostRecentInterval(ex string, m models.Moment, iv models.Interval, opts ...Option) models.IntervalRange {
	return l.query(ex, opts).mostRecent(m, iv)
}

func (q *query) current(m models.Moment, iv models.Interval) (models.IntervalRange, bool) {
	switch iv {
	case models.Mins1, models.Mins2, models.Mins5, models.Mins15, models.Mins30,
		models.Mins60, models.Mins90, models.Hours1:
		t := m.InstantIn(q.cal.Location)
		s, ok := q.sess.current(t)
		if !ok {
			return models.NoInterval, false
		}
		return q.candle(s, t, iv), true
	case models.Days1:
		return q.currentDay(m)
	case models.Days5, models.Week:
		return q.currentWeek(m)
	default:
		panic(fmt.Sprintf("interval: unknown interval %d", int(iv)))
	}
}

func (q *query) next(m models.Moment, iv models.Interval) models.IntervalRange {
	switch iv {
	case models.Mins1, models.Mins2, models.Mins5, models.Mins15, models.Mins30,
		models.Mins60, models.Mins90, models.Hours1:
		t := m.InstantIn(q.cal.Location)
		if s, ok := q.sess.current(t); ok {
			cur := q.candle(s, t, iv)
			if end := cur.Close.Time(); end.Before(s.Close) {
				return q.candle(s, end, iv)
			}
			return q.firstCandle(q.sess.firstOnOrAfter(s.Date.AddDays(1)), iv)
		}
		return q.firstCandle(q.sess.next(t), iv)
	case models.Days1:
		if m.IsDate() {
			s := q.sess.firstOnOrAfter(m.CivilDate().AddDays(1))
			return models.DateRange(s.Date, s.Date.AddDays(1))
		}
		t := m.InstantIn(q.cal.Location)
		if cur, ok := q.currentDay(m); ok {
			s := q.sess.firstOnOrAfter(q.sess.localDate(cur.Open.Time()).AddDays(1))
			return models.InstantRange(s.Open, s.Close)
		}
		// No current daily candle: t is outside every session, so the
		// candle of the next session opens after t.
		s := q.sess.next(t)
		return models.InstantRange(s.Open, s.Close)
	case models.Days5, models.Week:
		mon := util.MondayOf(m.DateIn(q.cal.Location))
		for i := 1; i <= maxScanDays/7; i++ {
			if b, ok := q.week(mon.AddDays(7 * i)); ok {
				return q.weekRange(b, m.IsDate())
			}
		}
		panic(fmt.Sprintf("interval: %s has no trading week after %s", q.cal.ID, m))
	default:
		panic(fmt.Sprintf("interval: unknown interval %d", int(iv)))
	}
}

func (q *query) mostRecent(m models.Moment, iv models.Interval) models.IntervalRange {
	if cur, ok := q.current(m, iv); ok {
		return cur
	}
	switch iv {
	case models.Mins1, models.Mins2, models.Mins5, models.Mins15, models.Mins30,
		models.Mins60, models.Mins90, models.Hours1:
		return q.lastCandle(q.sess.mostRecent(m.InstantIn(q.cal.Location)), iv)
	case models.Days1:
		if m.IsDate() {
			s := q.sess.lastBefore(m.CivilDate())
			return models.DateRange(s.Date, s.Date.AddDays(1))
		}
		s := q.sess.mostRecent(m.InstantIn(q.cal.Location))
		return models.InstantRange(s.Open, s.Close)
	case models.Days5, models.Week:
		d := m.DateIn(q.cal.Location)
		mon := util.MondayOf(d)
		for i := 0; i <= maxScanDays/7; i++ {
			b, ok := q.week(mon.AddDays(-7 * i))
			if ok && !d.Before(b.close) {
				return q.weekRange(b, m.IsDate())
			}
		}
		panic(fmt.Sprintf("interval: %s has no trading week before %s", q.cal.ID, m))
	default:
		panic(fmt.Sprintf("interval: unknown interval %d", int(iv)))
	}
}

// candle returns the grid candle of s containing t. The last candle of a
// session is truncated at the close.
func (q *query) candle(s models.Session, t time.Time, iv models.Interval) models.IntervalRange {
	d := iv.Duration()
	idx := t.Sub(s.Open) / d
	open := s.Open.Add(idx * d)
	return q.candleAt(s, open, d)
}

func (q *query) firstCandle(s models.Session, iv models.Interval) models.IntervalRange {
	return q.candleAt(s, s.Open, iv.Duration())
}

func (q *query) lastCandle(s models.Session, iv models.Interval) models.IntervalRange {
	d := iv.Duration()
	n := (s.Close.Sub(s.Open) + d - 1) / d
	return q.candleAt(s, s.Open.Add((n-1)*d), d)
}

func (q *query) candleAt(s models.Session, open time.Time, d time.Duration) models.IntervalRange {
	end := open.Add(d)
	if end.After(s.Close) {
		end = s.Close
	}
	loc := q.cal.Location
	return models.InstantRange(open.In(loc), end.In(loc))
}

func (q *query) currentDay(m models.Moment) (models.IntervalRange, bool) {
	if m.IsDate() {
		d := m.CivilDate()
		if !q.cal.IsOpenOn(d) {
			return models.NoInterval, false
		}
		return models.DateRange(d, d.AddDays(1)), true
	}
	t := m.InstantIn(q.cal.Location)
	s, ok := q.sess.on(q.sess.localDate(t))
	if !ok || t.Before(s.Open) {
		return models.NoInterval, false
	}
	if t.Before(s.Close) || q.opt.allowLateDaily {
		return models.InstantRange(s.Open, s.Close), true
	}
	return models.NoInterval, false
}

// weekBlock is one weekly candle in local civil dates. first is the first
// session of the block and anchors instant opens in trading-week mode.
type weekBlock struct {
	open, close civil.Date
	first       models.Session
}

// week resolves the candle of the block starting on Monday mon. A block needs
// at least one session from Monday to Friday.
func (q *query) week(mon civil.Date) (weekBlock, bool) {
	var first models.Session
	found := false
	for i := 0; i < 5; i++ {
		if s, ok := q.sess.on(mon.AddDays(i)); ok {
			first, found = s, true
			break
		}
	}
	if !found {
		return weekBlock{}, false
	}
	switch q.opt.weekMode {
	case models.WeekTrading:
		return weekBlock{open: first.Date, close: mon.AddDays(5), first: first}, true
	case models.WeekCalendar:
		return weekBlock{open: mon, close: mon.AddDays(7), first: first}, true
	case models.WeekCalendarSaturday:
		return weekBlock{open: mon, close: mon.AddDays(5), first: first}, true
	default:
		panic(fmt.Sprintf("interval: unknown week mode %d", int(q.opt.weekMode)))
	}
}

func (q *query) currentWeek(m models.Moment) (models.IntervalRange, bool) {
	d := m.DateIn(q.cal.Location)
	b, ok := q.week(util.MondayOf(d))
	if !ok {
		return models.NoInterval, false
	}
	// The legacy Saturday block leaves the weekend uncovered.
	if q.opt.weekMode == models.WeekCalendarSaturday && !d.Before(b.close) {
		return models.NoInterval, false
	}
	return q.weekRange(b, m.IsDate()), true
}

func (q *query) weekRange(b weekBlock, asDate bool) models.IntervalRange {
	if asDate {
		return models.DateRange(b.open, b.close)
	}
	loc := q.cal.Location
	open := b.open.In(loc)
	if q.opt.weekMode == models.WeekTrading {
		open = b.first.Open
	}
	return models.InstantRange(open, b.close.In(loc))
}
