package models

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Session is one trading day's [Open, Close) window in exchange time.
type Session struct {
	Date  civil.Date `json:"date"`
	Open  time.Time  `json:"open"`
	Close time.Time  `json:"close"`
}

// IsZero reports whether the session is the "no session" sentinel.
func (s Session) IsZero() bool { return s.Open.IsZero() }

// Contains reports open <= t < close.
func (s Session) Contains(t time.Time) bool {
	return !t.Before(s.Open) && t.Before(s.Close)
}

// Equal compares two sessions by instant.
func (s Session) Equal(o Session) bool {
	return s.Date == o.Date && s.Open.Equal(o.Open) && s.Close.Equal(o.Close)
}

// IntervalRange is a half-open candle [Open, Close). Both ends share the
// precision of the query that produced it. The zero value means "no interval".
type IntervalRange struct {
	Open  Moment `json:"open"`
	Close Moment `json:"close"`
}

// NoInterval is the sentinel used by batch results.
var NoInterval = IntervalRange{}

// IsZero reports whether r is the "no interval" sentinel.
func (r IntervalRange) IsZero() bool { return r.Open.IsZero() }

// Equal compares two ranges by value and precision.
func (r IntervalRange) Equal(o IntervalRange) bool {
	return r.Open.Equal(o.Open) && r.Close.Equal(o.Close)
}

func (r IntervalRange) String() string {
	if r.IsZero() {
		return "<no interval>"
	}
	return fmt.Sprintf("[%s, %s)", r.Open, r.Close)
}

// DateRange builds a date-precision range.
func DateRange(open, close civil.Date) IntervalRange {
	return IntervalRange{Open: DateMoment(open), Close: DateMoment(close)}
}

// InstantRange builds an instant-precision range.
func InstantRange(open, close time.Time) IntervalRange {
	return IntervalRange{Open: InstantMoment(open), Close: InstantMoment(close)}
}
