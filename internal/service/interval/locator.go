// Package interval maps moments onto trading sessions and candle intervals.
//
// Every candle is session relative: intraday candles subdivide one session
// and the last one is truncated at the session close. Daily candles cover one
// session and weekly candles cover a Monday anchored block of sessions.
package interval

import (
	"errors"

	"QuoteCache/internal/calendar"
	"QuoteCache/internal/domain/models"
)

var ErrInvalidRange = errors.New("interval: start must be before end")

// maxScanDays bounds every forward or backward session search. An exchange
// with no session for ten years is a misconfigured calendar.
const maxScanDays = 3660

// Locator answers session and interval queries against a calendar registry.
// It holds no state of its own and is safe for concurrent use.
type Locator struct {
	reg *calendar.Registry
}

// NewLocator creates a locator reading calendars from reg.
func NewLocator(reg *calendar.Registry) *Locator {
	return &Locator{reg: reg}
}

// Registry returns the registry the locator reads.
func (l *Locator) Registry() *calendar.Registry {
	return l.reg
}

type options struct {
	allowLateDaily bool
	weekMode       models.WeekMode
}

// Option adjusts interval queries.
type Option func(*options)

// AllowLateDaily makes a daily query after the session close on a trading day
// still resolve to that day's session.
func AllowLateDaily() Option {
	return func(o *options) { o.allowLateDaily = true }
}

// WithWeekMode selects the anchoring of Days5 and Week candles.
func WithWeekMode(m models.WeekMode) Option {
	return func(o *options) { o.weekMode = m }
}

// WithLateDaily is AllowLateDaily driven by a flag.
func WithLateDaily(allow bool) Option {
	return func(o *options) { o.allowLateDaily = allow }
}

// query carries one call's calendar, options and session memo. Batch forms
// share a query across all elements.
type query struct {
	cal  *calendar.Calendar
	opt  options
	sess *sessions
}

func (l *Locator) query(ex string, opts []Option) *query {
	cal := l.reg.Lookup(ex)
	q := &query{cal: cal, sess: newSessions(cal)}
	for _, o := range opts {
		o(&q.opt)
	}
	return q
}
