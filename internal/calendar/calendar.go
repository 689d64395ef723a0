// Package calendar holds per-exchange trading calendars: timezone, session
// hours, open weekdays, holidays and the vendor reporting lag.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"
	_ "time/tzdata"

	"QuoteCache/internal/domain/models"
	"QuoteCache/pkg/util"

	"cloud.google.com/go/civil"
)

var (
	ErrInvalidCalendar = errors.New("calendar: invalid calendar")
	ErrNoSessionHours  = errors.New("calendar: session hours unknown")
)

// Calendar is immutable once registered.
type Calendar struct {
	ID       string
	Location *time.Location
	Open     civil.Time
	Close    civil.Time
	// Weekdays is indexed by time.Weekday.
	Weekdays    [7]bool
	Holidays    map[civil.Date]struct{}
	EarlyCloses map[civil.Date]civil.Time
	// Lag is how long the vendor feed trails the exchange.
	Lag time.Duration
	// CloseAllowance covers trades the vendor still books after the official
	// close (closing auctions, late prints).
	CloseAllowance time.Duration
}

// IsOpenOn reports whether d is a trading day: an open weekday that is not a holiday.
func (c *Calendar) IsOpenOn(d civil.Date) bool {
	if !c.Weekdays[util.Weekday(d)] {
		return false
	}
	_, holiday := c.Holidays[d]
	return !holiday
}

// SessionOn returns the trading session of d, or false when closed.
func (c *Calendar) SessionOn(d civil.Date) (models.Session, bool) {
	if !c.IsOpenOn(d) {
		return models.Session{}, false
	}
	closeAt := c.Close
	if ec, ok := c.EarlyCloses[d]; ok {
		closeAt = ec
	}
	return models.Session{
		Date:  d,
		Open:  util.At(d, c.Open, c.Location),
		Close: util.At(d, closeAt, c.Location),
	}, true
}

// HolidayList returns the holidays in ascending order.
func (c *Calendar) HolidayList() []civil.Date {
	out := make([]civil.Date, 0, len(c.Holidays))
	for d := range c.Holidays {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (c *Calendar) validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty exchange id", ErrInvalidCalendar)
	}
	if c.Location == nil {
		return fmt.Errorf("%w: %s has no timezone", ErrInvalidCalendar, c.ID)
	}
	if util.ClockOffset(c.Open) >= util.ClockOffset(c.Close) {
		return fmt.Errorf("%w: %s session open %s not before close %s", ErrInvalidCalendar, c.ID, c.Open, c.Close)
	}
	if c.Lag < 0 {
		return fmt.Errorf("%w: %s negative lag %s", ErrInvalidCalendar, c.ID, c.Lag)
	}
	if c.CloseAllowance < 0 {
		return fmt.Errorf("%w: %s negative close allowance %s", ErrInvalidCalendar, c.ID, c.CloseAllowance)
	}
	open := false
	for _, v := range c.Weekdays {
		open = open || v
	}
	if !open {
		return fmt.Errorf("%w: %s has no open weekday", ErrInvalidCalendar, c.ID)
	}
	for d, t := range c.EarlyCloses {
		if util.ClockOffset(t) <= util.ClockOffset(c.Open) {
			return fmt.Errorf("%w: %s early close %s on %s not after open", ErrInvalidCalendar, c.ID, t, d)
		}
	}
	return nil
}

// Option customises a calendar during registration.
type Option func(*Calendar)

// WithSession sets the regular session hours in local civil time.
func WithSession(open, close civil.Time) Option {
	return func(c *Calendar) {
		c.Open = open
		c.Close = close
	}
}

// WithWeekdays replaces the open-weekday pattern.
func WithWeekdays(days ...time.Weekday) Option {
	return func(c *Calendar) {
		c.Weekdays = [7]bool{}
		for _, d := range days {
			c.Weekdays[d] = true
		}
	}
}

// WithHolidays adds closed dates.
func WithHolidays(dates ...civil.Date) Option {
	return func(c *Calendar) {
		for _, d := range dates {
			c.Holidays[d] = struct{}{}
		}
	}
}

// WithEarlyClose shortens the session of one date.
func WithEarlyClose(d civil.Date, close civil.Time) Option {
	return func(c *Calendar) {
		c.EarlyCloses[d] = close
	}
}

// WithCloseAllowance sets the post-close window the vendor still books trades in.
func WithCloseAllowance(d time.Duration) Option {
	return func(c *Calendar) {
		c.CloseAllowance = d
	}
}
