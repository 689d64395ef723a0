package calendar

import (
	"fmt"
	"os"
	"time"

	"QuoteCache/pkg/util"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is the static calendar data file.
type File struct {
	Exchanges []ExchangeSpec `yaml:"exchanges" validate:"dive"`
}

// ExchangeSpec describes one exchange. Unset fields fall back to the built-in
// exchange table.
type ExchangeSpec struct {
	ID             string            `yaml:"id" validate:"required"`
	Timezone       string            `yaml:"timezone"`
	Lag            *time.Duration    `yaml:"lag" validate:"omitempty,gte=0"`
	Open           string            `yaml:"open" validate:"omitempty,datetime=15:04"`
	Close          string            `yaml:"close" validate:"omitempty,datetime=15:04"`
	Weekdays       []string          `yaml:"weekdays" validate:"dive,oneof=mon tue wed thu fri sat sun"`
	Holidays       []string          `yaml:"holidays" validate:"dive,datetime=2006-01-02"`
	EarlyCloses    map[string]string `yaml:"early_closes" validate:"dive,keys,datetime=2006-01-02,endkeys,datetime=15:04"`
	CloseAllowance *time.Duration    `yaml:"close_allowance" validate:"omitempty,gte=0"`
}

var fileValidator = validator.New()

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// LoadFile reads a calendar file and registers every exchange in it.
func LoadFile(r *Registry, path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendars: %w", err)
	}
	return Load(r, b)
}

// Load parses calendar YAML and registers every exchange. It returns the
// registered ids in file order. Nothing is registered when any entry is invalid.
func Load(r *Registry, data []byte) ([]string, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse calendars: %w", err)
	}
	if err := fileValidator.Struct(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
	}

	type pending struct {
		id, tz string
		lag    time.Duration
		opts   []Option
	}
	all := make([]pending, 0, len(f.Exchanges))
	for _, spec := range f.Exchanges {
		tz, lag, opts, err := spec.resolve()
		if err != nil {
			return nil, err
		}
		all = append(all, pending{id: spec.ID, tz: tz, lag: lag, opts: opts})
	}

	// Dry run against a scratch registry so a bad entry leaves r untouched.
	scratch := NewRegistry()
	for _, p := range all {
		if err := scratch.Register(p.id, p.tz, p.lag, p.opts...); err != nil {
			return nil, err
		}
	}
	ids := make([]string, 0, len(all))
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range all {
		r.cals[p.id] = scratch.cals[p.id]
		ids = append(ids, p.id)
	}
	return ids, nil
}

func (s ExchangeSpec) resolve() (string, time.Duration, []Option, error) {
	tz := s.Timezone
	if tz == "" {
		known, ok := KnownTimezone(s.ID)
		if !ok {
			return "", 0, nil, fmt.Errorf("%w: %s has no timezone", ErrInvalidCalendar, s.ID)
		}
		tz = known
	}
	lag, _ := KnownLag(s.ID)
	if s.Lag != nil {
		lag = *s.Lag
	}

	if (s.Open == "") != (s.Close == "") {
		return "", 0, nil, fmt.Errorf("%w: %s needs both open and close", ErrInvalidCalendar, s.ID)
	}

	var opts []Option
	if s.Open != "" {
		open, err := util.ParseClock(s.Open)
		if err != nil {
			return "", 0, nil, fmt.Errorf("%w: %s: %v", ErrInvalidCalendar, s.ID, err)
		}
		cl, err := util.ParseClock(s.Close)
		if err != nil {
			return "", 0, nil, fmt.Errorf("%w: %s: %v", ErrInvalidCalendar, s.ID, err)
		}
		opts = append(opts, WithSession(open, cl))
	}
	if len(s.Weekdays) > 0 {
		days := make([]time.Weekday, 0, len(s.Weekdays))
		for _, w := range s.Weekdays {
			days = append(days, weekdayNames[w])
		}
		opts = append(opts, WithWeekdays(days...))
	}
	if len(s.Holidays) > 0 {
		dates := make([]civil.Date, 0, len(s.Holidays))
		for _, h := range s.Holidays {
			d, err := civil.ParseDate(h)
			if err != nil {
				return "", 0, nil, fmt.Errorf("%w: %s holiday: %v", ErrInvalidCalendar, s.ID, err)
			}
			dates = append(dates, d)
		}
		opts = append(opts, WithHolidays(dates...))
	}
	for ds, ts := range s.EarlyCloses {
		d, err := civil.ParseDate(ds)
		if err != nil {
			return "", 0, nil, fmt.Errorf("%w: %s early close: %v", ErrInvalidCalendar, s.ID, err)
		}
		t, err := util.ParseClock(ts)
		if err != nil {
			return "", 0, nil, fmt.Errorf("%w: %s early close: %v", ErrInvalidCalendar, s.ID, err)
		}
		opts = append(opts, WithEarlyClose(d, t))
	}
	if s.CloseAllowance != nil {
		opts = append(opts, WithCloseAllowance(*s.CloseAllowance))
	}
	return tz, lag, opts, nil
}
