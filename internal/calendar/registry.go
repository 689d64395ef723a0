package calendar

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"QuoteCache/internal/domain/models"

	"cloud.google.com/go/civil"
)

// Registry maps exchange ids to calendars. Registration replaces the whole
// entry under a write lock, so readers always see a complete calendar.
type Registry struct {
	mu   sync.RWMutex
	cals map[string]*Calendar
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cals: make(map[string]*Calendar)}
}

// Register builds and stores the calendar for id. Session hours, weekdays and
// close allowance start from the built-in exchange table when id is known;
// options override them. Re-registering an id replaces its entry.
func (r *Registry) Register(id, tz string, lag time.Duration, opts ...Option) error {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: %s timezone %q: %v", ErrInvalidCalendar, id, tz, err)
	}

	cal := &Calendar{
		ID:          id,
		Location:    loc,
		Holidays:    make(map[civil.Date]struct{}),
		EarlyCloses: make(map[civil.Date]civil.Time),
		Lag:         lag,
	}
	known, isKnown := knownExchanges[id]
	if isKnown {
		cal.Open, cal.Close = known.open, known.close
		cal.CloseAllowance = known.allowance
		WithWeekdays(known.weekdays...)(cal)
	} else {
		WithWeekdays(monFri...)(cal)
	}
	for _, opt := range opts {
		opt(cal)
	}
	if !isKnown && cal.Open == (civil.Time{}) && cal.Close == (civil.Time{}) {
		return fmt.Errorf("%w: %s", ErrNoSessionHours, id)
	}
	if err := cal.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	r.cals[id] = cal
	r.mu.Unlock()
	return nil
}

// RegisterKnown registers a built-in exchange with its default timezone and lag.
func (r *Registry) RegisterKnown(id string, opts ...Option) error {
	d, ok := knownExchanges[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSessionHours, id)
	}
	return r.Register(id, d.tz, d.lag, opts...)
}

// Get returns the calendar for id.
func (r *Registry) Get(id string) (*Calendar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cals[id]
	return c, ok
}

// Lookup returns the calendar for id and panics when it is not registered:
// an unknown exchange means a setup step was skipped upstream.
func (r *Registry) Lookup(id string) *Calendar {
	c, ok := r.Get(id)
	if !ok {
		panic(fmt.Sprintf("calendar: exchange %q not registered", id))
	}
	return c
}

// IDs returns the registered exchange ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.cals))
	for id := range r.cals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsOpenOn reports whether exchange id trades on d.
func (r *Registry) IsOpenOn(id string, d civil.Date) bool {
	return r.Lookup(id).IsOpenOn(d)
}

// SessionBounds returns the session of exchange id on d, or false when closed.
func (r *Registry) SessionBounds(id string, d civil.Date) (models.Session, bool) {
	return r.Lookup(id).SessionOn(d)
}
