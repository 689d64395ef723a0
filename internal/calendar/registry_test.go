package calendar

import (
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) civil.Date { return civil.Date{Year: y, Month: m, Day: d} }

func TestRegisterKnownExchange(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("NYQ", "America/New_York", 0, WithHolidays(date(2022, 2, 21))))

	assert.True(t, r.IsOpenOn("NYQ", date(2022, 2, 7)))
	assert.False(t, r.IsOpenOn("NYQ", date(2022, 2, 5)), "saturday")
	assert.False(t, r.IsOpenOn("NYQ", date(2022, 2, 6)), "sunday")
	assert.False(t, r.IsOpenOn("NYQ", date(2022, 2, 21)), "holiday")

	s, ok := r.SessionBounds("NYQ", date(2022, 2, 7))
	require.True(t, ok)
	ny, _ := time.LoadLocation("America/New_York")
	assert.True(t, s.Open.Equal(time.Date(2022, 2, 7, 9, 30, 0, 0, ny)))
	assert.True(t, s.Close.Equal(time.Date(2022, 2, 7, 16, 0, 0, 0, ny)))

	_, ok = r.SessionBounds("NYQ", date(2022, 2, 21))
	assert.False(t, ok)
}

func TestRegisterEarlyClose(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("NYQ", "America/New_York", 0,
		WithEarlyClose(date(2022, 11, 25), civil.Time{Hour: 13})))

	s, ok := r.SessionBounds("NYQ", date(2022, 11, 25))
	require.True(t, ok)
	assert.Equal(t, 13, s.Close.Hour())
	assert.Equal(t, 3*time.Hour+30*time.Minute, s.Close.Sub(s.Open))
}

func TestRegisterDSTSessionLength(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("NYQ", "America/New_York", 0))

	// 2022-03-14 is the first session after the spring-forward transition.
	before, _ := r.SessionBounds("NYQ", date(2022, 3, 11))
	after, _ := r.SessionBounds("NYQ", date(2022, 3, 14))
	assert.Equal(t, 6*time.Hour+30*time.Minute, before.Close.Sub(before.Open))
	assert.Equal(t, 6*time.Hour+30*time.Minute, after.Close.Sub(after.Open))
	assert.Equal(t, 14, before.Open.UTC().Hour())
	assert.Equal(t, 13, after.Open.UTC().Hour())
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("NYQ", "America/New_York", 0))
	require.NoError(t, r.Register("NYQ", "America/New_York", 15*time.Minute, WithHolidays(date(2022, 2, 7))))

	c := r.Lookup("NYQ")
	assert.Equal(t, 15*time.Minute, c.Lag)
	assert.False(t, c.IsOpenOn(date(2022, 2, 7)))
}

func TestRegisterSundayToThursday(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterKnown("TLV"))

	assert.True(t, r.IsOpenOn("TLV", date(2022, 2, 6)), "sunday")
	assert.False(t, r.IsOpenOn("TLV", date(2022, 2, 4)), "friday")
	assert.Equal(t, 11*time.Minute, r.Lookup("TLV").CloseAllowance)
}

func TestRegisterErrors(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		id   string
		tz   string
		lag  time.Duration
		opts []Option
		want error
	}{
		{name: "bad timezone", id: "NYQ", tz: "Mars/Olympus", want: ErrInvalidCalendar},
		{name: "negative lag", id: "NYQ", tz: "America/New_York", lag: -time.Minute, want: ErrInvalidCalendar},
		{name: "unknown exchange without hours", id: "XXX", tz: "UTC", want: ErrNoSessionHours},
		{
			name: "open after close", id: "XXX", tz: "UTC",
			opts: []Option{WithSession(civil.Time{Hour: 17}, civil.Time{Hour: 9})},
			want: ErrInvalidCalendar,
		},
		{name: "no weekdays", id: "NYQ", tz: "America/New_York", opts: []Option{WithWeekdays()}, want: ErrInvalidCalendar},
		{
			name: "early close before open", id: "NYQ", tz: "America/New_York",
			opts: []Option{WithEarlyClose(date(2022, 11, 25), civil.Time{Hour: 9})},
			want: ErrInvalidCalendar,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.id, tt.tz, tt.lag, tt.opts...)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.Empty(t, r.IDs(), "failed registrations must not leave entries")
}

func TestRegisterCustomExchange(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("XXX", "UTC", time.Minute,
		WithSession(civil.Time{Hour: 8}, civil.Time{Hour: 12}),
		WithWeekdays(time.Saturday)))

	assert.True(t, r.IsOpenOn("XXX", date(2022, 2, 5)))
	assert.False(t, r.IsOpenOn("XXX", date(2022, 2, 7)))
	assert.Equal(t, []string{"XXX"}, r.IDs())
}

func TestLookupUnknownPanics(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.Lookup("NYQ") })
	assert.Panics(t, func() { r.IsOpenOn("NYQ", date(2022, 2, 7)) })
	_, ok := r.Get("NYQ")
	assert.False(t, ok)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterKnown("NYQ"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.IsOpenOn("NYQ", date(2022, 2, 7))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = r.RegisterKnown("NYQ")
			}
		}()
	}
	wg.Wait()
	assert.True(t, r.IsOpenOn("NYQ", date(2022, 2, 7)))
}

func TestHolidayListSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterKnown("NYQ", WithHolidays(date(2022, 7, 4), date(2022, 1, 17), date(2022, 2, 21))))
	assert.Equal(t, []civil.Date{date(2022, 1, 17), date(2022, 2, 21), date(2022, 7, 4)}, r.Lookup("NYQ").HolidayList())
}
