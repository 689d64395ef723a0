package models

import (
	"encoding/json"
	"fmt"
	"time"

	"QuoteCache/pkg/util"

	"cloud.google.com/go/civil"
)

// Moment is either a civil date (no time of day) or a zoned instant. Engine
// functions accept both and keep the caller's precision in their results.
type Moment struct {
	t      time.Time
	d      civil.Date
	isDate bool
}

// DateMoment wraps a civil date.
func DateMoment(d civil.Date) Moment {
	return Moment{d: d, isDate: true}
}

// InstantMoment wraps a zoned instant.
func InstantMoment(t time.Time) Moment {
	return Moment{t: t}
}

// IsDate reports whether the moment carries date precision only.
func (m Moment) IsDate() bool { return m.isDate }

// IsZero reports whether the moment is unset.
func (m Moment) IsZero() bool {
	if m.isDate {
		return m.d.IsZero()
	}
	return m.t.IsZero()
}

// Time returns the wrapped instant; zero for date moments.
func (m Moment) Time() time.Time { return m.t }

// CivilDate returns the wrapped date; zero for instant moments.
func (m Moment) CivilDate() civil.Date { return m.d }

// DateIn returns the civil date of the moment as seen in loc.
func (m Moment) DateIn(loc *time.Location) civil.Date {
	if m.isDate {
		return m.d
	}
	return civil.DateOf(m.t.In(loc))
}

// InstantIn returns the moment as an instant in loc. Dates map to local midnight.
func (m Moment) InstantIn(loc *time.Location) time.Time {
	if m.isDate {
		return m.d.In(loc)
	}
	return m.t.In(loc)
}

// Equal compares precision and value.
func (m Moment) Equal(o Moment) bool {
	if m.isDate != o.isDate {
		return false
	}
	if m.isDate {
		return m.d == o.d
	}
	return m.t.Equal(o.t)
}

func (m Moment) String() string {
	if m.IsZero() {
		return "<none>"
	}
	if m.isDate {
		return m.d.String()
	}
	return m.t.Format(time.RFC3339)
}

// ParseMoment accepts "YYYY-MM-DD" as a date and anything util.ParseTime
// understands as an instant.
func ParseMoment(s string) (Moment, error) {
	if d, ok := util.ParseDate(s); ok {
		return DateMoment(civil.Date{Year: d.Year(), Month: d.Month(), Day: d.Day()}), nil
	}
	if t, ok := util.ParseTime(s); ok {
		return InstantMoment(t), nil
	}
	return Moment{}, fmt.Errorf("invalid moment %q", s)
}

func (m Moment) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

func (m *Moment) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Moment{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseMoment(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// UnmarshalParam lets echo bind query parameters into a Moment.
func (m *Moment) UnmarshalParam(s string) error {
	if s == "" {
		*m = Moment{}
		return nil
	}
	v, err := ParseMoment(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
