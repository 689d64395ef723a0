package models

import (
	"fmt"
	"time"
)

// Interval is a candle granularity. The set is closed: every switch over
// Interval handles all values and panics on anything else.
type Interval int

const (
	Mins1 Interval = iota + 1
	Mins2
	Mins5
	Mins15
	Mins30
	Mins60
	Mins90
	Hours1
	Days1
	Days5
	Week
)

// AllIntervals lists every supported granularity, finest first.
var AllIntervals = []Interval{Mins1, Mins2, Mins5, Mins15, Mins30, Mins60, Mins90, Hours1, Days1, Days5, Week}

// Duration returns the canonical length of one candle. Interday kinds return
// their nominal civil length (1 day, 5 days, 7 days).
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Mins1:
		return time.Minute
	case Mins2:
		return 2 * time.Minute
	case Mins5:
		return 5 * time.Minute
	case Mins15:
		return 15 * time.Minute
	case Mins30:
		return 30 * time.Minute
	case Mins60, Hours1:
		return time.Hour
	case Mins90:
		return 90 * time.Minute
	case Days1:
		return 24 * time.Hour
	case Days5:
		return 5 * 24 * time.Hour
	case Week:
		return 7 * 24 * time.Hour
	default:
		panic(fmt.Sprintf("models: unknown interval %d", int(iv)))
	}
}

// IsIntraday reports whether candles of this kind subdivide a session.
func (iv Interval) IsIntraday() bool {
	switch iv {
	case Mins1, Mins2, Mins5, Mins15, Mins30, Mins60, Mins90, Hours1:
		return true
	case Days1, Days5, Week:
		return false
	default:
		panic(fmt.Sprintf("models: unknown interval %d", int(iv)))
	}
}

// IsWeekly reports whether the kind aggregates a whole week block.
func (iv Interval) IsWeekly() bool {
	switch iv {
	case Days5, Week:
		return true
	case Mins1, Mins2, Mins5, Mins15, Mins30, Mins60, Mins90, Hours1, Days1:
		return false
	default:
		panic(fmt.Sprintf("models: unknown interval %d", int(iv)))
	}
}

// String returns the vendor code ("1m", "1h", "1wk").
func (iv Interval) String() string {
	switch iv {
	case Mins1:
		return "1m"
	case Mins2:
		return "2m"
	case Mins5:
		return "5m"
	case Mins15:
		return "15m"
	case Mins30:
		return "30m"
	case Mins60:
		return "60m"
	case Mins90:
		return "90m"
	case Hours1:
		return "1h"
	case Days1:
		return "1d"
	case Days5:
		return "5d"
	case Week:
		return "1wk"
	default:
		return fmt.Sprintf("Interval(%d)", int(iv))
	}
}

// ParseInterval converts a vendor code to an Interval.
func ParseInterval(s string) (Interval, error) {
	for _, iv := range AllIntervals {
		if iv.String() == s {
			return iv, nil
		}
	}
	return 0, fmt.Errorf("unknown interval %q", s)
}

// Valid reports whether iv is one of the declared kinds.
func (iv Interval) Valid() bool {
	return iv >= Mins1 && iv <= Week
}

// MarshalText implements encoding.TextMarshaler.
func (iv Interval) MarshalText() ([]byte, error) {
	if !iv.Valid() {
		return nil, fmt.Errorf("unknown interval %d", int(iv))
	}
	return []byte(iv.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (iv *Interval) UnmarshalText(b []byte) error {
	v, err := ParseInterval(string(b))
	if err != nil {
		return err
	}
	*iv = v
	return nil
}

// WeekMode selects how Days5 and Week candles are anchored.
type WeekMode int

const (
	// WeekTrading opens on the first trading session of the Monday block and
	// closes on that block's Saturday.
	WeekTrading WeekMode = iota
	// WeekCalendar is the fixed Monday to following Monday block.
	WeekCalendar
	// WeekCalendarSaturday is the legacy Monday to Saturday block.
	WeekCalendarSaturday
)

func (m WeekMode) String() string {
	switch m {
	case WeekTrading:
		return "trading"
	case WeekCalendar:
		return "calendar"
	case WeekCalendarSaturday:
		return "calendar-saturday"
	default:
		return fmt.Sprintf("WeekMode(%d)", int(m))
	}
}

// ParseWeekMode accepts "trading", "calendar" and "calendar-saturday". An
// empty string selects WeekTrading.
func ParseWeekMode(s string) (WeekMode, error) {
	switch s {
	case "", "trading":
		return WeekTrading, nil
	case "calendar":
		return WeekCalendar, nil
	case "calendar-saturday":
		return WeekCalendarSaturday, nil
	default:
		return 0, fmt.Errorf("unknown week mode %q", s)
	}
}
