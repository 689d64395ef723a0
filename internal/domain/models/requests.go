package models

import "time"

// Requests for the calendar HTTP endpoints. Moments accept "YYYY-MM-DD" for
// dates and RFC3339 or unix seconds for instants.

type SessionRequest struct {
	Exchange string `param:"exchange" validate:"required"`
	At       Moment `query:"at"`
	Mode     string `query:"mode" default:"current" validate:"oneof=current recent next"`
}

type IntervalRequest struct {
	Exchange string `param:"exchange" validate:"required"`
	At       Moment `query:"at"`
	Interval string `query:"interval" validate:"required,interval"`
	Mode     string `query:"mode" default:"current" validate:"oneof=current recent next"`
	WeekMode string `query:"week_mode" default:"trading" validate:"oneof=trading calendar calendar-saturday"`
	Late     bool   `query:"late"`
}

type IntervalsRequest struct {
	Exchange string `param:"exchange" validate:"required"`
	Start    Moment `query:"start"`
	End      Moment `query:"end"`
	Interval string `query:"interval" validate:"required,interval"`
	WeekMode string `query:"week_mode" default:"trading" validate:"oneof=trading calendar calendar-saturday"`
}

// ExpiryPoint is one cached point submitted for an expiry check.
type ExpiryPoint struct {
	Start     Moment    `json:"start"`
	FetchTime time.Time `json:"fetch_time" validate:"required"`
	Repaired  bool      `json:"repaired"`
}

type ExpiredRequest struct {
	Exchange string `param:"exchange" json:"-" validate:"required"`
	Interval string `json:"interval" validate:"required,interval"`
	// MaxAge and Lag are Go durations ("30m"). An empty MaxAge uses the
	// configured value for the interval, an empty Lag the calendar's.
	MaxAge         string        `json:"max_age"`
	Lag            string        `json:"lag"`
	TriggerOnClose *bool         `json:"trigger_on_close"`
	Now            *time.Time    `json:"now"`
	Points         []ExpiryPoint `json:"points" validate:"required,min=1,max=5000,dive"`
}

// ExpiredResult pairs a point with its verdict and settle instant. Repaired
// points carry no settle instant.
type ExpiredResult struct {
	Start    Moment     `json:"start"`
	Expired  bool       `json:"expired"`
	LastData *time.Time `json:"last_data,omitempty"`
}

type MissingRequest struct {
	Exchange       string   `param:"exchange" json:"-" validate:"required"`
	Interval       string   `json:"interval" validate:"required,interval"`
	Start          Moment   `json:"start"`
	End            Moment   `json:"end"`
	Known          []Moment `json:"known" validate:"max=100000"`
	MergeThreshold *int     `json:"merge_threshold" validate:"omitempty,min=0"`
	WeekMode       string   `json:"week_mode" default:"trading" validate:"oneof=trading calendar calendar-saturday"`
}

type PlanRequest struct {
	Exchange string `param:"exchange" json:"-" validate:"required"`
	Symbol   string `param:"symbol" json:"-" validate:"required"`
	Interval string `json:"interval" validate:"required,interval"`
	Start    Moment `json:"start"`
	End      Moment `json:"end"`
}

type MergeRequest struct {
	Exchange  string     `param:"exchange" json:"-" validate:"required"`
	Symbol    string     `param:"symbol" json:"-" validate:"required"`
	Interval  string     `json:"interval" validate:"required,interval"`
	FetchTime *time.Time `json:"fetch_time"`
	Repaired  bool       `json:"repaired"`
	Candles   []Candle   `json:"candles" validate:"required,min=1,max=20000"`
}

type InvalidateRequest struct {
	Exchange string `param:"exchange" validate:"required"`
	Symbol   string `param:"symbol" validate:"required"`
	Interval string `query:"interval" validate:"required,interval"`
}
