package models

import "time"

// Candle is one aggregated OHLCV row as returned by the vendor.
type Candle struct {
	Start  Moment  `json:"start"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// CachedPoint is a candle plus the metadata the freshness evaluator needs.
type CachedPoint struct {
	Candle
	FetchTime time.Time `json:"fetch_time"`
	// Repaired marks values produced by a vendor back-fill pass.
	Repaired bool `json:"repaired"`
	// Final records that the fetch happened after the interval settled with
	// the calendar in force at merge time. It is informational: planning
	// always re-evaluates the point, since a calendar reload can move it.
	Final bool `json:"final"`
}

// Series is the cached time series for one (symbol, interval).
type Series struct {
	Symbol   string        `json:"symbol"`
	Exchange string        `json:"exchange"`
	Interval Interval      `json:"interval"`
	Points   []CachedPoint `json:"points"`
}

type SeriesAction string

const (
	SeriesMerged      SeriesAction = "merged"
	SeriesInvalidated SeriesAction = "invalidated"
)

// SeriesEvent announces a write to a cached series so other instances can
// drop their local copy.
type SeriesEvent struct {
	ID       string       `json:"id"`
	Origin   string       `json:"origin"`
	Action   SeriesAction `json:"action"`
	Key      string       `json:"key"`
	Exchange string       `json:"exchange"`
	Symbol   string       `json:"symbol"`
	Interval Interval     `json:"interval"`
	Points   int          `json:"points,omitempty"`
	At       time.Time    `json:"at"`
}
