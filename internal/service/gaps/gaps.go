// Package gaps finds the parts of a requested range that the cache does not
// cover, as fetchable interval ranges.
package gaps

import (
	"errors"
	"fmt"

	"QuoteCache/internal/domain/models"
	"QuoteCache/internal/service/interval"
	"QuoteCache/pkg/util"

	"cloud.google.com/go/civil"
)

var ErrNoIntervalsInRange = errors.New("gaps: no intervals in range")

// Identifier compares cached interval starts against the expected grid.
type Identifier struct {
	loc *interval.Locator
}

// NewIdentifier creates an identifier over loc.
func NewIdentifier(loc *interval.Locator) *Identifier {
	return &Identifier{loc: loc}
}

// key identifies a grid slot. Daily starts match by local date, weekly starts
// by the block's Monday and intraday starts by instant.
type key struct {
	date civil.Date
	unix int64
}

// MissingRanges returns the uncovered parts of [start, end) as contiguous
// ranges, or nil when everything is cached. Two gaps separated by fewer than
// mergeThreshold cached intervals are fetched as one range.
func (g *Identifier) MissingRanges(ex string, start, end models.Moment, iv models.Interval, known []models.Moment, mergeThreshold int, opts ...interval.Option) ([]models.IntervalRange, error) {
	grid, err := g.loc.EnumerateIntervals(ex, iv, start, end, opts...)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: %s [%s, %s) on %s", ErrNoIntervalsInRange, iv, start, end, ex)
	}

	keyOf := g.keyFunc(ex, iv)
	have := make(map[key]struct{}, len(known))
	for _, m := range known {
		have[keyOf(m)] = struct{}{}
	}

	missing := make([]bool, len(grid))
	prev := -1
	for i, r := range grid {
		if _, ok := have[keyOf(r.Open)]; ok {
			continue
		}
		missing[i] = true
		if prev >= 0 {
			if between := i - prev - 1; between > 0 && between < mergeThreshold {
				for j := prev + 1; j < i; j++ {
					missing[j] = true
				}
			}
		}
		prev = i
	}

	var out []models.IntervalRange
	for i := 0; i < len(grid); i++ {
		if !missing[i] {
			continue
		}
		j := i
		for j+1 < len(grid) && missing[j+1] {
			j++
		}
		out = append(out, models.IntervalRange{Open: grid[i].Open, Close: grid[j].Close})
		i = j
	}
	return out, nil
}

func (g *Identifier) keyFunc(ex string, iv models.Interval) func(models.Moment) key {
	loc := g.loc.Registry().Lookup(ex).Location
	switch iv {
	case models.Mins1, models.Mins2, models.Mins5, models.Mins15, models.Mins30,
		models.Mins60, models.Mins90, models.Hours1:
		return func(m models.Moment) key { return key{unix: m.InstantIn(loc).UnixNano()} }
	case models.Days1:
		return func(m models.Moment) key { return key{date: m.DateIn(loc)} }
	case models.Days5, models.Week:
		return func(m models.Moment) key { return key{date: util.MondayOf(m.DateIn(loc))} }
	default:
		panic(fmt.Sprintf("gaps: unknown interval %d", int(iv)))
	}
}
