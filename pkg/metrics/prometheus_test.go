package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordLookup("1d", true)
	r.RecordLookup("1d", false)
	r.RecordLookup("1d", false)
	r.RecordExpired("1h", 3)
	r.RecordMissing("1h", 2)
	r.RecordError("cache_write")
	r.SetCalendars(4)
	r.RecordEvent("out", "ok")
	r.RecordLatency("plan", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(r.lookups.WithLabelValues("1d", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.lookups.WithLabelValues("1d", "miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.expired.WithLabelValues("1h")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.missing.WithLabelValues("1h")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("cache_write")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.calendars))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues("out", "ok")))

	n, err := testutil.GatherAndCount(reg, "quotecache_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNopRecordersAreIndependent(t *testing.T) {
	a, b := Nop(), Nop()
	a.RecordError("x")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.errorsTotal.WithLabelValues("x")))
}
