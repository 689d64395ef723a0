package util

import (
	"strconv"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	got, ok := ParseTime("2024-10-10T10:10:10Z")
	require.True(t, ok)
	assert.Equal(t, "2024-10-10T10:10:10Z", got.UTC().Format(time.RFC3339))

	got, ok = ParseTime("2024-10-10T10:10:10.5-04:00")
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, time.Duration(got.Nanosecond()))

	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok = ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())

	for _, s := range []string{"", "yesterday", "-5", "0"} {
		_, ok := ParseTime(s)
		assert.False(t, ok, s)
	}
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2022-02-07")
	require.True(t, ok)
	assert.Equal(t, time.Date(2022, 2, 7, 0, 0, 0, 0, time.UTC), got)

	for _, s := range []string{"2022-2-7", "2022-13-01", "20220207", "2022-02-07T00:00:00Z"} {
		_, ok := ParseDate(s)
		assert.False(t, ok, s)
	}
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, civil.Time{Hour: 9, Minute: 30}, got)

	got, err = ParseClock(" 16:00:15 ")
	require.NoError(t, err)
	assert.Equal(t, civil.Time{Hour: 16, Second: 15}, got)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("noon")
	assert.Error(t, err)
}

func TestClockOffsetAndAt(t *testing.T) {
	assert.Equal(t, 9*time.Hour+30*time.Minute, ClockOffset(civil.Time{Hour: 9, Minute: 30}))
	assert.Zero(t, ClockOffset(civil.Time{}))

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	d := civil.Date{Year: 2022, Month: time.March, Day: 14}
	got := At(d, civil.Time{Hour: 9, Minute: 30}, ny)
	assert.Equal(t, time.Date(2022, 3, 14, 13, 30, 0, 0, time.UTC), got.UTC(), "EDT after the switch")
}

func TestWeekdayAndMondayOf(t *testing.T) {
	sun := civil.Date{Year: 2022, Month: time.February, Day: 13}
	assert.Equal(t, time.Sunday, Weekday(sun))
	assert.Equal(t, civil.Date{Year: 2022, Month: time.February, Day: 7}, MondayOf(sun))

	mon := civil.Date{Year: 2022, Month: time.February, Day: 7}
	assert.Equal(t, mon, MondayOf(mon))

	// Week spanning a year boundary.
	assert.Equal(t, civil.Date{Year: 2021, Month: time.December, Day: 27}, MondayOf(civil.Date{Year: 2022, Month: time.January, Day: 1}))
}
