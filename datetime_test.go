package monetdbe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d)
	assert.Equal(t, "2024-02-29", d.String())
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d.Timestamp())
	assert.False(t, d.IsZero())
	assert.True(t, Date{}.IsZero())

	_, err = ParseDate("2023-02-29")
	assert.Error(t, err)
	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)

	assert.Equal(t, "0099-01-05", Date{Year: 99, Month: time.January, Day: 5}.String())
}

func TestTime(t *testing.T) {
	tests := []struct {
		in   string
		want Time
		text string
	}{
		{"10:30:00", Time{Hour: 10, Minute: 30}, "10:30:00"},
		{"23:59:59.5", Time{23, 59, 59, 500000000}, "23:59:59.5"},
		{"00:00:01.000123", Time{0, 0, 1, 123000}, "00:00:01.000123"},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.text, got.String(), tt.in)
	}

	_, err := ParseTime("25:00:00")
	assert.Error(t, err)

	tod := Time{Hour: 8, Minute: 15, Second: 30, Nanosecond: 250000000}
	assert.Equal(t, 250000, tod.Microsecond())
	assert.Equal(t, time.Date(2024, 5, 1, 8, 15, 30, 250000000, time.UTC),
		tod.On(Date{Year: 2024, Month: time.May, Day: 1}))
}

func TestTimeOfAndDateOfKeepWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	ts := time.Date(2024, 1, 1, 3, 0, 0, 0, loc)
	assert.Equal(t, Date{Year: 2024, Month: time.January, Day: 1}, DateOf(ts))
	assert.Equal(t, Time{Hour: 3}, TimeOf(ts))
	assert.Equal(t, time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC), naive(ts))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15 10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-01-15 10:30:00.123456", time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC)},
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		// the offset is dropped, not applied
		{"2024-01-15T10:30:00+02:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
	}

	_, err := parseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "2024-01-15 10:30:00", formatTimestamp(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-15 10:30:00.5", formatTimestamp(time.Date(2024, 1, 15, 10, 30, 0, 500000000, time.UTC)))
}
