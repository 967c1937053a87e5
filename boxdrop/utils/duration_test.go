package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		input string
		table UnitTable
		want  time.Duration
	}{
		{"single unit", "2h", DropUnits, 2 * time.Hour},
		{"mixed units", "3d 4h", DropUnits, 3*24*time.Hour + 4*time.Hour},
		{"no spaces", "1h30m", DropUnits, 90 * time.Minute},
		{"weeks", "2w", DropUnits, 14 * 24 * time.Hour},
		{"uppercase", "10M", DropUnits, 10 * time.Minute},
		{"junk between tokens", "every 1h and 30m please", DropUnits, 90 * time.Minute},
		{"months before minutes", "1mo", CountdownUnits, 30 * 24 * time.Hour},
		{"year", "1y 1d", CountdownUnits, 366 * 24 * time.Hour},
		{"seconds", "45s", CountdownUnits, 45 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.input, tt.table, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDurationMilliseconds(t *testing.T) {
	// Drop intervals persist as epoch milliseconds, so the parsed value
	// must convert exactly.
	d, err := ParseDuration("3d 4h", DropUnits, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3*86400000+4*3600000), d.Milliseconds())
}

func TestParseDurationErrors(t *testing.T) {
	_, err := ParseDuration("soon", DropUnits, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = ParseDuration("", DropUnits, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	// "mo" is not a drop unit, and a bare "o" leaves only the "m" token.
	d, err := ParseDuration("2mo", DropUnits, 0)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)
}

func TestParseDurationMinimum(t *testing.T) {
	_, err := ParseDuration("30s", CountdownUnits, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	d, err := ParseDuration("1m", CountdownUnits, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{-5 * time.Second, "0 seconds"},
		{time.Second, "1 second"},
		{90 * time.Minute, "1 hour, 30 minutes"},
		{25 * time.Hour, "1 day, 1 hour"},
		{3*24*time.Hour + 4*time.Hour + 5*time.Second, "3 days, 4 hours, 5 seconds"},
		{366 * 24 * time.Hour, "1 year, 1 day"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestFormatParseRoundtrip(t *testing.T) {
	for _, d := range []time.Duration{
		time.Second,
		5 * time.Minute,
		90 * time.Minute,
		3*24*time.Hour + 4*time.Hour,
	} {
		parsed, err := ParseDuration(FormatDuration(d), DropUnits, 0)
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}
}
