package duration

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
	}{
		{"3days", 259200 * time.Second},
		{"3 days", 259200 * time.Second},
		{"2 hours", 7200 * time.Second},
		{"2weeks", 14 * 24 * time.Hour},
		{"90minutes", 90 * time.Minute},
		{"1 day", 24 * time.Hour},
		{"45s", 45 * time.Second},
		{"10 min", 10 * time.Minute},
		{"1hr", time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"5 Days", 5 * 24 * time.Hour},
		{"1 month", 2630016 * time.Second},
		{"2y", 2 * 31557600 * time.Second},
		{" 4 \t weeks ", 28 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"3",
		"days",
		"0 days",
		"-2 hours",
		"3 fortnights",
		"3.5 days",
		"3 days 2 hours",
		"99999999999999999999 seconds",
		"9999999999 years",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text)
			require.Error(t, err)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

func TestParse_MonthAndMinuteAbbreviations(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
	}{
		{"3M", 3 * 2630016 * time.Second},
		{"3 M", 3 * 2630016 * time.Second},
		{"3m", 3 * time.Minute},
		{"3 MIN", 3 * time.Minute},
		{"2 Months", 2 * 2630016 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseError_Message(t *testing.T) {
	_, err := Parse("3 fortnights")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown unit "fortnights"`)
}
