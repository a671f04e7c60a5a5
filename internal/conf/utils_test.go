package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetentionPeriod(t *testing.T) {
	cases := []struct {
		input string
		hours int
	}{
		{"24", 24},
		{"12h", 12},
		{"7d", 168},
		{"2w", 336},
		{"1m", 720},
		{"1y", 8760},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			hours, err := ParseRetentionPeriod(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.hours, hours)
		})
	}
}

func TestParseRetentionPeriodInvalid(t *testing.T) {
	for _, input := range []string{"", "  ", "d", "7x", "-d", "1.5d"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseRetentionPeriod(input)
			assert.Error(t, err)
		})
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 45*time.Second, ParseDuration("45s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("not-a-duration", time.Minute))
}
