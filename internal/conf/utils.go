package conf

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// errorsAs is a small indirection so config.go does not import two errors packages.
func errorsAs(err error, target any) bool {
	return stderrors.As(err, target)
}

// ParseRetentionPeriod converts a duration string to hours. Supported suffixes
// are h (hours), d (days), w (weeks), m (months of 30 days) and y (years).
// A bare number is interpreted as hours.
func ParseRetentionPeriod(period string) (int, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return 0, fmt.Errorf("retention period is empty")
	}

	suffix := period[len(period)-1]
	numberPart := period[:len(period)-1]

	// Bare number means hours
	if suffix >= '0' && suffix <= '9' {
		hours, err := strconv.Atoi(period)
		if err != nil {
			return 0, fmt.Errorf("invalid retention period format: %s", period)
		}
		return hours, nil
	}

	number, err := strconv.Atoi(numberPart)
	if err != nil {
		return 0, fmt.Errorf("invalid retention period format: %s", period)
	}

	switch suffix {
	case 'h':
		return number, nil
	case 'd':
		return number * 24, nil
	case 'w':
		return number * 24 * 7, nil
	case 'm':
		return number * 24 * 30, nil
	case 'y':
		return number * 24 * 365, nil
	default:
		return 0, fmt.Errorf("invalid retention period suffix: %c", suffix)
	}
}

// ParseDuration parses a Go duration string, falling back to the given
// default when the input is empty or malformed.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
