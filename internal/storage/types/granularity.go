package types

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the wall-clock duration of one consolidation window.
type Granularity uint8

const (
	// FiveMinute consolidates into 5-minute buckets (the "short" window).
	FiveMinute Granularity = iota + 1

	// OneHour consolidates into hourly buckets.
	OneHour

	// SixHour consolidates into 6-hour buckets.
	SixHour

	// TwelveHour consolidates into 12-hour buckets.
	TwelveHour

	// OneDay consolidates into daily buckets (the "long" window).
	OneDay
)

// Short and Long name the two granularities every deployment is expected
// to have available.
const (
	Short = FiveMinute
	Long  = OneDay
)

// String returns the token form of the granularity.
func (g Granularity) String() string {
	switch g {
	case FiveMinute:
		return "FIVEMINUTE"
	case OneHour:
		return "ONEHOUR"
	case SixHour:
		return "SIXHOUR"
	case TwelveHour:
		return "TWELVEHOUR"
	case OneDay:
		return "ONEDAY"
	default:
		return fmt.Sprintf("unknown(%d)", g)
	}
}

// Duration returns the bucket duration for this granularity.
func (g Granularity) Duration() time.Duration {
	switch g {
	case FiveMinute:
		return 5 * time.Minute
	case OneHour:
		return time.Hour
	case SixHour:
		return 6 * time.Hour
	case TwelveHour:
		return 12 * time.Hour
	case OneDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// DurationMs returns the bucket duration in milliseconds.
func (g Granularity) DurationMs() int64 {
	return g.Duration().Milliseconds()
}

// Valid reports whether g is one of the defined granularities.
func (g Granularity) Valid() bool {
	return g >= FiveMinute && g <= OneDay
}

// TruncateMs returns the start of the bucket containing tsMs.
// Buckets are aligned to multiples of the duration since the Unix epoch.
func (g Granularity) TruncateMs(tsMs int64) int64 {
	d := g.DurationMs()
	if d <= 0 {
		return tsMs
	}
	q := tsMs / d
	if tsMs%d != 0 && tsMs < 0 {
		q--
	}
	return q * d
}

// ParseGranularity parses a granularity token, case-insensitive.
// SHORT and LONG are accepted as aliases.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIVEMINUTE", "SHORT":
		return FiveMinute, nil
	case "ONEHOUR":
		return OneHour, nil
	case "SIXHOUR":
		return SixHour, nil
	case "TWELVEHOUR":
		return TwelveHour, nil
	case "ONEDAY", "LONG":
		return OneDay, nil
	default:
		return 0, fmt.Errorf("unknown granularity: %s", s)
	}
}
