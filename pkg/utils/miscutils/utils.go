package miscutils

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration formats d with a unit that fits its magnitude.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}

	// Format based on magnitude.
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%.0fns", float64(d.Nanoseconds()))
	case d < time.Millisecond:
		return fmt.Sprintf("%.2fμs", float64(d.Nanoseconds())/1000)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1000000)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// FormatRate formats a per-second rate, such as items/s.
func FormatRate(rate float64) string {
	switch {
	case math.IsNaN(rate):
		return "n/a"
	case math.IsInf(rate, 1):
		return "inf"
	case rate >= 1_000_000:
		return fmt.Sprintf("%.2fM", rate/1_000_000)
	case rate >= 10_000:
		return fmt.Sprintf("%.2fk", rate/1000)
	default:
		return fmt.Sprintf("%.2f", rate)
	}
}
