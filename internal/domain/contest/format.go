package contest

import (
	"fmt"
	"strings"
)

// FormatCompactCount renders a vote count for board buttons: 234, 1.5K, 15K, 2.3M.
// Values of ten units and above are rounded to the nearest whole unit, so 15500 is 16K.
func FormatCompactCount(count int64) string {
	switch {
	case count < 1000:
		return fmt.Sprintf("%d", count)
	case count < 1000000:
		return compactUnit(float64(count)/1000, "K")
	default:
		return compactUnit(float64(count)/1000000, "M")
	}
}

func compactUnit(value float64, unit string) string {
	if value >= 10 {
		return fmt.Sprintf("%.0f%s", value, unit)
	}
	return strings.Replace(fmt.Sprintf("%.1f%s", value, unit), ".0"+unit, unit, 1)
}

// VotePercentage returns votes/total as a percentage rounded to two decimals.
func VotePercentage(votes, total int64) float64 {
	if total <= 0 {
		return 0
	}
	scaled := float64(votes) * 10000 / float64(total)
	return float64(int64(scaled+0.5)) / 100
}

// ProgressBar draws a fixed-width bar with one filled cell per 5 percent.
func ProgressBar(percentage float64) string {
	const cells = 20
	filled := int(percentage / 5)
	if filled < 0 {
		filled = 0
	}
	if filled > cells {
		filled = cells
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", cells-filled)
}
