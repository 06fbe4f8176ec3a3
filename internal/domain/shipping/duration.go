package shipping

import (
	"fmt"
	"strconv"
	"strings"
)

// Hours and minutes per day, for converting sub-day courier estimates to
// fractional days before delivery-date math.
const (
	hoursPerDay   = 24
	minutesPerDay = 24 * 60
)

// ParseDayRange parses a courier duration expression such as "1 - 2",
// "1-2", "3" or "2 sampai 4" together with its unit into fractional-day
// bounds. The unit defaults to days; "hour"/"jam" and "minute"/"menit"
// variants are converted to fractional days.
func ParseDayRange(value, unit string) (minDays, maxDays float64, err error) {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.'
	})

	nums := make([]float64, 0, 2)
	for _, f := range fields {
		if f == "" {
			continue
		}
		n, perr := strconv.ParseFloat(f, 64)
		if perr != nil {
			continue
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return 0, 0, fmt.Errorf("shipping: unparseable duration %q", value)
	}

	minDays = nums[0]
	maxDays = nums[len(nums)-1]
	if maxDays < minDays {
		minDays, maxDays = maxDays, minDays
	}

	switch normalizeDurationUnit(unit) {
	case "hour":
		minDays /= hoursPerDay
		maxDays /= hoursPerDay
	case "minute":
		minDays /= minutesPerDay
		maxDays /= minutesPerDay
	}
	return minDays, maxDays, nil
}

// normalizeDurationUnit collapses the unit spellings seen in provider
// payloads ("days", "day", "hari", "hours", "jam", "minutes", "menit")
// into day/hour/minute.
func normalizeDurationUnit(unit string) string {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "hour", "hours", "jam":
		return "hour"
	case "minute", "minutes", "menit":
		return "minute"
	default:
		return "day"
	}
}
