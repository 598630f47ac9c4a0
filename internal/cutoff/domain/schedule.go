package domain

import (
	"strconv"
	"strings"
	"time"
)

// weekdayIndex maps localized weekday tokens onto the configuration's
// Monday=0 .. Sunday=6 numbering.
var weekdayIndex = map[string]int{
	"Monday":    0,
	"Tuesday":   1,
	"Wednesday": 2,
	"Thursday":  3,
	"Friday":    4,
	"Saturday":  5,
	"Sunday":    6,
}

// Reached reports whether the configuration's weekly cutoff has passed at
// refTime. refTime is evaluated in the configuration's timezone; the cutoff is
// reached when the local weekday is later than the configured day, or equal
// with local minutes-of-day at or past the configured time.
//
// When the local day is earlier in the week than the configured day the cutoff
// is treated as not reached, even if a full week has elapsed. The schedule
// resets weekly.
func (c Configuration) Reached(refTime time.Time) (bool, error) {
	cutoffMinutes, err := parseCutoffTime(c.CutoffTime)
	if err != nil {
		return false, err
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return false, ErrTimezoneEvalFailed.Wrap(err).With(map[string]any{
			"timezone": c.Timezone,
		})
	}
	local := refTime.In(loc)

	day, ok := weekdayIndex[local.Format("Monday")]
	if !ok {
		return false, ErrWeekdayTokenUnsupported.With(map[string]any{
			"token": local.Format("Monday"),
		})
	}
	minutes, err := parseClockToken(local.Format("15:04"))
	if err != nil {
		return false, err
	}

	if day > c.DayOfWeek {
		return true, nil
	}
	return day == c.DayOfWeek && minutes >= cutoffMinutes, nil
}

// parseCutoffTime validates the configured "HH:MM" string.
func parseCutoffTime(value string) (int, error) {
	minutes, ok := splitClock(strings.TrimSpace(value))
	if !ok {
		return 0, ErrCutoffTimeInvalid.With(map[string]any{"cutoff_time": value})
	}
	return minutes, nil
}

// parseClockToken parses the localized clock rendering of the reference time.
func parseClockToken(token string) (int, error) {
	minutes, ok := splitClock(token)
	if !ok {
		return 0, ErrTimezoneParseFailed.With(map[string]any{"token": token})
	}
	return minutes, nil
}

func splitClock(value string) (int, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil || mins < 0 || mins > 59 {
		return 0, false
	}
	return hours*60 + mins, true
}
