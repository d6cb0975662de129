// Package worktime provides the pure business-time calculations used by the
// reminder and transaction flows: recurring day-month dueness, working-day
// arithmetic, and shift/date defaults. All comparisons happen at day
// granularity in the bank's fixed UTC+7 zone.
package worktime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Location is the fixed business timezone. The dashboard serves a single
// region; no per-user timezone conversion is performed.
var Location = time.FixedZone("ICT", 7*60*60)

// morningCutoverHour decides which day's "morning" list is being viewed.
const morningCutoverHour = 12

// afternoonStartHour is when defaults switch from the morning to the
// afternoon shift.
const afternoonStartHour = 13

// DayMonth is a recurring annual date, e.g. 15-03 for the 15th of March.
type DayMonth struct {
	Day   int
	Month int
}

// String renders the canonical DD-MM form.
func (dm DayMonth) String() string {
	return fmt.Sprintf("%02d-%02d", dm.Day, dm.Month)
}

// ParseDayMonth parses a "DD-MM" string. Day must be 1-31 and month 1-12;
// day validity within the month is deliberately not enforced, matching the
// stored data (a 31-02 entry normalises forward when evaluated).
func ParseDayMonth(value string) (DayMonth, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return DayMonth{}, fmt.Errorf("worktime: due date %q is not in DD-MM form", value)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return DayMonth{}, fmt.Errorf("worktime: due date %q has a non-numeric day", value)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return DayMonth{}, fmt.Errorf("worktime: due date %q has a non-numeric month", value)
	}

	if day < 1 || day > 31 {
		return DayMonth{}, fmt.Errorf("worktime: due date %q has day %d outside 1-31", value, day)
	}
	if month < 1 || month > 12 {
		return DayMonth{}, fmt.Errorf("worktime: due date %q has month %d outside 1-12", value, month)
	}

	return DayMonth{Day: day, Month: month}, nil
}

// TruncateToDay zeroes the time-of-day portion in the business timezone.
func TruncateToDay(t time.Time) time.Time {
	local := t.In(Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location)
}

// IsDueOrOverdue reports whether the annual occurrence of dm has arrived.
// The candidate date is built in the current year and compared at day
// granularity: a reminder is due on its exact day and every day after,
// until the caller acknowledges it (is_sent) and the cycle rolls to the
// next year's occurrence.
func IsDueOrOverdue(dm DayMonth, now time.Time) bool {
	today := TruncateToDay(now)
	candidate := time.Date(today.Year(), time.Month(dm.Month), dm.Day, 0, 0, 0, 0, Location)
	return !candidate.After(today)
}

// NextWorkingDay returns the next business day after d, skipping weekends.
func NextWorkingDay(d time.Time) time.Time {
	day := TruncateToDay(d)
	switch day.Weekday() {
	case time.Friday:
		return day.AddDate(0, 0, 3)
	case time.Saturday:
		return day.AddDate(0, 0, 2)
	default:
		return day.AddDate(0, 0, 1)
	}
}

// MorningTargetDate returns the day whose morning list is being viewed:
// today before the cutover hour, the next working day after it.
func MorningTargetDate(now time.Time) time.Time {
	local := now.In(Location)
	if local.Hour() < morningCutoverHour {
		return TruncateToDay(now)
	}
	return NextWorkingDay(now)
}
