package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-day form used everywhere in the
// engine: candidate dates, scheduled-class dates, inventory lookups.
const DateLayout = "2006-01-02"

// ParseClockTime converts a 12-hour "H:MM am|pm" string into the offset
// from midnight. "12:00 am" is midnight and "12:00 pm" is noon; any other
// pm hour is shifted by twelve.
func ParseClockTime(s string) (time.Duration, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	hm := strings.SplitN(fields[0], ":", 2)
	if len(hm) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	minute, err := strconv.Atoi(hm[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if hour < 1 || hour > 12 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	switch strings.ToLower(fields[1]) {
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 12 {
			hour += 12
		}
	default:
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

// ParseWeekday maps an English weekday name ("Monday", case-insensitive)
// to its time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(name, wd.String()) {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", name)
}

// parseRemoteDate accepts the two date forms the backend emits: full ISO
// timestamps on classes and bare dates on inventory day ids.
func parseRemoteDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid remote date %q", s)
	}
	return t, nil
}
