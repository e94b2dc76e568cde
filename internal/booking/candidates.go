package booking

import (
	"strings"
	"time"

	"github.com/example/club-scheduler/internal/club"
)

// GenerateCandidates expands preferences across the next horizonDays
// calendar days (today included) and removes anything already reserved or
// already in the past. Output order is deterministic: preference order,
// then time-of-day order within a preference, then date order.
func GenerateCandidates(now time.Time, horizonDays int, prefs []Preference, scheduled []ScheduledClass) ([]Candidate, error) {
	datesByWeekday := make(map[time.Weekday][]string)
	for i := 0; i < horizonDays; i++ {
		day := now.AddDate(0, 0, i)
		datesByWeekday[day.Weekday()] = append(datesByWeekday[day.Weekday()], day.Format(DateLayout))
	}

	taken := make(map[string]struct{}, len(scheduled))
	for _, sc := range scheduled {
		taken[sc.Date+"|"+strings.ToLower(sc.Time)] = struct{}{}
	}

	var out []Candidate
	for _, p := range prefs {
		dates := datesByWeekday[p.Weekday]
		for _, clock := range p.Times {
			offset, err := ParseClockTime(clock)
			if err != nil {
				return nil, err
			}
			for _, date := range dates {
				if _, ok := taken[date+"|"+strings.ToLower(clock)]; ok {
					continue
				}
				day, err := time.ParseInLocation(DateLayout, date, now.Location())
				if err != nil {
					return nil, err
				}
				if !day.Add(offset).After(now) {
					continue
				}
				out = append(out, Candidate{
					Date:       date,
					Weekday:    p.Weekday,
					Time:       clock,
					Companions: p.Companions,
				})
			}
		}
	}
	return out, nil
}

// NormalizeScheduled converts the remote upcoming-booking list into the
// canonical form candidate generation filters against. Only active
// bookings count; anything else no longer occupies the slot.
func NormalizeScheduled(upcoming []club.UpcomingBooking) ([]ScheduledClass, error) {
	var out []ScheduledClass
	for _, b := range upcoming {
		if b.Status != "active" {
			continue
		}
		day, err := parseRemoteDate(b.Class.ClassDate)
		if err != nil {
			return nil, err
		}
		out = append(out, ScheduledClass{
			BookingID: b.ID,
			ClassID:   b.Class.ID,
			Date:      day.Format(DateLayout),
			Weekday:   day.Weekday(),
			Time:      b.Class.ClassTime,
		})
	}
	return out, nil
}
