// Package meetings suggests meeting times and renders calendar invitations.
package meetings

import (
	"sort"
	"time"
	_ "time/tzdata"
)

const (
	DefaultDuration = 30
	DefaultSlots    = 3

	// lookahead bounds the search in calendar days, weekends included.
	lookahead = 10
)

type clock struct{ hour, minute int }

var (
	preferredTimes = []clock{{10, 0}, {14, 0}, {15, 30}}
	businessStart  = 9
	businessEnd    = 17
)

type Slot struct {
	Start           time.Time `json:"datetime"`
	Timezone        string    `json:"timezone"`
	DurationMinutes int       `json:"duration_minutes"`
	DayOfWeek       string    `json:"day_of_week"`
	TimeFormatted   string    `json:"time_formatted"`
}

// End is the slot start plus its duration.
func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

type Suggestion struct {
	Slots       []Slot    `json:"slots"`
	TotalSlots  int       `json:"total_slots"`
	Timezone    string    `json:"timezone"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SuggestSlots proposes up to count weekday slots strictly after now in the
// given IANA zone. Each day offers the preferred times first and then fills
// with half-hour steps inside business hours. An unknown zone falls back to UTC.
func SuggestSlots(now time.Time, tz string, durationMinutes, count int) Suggestion {
	if durationMinutes <= 0 {
		durationMinutes = DefaultDuration
	}
	if count <= 0 {
		count = DefaultSlots
	}

	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc, tz = time.UTC, "UTC"
	}
	now = now.In(loc)

	var slots []Slot
	add := func(day time.Time, c clock) {
		start := time.Date(day.Year(), day.Month(), day.Day(), c.hour, c.minute, 0, 0, loc)
		if start.After(now) {
			slots = append(slots, newSlot(start, tz, durationMinutes))
		}
	}

	day := now
	for i := 0; i < lookahead && len(slots) < count; i++ {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			for _, c := range preferredTimes {
				if len(slots) >= count {
					break
				}
				add(day, c)
			}

			for hour := businessStart; hour < businessEnd && len(slots) < count; hour++ {
				for _, minute := range []int{0, 30} {
					c := clock{hour, minute}
					if isPreferred(c) {
						continue
					}
					add(day, c)
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	if len(slots) > count {
		slots = slots[:count]
	}

	return Suggestion{
		Slots:       slots,
		TotalSlots:  len(slots),
		Timezone:    tz,
		GeneratedAt: now,
	}
}

func isPreferred(c clock) bool {
	for _, p := range preferredTimes {
		if p == c {
			return true
		}
	}
	return false
}

func newSlot(start time.Time, tz string, duration int) Slot {
	return Slot{
		Start:           start,
		Timezone:        tz,
		DurationMinutes: duration,
		DayOfWeek:       start.Weekday().String(),
		TimeFormatted:   start.Format("03:04 PM"),
	}
}
