// Package availability answers "is this hour/day free" questions over a
// snapshot of busy intervals.
//
// Every function here is pure: busy slices are only read, and results depend
// solely on the arguments. One convention applies throughout: hour h of a day
// is the half-open slot [day@h:00, day@h+1:00).
package availability

import (
	"time"

	"github.com/BTreeMap/HallBook/internal/models"
)

// Overlaps reports whether two half-open intervals share any instant.
// Touching endpoints do not overlap.
func Overlaps(a, b models.BusyInterval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Slot returns the one-hour slot starting at day@hour:00.
func Slot(day time.Time, hour int) models.BusyInterval {
	start := models.AtHour(day, hour)
	return models.BusyInterval{Start: start, End: start.Add(time.Hour)}
}

// IsFree reports whether slot overlaps none of busy.
func IsFree(slot models.BusyInterval, busy []models.BusyInterval) bool {
	for _, b := range busy {
		if Overlaps(slot, b) {
			return false
		}
	}
	return true
}

// IsHourFree reports whether the slot [day@hour, day@hour+1h) is free.
func IsHourFree(day time.Time, hour int, busy []models.BusyInterval) bool {
	return IsFree(Slot(day, hour), busy)
}

// HasFreeHour reports whether at least one hour in the operating range is free.
func HasFreeHour(day time.Time, busy []models.BusyInterval) bool {
	for h := models.OpeningHour; h < models.ClosingHour; h++ {
		if IsHourFree(day, h, busy) {
			return true
		}
	}
	return false
}

// IsDaySelectable reports whether day has a free hour and is not before today.
func IsDaySelectable(day time.Time, busy []models.BusyInterval, today time.Time) bool {
	if models.DayOf(day).Before(models.DayOf(today)) {
		return false
	}
	return HasFreeHour(day, busy)
}

// HourStatus is the availability of one candidate hour.
type HourStatus struct {
	Hour int
	Free bool
}

// StartHours lists every possible start hour of day with its availability.
func StartHours(day time.Time, busy []models.BusyInterval) []HourStatus {
	hours := make([]HourStatus, 0, models.ClosingHour-models.OpeningHour)
	for h := models.OpeningHour; h < models.ClosingHour; h++ {
		hours = append(hours, HourStatus{Hour: h, Free: IsHourFree(day, h, busy)})
	}
	return hours
}

// EndHours lists the candidate end hours after start, up to closing.
// End hour e means "ends at e:00" and tests the slot [e-1, e). Unlike a
// plain per-slot check, e is free only while every slot of [start, e) is
// free: once one slot is busy, later end hours stay blocked even when their
// own slot is open, so a booking never spans a busy interval.
func EndHours(day time.Time, start int, busy []models.BusyInterval) []HourStatus {
	if start < models.OpeningHour || start >= models.ClosingHour {
		return nil
	}
	hours := make([]HourStatus, 0, models.ClosingHour-start)
	open := true
	for e := start + 1; e <= models.ClosingHour; e++ {
		open = open && IsHourFree(day, e-1, busy)
		hours = append(hours, HourStatus{Hour: e, Free: open})
	}
	return hours
}

// IsEndHourFree reports whether end is an offered end hour for start.
func IsEndHourFree(day time.Time, start, end int, busy []models.BusyInterval) bool {
	for _, hs := range EndHours(day, start, busy) {
		if hs.Hour == end {
			return hs.Free
		}
	}
	return false
}
