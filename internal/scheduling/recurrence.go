package scheduling

import "time"

// weeksPerMonthUnit fixes how many weekly instances one "month" of recurrence
// produces. The product treats a month as four weeks; recurrence is therefore
// not calendar-month aware.
const weeksPerMonthUnit = 4

// defaultRecurrenceMonths is the span used when a weekly booking does not say
// how long it should run.
const defaultRecurrenceMonths = 3

// Slot is one (start, end) pair produced by recurrence expansion.
type Slot struct {
	StartsAt time.Time
	EndsAt   time.Time
}

// ExpandWeekly generates the weekly series for a base interval over the given
// number of months: weeksPerMonthUnit instances per month, each shifted by a
// whole number of weeks, preserving the base duration.
func ExpandWeekly(start, end time.Time, months int) []Slot {
	if months <= 0 {
		months = defaultRecurrenceMonths
	}
	total := months * weeksPerMonthUnit
	slots := make([]Slot, 0, total)
	for i := 0; i < total; i++ {
		shift := time.Duration(i) * 7 * 24 * time.Hour
		slots = append(slots, Slot{
			StartsAt: start.Add(shift),
			EndsAt:   end.Add(shift),
		})
	}
	return slots
}
