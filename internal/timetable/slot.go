// Package timetable holds the move-validation engine for the weekly 5×6 lesson grid: indexing,
// conflict detection, room resolution, move execution and the drag interaction session.
//
// Every function in this package except the drag session is pure. Callers pass the full
// schedule snapshot and catalogs on each call; nothing is cached between calls.
package timetable

import (
	"fmt"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const (
	// DaysPerWeek is the number of teaching days, indexed 0 (Monday) to 4 (Friday).
	DaysPerWeek = 5
	// PeriodsPerDay is the number of periods, numbered 1 to 6.
	PeriodsPerDay = 6
	// GridSize is the number of slots in the weekly grid.
	GridSize = DaysPerWeek * PeriodsPerDay
)

var dayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// Slot is one (day, period) cell of the weekly grid.
type Slot struct {
	Day    int `json:"day"`
	Period int `json:"period"`
}

// NewSlot validates and returns a slot.
func NewSlot(day, period int) (Slot, error) {
	s := Slot{Day: day, Period: period}
	if err := s.Validate(); err != nil {
		return Slot{}, err
	}
	return s, nil
}

// Validate reports MALFORMED_SLOT when the slot lies outside the grid.
func (s Slot) Validate() error {
	if !s.InGrid() {
		return appErrors.Clone(appErrors.ErrMalformedSlot, fmt.Sprintf("slot day=%d period=%d is outside the %dx%d grid", s.Day, s.Period, DaysPerWeek, PeriodsPerDay))
	}
	return nil
}

// InGrid reports whether the slot is one of the 30 grid cells.
func (s Slot) InGrid() bool {
	return s.Day >= 0 && s.Day < DaysPerWeek && s.Period >= 1 && s.Period <= PeriodsPerDay
}

// Shift offsets the slot by the given day and period deltas. The result may leave the grid.
func (s Slot) Shift(days, periods int) Slot {
	return Slot{Day: s.Day + days, Period: s.Period + periods}
}

// Offset returns the (day, period) delta that moves s onto target.
func (s Slot) Offset(target Slot) (int, int) {
	return target.Day - s.Day, target.Period - s.Period
}

// DayName returns the weekday label, or "Day N" outside the grid.
func (s Slot) DayName() string {
	if s.Day < 0 || s.Day >= DaysPerWeek {
		return fmt.Sprintf("Day %d", s.Day)
	}
	return dayNames[s.Day]
}

// String renders "Monday Period 4".
func (s Slot) String() string {
	return fmt.Sprintf("%s Period %d", s.DayName(), s.Period)
}

// Short renders "Monday P4".
func (s Slot) Short() string {
	return fmt.Sprintf("%s P%d", s.DayName(), s.Period)
}

// Grid returns the 30 slots in day-major order.
func Grid() []Slot {
	slots := make([]Slot, 0, GridSize)
	for day := 0; day < DaysPerWeek; day++ {
		for period := 1; period <= PeriodsPerDay; period++ {
			slots = append(slots, Slot{Day: day, Period: period})
		}
	}
	return slots
}
