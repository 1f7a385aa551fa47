package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

func TestDiffVerdictsIgnoresMessagesAndOrder(t *testing.T) {
	candidate := []dto.SlotValidation{
		{Day: 0, Period: 1, Valid: false, Conflicts: []timetable.Conflict{{Type: timetable.ConflictSameSlot, Message: "a"}}},
		{Day: 0, Period: 2, Valid: false, Conflicts: []timetable.Conflict{
			{Type: timetable.ConflictTeacher, Message: "x"},
			{Type: timetable.ConflictStudentGroup, Message: "y"},
		}},
	}
	baseline := []dto.SlotValidation{
		{Day: 0, Period: 2, Valid: false, Conflicts: []timetable.Conflict{
			{Type: timetable.ConflictStudentGroup, Message: "different"},
			{Type: timetable.ConflictTeacher, Message: "wording"},
		}},
		{Day: 0, Period: 1, Valid: false, Conflicts: []timetable.Conflict{{Type: timetable.ConflictSameSlot}}},
	}

	assert.Empty(t, diffVerdicts(candidate, baseline))
}

func TestDiffVerdictsReportsChanges(t *testing.T) {
	candidate := []dto.SlotValidation{{Day: 1, Period: 3, Valid: true}}
	baseline := []dto.SlotValidation{
		{Day: 1, Period: 3, Valid: false, Conflicts: []timetable.Conflict{{Type: timetable.ConflictRoom}}},
		{Day: 1, Period: 4, Valid: true},
	}

	diffs := diffVerdicts(candidate, baseline)
	assert.Len(t, diffs, 3)
	assert.Contains(t, diffs[0], "slot count")
}
