package timetable

import (
	"fmt"
	"sort"
)

// Axis names the uniqueness constraint a violation breaks.
type Axis string

const (
	AxisTeacher      Axis = "teacher"
	AxisRoom         Axis = "room"
	AxisStudentGroup Axis = "student_group"
)

// Violation is a (teacher|room|group, slot) pair held by more than one assignment.
type Violation struct {
	Axis      Axis     `json:"axis"`
	Key       string   `json:"key"`
	Slot      Slot     `json:"slot"`
	LessonIDs []string `json:"lesson_ids"`
}

// Message renders the violation for reports.
func (v Violation) Message() string {
	return fmt.Sprintf("%s %s is double-booked on %s (lessons %v)", v.Axis, v.Key, v.Slot, v.LessonIDs)
}

// ConflictType maps the axis onto the detector taxonomy.
func (v Violation) ConflictType() ConflictType {
	switch v.Axis {
	case AxisTeacher:
		return ConflictTeacher
	case AxisRoom:
		return ConflictRoom
	default:
		return ConflictStudentGroup
	}
}

// Involves reports whether the violation touches lessonID in slot s.
func (v Violation) Involves(lessonID string, s Slot) bool {
	if v.Slot != s {
		return false
	}
	for _, id := range v.LessonIDs {
		if id == lessonID {
			return true
		}
	}
	return false
}

// CheckInvariants lists every uniqueness violation, ordered by slot, axis and key.
func CheckInvariants(assignments []Assignment) []Violation {
	type key struct {
		axis Axis
		name string
		slot Slot
	}
	seen := make(map[key][]string)
	for _, a := range assignments {
		for _, k := range []key{
			{axis: AxisTeacher, name: a.TeacherCode, slot: a.Slot},
			{axis: AxisRoom, name: a.Room, slot: a.Slot},
			{axis: AxisStudentGroup, name: a.StudentGroup, slot: a.Slot},
		} {
			seen[k] = append(seen[k], a.LessonID)
		}
	}

	var violations []Violation
	for k, lessons := range seen {
		if len(lessons) < 2 {
			continue
		}
		violations = append(violations, Violation{Axis: k.axis, Key: k.name, Slot: k.slot, LessonIDs: lessons})
	}
	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.Slot != b.Slot {
			return slotLess(a.Slot, b.Slot)
		}
		if a.Axis != b.Axis {
			return a.Axis < b.Axis
		}
		return a.Key < b.Key
	})
	return violations
}
