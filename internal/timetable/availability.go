package timetable

import (
	"fmt"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// TeacherAvailability lists the slots in which a teacher cannot teach.
type TeacherAvailability struct {
	TeacherCode string `json:"teacher_code"`
	TeacherName string `json:"teacher_name"`
	Unavailable []Slot `json:"unavailable_slots"`
}

// AvailabilityRegistry maps teacher codes to blocked slots.
type AvailabilityRegistry struct {
	blocked map[string]map[Slot]struct{}
}

// NewAvailabilityRegistry builds a registry. Entries for the same teacher are merged.
func NewAvailabilityRegistry(items []TeacherAvailability) (*AvailabilityRegistry, error) {
	r := &AvailabilityRegistry{blocked: make(map[string]map[Slot]struct{}, len(items))}
	for _, item := range items {
		if item.TeacherCode == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "teacher availability requires teacher_code")
		}
		for _, s := range item.Unavailable {
			if err := s.Validate(); err != nil {
				return nil, appErrors.Clone(appErrors.ErrMalformedSlot, fmt.Sprintf("teacher %s: %s", item.TeacherCode, err.Error()))
			}
			r.Block(item.TeacherCode, s)
		}
	}
	return r, nil
}

// Block marks the slot unavailable for the teacher.
func (r *AvailabilityRegistry) Block(teacherCode string, s Slot) {
	if r.blocked[teacherCode] == nil {
		r.blocked[teacherCode] = make(map[Slot]struct{})
	}
	r.blocked[teacherCode][s] = struct{}{}
}

// IsUnavailable reports whether the teacher is blocked in the slot. A nil registry blocks nothing.
func (r *AvailabilityRegistry) IsUnavailable(teacherCode string, s Slot) bool {
	if r == nil {
		return false
	}
	_, blocked := r.blocked[teacherCode][s]
	return blocked
}

// BlockedCount returns how many slots the teacher cannot teach.
func (r *AvailabilityRegistry) BlockedCount(teacherCode string) int {
	if r == nil {
		return 0
	}
	return len(r.blocked[teacherCode])
}
