package timetable

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// MovePolicy decides which instances of a multi-slot lesson travel together.
type MovePolicy string

const (
	// MoveOne relocates only the instance at the source slot.
	MoveOne MovePolicy = "move-one"
	// MoveAllInstances shifts every instance of the lesson by the same offset.
	MoveAllInstances MovePolicy = "move-all-instances"
)

// ParsePolicy maps a raw value onto a policy. Empty input yields fallback.
func ParsePolicy(raw string, fallback MovePolicy) (MovePolicy, error) {
	switch MovePolicy(strings.TrimSpace(strings.ToLower(raw))) {
	case "":
		if fallback == "" {
			return MoveOne, nil
		}
		return fallback, nil
	case MoveOne:
		return MoveOne, nil
	case MoveAllInstances:
		return MoveAllInstances, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown move policy %q", raw))
	}
}

// Exclusion identifies the assignments that are being moved and so do not count as occupants.
// A nil Slots set excludes every instance of LessonID.
type Exclusion struct {
	LessonID string
	Slots    map[Slot]struct{}
}

func exclusionFor(policy MovePolicy, lessonID string, source Slot) Exclusion {
	if policy == MoveAllInstances {
		return Exclusion{LessonID: lessonID}
	}
	return Exclusion{LessonID: lessonID, Slots: map[Slot]struct{}{source: {}}}
}

// Excludes reports whether a is part of the moving set.
func (e Exclusion) Excludes(a Assignment) bool {
	if e.LessonID == "" || a.LessonID != e.LessonID {
		return false
	}
	if e.Slots == nil {
		return true
	}
	_, ok := e.Slots[a.Slot]
	return ok
}

type occupancyKey struct {
	name string
	slot Slot
}

// Index answers "who occupies slot S for teacher/room/group X" in constant time. Lists keep
// input order so that dirty data (several occupants per key) stays deterministic.
type Index struct {
	bySlot    map[Slot][]Assignment
	byTeacher map[occupancyKey][]Assignment
	byRoom    map[occupancyKey][]Assignment
	byGroup   map[occupancyKey][]Assignment
}

// BuildIndex indexes assignments, skipping the excluded ones. Only structurally malformed
// records fail; clashing occupancy is indexed as-is.
func BuildIndex(assignments []Assignment, exclude Exclusion) (*Index, error) {
	ix := &Index{
		bySlot:    make(map[Slot][]Assignment, GridSize),
		byTeacher: make(map[occupancyKey][]Assignment, len(assignments)),
		byRoom:    make(map[occupancyKey][]Assignment, len(assignments)),
		byGroup:   make(map[occupancyKey][]Assignment, len(assignments)),
	}
	for _, a := range assignments {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if exclude.Excludes(a) {
			continue
		}
		ix.add(a)
	}
	return ix, nil
}

func (ix *Index) add(a Assignment) {
	ix.bySlot[a.Slot] = append(ix.bySlot[a.Slot], a)
	tk := occupancyKey{name: a.TeacherCode, slot: a.Slot}
	ix.byTeacher[tk] = append(ix.byTeacher[tk], a)
	rk := occupancyKey{name: a.Room, slot: a.Slot}
	ix.byRoom[rk] = append(ix.byRoom[rk], a)
	gk := occupancyKey{name: a.StudentGroup, slot: a.Slot}
	ix.byGroup[gk] = append(ix.byGroup[gk], a)
}

// AtSlot returns every indexed assignment in the slot.
func (ix *Index) AtSlot(s Slot) []Assignment {
	return ix.bySlot[s]
}

// Teacher returns the assignments taught by teacherCode in the slot.
func (ix *Index) Teacher(teacherCode string, s Slot) []Assignment {
	return ix.byTeacher[occupancyKey{name: teacherCode, slot: s}]
}

// Room returns the assignments held in room during the slot.
func (ix *Index) Room(room string, s Slot) []Assignment {
	return ix.byRoom[occupancyKey{name: room, slot: s}]
}

// Group returns the assignments attended by group in the slot.
func (ix *Index) Group(group string, s Slot) []Assignment {
	return ix.byGroup[occupancyKey{name: group, slot: s}]
}
