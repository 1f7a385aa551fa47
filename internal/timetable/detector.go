package timetable

import (
	"sort"
)

// CheckInput is everything the detector needs for one lesson-move attempt.
type CheckInput struct {
	LessonID     string
	Source       Slot
	Assignments  []Assignment
	Availability []TeacherAvailability
	Rooms        []Room
	Requirements []SubjectRoomRequirement
	Policy       MovePolicy
	// Room replaces the lesson's current room for the room and room_type axes when set.
	Room string
}

// SlotVerdict is the outcome for one target slot.
type SlotVerdict struct {
	Slot      Slot       `json:"slot"`
	Valid     bool       `json:"valid"`
	Conflicts []Conflict `json:"conflicts"`
}

// Check evaluates every slot of the grid as a move target and returns the 30 verdicts in
// day-major order.
func Check(in CheckInput) ([]SlotVerdict, error) {
	d, err := newDetector(in)
	if err != nil {
		return nil, err
	}
	verdicts := make([]SlotVerdict, 0, GridSize)
	for _, target := range Grid() {
		verdicts = append(verdicts, d.evaluate(target))
	}
	return verdicts, nil
}

// CheckSlot evaluates a single target slot.
func CheckSlot(in CheckInput, target Slot) (SlotVerdict, error) {
	if err := target.Validate(); err != nil {
		return SlotVerdict{}, err
	}
	d, err := newDetector(in)
	if err != nil {
		return SlotVerdict{}, err
	}
	return d.evaluate(target), nil
}

type detector struct {
	source       Assignment
	moving       []Assignment
	index        *Index
	availability *AvailabilityRegistry
	catalog      *Catalog
	room         string
}

func newDetector(in CheckInput) (*detector, error) {
	if in.Policy == "" {
		in.Policy = MoveOne
	}
	source, err := findSource(in.Assignments, in.LessonID, in.Source)
	if err != nil {
		return nil, err
	}
	index, err := BuildIndex(in.Assignments, exclusionFor(in.Policy, in.LessonID, in.Source))
	if err != nil {
		return nil, err
	}
	availability, err := NewAvailabilityRegistry(in.Availability)
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalog(in.Rooms, in.Requirements)
	if err != nil {
		return nil, err
	}

	moving := []Assignment{source}
	if in.Policy == MoveAllInstances {
		moving = instancesOf(in.Assignments, in.LessonID)
		sort.SliceStable(moving, func(i, j int) bool { return slotLess(moving[i].Slot, moving[j].Slot) })
	}

	return &detector{
		source:       source,
		moving:       moving,
		index:        index,
		availability: availability,
		catalog:      catalog,
		room:         in.Room,
	}, nil
}

func (d *detector) evaluate(target Slot) SlotVerdict {
	if target == d.source.Slot {
		return SlotVerdict{Slot: target, Valid: false, Conflicts: []Conflict{{Type: ConflictSameSlot, Message: sameSlotMessage()}}}
	}

	dayDelta, periodDelta := d.source.Slot.Offset(target)
	set := conflictSet{}
	for _, instance := range d.moving {
		dest := instance.Slot.Shift(dayDelta, periodDelta)
		if !dest.InGrid() {
			set.add(ConflictOutOfGrid, outOfGridMessage(instance, dest))
			continue
		}
		d.evaluateInstance(set, instance, dest)
	}

	conflicts := set.ordered()
	return SlotVerdict{Slot: target, Valid: len(conflicts) == 0, Conflicts: conflicts}
}

func (d *detector) evaluateInstance(set conflictSet, instance Assignment, dest Slot) {
	room := d.roomFor(instance)

	if occupants := d.index.Teacher(instance.TeacherCode, dest); len(occupants) > 0 {
		set.add(ConflictTeacher, teacherMessage(instance, occupants[0]))
	}
	if occupants := d.index.Group(instance.StudentGroup, dest); len(occupants) > 0 {
		set.add(ConflictStudentGroup, studentGroupMessage(instance, occupants[0]))
	}
	if occupants := d.index.Room(room, dest); len(occupants) > 0 {
		set.add(ConflictRoom, roomMessage(room, occupants[0]))
	}
	if d.availability.IsUnavailable(instance.TeacherCode, dest) {
		set.add(ConflictTeacherUnavailable, unavailableMessage(instance, dest))
	}
	if required, ok := d.catalog.Requirement(instance.SubjectKey()); ok {
		if catalogued, known := d.catalog.Room(room); known && catalogued.Type != required {
			set.add(ConflictRoomType, roomTypeMessage(instance, catalogued, required))
		}
	}
}

func (d *detector) roomFor(instance Assignment) string {
	if d.room != "" {
		return d.room
	}
	return instance.Room
}

func slotLess(a, b Slot) bool {
	if a.Day == b.Day {
		return a.Period < b.Period
	}
	return a.Day < b.Day
}
