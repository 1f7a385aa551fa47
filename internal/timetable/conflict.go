package timetable

import "fmt"

// ConflictType tags why a target slot (or room) cannot take the lesson.
type ConflictType string

const (
	ConflictSameSlot           ConflictType = "same_slot"
	ConflictTeacher            ConflictType = "teacher"
	ConflictStudentGroup       ConflictType = "student_group"
	ConflictRoom               ConflictType = "room"
	ConflictTeacherUnavailable ConflictType = "teacher_unavailable"
	ConflictRoomType           ConflictType = "room_type"
	// ConflictOutOfGrid only appears under MoveAllInstances when a shifted instance leaves the week.
	ConflictOutOfGrid ConflictType = "out_of_grid"
	// ConflictOccupied is the room resolver's busy-room signal; the detector never emits it.
	ConflictOccupied ConflictType = "occupied"
)

// detectorOrder is the reporting order for per-slot conflicts.
var detectorOrder = []ConflictType{
	ConflictSameSlot,
	ConflictTeacher,
	ConflictStudentGroup,
	ConflictRoom,
	ConflictTeacherUnavailable,
	ConflictRoomType,
	ConflictOutOfGrid,
}

// Conflict is one explained reason against a move.
type Conflict struct {
	Type    ConflictType `json:"conflict_type"`
	Message string       `json:"message"`
}

// conflictSet keeps the first conflict per type and emits them in detectorOrder.
type conflictSet map[ConflictType]Conflict

func (c conflictSet) add(t ConflictType, message string) {
	if _, seen := c[t]; seen {
		return
	}
	c[t] = Conflict{Type: t, Message: message}
}

func (c conflictSet) ordered() []Conflict {
	out := make([]Conflict, 0, len(c))
	for _, t := range detectorOrder {
		if conflict, ok := c[t]; ok {
			out = append(out, conflict)
		}
	}
	return out
}

func sameSlotMessage() string {
	return "Cannot move to the same slot"
}

func teacherMessage(moving, occupant Assignment) string {
	return fmt.Sprintf("%s is already teaching %q to %s in this slot", moving.TeacherLabel(), occupant.Subject, occupant.StudentGroup)
}

func studentGroupMessage(moving, occupant Assignment) string {
	return fmt.Sprintf("%s already has %q scheduled in this slot", moving.StudentGroup, occupant.Subject)
}

func roomMessage(room string, occupant Assignment) string {
	return fmt.Sprintf("%s is already booked for %q (%s)", room, occupant.Subject, occupant.StudentGroup)
}

func unavailableMessage(moving Assignment, target Slot) string {
	return fmt.Sprintf("%s is not available on %s", moving.TeacherLabel(), target)
}

func roomTypeMessage(moving Assignment, room Room, required RoomType) string {
	return fmt.Sprintf("%s requires a %s room but %s is %s", moving.Subject, required, room.Name, room.Type)
}

func outOfGridMessage(instance Assignment, shifted Slot) string {
	return fmt.Sprintf("Instance at %s would move outside the timetable (day %d, period %d)", instance.Slot.Short(), shifted.Day, shifted.Period)
}

func occupiedMessage(room string, occupant Assignment) string {
	return fmt.Sprintf("%s is occupied by %q (%s)", room, occupant.Subject, occupant.StudentGroup)
}
