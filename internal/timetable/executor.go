package timetable

import (
	"fmt"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// MoveState tracks a commit request through the executor.
type MoveState string

const (
	MoveRequested    MoveState = "requested"
	MoveRevalidating MoveState = "revalidating"
	MoveCommitted    MoveState = "committed"
	MoveRejected     MoveState = "rejected"
)

// CommitInput describes a final (lesson, target, room) choice against the current schedule.
type CommitInput struct {
	Schedule        Schedule
	LessonID        string
	Source          Slot
	Target          Slot
	Room            string
	ExpectedVersion int64
	Policy          MovePolicy
	Availability    []TeacherAvailability
	Rooms           []Room
	Requirements    []SubjectRoomRequirement
}

// MoveResult is the executor outcome. Schedule and Version are only meaningful on success.
// Placed is the moved instance that landed on the target slot.
type MoveResult struct {
	Success   bool         `json:"success"`
	State     MoveState    `json:"state"`
	Message   string       `json:"message"`
	Updated   []Assignment `json:"updated_assignments"`
	Placed    *Assignment  `json:"placed,omitempty"`
	Conflicts []Conflict   `json:"conflicts"`
	Schedule  Schedule     `json:"-"`
	Version   int64        `json:"version"`
}

// Commit revalidates the move against in.Schedule, enforces the expected version and, when both
// pass, returns a new schedule with every moved instance relocated. A stale version fails with
// STALE_SCHEDULE even when the move also has conflicts or names a lesson no longer at Source.
func Commit(in CommitInput) (*MoveResult, error) {
	if in.Policy == "" {
		in.Policy = MoveOne
	}
	result := &MoveResult{State: MoveRequested, Version: in.Schedule.Version, Conflicts: []Conflict{}}
	if err := in.Target.Validate(); err != nil {
		return nil, err
	}

	result.State = MoveRevalidating
	verdict, err := CheckSlot(CheckInput{
		LessonID:     in.LessonID,
		Source:       in.Source,
		Assignments:  in.Schedule.Assignments,
		Availability: in.Availability,
		Rooms:        in.Rooms,
		Requirements: in.Requirements,
		Policy:       in.Policy,
		Room:         in.Room,
	}, in.Target)
	// Staleness is reported before input errors from revalidation.
	if in.ExpectedVersion != in.Schedule.Version {
		return nil, appErrors.Clone(appErrors.ErrStaleSchedule, fmt.Sprintf("schedule is at version %d, move was prepared against %d", in.Schedule.Version, in.ExpectedVersion))
	}
	if err != nil {
		return nil, err
	}
	if err := checkChosenRoom(in); err != nil {
		return nil, err
	}

	if !verdict.Valid {
		return reject(result, verdict.Conflicts), nil
	}

	next, moved := relocate(in)
	var introduced []Conflict
	for _, v := range CheckInvariants(next.Assignments) {
		for _, a := range moved {
			if v.Involves(a.LessonID, a.Slot) {
				introduced = append(introduced, Conflict{Type: v.ConflictType(), Message: v.Message()})
				break
			}
		}
	}
	if len(introduced) > 0 {
		return reject(result, introduced), nil
	}

	next.Version = in.Schedule.Version + 1
	primary := moved[0]
	for _, a := range moved {
		if a.Slot == in.Target {
			primary = a
			break
		}
	}
	result.Success = true
	result.State = MoveCommitted
	result.Updated = moved
	result.Placed = &primary
	result.Schedule = next
	result.Version = next.Version
	result.Message = fmt.Sprintf("Successfully moved %s %s from %s to %s", primary.StudentGroup, primary.Subject, in.Source.Short(), in.Target.Short())
	return result, nil
}

// checkChosenRoom refuses a room missing from a loaded catalog.
func checkChosenRoom(in CommitInput) error {
	if in.Room == "" {
		return nil
	}
	catalog, err := NewCatalog(in.Rooms, in.Requirements)
	if err != nil {
		return err
	}
	if _, known := catalog.Room(in.Room); catalog.HasRooms() && !known {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %q is not in the room catalog", in.Room))
	}
	return nil
}

func reject(result *MoveResult, conflicts []Conflict) *MoveResult {
	result.State = MoveRejected
	result.Conflicts = conflicts
	result.Message = fmt.Sprintf("Cannot move lesson: %s", conflicts[0].Message)
	return result
}

// relocate builds the next schedule, replacing moved records in place so that the relative
// order of the snapshot is preserved.
func relocate(in CommitInput) (Schedule, []Assignment) {
	exclude := exclusionFor(in.Policy, in.LessonID, in.Source)
	dayDelta, periodDelta := in.Source.Offset(in.Target)

	next := Schedule{Assignments: make([]Assignment, 0, len(in.Schedule.Assignments))}
	var moved []Assignment
	for _, a := range in.Schedule.Assignments {
		if !exclude.Excludes(a) {
			next.Assignments = append(next.Assignments, a)
			continue
		}
		updated := a
		updated.Slot = a.Slot.Shift(dayDelta, periodDelta)
		if in.Room != "" {
			updated.Room = in.Room
		}
		next.Assignments = append(next.Assignments, updated)
		moved = append(moved, updated)
	}
	return next, moved
}
