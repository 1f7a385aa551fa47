package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func sampleCommitInput(lessonID string, source, target Slot) CommitInput {
	return CommitInput{
		Schedule:        Schedule{Version: 3, Assignments: sampleAssignments()},
		LessonID:        lessonID,
		Source:          source,
		Target:          target,
		ExpectedVersion: 3,
		Availability:    sampleAvailability(),
		Rooms:           sampleRooms(),
		Requirements:    sampleRequirements(),
	}
}

func TestCommitMovesLesson(t *testing.T) {
	in := sampleCommitInput("L1", Slot{Day: 0, Period: 1}, Slot{Day: 3, Period: 1})

	result, err := Commit(in)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, MoveCommitted, result.State)
	assert.Equal(t, int64(4), result.Version)
	assert.Equal(t, int64(4), result.Schedule.Version)
	assert.Equal(t, "Successfully moved Year 7A Maths from Monday P1 to Thursday P1", result.Message)

	require.Len(t, result.Updated, 1)
	moved := result.Updated[0]
	assert.Equal(t, Slot{Day: 3, Period: 1}, moved.Slot)
	assert.Equal(t, "Room 101", moved.Room)
	assert.Equal(t, "SMI", moved.TeacherCode)

	assert.Len(t, result.Schedule.Assignments, len(in.Schedule.Assignments))
	assert.Equal(t, moved, result.Schedule.Assignments[0])
	assert.Empty(t, CheckInvariants(result.Schedule.Assignments))

	// input snapshot untouched
	assert.Equal(t, Slot{Day: 0, Period: 1}, in.Schedule.Assignments[0].Slot)
}

func TestCommitWithChosenRoom(t *testing.T) {
	in := sampleCommitInput("L3", Slot{Day: 1, Period: 1}, Slot{Day: 3, Period: 1})
	in.Room = "Science Lab"

	result, err := Commit(in)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "Science Lab", result.Updated[0].Room)
	assert.Equal(t, "Science", result.Updated[0].Subject)
}

func TestCommitRejectsUncataloguedRoom(t *testing.T) {
	in := sampleCommitInput("L5", Slot{Day: 2, Period: 1}, Slot{Day: 3, Period: 5})
	in.Room = "Broom Cupboard"

	result, err := Commit(in)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Contains(t, err.Error(), "Broom Cupboard")

	// without a catalog any room name is accepted
	in.Rooms = nil
	result, err = Commit(in)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Broom Cupboard", result.Updated[0].Room)
}

func TestCommitRejectsConflictingTarget(t *testing.T) {
	in := sampleCommitInput("L1", Slot{Day: 0, Period: 1}, Slot{Day: 0, Period: 2})

	result, err := Commit(in)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, MoveRejected, result.State)
	assert.Equal(t, int64(3), result.Version)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, ConflictStudentGroup, result.Conflicts[0].Type)
	assert.Equal(t, `Cannot move lesson: Year 7A already has "English" scheduled in this slot`, result.Message)
	assert.Empty(t, result.Schedule.Assignments)
	assert.Empty(t, result.Updated)
}

func TestCommitRejectsSameSlot(t *testing.T) {
	result, err := Commit(sampleCommitInput("L1", Slot{Day: 0, Period: 1}, Slot{Day: 0, Period: 1}))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, []ConflictType{ConflictSameSlot}, conflictTypes(result.Conflicts))
}

func TestCommitRejectsRoomTypeMismatchForChosenRoom(t *testing.T) {
	in := sampleCommitInput("L3", Slot{Day: 1, Period: 1}, Slot{Day: 3, Period: 1})
	in.Room = "Room 102"

	result, err := Commit(in)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, []ConflictType{ConflictRoomType}, conflictTypes(result.Conflicts))
}

func TestCommitStaleVersion(t *testing.T) {
	in := sampleCommitInput("L1", Slot{Day: 0, Period: 1}, Slot{Day: 3, Period: 1})
	in.ExpectedVersion = 2
	before := in.Schedule.Clone()

	result, err := Commit(in)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStaleSchedule.Code))
	assert.Equal(t, before, in.Schedule)
}

func TestCommitStaleVersionWinsOverConflicts(t *testing.T) {
	in := sampleCommitInput("L1", Slot{Day: 0, Period: 1}, Slot{Day: 0, Period: 2})
	in.ExpectedVersion = 7

	_, err := Commit(in)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStaleSchedule.Code))
}

func TestCommitStaleVersionWinsOverMissingLesson(t *testing.T) {
	in := sampleCommitInput("L1", Slot{Day: 4, Period: 6}, Slot{Day: 3, Period: 1})
	in.ExpectedVersion = 2

	_, err := Commit(in)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStaleSchedule.Code))

	in.ExpectedVersion = in.Schedule.Version
	_, err = Commit(in)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrLessonNotFound.Code))
}

func TestCommitMoveAllInstances(t *testing.T) {
	in := sampleCommitInput("L5", Slot{Day: 2, Period: 1}, Slot{Day: 3, Period: 1})
	in.Policy = MoveAllInstances

	result, err := Commit(in)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Updated, 2)
	assert.Equal(t, Slot{Day: 3, Period: 1}, result.Updated[0].Slot)
	assert.Equal(t, Slot{Day: 3, Period: 2}, result.Updated[1].Slot)
	assert.Len(t, result.Schedule.Instances("L5"), 2)
	assert.Empty(t, CheckInvariants(result.Schedule.Assignments))
}

func TestCommitMoveAllInstancesReportsPlacedInstance(t *testing.T) {
	in := sampleCommitInput("L5", Slot{Day: 2, Period: 2}, Slot{Day: 3, Period: 2})
	in.Policy = MoveAllInstances

	result, err := Commit(in)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Updated, 2)
	assert.Equal(t, Slot{Day: 3, Period: 1}, result.Updated[0].Slot)
	require.NotNil(t, result.Placed)
	assert.Equal(t, Slot{Day: 3, Period: 2}, result.Placed.Slot)
}

func TestCommitMoveAllInstancesOutOfGrid(t *testing.T) {
	in := sampleCommitInput("L5", Slot{Day: 2, Period: 1}, Slot{Day: 4, Period: 6})
	in.Policy = MoveAllInstances

	result, err := Commit(in)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, []ConflictType{ConflictOutOfGrid}, conflictTypes(result.Conflicts))
}

func TestCommitMoveOneLeavesSiblingInPlace(t *testing.T) {
	result, err := Commit(sampleCommitInput("L5", Slot{Day: 2, Period: 2}, Slot{Day: 4, Period: 6}))
	require.NoError(t, err)
	require.True(t, result.Success)

	instances := result.Schedule.Instances("L5")
	require.Len(t, instances, 2)
	assert.Equal(t, Slot{Day: 2, Period: 1}, instances[0].Slot)
	assert.Equal(t, Slot{Day: 4, Period: 6}, instances[1].Slot)
}

func TestCommitErrors(t *testing.T) {
	_, err := Commit(sampleCommitInput("L1", Slot{Day: 0, Period: 1}, Slot{Day: 9, Period: 1}))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrMalformedSlot.Code))

	_, err = Commit(sampleCommitInput("L1", Slot{Day: 4, Period: 1}, Slot{Day: 3, Period: 1}))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrLessonNotFound.Code))
}
