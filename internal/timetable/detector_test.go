package timetable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestCheckReturnsVerdictForEverySlot(t *testing.T) {
	source := Slot{Day: 0, Period: 1}
	verdicts, err := Check(sampleCheckInput("L1", source))
	require.NoError(t, err)
	require.Len(t, verdicts, GridSize)

	sameSlot := 0
	for i, slot := range Grid() {
		v := verdicts[i]
		assert.Equal(t, slot, v.Slot)
		assert.Equal(t, len(v.Conflicts) == 0, v.Valid, "slot %s", slot)
		for _, c := range v.Conflicts {
			if c.Type == ConflictSameSlot {
				sameSlot++
				assert.Equal(t, source, v.Slot)
				assert.Len(t, v.Conflicts, 1)
			}
		}
	}
	assert.Equal(t, 1, sameSlot)
}

func TestCheckTeacherUnavailable(t *testing.T) {
	verdicts, err := Check(sampleCheckInput("L1", Slot{Day: 0, Period: 1}))
	require.NoError(t, err)

	v := verdictAt(verdicts, Slot{Day: 0, Period: 4})
	assert.False(t, v.Valid)
	require.Equal(t, []ConflictType{ConflictTeacherUnavailable}, conflictTypes(v.Conflicts))
	assert.Equal(t, "Mr Smith is not available on Monday Period 4", v.Conflicts[0].Message)
}

func TestCheckStudentGroupClash(t *testing.T) {
	verdicts, err := Check(sampleCheckInput("L1", Slot{Day: 0, Period: 1}))
	require.NoError(t, err)

	v := verdictAt(verdicts, Slot{Day: 0, Period: 2})
	require.Equal(t, []ConflictType{ConflictStudentGroup}, conflictTypes(v.Conflicts))
	assert.Equal(t, `Year 7A already has "English" scheduled in this slot`, v.Conflicts[0].Message)
}

func TestCheckTeacherClash(t *testing.T) {
	verdicts, err := Check(sampleCheckInput("L1", Slot{Day: 0, Period: 1}))
	require.NoError(t, err)

	v := verdictAt(verdicts, Slot{Day: 1, Period: 3})
	require.Equal(t, []ConflictType{ConflictTeacher}, conflictTypes(v.Conflicts))
	assert.Equal(t, `Mr Smith is already teaching "History" to Year 8A in this slot`, v.Conflicts[0].Message)
}

func TestCheckRoomTypeWithoutRoomConflict(t *testing.T) {
	verdicts, err := Check(sampleCheckInput("L3", Slot{Day: 1, Period: 1}))
	require.NoError(t, err)

	v := verdictAt(verdicts, Slot{Day: 3, Period: 1})
	require.Equal(t, []ConflictType{ConflictRoomType}, conflictTypes(v.Conflicts))
	assert.Equal(t, "Science requires a science_lab room but Room 101 is standard", v.Conflicts[0].Message)
}

func TestCheckReportsConflictsInFixedOrder(t *testing.T) {
	verdicts, err := Check(sampleCheckInput("L3", Slot{Day: 1, Period: 1}))
	require.NoError(t, err)

	v := verdictAt(verdicts, Slot{Day: 0, Period: 1})
	assert.Equal(t, []ConflictType{ConflictRoom, ConflictRoomType}, conflictTypes(v.Conflicts))
	assert.Equal(t, `Room 101 is already booked for "Maths" (Year 7A)`, v.Conflicts[0].Message)
}

func TestCheckSkipsRoomTypeWithoutCatalog(t *testing.T) {
	in := sampleCheckInput("L3", Slot{Day: 1, Period: 1})
	in.Rooms = nil

	v, err := CheckSlot(in, Slot{Day: 3, Period: 1})
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Conflicts)
}

func TestCheckSlotRoomOverride(t *testing.T) {
	in := sampleCheckInput("L3", Slot{Day: 1, Period: 1})
	in.Room = "Science Lab"

	v, err := CheckSlot(in, Slot{Day: 3, Period: 1})
	require.NoError(t, err)
	assert.True(t, v.Valid)

	v, err = CheckSlot(in, Slot{Day: 2, Period: 3})
	require.NoError(t, err)
	assert.True(t, v.Valid)

	v, err = CheckSlot(in, Slot{Day: 2, Period: 1})
	require.NoError(t, err)
	assert.Equal(t, []ConflictType{ConflictTeacher, ConflictRoom}, conflictTypes(v.Conflicts))
}

func TestCheckIsDeterministic(t *testing.T) {
	first, err := Check(sampleCheckInput("L4", Slot{Day: 1, Period: 3}))
	require.NoError(t, err)
	second, err := Check(sampleCheckInput("L4", Slot{Day: 1, Period: 3}))
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestCheckErrors(t *testing.T) {
	_, err := Check(sampleCheckInput("missing", Slot{Day: 0, Period: 1}))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrLessonNotFound.Code))

	_, err = Check(sampleCheckInput("L1", Slot{Day: 0, Period: 2}))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrLessonNotFound.Code))

	_, err = Check(sampleCheckInput("L1", Slot{Day: 5, Period: 1}))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrMalformedSlot.Code))

	_, err = CheckSlot(sampleCheckInput("L1", Slot{Day: 0, Period: 1}), Slot{Day: 0, Period: 7})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrMalformedSlot.Code))

	in := sampleCheckInput("L1", Slot{Day: 0, Period: 1})
	in.Assignments = append(in.Assignments, Assignment{LessonID: "L9", Slot: Slot{Day: 4, Period: 6}, TeacherCode: "X"})
	_, err = Check(in)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidAssignment.Code))
}

func TestCheckDirtyDataIsNotAnError(t *testing.T) {
	in := sampleCheckInput("L1", Slot{Day: 0, Period: 1})
	in.Assignments = append(in.Assignments, Assignment{LessonID: "L6", Slot: Slot{Day: 1, Period: 3}, TeacherCode: "SMI", Room: "Room 104", StudentGroup: "Year 9A", Subject: "Geography"})

	v, err := CheckSlot(in, Slot{Day: 1, Period: 3})
	require.NoError(t, err)
	require.Equal(t, []ConflictType{ConflictTeacher}, conflictTypes(v.Conflicts))
	assert.Contains(t, v.Conflicts[0].Message, "History")
}

func TestCheckMoveOneTreatsSiblingInstancesAsOccupants(t *testing.T) {
	v, err := CheckSlot(sampleCheckInput("L5", Slot{Day: 2, Period: 1}), Slot{Day: 2, Period: 2})
	require.NoError(t, err)
	assert.Equal(t, []ConflictType{ConflictTeacher, ConflictStudentGroup, ConflictRoom}, conflictTypes(v.Conflicts))
}

func TestCheckMoveAllInstances(t *testing.T) {
	in := sampleCheckInput("L5", Slot{Day: 2, Period: 1})
	in.Policy = MoveAllInstances

	verdicts, err := Check(in)
	require.NoError(t, err)
	require.Len(t, verdicts, GridSize)

	assert.True(t, verdictAt(verdicts, Slot{Day: 2, Period: 2}).Valid)
	assert.True(t, verdictAt(verdicts, Slot{Day: 3, Period: 1}).Valid)

	last := verdictAt(verdicts, Slot{Day: 4, Period: 6})
	require.Equal(t, []ConflictType{ConflictOutOfGrid}, conflictTypes(last.Conflicts))
	assert.Contains(t, last.Conflicts[0].Message, "Wednesday P2")

	monday := verdictAt(verdicts, Slot{Day: 0, Period: 6})
	assert.Equal(t, []ConflictType{ConflictOutOfGrid}, conflictTypes(monday.Conflicts))

	tuesday := verdictAt(verdicts, Slot{Day: 1, Period: 1})
	require.Equal(t, []ConflictType{ConflictTeacher}, conflictTypes(tuesday.Conflicts))
	assert.Equal(t, `Dr Brown is already teaching "Science" to Year 7B in this slot`, tuesday.Conflicts[0].Message)
}
