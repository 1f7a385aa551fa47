package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func newTimetableRepoMock(t *testing.T) (*TimetableRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewTimetableRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func sampleStoredSchedule() *models.StoredSchedule {
	return &models.StoredSchedule{
		Schedule: models.Schedule{ID: "sch-1", Name: "Autumn"},
		Assignments: []models.ScheduleAssignment{
			{Position: 0, LessonID: "L1", Day: 0, Period: 1, TeacherCode: "SMI", Room: "Room 101", StudentGroup: "Year 7A", Subject: "Maths"},
		},
		Rooms:          []models.ScheduleRoom{{Name: "Room 101", RoomType: "standard"}},
		Requirements:   []models.SubjectRequirement{{SubjectID: "SCI", SubjectName: "Science", RequiredRoomType: "science_lab"}},
		Unavailability: []models.TeacherUnavailability{{TeacherCode: "SMI", Day: 0, Period: 4}},
	}
}

func TestTimetableRepositoryCreate(t *testing.T) {
	repo, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules (id, name, version, created_at, updated_at)")).
		WithArgs("sch-1", "Autumn", int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_assignments")).
		WithArgs("sch-1", 0, "L1", 0, 1, "SMI", "", "Room 101", "Year 7A", "Maths", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_rooms")).
		WithArgs("sch-1", "Room 101", "standard").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_subject_requirements")).
		WithArgs("sch-1", "SCI", "Science", "science_lab").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_teacher_unavailability")).
		WithArgs("sch-1", "SMI", "", 0, 4).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	stored := sampleStoredSchedule()
	require.NoError(t, repo.Create(context.Background(), stored))
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, "sch-1", stored.Assignments[0].ScheduleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateRollsBack(t *testing.T) {
	repo, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_assignments")).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleStoredSchedule())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert schedule assignment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindByID(t *testing.T) {
	repo, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, version, created_at, updated_at FROM schedules WHERE id = $1")).
		WithArgs("sch-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "version", "created_at", "updated_at"}).AddRow("sch-1", "Autumn", 4, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_assignments WHERE schedule_id = $1 ORDER BY position")).
		WithArgs("sch-1").
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "position", "lesson_id", "day", "period", "teacher_code", "teacher_name", "room", "student_group", "subject", "subject_id"}).
			AddRow("sch-1", 0, "L1", 0, 1, "SMI", "Mr Smith", "Room 101", "Year 7A", "Maths", "MAT").
			AddRow("sch-1", 1, "L5", 2, 1, "BRO", "Dr Brown", "Science Lab", "Year 8A", "Science", "SCI"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_rooms WHERE schedule_id = $1")).
		WithArgs("sch-1").
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "name", "room_type"}).AddRow("sch-1", "Science Lab", "science_lab"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_subject_requirements WHERE schedule_id = $1")).
		WithArgs("sch-1").
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "subject_id", "subject_name", "required_room_type"}).AddRow("sch-1", "SCI", "Science", "science_lab"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_teacher_unavailability WHERE schedule_id = $1")).
		WithArgs("sch-1").
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "teacher_code", "teacher_name", "day", "period"}).
			AddRow("sch-1", "SMI", "Mr Smith", 0, 4).
			AddRow("sch-1", "SMI", "Mr Smith", 1, 2))

	stored, err := repo.FindByID(context.Background(), "sch-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored.Version)

	snapshot := stored.Snapshot()
	assert.Equal(t, int64(4), snapshot.Version)
	require.Len(t, snapshot.Assignments, 2)
	assert.Equal(t, "Science Lab", snapshot.Assignments[1].Room)

	availability := stored.Availability()
	require.Len(t, availability, 1)
	assert.Len(t, availability[0].Unavailable, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryApplyMove(t *testing.T) {
	repo, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET version = version + 1, updated_at = $1 WHERE id = $2 AND version = $3")).
		WithArgs(sqlmock.AnyArg(), "sch-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_assignments SET day = $1, period = $2, room = $3 WHERE schedule_id = $4 AND position = $5")).
		WithArgs(3, 1, "Room 102", "sch-1", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_moves")).
		WithArgs(sqlmock.AnyArg(), "sch-1", int64(3), int64(4), "L1", 0, 1, 3, 1, "Room 102", "move-one", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	move := &models.ScheduleMove{ScheduleID: "sch-1", LessonID: "L1", SourceDay: 0, SourcePeriod: 1, TargetDay: 3, TargetPeriod: 1, Room: "Room 102", Policy: "move-one"}
	moved := []models.ScheduleAssignment{{Position: 0, LessonID: "L1", Day: 3, Period: 1, Room: "Room 102"}}
	require.NoError(t, repo.ApplyMove(context.Background(), 3, moved, move))
	assert.Equal(t, int64(4), move.ToVersion)
	assert.NotEmpty(t, move.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryApplyMoveStale(t *testing.T) {
	repo, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET version = version + 1")).
		WithArgs(sqlmock.AnyArg(), "sch-1", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplyMove(context.Background(), 2, nil, &models.ScheduleMove{ScheduleID: "sch-1"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListMoves(t *testing.T) {
	repo, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "schedule_id", "from_version", "to_version", "lesson_id", "source_day", "source_period", "target_day", "target_period", "room", "policy", "created_at"}).
		AddRow("mv-1", "sch-1", 1, 2, "L1", 0, 1, 3, 1, "", "move-one", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_moves WHERE schedule_id = $1 ORDER BY to_version DESC LIMIT $2")).
		WithArgs("sch-1", 50).
		WillReturnRows(rows)

	moves, err := repo.ListMoves(context.Background(), "sch-1", 0)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, int64(2), moves[0].ToVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryAudits(t *testing.T) {
	repo, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_audits (id, schedule_id, version, feasible, report, created_at)")).
		WithArgs(sqlmock.AnyArg(), "sch-1", int64(2), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_audits WHERE schedule_id = $1 ORDER BY created_at DESC LIMIT 1")).
		WithArgs("sch-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "schedule_id", "version", "feasible", "report", "created_at"}).
			AddRow("au-1", "sch-1", 2, true, []byte(`{"feasible":true}`), time.Now()))

	require.NoError(t, repo.SaveAudit(context.Background(), &models.ScheduleAudit{ScheduleID: "sch-1", Version: 2, Feasible: true, Report: types.JSONText(`{"feasible":true}`)}))

	latest, err := repo.LatestAudit(context.Background(), "sch-1")
	require.NoError(t, err)
	assert.True(t, latest.Feasible)
	assert.JSONEq(t, `{"feasible":true}`, string(latest.Report))
	assert.NoError(t, mock.ExpectationsWereMet())
}
