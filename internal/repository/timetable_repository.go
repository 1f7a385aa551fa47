package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetableRepository persists versioned schedules, their catalogs, committed moves and audits.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Create inserts a schedule at version 1 with all child rows in one transaction.
func (r *TimetableRepository) Create(ctx context.Context, schedule *models.StoredSchedule) (err error) {
	if schedule == nil {
		return fmt.Errorf("schedule payload is nil")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.Version = 1
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertSchedule = `INSERT INTO schedules (id, name, version, created_at, updated_at) VALUES (:id, :name, :version, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertSchedule, schedule.Schedule); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}

	const insertAssignment = `INSERT INTO schedule_assignments (schedule_id, position, lesson_id, day, period, teacher_code, teacher_name, room, student_group, subject, subject_id)
VALUES (:schedule_id, :position, :lesson_id, :day, :period, :teacher_code, :teacher_name, :room, :student_group, :subject, :subject_id)`
	for i := range schedule.Assignments {
		schedule.Assignments[i].ScheduleID = schedule.ID
		if _, err = sqlx.NamedExecContext(ctx, tx, insertAssignment, schedule.Assignments[i]); err != nil {
			return fmt.Errorf("insert schedule assignment: %w", err)
		}
	}

	const insertRoom = `INSERT INTO schedule_rooms (schedule_id, name, room_type) VALUES (:schedule_id, :name, :room_type)`
	for i := range schedule.Rooms {
		schedule.Rooms[i].ScheduleID = schedule.ID
		if _, err = sqlx.NamedExecContext(ctx, tx, insertRoom, schedule.Rooms[i]); err != nil {
			return fmt.Errorf("insert schedule room: %w", err)
		}
	}

	const insertRequirement = `INSERT INTO schedule_subject_requirements (schedule_id, subject_id, subject_name, required_room_type) VALUES (:schedule_id, :subject_id, :subject_name, :required_room_type)`
	for i := range schedule.Requirements {
		schedule.Requirements[i].ScheduleID = schedule.ID
		if _, err = sqlx.NamedExecContext(ctx, tx, insertRequirement, schedule.Requirements[i]); err != nil {
			return fmt.Errorf("insert subject requirement: %w", err)
		}
	}

	const insertUnavailable = `INSERT INTO schedule_teacher_unavailability (schedule_id, teacher_code, teacher_name, day, period) VALUES (:schedule_id, :teacher_code, :teacher_name, :day, :period)`
	for i := range schedule.Unavailability {
		schedule.Unavailability[i].ScheduleID = schedule.ID
		if _, err = sqlx.NamedExecContext(ctx, tx, insertUnavailable, schedule.Unavailability[i]); err != nil {
			return fmt.Errorf("insert teacher unavailability: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create schedule: %w", err)
	}
	return nil
}

// FindByID loads a schedule and its child rows. A missing schedule returns sql.ErrNoRows.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.StoredSchedule, error) {
	const scheduleQuery = `SELECT id, name, version, created_at, updated_at FROM schedules WHERE id = $1`
	var stored models.StoredSchedule
	if err := r.db.GetContext(ctx, &stored.Schedule, scheduleQuery, id); err != nil {
		return nil, err
	}

	const assignmentsQuery = `SELECT schedule_id, position, lesson_id, day, period, teacher_code, teacher_name, room, student_group, subject, subject_id
FROM schedule_assignments WHERE schedule_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &stored.Assignments, assignmentsQuery, id); err != nil {
		return nil, fmt.Errorf("list schedule assignments: %w", err)
	}

	const roomsQuery = `SELECT schedule_id, name, room_type FROM schedule_rooms WHERE schedule_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &stored.Rooms, roomsQuery, id); err != nil {
		return nil, fmt.Errorf("list schedule rooms: %w", err)
	}

	const requirementsQuery = `SELECT schedule_id, subject_id, subject_name, required_room_type FROM schedule_subject_requirements WHERE schedule_id = $1 ORDER BY subject_id`
	if err := r.db.SelectContext(ctx, &stored.Requirements, requirementsQuery, id); err != nil {
		return nil, fmt.Errorf("list subject requirements: %w", err)
	}

	const unavailableQuery = `SELECT schedule_id, teacher_code, teacher_name, day, period FROM schedule_teacher_unavailability WHERE schedule_id = $1 ORDER BY teacher_code, day, period`
	if err := r.db.SelectContext(ctx, &stored.Unavailability, unavailableQuery, id); err != nil {
		return nil, fmt.Errorf("list teacher unavailability: %w", err)
	}

	return &stored, nil
}

// ListIDs returns every stored schedule id ordered by creation.
func (r *TimetableRepository) ListIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM schedules ORDER BY created_at`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return ids, nil
}

// ApplyMove bumps the schedule version guarded by expectedVersion, rewrites the moved rows and
// logs the move. A version mismatch returns sql.ErrNoRows and leaves the schedule untouched.
func (r *TimetableRepository) ApplyMove(ctx context.Context, expectedVersion int64, moved []models.ScheduleAssignment, move *models.ScheduleMove) (err error) {
	if move == nil {
		return fmt.Errorf("move payload is nil")
	}
	if move.ID == "" {
		move.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	move.CreatedAt = now
	move.FromVersion = expectedVersion
	move.ToVersion = expectedVersion + 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply move: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const bumpVersion = `UPDATE schedules SET version = version + 1, updated_at = $1 WHERE id = $2 AND version = $3`
	result, err := tx.ExecContext(ctx, bumpVersion, now, move.ScheduleID, expectedVersion)
	if err != nil {
		return fmt.Errorf("bump schedule version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule version rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	const updateAssignment = `UPDATE schedule_assignments SET day = $1, period = $2, room = $3 WHERE schedule_id = $4 AND position = $5`
	for _, a := range moved {
		if _, err = tx.ExecContext(ctx, updateAssignment, a.Day, a.Period, a.Room, move.ScheduleID, a.Position); err != nil {
			return fmt.Errorf("update schedule assignment: %w", err)
		}
	}

	const insertMove = `INSERT INTO schedule_moves (id, schedule_id, from_version, to_version, lesson_id, source_day, source_period, target_day, target_period, room, policy, created_at)
VALUES (:id, :schedule_id, :from_version, :to_version, :lesson_id, :source_day, :source_period, :target_day, :target_period, :room, :policy, :created_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertMove, move); err != nil {
		return fmt.Errorf("insert schedule move: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit apply move: %w", err)
	}
	return nil
}

// ListMoves returns the committed moves of a schedule, newest first.
func (r *TimetableRepository) ListMoves(ctx context.Context, scheduleID string, limit int) ([]models.ScheduleMove, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, schedule_id, from_version, to_version, lesson_id, source_day, source_period, target_day, target_period, room, policy, created_at
FROM schedule_moves WHERE schedule_id = $1 ORDER BY to_version DESC LIMIT $2`
	var moves []models.ScheduleMove
	if err := r.db.SelectContext(ctx, &moves, query, scheduleID, limit); err != nil {
		return nil, fmt.Errorf("list schedule moves: %w", err)
	}
	return moves, nil
}

// SaveAudit stores an audit report.
func (r *TimetableRepository) SaveAudit(ctx context.Context, audit *models.ScheduleAudit) error {
	if audit == nil {
		return fmt.Errorf("audit payload is nil")
	}
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedule_audits (id, schedule_id, version, feasible, report, created_at) VALUES (:id, :schedule_id, :version, :feasible, :report, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, audit); err != nil {
		return fmt.Errorf("insert schedule audit: %w", err)
	}
	return nil
}

// LatestAudit returns the most recent audit of a schedule or sql.ErrNoRows.
func (r *TimetableRepository) LatestAudit(ctx context.Context, scheduleID string) (*models.ScheduleAudit, error) {
	const query = `SELECT id, schedule_id, version, feasible, report, created_at FROM schedule_audits WHERE schedule_id = $1 ORDER BY created_at DESC LIMIT 1`
	var audit models.ScheduleAudit
	if err := r.db.GetContext(ctx, &audit, query, scheduleID); err != nil {
		return nil, err
	}
	return &audit, nil
}
