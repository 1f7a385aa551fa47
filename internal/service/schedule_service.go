package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// ScheduleService imports and reads stored schedules.
type ScheduleService struct {
	store     TimetableStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the service.
func NewScheduleService(store TimetableStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{store: store, metrics: metrics, validator: validate, logger: logger}
}

// Import validates a snapshot and stores it at version 1. Snapshots that already break the
// occupancy invariants are refused.
func (s *ScheduleService) Import(ctx context.Context, req dto.ImportScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	assignments := dto.ToAssignments(req.Assignments)
	for _, a := range assignments {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	if violations := timetable.CheckInvariants(assignments); len(violations) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, violations[0].Message())
	}
	rooms := req.CatalogRooms()
	requirements := req.Requirements()
	if _, err := timetable.NewCatalog(rooms, requirements); err != nil {
		return nil, err
	}
	availability := req.Availability()
	if _, err := timetable.NewAvailabilityRegistry(availability); err != nil {
		return nil, err
	}

	stored := models.NewStoredSchedule(uuid.NewString(), req.Name, assignments, rooms, requirements, availability)
	start := time.Now()
	err := s.store.Create(ctx, stored)
	s.metrics.ObserveDBQuery("schedule_create", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule")
	}
	s.logger.Info("schedule imported", zap.String("schedule_id", stored.ID), zap.Int("assignments", len(stored.Assignments)))
	return NewScheduleResponse(stored), nil
}

// Get returns a stored schedule.
func (s *ScheduleService) Get(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	stored, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewScheduleResponse(stored), nil
}

// History lists committed moves, newest first.
func (s *ScheduleService) History(ctx context.Context, id string, limit int) ([]models.ScheduleMove, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	moves, err := s.store.ListMoves(ctx, id, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list moves")
	}
	if moves == nil {
		moves = []models.ScheduleMove{}
	}
	return moves, nil
}

func (s *ScheduleService) find(ctx context.Context, id string) (*models.StoredSchedule, error) {
	start := time.Now()
	stored, err := s.store.FindByID(ctx, id)
	s.metrics.ObserveDBQuery("schedule_find", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("schedule %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return stored, nil
}

// NewScheduleResponse converts a stored schedule for the wire.
func NewScheduleResponse(stored *models.StoredSchedule) *dto.ScheduleResponse {
	resp := &dto.ScheduleResponse{
		ID:                  stored.ID,
		Name:                stored.Name,
		Version:             stored.Version,
		Assignments:         dto.NewAssignmentPayloads(stored.Snapshot().Assignments),
		TeacherAvailability: []dto.TeacherAvailabilityPayload{},
		Rooms:               []dto.RoomPayload{},
		SubjectRequirements: []dto.SubjectRequirementPayload{},
	}
	for _, t := range stored.Availability() {
		item := dto.TeacherAvailabilityPayload{TeacherCode: t.TeacherCode, TeacherName: t.TeacherName}
		for _, slot := range t.Unavailable {
			item.UnavailableSlots = append(item.UnavailableSlots, dto.SlotPayload{Day: slot.Day, Period: slot.Period})
		}
		resp.TeacherAvailability = append(resp.TeacherAvailability, item)
	}
	for _, r := range stored.Rooms {
		resp.Rooms = append(resp.Rooms, dto.RoomPayload{Name: r.Name, RoomType: r.RoomType})
	}
	for _, r := range stored.Requirements {
		resp.SubjectRequirements = append(resp.SubjectRequirements, dto.SubjectRequirementPayload{SubjectID: r.SubjectID, SubjectName: r.SubjectName, RequiredRoomType: r.RequiredRoomType})
	}
	return resp
}
