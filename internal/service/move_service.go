package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// TimetableStore is the persistence contract for stored schedules.
type TimetableStore interface {
	Create(ctx context.Context, schedule *models.StoredSchedule) error
	FindByID(ctx context.Context, id string) (*models.StoredSchedule, error)
	ListIDs(ctx context.Context) ([]string, error)
	ApplyMove(ctx context.Context, expectedVersion int64, moved []models.ScheduleAssignment, move *models.ScheduleMove) error
	ListMoves(ctx context.Context, scheduleID string, limit int) ([]models.ScheduleMove, error)
	SaveAudit(ctx context.Context, audit *models.ScheduleAudit) error
	LatestAudit(ctx context.Context, scheduleID string) (*models.ScheduleAudit, error)
}

// MoveServiceConfig tunes the move service.
type MoveServiceConfig struct {
	DefaultPolicy timetable.MovePolicy
	VerdictTTL    time.Duration
}

// StoredCommit is a commit request against a stored schedule.
type StoredCommit struct {
	LessonID        string
	Source          timetable.Slot
	Target          timetable.Slot
	Room            string
	ExpectedVersion int64
	Policy          timetable.MovePolicy
}

// MoveService validates and commits lesson moves, either over a snapshot supplied by the caller
// or over a stored schedule.
type MoveService struct {
	store     TimetableStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       MoveServiceConfig

	locks sync.Map
}

// NewMoveService constructs the service. store may be nil when persistence is disabled.
func NewMoveService(store TimetableStore, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg MoveServiceConfig) *MoveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPolicy == "" {
		cfg.DefaultPolicy = timetable.MoveOne
	}
	return &MoveService{store: store, cache: cacheSvc, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// DefaultPolicy returns the policy applied when a request names none.
func (s *MoveService) DefaultPolicy() timetable.MovePolicy {
	return s.cfg.DefaultPolicy
}

func (s *MoveService) validate(payload interface{}) error {
	if err := s.validator.Struct(payload); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return nil
}

func (s *MoveService) policy(raw string) (timetable.MovePolicy, error) {
	return timetable.ParsePolicy(raw, s.cfg.DefaultPolicy)
}

func (s *MoveService) check(in timetable.CheckInput) ([]timetable.SlotVerdict, error) {
	start := time.Now()
	verdicts, err := timetable.Check(in)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveMoveCheck(in.Policy, verdicts, time.Since(start))
	return verdicts, nil
}

// CheckMove returns the 30 verdicts for a caller-supplied snapshot.
func (s *MoveService) CheckMove(ctx context.Context, req dto.CheckMoveRequest) (*dto.CheckMoveResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	policy, err := s.policy(req.Policy)
	if err != nil {
		return nil, err
	}
	source, err := timetable.NewSlot(req.SourceDay, req.SourcePeriod)
	if err != nil {
		return nil, err
	}

	verdicts, err := s.check(timetable.CheckInput{
		LessonID:     req.LessonID,
		Source:       source,
		Assignments:  dto.ToAssignments(req.CurrentAssignments),
		Availability: req.Availability(),
		Rooms:        req.CatalogRooms(),
		Requirements: req.Requirements(),
		Policy:       policy,
		Room:         req.Room,
	})
	if err != nil {
		return nil, err
	}

	return &dto.CheckMoveResponse{
		LessonID:     req.LessonID,
		SourceDay:    source.Day,
		SourcePeriod: source.Period,
		SessionID:    req.SessionID,
		Slots:        dto.NewSlotValidations(verdicts),
	}, nil
}

// MoveLesson revalidates and applies a move on a caller-supplied snapshot. The snapshot version
// is schedule_version when given, otherwise 0, so the version check always passes.
func (s *MoveService) MoveLesson(ctx context.Context, req dto.MoveLessonRequest) (*dto.MoveLessonResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	policy, err := s.policy(req.Policy)
	if err != nil {
		return nil, err
	}
	source, err := timetable.NewSlot(req.SourceDay, req.SourcePeriod)
	if err != nil {
		return nil, err
	}
	target, err := timetable.NewSlot(req.TargetDay, req.TargetPeriod)
	if err != nil {
		return nil, err
	}

	var version int64
	if req.ScheduleVersion != nil {
		version = *req.ScheduleVersion
	}
	result, err := timetable.Commit(timetable.CommitInput{
		Schedule:        timetable.Schedule{Version: version, Assignments: dto.ToAssignments(req.CurrentAssignments)},
		LessonID:        req.LessonID,
		Source:          source,
		Target:          target,
		Room:            req.Room,
		ExpectedVersion: version,
		Policy:          policy,
		Availability:    req.Availability(),
		Rooms:           req.CatalogRooms(),
		Requirements:    req.Requirements(),
	})
	if err != nil {
		s.metrics.ObserveMoveCommit(commitOutcome(err))
		return nil, err
	}
	s.observeResult(result)

	resp := dto.NewMoveLessonResponse(result)
	return &resp, nil
}

// Rooms ranks catalogued rooms for a target slot over a caller-supplied snapshot.
func (s *MoveService) Rooms(ctx context.Context, req dto.RoomsRequest) (*dto.RoomsResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	policy, err := s.policy(req.Policy)
	if err != nil {
		return nil, err
	}
	source, err := timetable.NewSlot(req.SourceDay, req.SourcePeriod)
	if err != nil {
		return nil, err
	}
	target, err := timetable.NewSlot(req.TargetDay, req.TargetPeriod)
	if err != nil {
		return nil, err
	}
	options, err := timetable.ResolveRooms(timetable.ResolveInput{
		LessonID:     req.LessonID,
		Source:       source,
		Target:       target,
		Assignments:  dto.ToAssignments(req.CurrentAssignments),
		Rooms:        dto.ToRooms(req.Rooms),
		Requirements: dto.ToRequirements(req.SubjectRequirements),
		Policy:       policy,
	})
	if err != nil {
		return nil, err
	}
	return &dto.RoomsResponse{LessonID: req.LessonID, TargetDay: target.Day, TargetPeriod: target.Period, Rooms: options}, nil
}

func (s *MoveService) load(ctx context.Context, scheduleID string) (*models.StoredSchedule, error) {
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "stored schedules are disabled")
	}
	start := time.Now()
	stored, err := s.store.FindByID(ctx, scheduleID)
	s.metrics.ObserveDBQuery("schedule_find", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("schedule %s not found", scheduleID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return stored, nil
}

func verdictKey(scheduleID string, version int64, lessonID string, source timetable.Slot, policy timetable.MovePolicy, room string) string {
	return cache.Key("verdicts", scheduleID, fmt.Sprintf("v%d", version), lessonID, fmt.Sprintf("%d-%d", source.Day, source.Period), string(policy), room)
}

// StoredVerdicts returns the verdicts for a lesson on a stored schedule together with the
// version they were computed against. Results are cached per schedule version.
func (s *MoveService) StoredVerdicts(ctx context.Context, scheduleID, lessonID string, source timetable.Slot, policy timetable.MovePolicy, room string) ([]timetable.SlotVerdict, int64, error) {
	if err := source.Validate(); err != nil {
		return nil, 0, err
	}
	stored, err := s.load(ctx, scheduleID)
	if err != nil {
		return nil, 0, err
	}
	if policy == "" {
		policy = s.cfg.DefaultPolicy
	}

	key := verdictKey(scheduleID, stored.Version, lessonID, source, policy, room)
	var cached []timetable.SlotVerdict
	if s.cache.Get(ctx, key, &cached) && len(cached) == timetable.GridSize {
		return cached, stored.Version, nil
	}

	verdicts, err := s.check(timetable.CheckInput{
		LessonID:     lessonID,
		Source:       source,
		Assignments:  stored.Snapshot().Assignments,
		Availability: stored.Availability(),
		Rooms:        stored.CatalogRooms(),
		Requirements: stored.CatalogRequirements(),
		Policy:       policy,
		Room:         room,
	})
	if err != nil {
		return nil, 0, err
	}
	s.cache.Set(ctx, key, verdicts, s.cfg.VerdictTTL)
	return verdicts, stored.Version, nil
}

// CheckStored answers check-move against a stored schedule.
func (s *MoveService) CheckStored(ctx context.Context, scheduleID string, req dto.StoredCheckMoveRequest) (*dto.CheckMoveResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	policy, err := s.policy(req.Policy)
	if err != nil {
		return nil, err
	}
	source := timetable.Slot{Day: req.SourceDay, Period: req.SourcePeriod}
	verdicts, version, err := s.StoredVerdicts(ctx, scheduleID, req.LessonID, source, policy, req.Room)
	if err != nil {
		return nil, err
	}
	return &dto.CheckMoveResponse{
		LessonID:        req.LessonID,
		SourceDay:       source.Day,
		SourcePeriod:    source.Period,
		SessionID:       req.SessionID,
		ScheduleVersion: version,
		Slots:           dto.NewSlotValidations(verdicts),
	}, nil
}

// RoomsStored ranks rooms against a stored schedule.
func (s *MoveService) RoomsStored(ctx context.Context, scheduleID string, req dto.StoredRoomsRequest) (*dto.RoomsResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	policy, err := s.policy(req.Policy)
	if err != nil {
		return nil, err
	}
	source, err := timetable.NewSlot(req.SourceDay, req.SourcePeriod)
	if err != nil {
		return nil, err
	}
	target, err := timetable.NewSlot(req.TargetDay, req.TargetPeriod)
	if err != nil {
		return nil, err
	}
	stored, err := s.load(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	options, err := timetable.ResolveRooms(timetable.ResolveInput{
		LessonID:     req.LessonID,
		Source:       source,
		Target:       target,
		Assignments:  stored.Snapshot().Assignments,
		Rooms:        stored.CatalogRooms(),
		Requirements: stored.CatalogRequirements(),
		Policy:       policy,
	})
	if err != nil {
		return nil, err
	}
	return &dto.RoomsResponse{LessonID: req.LessonID, TargetDay: target.Day, TargetPeriod: target.Period, Rooms: options}, nil
}

// CommitStored validates the request and commits it.
func (s *MoveService) CommitStored(ctx context.Context, scheduleID string, req dto.CommitMoveRequest) (*dto.MoveLessonResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	policy, err := s.policy(req.Policy)
	if err != nil {
		return nil, err
	}
	result, err := s.Commit(ctx, scheduleID, StoredCommit{
		LessonID:        req.LessonID,
		Source:          timetable.Slot{Day: req.SourceDay, Period: req.SourcePeriod},
		Target:          timetable.Slot{Day: req.TargetDay, Period: req.TargetPeriod},
		Room:            req.Room,
		ExpectedVersion: req.ExpectedVersion,
		Policy:          policy,
	})
	if err != nil {
		return nil, err
	}
	resp := dto.NewMoveLessonResponse(result)
	return &resp, nil
}

func (s *MoveService) lock(scheduleID string) func() {
	value, _ := s.locks.LoadOrStore(scheduleID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Commit applies a move to a stored schedule. Commits on one schedule are serialized; the
// version guard in the store rejects anything prepared against an older snapshot.
func (s *MoveService) Commit(ctx context.Context, scheduleID string, in StoredCommit) (*timetable.MoveResult, error) {
	if err := in.Source.Validate(); err != nil {
		return nil, err
	}
	unlock := s.lock(scheduleID)
	defer unlock()

	stored, err := s.load(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if in.Policy == "" {
		in.Policy = s.cfg.DefaultPolicy
	}

	result, err := timetable.Commit(timetable.CommitInput{
		Schedule:        stored.Snapshot(),
		LessonID:        in.LessonID,
		Source:          in.Source,
		Target:          in.Target,
		Room:            in.Room,
		ExpectedVersion: in.ExpectedVersion,
		Policy:          in.Policy,
		Availability:    stored.Availability(),
		Rooms:           stored.CatalogRooms(),
		Requirements:    stored.CatalogRequirements(),
	})
	if err != nil {
		s.metrics.ObserveMoveCommit(commitOutcome(err))
		return nil, err
	}
	if !result.Success {
		s.observeResult(result)
		return result, nil
	}

	moved := changedRows(stored, result.Schedule)
	record := &models.ScheduleMove{
		ScheduleID:   scheduleID,
		LessonID:     in.LessonID,
		SourceDay:    in.Source.Day,
		SourcePeriod: in.Source.Period,
		TargetDay:    in.Target.Day,
		TargetPeriod: in.Target.Period,
		Room:         in.Room,
		Policy:       string(in.Policy),
	}
	start := time.Now()
	err = s.store.ApplyMove(ctx, in.ExpectedVersion, moved, record)
	s.metrics.ObserveDBQuery("schedule_apply_move", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.ObserveMoveCommit(CommitOutcomeStale)
			return nil, appErrors.Clone(appErrors.ErrStaleSchedule, fmt.Sprintf("schedule %s changed while the move was being committed", scheduleID))
		}
		s.metrics.ObserveMoveCommit(CommitOutcomeError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit move")
	}

	_ = s.cache.Invalidate(ctx, cache.Key("verdicts", scheduleID, fmt.Sprintf("v%d", in.ExpectedVersion), "*"))
	s.observeResult(result)
	s.logger.Info("lesson moved",
		zap.String("schedule_id", scheduleID),
		zap.String("lesson_id", in.LessonID),
		zap.String("from", in.Source.Short()),
		zap.String("to", in.Target.Short()),
		zap.Int64("version", result.Version),
		zap.String("request_id", requestid.FromContext(ctx)),
	)
	return result, nil
}

func (s *MoveService) observeResult(result *timetable.MoveResult) {
	if result.Success {
		s.metrics.ObserveMoveCommit(CommitOutcomeCommitted)
		return
	}
	s.metrics.ObserveMoveCommit(CommitOutcomeRejected)
}

func commitOutcome(err error) string {
	if appErrors.HasCode(err, appErrors.ErrStaleSchedule.Code) {
		return CommitOutcomeStale
	}
	return CommitOutcomeError
}

// changedRows returns the stored rows whose slot or room differ in next. Commit keeps the
// snapshot order, so rows line up by position.
func changedRows(stored *models.StoredSchedule, next timetable.Schedule) []models.ScheduleAssignment {
	var moved []models.ScheduleAssignment
	for i, row := range stored.Assignments {
		if i >= len(next.Assignments) {
			break
		}
		a := next.Assignments[i]
		if a.Slot.Day == row.Day && a.Slot.Period == row.Period && a.Room == row.Room {
			continue
		}
		updated := row
		updated.Day = a.Slot.Day
		updated.Period = a.Slot.Period
		updated.Room = a.Room
		moved = append(moved, updated)
	}
	return moved
}
