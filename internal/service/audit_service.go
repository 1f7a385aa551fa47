package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

const auditJobType = "schedule_audit"

// AuditServiceConfig configures background audits.
type AuditServiceConfig struct {
	Cron       string
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// AuditService runs feasibility audits on stored schedules, on demand and on a cron schedule.
type AuditService struct {
	store   TimetableStore
	metrics *MetricsService
	logger  *zap.Logger
	cfg     AuditServiceConfig

	queue *jobs.Queue
	cron  *cron.Cron
}

// NewAuditService constructs the service. Background work starts with Start.
func NewAuditService(store TimetableStore, metrics *MetricsService, logger *zap.Logger, cfg AuditServiceConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{store: store, metrics: metrics, logger: logger, cfg: cfg}
	s.queue = jobs.NewQueue("audits", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Run audits the current version of a schedule and stores the report.
func (s *AuditService) Run(ctx context.Context, scheduleID string) (*timetable.AuditReport, error) {
	start := time.Now()
	stored, err := s.store.FindByID(ctx, scheduleID)
	s.metrics.ObserveDBQuery("schedule_find", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("schedule %s not found", scheduleID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	report, err := timetable.Audit(timetable.AuditInput{
		Schedule:     stored.Snapshot(),
		Availability: stored.Availability(),
		Rooms:        stored.CatalogRooms(),
		Requirements: stored.CatalogRequirements(),
	})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode audit")
	}
	record := &models.ScheduleAudit{
		ScheduleID: scheduleID,
		Version:    report.Version,
		Feasible:   report.Feasible,
		Report:     types.JSONText(payload),
	}
	if err := s.store.SaveAudit(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store audit")
	}

	s.logger.Info("schedule audited",
		zap.String("schedule_id", scheduleID),
		zap.Int64("version", report.Version),
		zap.Bool("feasible", report.Feasible),
		zap.Int("issues", len(report.Issues)),
	)
	return &report, nil
}

// Latest returns the most recently stored report.
func (s *AuditService) Latest(ctx context.Context, scheduleID string) (*timetable.AuditReport, error) {
	record, err := s.store.LatestAudit(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no audit stored for schedule %s", scheduleID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit")
	}
	var report timetable.AuditReport
	if err := record.Report.Unmarshal(&report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode audit")
	}
	return &report, nil
}

// Enqueue schedules a background audit and returns the job id.
func (s *AuditService) Enqueue(scheduleID string) (string, error) {
	return s.queue.TryEnqueue(jobs.Job{Type: auditJobType, Payload: scheduleID})
}

// EnqueueAll schedules an audit for every stored schedule.
func (s *AuditService) EnqueueAll(ctx context.Context) (int, error) {
	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, id := range ids {
		if _, err := s.Enqueue(id); err != nil {
			s.logger.Warn("audit not queued", zap.String("schedule_id", id), zap.Error(err))
			continue
		}
		queued++
	}
	return queued, nil
}

// Start launches the worker pool and, when a cron expression is configured, the periodic sweep.
func (s *AuditService) Start(ctx context.Context) error {
	s.queue.Start(ctx)
	if s.cfg.Cron == "" {
		return nil
	}
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cfg.Cron, func() {
		queued, err := s.EnqueueAll(ctx)
		if err != nil {
			s.logger.Error("audit sweep failed", zap.Error(err))
			return
		}
		s.logger.Info("audit sweep queued", zap.Int("schedules", queued))
	})
	if err != nil {
		s.queue.Stop()
		return fmt.Errorf("parse audit cron %q: %w", s.cfg.Cron, err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron sweep and drains the workers.
func (s *AuditService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.queue.Stop()
}

// Stats reports queue outcomes.
func (s *AuditService) Stats() jobs.Stats {
	return s.queue.Stats()
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	scheduleID, ok := job.Payload.(string)
	if !ok || scheduleID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "audit job requires a schedule id")
	}
	_, err := s.Run(ctx, scheduleID)
	return err
}
