package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// DragSessionConfig bounds drag sessions.
type DragSessionConfig struct {
	TTL               time.Duration
	ValidationTimeout time.Duration
}

type dragEntry struct {
	session *timetable.DragSession
}

// DragSessionService keeps one drag session per (schedule, client) pair. Idle sessions expire
// after the configured TTL.
type DragSessionService struct {
	moves    *MoveService
	sessions *gocache.Cache
	cfg      DragSessionConfig
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewDragSessionService constructs the registry.
func NewDragSessionService(moves *MoveService, logger *zap.Logger, cfg DragSessionConfig) *DragSessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.ValidationTimeout <= 0 {
		cfg.ValidationTimeout = 2 * time.Second
	}
	sessions := gocache.New(cfg.TTL, cfg.TTL/2)
	sessions.OnEvicted(func(key string, value interface{}) {
		if entry, ok := value.(*dragEntry); ok {
			_ = entry.session.Cancel()
		}
	})
	return &DragSessionService{moves: moves, sessions: sessions, cfg: cfg, logger: logger}
}

func dragKey(scheduleID, clientID string) string {
	return scheduleID + "/" + clientID
}

func (s *DragSessionService) lookup(scheduleID, clientID string) (*dragEntry, error) {
	value, ok := s.sessions.Get(dragKey(scheduleID, clientID))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no drag session for client %s", clientID))
	}
	entry := value.(*dragEntry)
	s.sessions.SetDefault(dragKey(scheduleID, clientID), entry)
	return entry, nil
}

func (s *DragSessionService) open(scheduleID, clientID string) *dragEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dragKey(scheduleID, clientID)
	if value, ok := s.sessions.Get(key); ok {
		entry := value.(*dragEntry)
		s.sessions.SetDefault(key, entry)
		return entry
	}

	entry := &dragEntry{}
	logger := s.logger.With(zap.String("schedule_id", scheduleID), zap.String("client_id", clientID))
	entry.session = timetable.NewDragSession(timetable.SessionConfig{
		Validate: func(ctx context.Context, lessonID string, source timetable.Slot) ([]timetable.SlotVerdict, int64, error) {
			return s.moves.StoredVerdicts(ctx, scheduleID, lessonID, source, "", "")
		},
		Commit: func(ctx context.Context, lessonID string, source, target timetable.Slot, room string, version int64) (*timetable.MoveResult, error) {
			// Without accepted verdicts the move is revalidated against the current version.
			if version == 0 {
				stored, err := s.moves.load(ctx, scheduleID)
				if err != nil {
					return nil, err
				}
				version = stored.Version
			}
			return s.moves.Commit(ctx, scheduleID, StoredCommit{
				LessonID:        lessonID,
				Source:          source,
				Target:          target,
				Room:            room,
				ExpectedVersion: version,
			})
		},
		Timeout: s.cfg.ValidationTimeout,
		Logger:  logger,
	})
	s.sessions.SetDefault(key, entry)
	return entry
}

// Start picks a lesson up and waits, at most the validation timeout, for its verdicts. A
// timeout still returns the session; the view then reports no verdicts.
func (s *DragSessionService) Start(ctx context.Context, scheduleID, clientID string, req dto.DragStartRequest) (timetable.SessionView, error) {
	if req.LessonID == "" {
		return timetable.SessionView{}, appErrors.Clone(appErrors.ErrValidation, "lesson_id is required")
	}
	entry := s.open(scheduleID, clientID)
	if _, err := entry.session.Start(req.LessonID, timetable.Slot{Day: req.SourceDay, Period: req.SourcePeriod}); err != nil {
		return timetable.SessionView{}, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ValidationTimeout)
	defer cancel()
	if err := entry.session.Wait(waitCtx); err != nil {
		s.logger.Debug("drag start returned before verdicts", zap.String("client_id", clientID), zap.Error(err))
	}
	return entry.session.View(), nil
}

// Hover reports the verdict for the slot under the pointer.
func (s *DragSessionService) Hover(scheduleID, clientID string, req dto.DragSlotRequest) (*dto.DragStatusResponse, error) {
	slot, err := timetable.NewSlot(req.Day, req.Period)
	if err != nil {
		return nil, err
	}
	entry, err := s.lookup(scheduleID, clientID)
	if err != nil {
		return nil, err
	}
	status := entry.session.PointerOver(slot)
	return &dto.DragStatusResponse{Day: slot.Day, Period: slot.Period, Status: string(status), State: string(entry.session.State())}, nil
}

// Drop selects the target slot.
func (s *DragSessionService) Drop(scheduleID, clientID string, req dto.DragSlotRequest) (*dto.DragStatusResponse, error) {
	entry, err := s.lookup(scheduleID, clientID)
	if err != nil {
		return nil, err
	}
	slot := timetable.Slot{Day: req.Day, Period: req.Period}
	status, err := entry.session.Drop(slot)
	if err != nil {
		return nil, err
	}
	return &dto.DragStatusResponse{Day: slot.Day, Period: slot.Period, Status: string(status), State: string(entry.session.State())}, nil
}

// Confirm commits the dropped move.
func (s *DragSessionService) Confirm(ctx context.Context, scheduleID, clientID string, req dto.DragConfirmRequest) (*dto.MoveLessonResponse, error) {
	entry, err := s.lookup(scheduleID, clientID)
	if err != nil {
		return nil, err
	}
	result, err := entry.session.Confirm(ctx, req.Room)
	if err != nil {
		return nil, err
	}
	resp := dto.NewMoveLessonResponse(result)
	return &resp, nil
}

// Cancel abandons the drag. Unknown sessions are already idle.
func (s *DragSessionService) Cancel(scheduleID, clientID string) error {
	value, ok := s.sessions.Get(dragKey(scheduleID, clientID))
	if !ok {
		return nil
	}
	return value.(*dragEntry).session.Cancel()
}

// View returns the current session snapshot.
func (s *DragSessionService) View(scheduleID, clientID string) (timetable.SessionView, error) {
	entry, err := s.lookup(scheduleID, clientID)
	if err != nil {
		return timetable.SessionView{}, err
	}
	return entry.session.View(), nil
}

// Count returns the number of live sessions.
func (s *DragSessionService) Count() int {
	return s.sessions.ItemCount()
}
