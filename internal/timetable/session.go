package timetable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// SessionState is the drag interaction state.
type SessionState string

const (
	StateIdle           SessionState = "idle"
	StateValidating     SessionState = "validating"
	StateAwaitingTarget SessionState = "awaiting_target"
	StateConfirming     SessionState = "confirming"
	StateCommitting     SessionState = "committing"
)

const (
	eventStart     = "start"
	eventVerdicts  = "verdicts"
	eventDrop      = "drop"
	eventConfirm   = "confirm"
	eventCommitted = "committed"
	eventCancel    = "cancel"
)

// VerdictStatus is what the UI shows while the pointer is over a slot.
type VerdictStatus string

const (
	VerdictValid   VerdictStatus = "valid"
	VerdictInvalid VerdictStatus = "invalid"
	// VerdictUnknown means no verdicts are available, never that the slot is invalid.
	VerdictUnknown VerdictStatus = "unknown"
)

// Validator produces the 30 verdicts for a lesson picked up at source, along with the schedule
// version they were computed against.
type Validator func(ctx context.Context, lessonID string, source Slot) ([]SlotVerdict, int64, error)

// Committer executes the final move. version is the schedule version of the accepted verdicts,
// or zero when the round delivered none.
type Committer func(ctx context.Context, lessonID string, source, target Slot, room string, version int64) (*MoveResult, error)

// SessionConfig wires a drag session.
type SessionConfig struct {
	Validate Validator
	Commit   Committer
	// Timeout bounds a single validation round. Zero means no timeout.
	Timeout time.Duration
	Logger  *zap.Logger
}

// SessionView is a point-in-time copy of the session.
type SessionView struct {
	SessionID uint64        `json:"session_id"`
	State     SessionState  `json:"state"`
	LessonID  string        `json:"lesson_id,omitempty"`
	Source    *Slot         `json:"source,omitempty"`
	Target    *Slot         `json:"target,omitempty"`
	Available bool          `json:"verdicts_available"`
	Version   int64         `json:"schedule_version,omitempty"`
	Verdicts  []SlotVerdict `json:"verdicts,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// DragSession tracks one client's drag-and-drop interaction. Every Start opens a new session
// ID; validation results tagged with any older ID are dropped.
type DragSession struct {
	mu      sync.Mutex
	machine *fsm.FSM

	validate Validator
	commit   Committer
	timeout  time.Duration
	logger   *zap.Logger

	seq       uint64
	active    uint64
	lessonID  string
	source    Slot
	target    *Slot
	verdicts  map[Slot]SlotVerdict
	version   int64
	lastErr   string
	stop      context.CancelFunc
	done      chan struct{}
	discarded int
}

// NewDragSession builds an idle session.
func NewDragSession(cfg SessionConfig) *DragSession {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &DragSession{
		validate: cfg.Validate,
		commit:   cfg.Commit,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
	active := []string{string(StateValidating), string(StateAwaitingTarget), string(StateConfirming)}
	s.machine = fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: eventStart, Src: []string{string(StateIdle), string(StateAwaitingTarget), string(StateConfirming)}, Dst: string(StateValidating)},
			{Name: eventVerdicts, Src: []string{string(StateValidating)}, Dst: string(StateAwaitingTarget)},
			{Name: eventDrop, Src: []string{string(StateAwaitingTarget)}, Dst: string(StateConfirming)},
			{Name: eventConfirm, Src: []string{string(StateConfirming)}, Dst: string(StateCommitting)},
			{Name: eventCommitted, Src: []string{string(StateCommitting)}, Dst: string(StateIdle)},
			{Name: eventCancel, Src: active, Dst: string(StateIdle)},
		},
		fsm.Callbacks{
			"enter_" + string(StateIdle): s.onEnterIdle,
		},
	)
	return s
}

func (s *DragSession) onEnterIdle(_ context.Context, _ *fsm.Event) {
	s.lessonID = ""
	s.source = Slot{}
	s.target = nil
	s.verdicts = nil
	s.version = 0
	s.active = 0
}

// State returns the current state.
func (s *DragSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *DragSession) state() SessionState {
	return SessionState(s.machine.Current())
}

func (s *DragSession) fire(event string) error {
	if err := s.machine.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return nil
		}
		return appErrors.Clone(appErrors.ErrSessionState, fmt.Sprintf("cannot %s while %s", event, s.machine.Current()))
	}
	return nil
}

// Start picks up lessonID at source and launches an asynchronous validation round. Any
// validation still in flight is abandoned. Start is rejected while a commit is running.
func (s *DragSession) Start(lessonID string, source Slot) (uint64, error) {
	if err := source.Validate(); err != nil {
		return 0, err
	}
	if s.validate == nil {
		return 0, appErrors.Clone(appErrors.ErrInternal, "drag session has no validator")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state() == StateValidating {
		s.abandonLocked()
		if err := s.fire(eventCancel); err != nil {
			return 0, err
		}
	}
	if err := s.fire(eventStart); err != nil {
		return 0, err
	}

	s.seq++
	id := s.seq
	s.active = id
	s.lessonID = lessonID
	s.source = source
	s.target = nil
	s.verdicts = nil
	s.version = 0
	s.lastErr = ""

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	s.stop = cancel
	s.done = make(chan struct{})

	go s.run(ctx, id, lessonID, source)
	return id, nil
}

func (s *DragSession) run(ctx context.Context, id uint64, lessonID string, source Slot) {
	verdicts, version, err := s.validate(ctx, lessonID, source)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	s.deliver(id, verdicts, version, err)
}

// deliver applies a validation response, verdicts and version together, only if it still
// belongs to the active session.
func (s *DragSession) deliver(id uint64, verdicts []SlotVerdict, version int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != s.active || s.state() != StateValidating {
		s.discarded++
		s.logger.Debug("discarding stale validation response", zap.Uint64("session_id", id), zap.Uint64("active_session_id", s.active))
		return
	}
	if err != nil {
		s.lastErr = err.Error()
		s.logger.Warn("validation round produced no verdicts", zap.Uint64("session_id", id), zap.Error(err))
	} else {
		s.verdicts = make(map[Slot]SlotVerdict, len(verdicts))
		for _, v := range verdicts {
			s.verdicts[v.Slot] = v
		}
		s.version = version
	}
	s.releaseLocked()
	_ = s.fire(eventVerdicts)
}

// CancelValidation abandons the in-flight validation round. The session moves on to
// awaiting_target without verdicts.
func (s *DragSession) CancelValidation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state() != StateValidating {
		return appErrors.Clone(appErrors.ErrSessionState, fmt.Sprintf("no validation in flight (state %s)", s.state()))
	}
	s.abandonLocked()
	s.lastErr = context.Canceled.Error()
	return s.fire(eventVerdicts)
}

// Cancel aborts the drag and returns to idle.
func (s *DragSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state() {
	case StateIdle:
		return nil
	case StateCommitting:
		return appErrors.Clone(appErrors.ErrSessionState, "cannot cancel while committing")
	}
	s.abandonLocked()
	return s.fire(eventCancel)
}

// abandonLocked stops the running validation and invalidates its session ID.
func (s *DragSession) abandonLocked() {
	s.active = 0
	s.releaseLocked()
}

func (s *DragSession) releaseLocked() {
	if s.stop != nil {
		s.stop()
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	s.stop = nil
}

// Wait blocks until the current validation round settles or ctx ends.
func (s *DragSession) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PointerOver reports the verdict for the hovered slot.
func (s *DragSession) PointerOver(slot Slot) VerdictStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(slot)
}

func (s *DragSession) statusLocked(slot Slot) VerdictStatus {
	state := s.state()
	if (state != StateAwaitingTarget && state != StateConfirming) || s.verdicts == nil {
		return VerdictUnknown
	}
	v, ok := s.verdicts[slot]
	if !ok {
		return VerdictUnknown
	}
	if v.Valid {
		return VerdictValid
	}
	return VerdictInvalid
}

// Drop selects target. Slots known to be invalid are refused; unknown slots are accepted
// because Confirm revalidates.
func (s *DragSession) Drop(target Slot) (VerdictStatus, error) {
	if err := target.Validate(); err != nil {
		return VerdictUnknown, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state() != StateAwaitingTarget {
		return VerdictUnknown, appErrors.Clone(appErrors.ErrSessionState, fmt.Sprintf("cannot drop while %s", s.state()))
	}
	status := s.statusLocked(target)
	if status == VerdictInvalid {
		v := s.verdicts[target]
		msg := fmt.Sprintf("%s is not a valid target", target)
		if len(v.Conflicts) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, v.Conflicts[0].Message)
		}
		return status, appErrors.Clone(appErrors.ErrConflict, msg)
	}
	if err := s.fire(eventDrop); err != nil {
		return status, err
	}
	t := target
	s.target = &t
	return status, nil
}

// Confirm commits the dropped move with the chosen room. The session returns to idle whatever
// the outcome.
func (s *DragSession) Confirm(ctx context.Context, room string) (*MoveResult, error) {
	s.mu.Lock()
	if s.state() != StateConfirming || s.target == nil {
		state := s.state()
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrSessionState, fmt.Sprintf("cannot confirm while %s", state))
	}
	if s.commit == nil {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrInternal, "drag session has no committer")
	}
	if err := s.fire(eventConfirm); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	lessonID, source, target, version := s.lessonID, s.source, *s.target, s.version
	s.mu.Unlock()

	result, err := s.commit(ctx, lessonID, source, target, room, version)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err.Error()
	}
	if ferr := s.fire(eventCommitted); ferr != nil {
		s.logger.Error("drag session failed to leave committing", zap.Error(ferr))
	}
	return result, err
}

// Discarded counts validation responses dropped as stale.
func (s *DragSession) Discarded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded
}

// View returns a snapshot of the session for transport.
func (s *DragSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{SessionID: s.seq, State: s.state(), LessonID: s.lessonID, Version: s.version, Error: s.lastErr}
	if view.State != StateIdle {
		src := s.source
		view.Source = &src
	}
	if s.target != nil {
		t := *s.target
		view.Target = &t
	}
	if s.verdicts != nil {
		view.Available = true
		view.Verdicts = make([]SlotVerdict, 0, len(s.verdicts))
		for _, slot := range Grid() {
			if v, ok := s.verdicts[slot]; ok {
				view.Verdicts = append(view.Verdicts, v)
			}
		}
	}
	return view
}
