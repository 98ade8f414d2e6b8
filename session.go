package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type Stage int

const (
	StageIdle Stage = iota
	StageListed
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageListed:
		return "listed"
	case StageCompleted:
		return "completed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var ErrInvalidState = errors.New("invalid state")

// InvalidStateError is returned when a transition is requested from a stage
// that does not allow it, or while another transition is still running.
type InvalidStateError struct {
	Op      string
	Stage   Stage
	Pending string
}

func (e *InvalidStateError) Error() string {
	if e.Pending != "" {
		return fmt.Sprintf("%s: %s in progress", e.Op, e.Pending)
	}
	return fmt.Sprintf("%s: not allowed in stage %s", e.Op, e.Stage)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// Saver delivers the extracted artifact to the host environment.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) error
}

type SaverFunc func(ctx context.Context, name string, data []byte) error

func (f SaverFunc) Save(ctx context.Context, name string, data []byte) error {
	return f(ctx, name, data)
}

// sessionState is replaced as a whole on every transition.
type sessionState struct {
	stage   Stage
	name    string
	entries []ArchiveEntry
	source  []byte
}

type Session struct {
	mu      sync.Mutex
	state   sessionState
	pending string
	log     *slog.Logger
	list    func(context.Context, []byte) ([]ArchiveEntry, error)
}

func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{log: logger, list: ListArchive}
}

// begin marks op as running. The caller must call finish.
func (s *Session) begin(op string, allowed ...Stage) (sessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != "" {
		err := &InvalidStateError{Op: op, Stage: s.state.stage, Pending: s.pending}
		s.log.Error("rejected transition", "op", op, "pending", s.pending)
		return sessionState{}, err
	}
	for _, st := range allowed {
		if s.state.stage == st {
			s.pending = op
			return s.state, nil
		}
	}
	err := &InvalidStateError{Op: op, Stage: s.state.stage}
	s.log.Error("rejected transition", "op", op, "stage", s.state.stage)
	return sessionState{}, err
}

func (s *Session) finish(next *sessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next != nil {
		s.log.Debug("transition", "op", s.pending, "from", s.state.stage, "to", next.stage)
		s.state = *next
	}
	s.pending = ""
}

// SelectFile lists data and moves to Listed. It is allowed from Idle and
// Completed; on failure the session is left Idle.
func (s *Session) SelectFile(ctx context.Context, name string, data []byte) error {
	if _, err := s.begin("select", StageIdle, StageCompleted); err != nil {
		return err
	}
	entries, err := s.list(ctx, data)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.log.Info("select failed", "name", name, "size", len(data), "error", err)
		s.finish(&sessionState{stage: StageIdle})
		return err
	}
	s.log.Info("listed", "name", name, "size", len(data), "entries", len(entries))
	s.finish(&sessionState{stage: StageListed, name: name, entries: entries, source: data})
	return nil
}

// Cancel drops the listed archive and returns to Idle.
func (s *Session) Cancel() error {
	if _, err := s.begin("cancel", StageListed); err != nil {
		return err
	}
	s.finish(&sessionState{stage: StageIdle})
	return nil
}

// ConfirmExtract hands the original bytes to saver unchanged. The session
// moves to Completed only when the save succeeds.
func (s *Session) ConfirmExtract(ctx context.Context, saver Saver) error {
	cur, err := s.begin("extract", StageListed)
	if err != nil {
		return err
	}
	if err = saver.Save(ctx, cur.name, cur.source); err != nil {
		s.log.Warn("save failed", "name", cur.name, "size", len(cur.source), "error", err)
		s.finish(nil)
		return fmt.Errorf("save %s: %w", cur.name, err)
	}
	s.log.Info("saved", "name", cur.name, "size", len(cur.source))
	s.finish(&sessionState{stage: StageCompleted})
	return nil
}

func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.stage
}

// Snapshot returns what the presentation layer needs for the current stage.
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newSessionView(s.state, s.pending)
}
