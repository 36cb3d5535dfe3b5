package upload

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/filedrop/internal/intake"
)

var (
	ErrUploadInProgress   = errors.New("upload in progress")
	ErrEmptyBatch         = errors.New("batch is empty")
	ErrBatchHasViolations = errors.New("batch has files with violations")
	ErrFileNotFound       = errors.New("file not in batch")
	ErrSessionClosed      = errors.New("session closed")
)

// FileView is a read-only snapshot of one batch member.
type FileView struct {
	Name       string
	Size       int64
	MimeType   string
	Preview    intake.PreviewHandle
	Violations []intake.Violation
	// Status is one of "pending", "succeeded" or "failed".
	Status string
	Err    string
}

// View is a read-only snapshot of a session.
type View struct {
	Files     []FileView
	Errors    []Outcome
	Successes []string
	InFlight  bool
	IsSuccess bool
}

// Session pairs a batch with its upload state and serializes every change
// to them: files can only be added or removed between cycles.
type Session struct {
	coordinator *Coordinator
	constraints intake.Constraints

	mu     sync.Mutex
	batch  *intake.Batch
	state  State
	closed bool

	// OnChange, when set, is called with a fresh view after every state
	// change. It runs outside the session lock.
	OnChange func(View)
}

func NewSession(c *Coordinator, constraints intake.Constraints, previews intake.Previews) *Session {
	return &Session{
		coordinator: c,
		constraints: constraints,
		batch:       intake.NewBatch(previews),
	}
}

// Add classifies one selection event and appends it to the batch.
// It returns the number of files added.
func (s *Session) Add(files []intake.RawFile) (int, error) {
	s.mu.Lock()
	if err := s.checkIdleLocked(); err != nil {
		s.mu.Unlock()
		return 0, err
	}

	accepted, rejected := s.constraints.Classify(files)
	n := s.batch.AddFiles(accepted, rejected)
	s.reconcileLocked()
	v := s.viewLocked()
	s.mu.Unlock()

	s.notify(v)
	return n, nil
}

// Remove drops the named file from the batch and from the upload state.
func (s *Session) Remove(name string) error {
	s.mu.Lock()
	if err := s.checkIdleLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if !s.batch.Remove(name) {
		s.mu.Unlock()
		return ErrFileNotFound
	}
	s.state = s.state.Forget(name)
	s.reconcileLocked()
	v := s.viewLocked()
	s.mu.Unlock()

	s.notify(v)
	return nil
}

// Reset clears the batch, releasing every preview, and the upload state.
func (s *Session) Reset() error {
	s.mu.Lock()
	if err := s.checkIdleLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.batch.Reset()
	s.state = State{}
	v := s.viewLocked()
	s.mu.Unlock()

	s.notify(v)
	return nil
}

// Upload runs one cycle over the eligible files and folds its result into
// the session. The lock is not held while the cycle runs; concurrent
// mutations are refused with ErrUploadInProgress instead.
func (s *Session) Upload(ctx context.Context) (CycleResult, error) {
	s.mu.Lock()
	if err := s.checkIdleLocked(); err != nil {
		s.mu.Unlock()
		return CycleResult{}, err
	}
	switch {
	case s.batch.Len() == 0:
		s.mu.Unlock()
		return CycleResult{}, ErrEmptyBatch
	case s.batch.HasViolations():
		s.mu.Unlock()
		return CycleResult{}, ErrBatchHasViolations
	}

	files := s.batch.Files()
	prior := s.state
	s.state.InFlight = true
	v := s.viewLocked()
	s.mu.Unlock()
	s.notify(v)

	result := s.coordinator.Upload(ctx, files, prior)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return result, ErrSessionClosed
	}
	s.state = s.state.Apply(result)
	s.state.InFlight = false
	v = s.viewLocked()
	s.mu.Unlock()
	s.notify(v)

	return result, nil
}

// IsSuccess is recomputed from the current batch and state on every call.
func (s *Session) IsSuccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsSuccess(s.batch.Len())
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Close releases every preview held by the session. Later calls fail with
// ErrSessionClosed. A cycle still in flight runs to completion but its
// result is discarded.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.batch.Reset()
	s.state = State{}
	s.mu.Unlock()
}

func (s *Session) checkIdleLocked() error {
	switch {
	case s.closed:
		return ErrSessionClosed
	case s.state.InFlight:
		return ErrUploadInProgress
	}
	return nil
}

func (s *Session) reconcileLocked() {
	limit := s.constraints.MaxFiles
	if limit <= 0 {
		limit = intake.DefaultMaxFiles
	}
	s.batch.ReconcileCountConstraint(limit)

	if s.batch.Len() == 0 {
		s.state.Errors = nil
	}
}

func (s *Session) viewLocked() View {
	files := s.batch.Files()
	v := View{
		Files:     make([]FileView, 0, len(files)),
		Errors:    append([]Outcome(nil), s.state.Errors...),
		Successes: append([]string(nil), s.state.Successes...),
		InFlight:  s.state.InFlight,
		IsSuccess: s.state.IsSuccess(len(files)),
	}

	for _, f := range files {
		fv := FileView{
			Name:       f.Name,
			Size:       f.Size,
			MimeType:   f.MimeType,
			Preview:    f.Preview,
			Violations: append([]intake.Violation(nil), f.Violations...),
			Status:     "pending",
		}
		if msg, ok := s.state.ErrorFor(f.Name); ok {
			fv.Status, fv.Err = "failed", msg
		} else if s.state.Succeeded(f.Name) {
			fv.Status = "succeeded"
		}
		v.Files = append(v.Files, fv)
	}
	return v
}

func (s *Session) notify(v View) {
	if s.OnChange != nil {
		s.OnChange(v)
	}
}
