package loader

import (
	"context"
	"sync"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgerror"
)

// State is the lifecycle position of one ingestion session.
type State string

const (
	StateIdle       State = "IDLE"
	StateUploading  State = "UPLOADING"
	StateProcessing State = "PROCESSING"
	StateComplete   State = "COMPLETE"
	StateError      State = "ERROR"
)

// Update is one observation of a session: state, progress, and on the
// terminal update either the result or the error.
type Update struct {
	State    State
	Progress int
	Result   *Result
	Err      error
}

// Result describes the materialized table a completed session produced.
type Result struct {
	TableID   string
	TableName string
	RowCount  int64
}

// Session owns the lifecycle of ingesting one file. It is created by
// Pipeline.Start and observed through Subscribe; exactly one terminal
// update is delivered, after which observer channels are closed.
//
// Cancel aborts the in-flight network request via the session context
// and returns the session to Idle carrying a cancellation error. A
// session's progress never decreases, and it reads exactly 100 only in
// the Complete state.
type Session struct {
	ID        string
	Filename  string
	SizeBytes int64
	Strategy  entity.Strategy

	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	progress  int
	result    *Result
	err       error
	canceled  bool
	finished  bool
	observers []chan Update
}

func newSession(id, filename string, sizeBytes int64, strategy entity.Strategy, cancel context.CancelFunc) *Session {
	return &Session{
		ID:        id,
		Filename:  filename,
		SizeBytes: sizeBytes,
		Strategy:  strategy,
		cancel:    cancel,
		state:     StateIdle,
	}
}

// Subscribe registers an observer. The channel is closed after the
// terminal update. Subscribing after the session finished yields just
// the terminal update.
func (s *Session) Subscribe() <-chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Update, 64)
	if s.finished {
		ch <- s.snapshotLocked()
		close(ch)
		return ch
	}

	s.observers = append(s.observers, ch)
	return ch
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns the current blended progress value.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Result returns the terminal result, if the session completed.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the terminal error, if the session failed or was canceled.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel requests a user abort. The in-flight request context is
// canceled immediately; the running pipeline observes it and finalizes
// the session. Calling Cancel on a finished session is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.canceled = true
	s.mu.Unlock()

	s.cancel()
}

// Canceled reports whether a user abort was requested.
func (s *Session) Canceled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.state = state
	s.publishLocked()
}

// setProgress raises progress to value; lower observations are clamped
// away so the scalar is non-decreasing within the session.
func (s *Session) setProgress(value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || value <= s.progress {
		return
	}
	if value > processingPhaseCeiling && s.state != StateComplete {
		value = processingPhaseCeiling
	}
	s.progress = value
	s.publishLocked()
}

// complete finalizes a successful session: progress pins to 100 and the
// terminal update carries the result.
func (s *Session) complete(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.state = StateComplete
	s.progress = progressComplete
	s.result = &result
	s.finishLocked()
}

// fail finalizes a failed session with the typed error attached.
func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.state = StateError
	s.err = err
	s.finishLocked()
}

// failCanceled returns the session to Idle with a cancellation error,
// the terminal shape of a user abort.
func (s *Session) failCanceled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.state = StateIdle
	s.err = pkgerror.NewCanceled()
	s.finishLocked()
}

func (s *Session) finishLocked() {
	s.finished = true
	update := s.snapshotLocked()
	for _, ch := range s.observers {
		// The terminal update must land exactly once. If a stalled
		// observer filled its buffer, evict the oldest pending update to
		// make room; senders are serialized under s.mu so the retry
		// cannot race another producer.
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
		close(ch)
	}
	s.observers = nil
}

func (s *Session) publishLocked() {
	update := s.snapshotLocked()
	for _, ch := range s.observers {
		select {
		case ch <- update:
		default:
			// Intermediate updates may be dropped for slow observers;
			// terminal delivery is handled in finishLocked.
		}
	}
}

func (s *Session) snapshotLocked() Update {
	return Update{State: s.state, Progress: s.progress, Result: s.result, Err: s.err}
}
