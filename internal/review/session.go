package review

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/luocen/wrongbook/internal/domain"
)

// Store is the persistence boundary the session writes through. A
// commit fully replaces one note's schedule, so it is idempotent and
// safe to retry or deliver late.
type Store interface {
	// FetchDue returns the user's unmastered notes with due_at <= now,
	// ordered by due_at ascending with a stable tie-break, limited to
	// limit rows.
	FetchDue(ctx context.Context, userID string, now time.Time, limit int) ([]domain.Note, error)

	// CommitSchedule upserts one note's full schedule state.
	CommitSchedule(ctx context.Context, noteID string, stage int, dueAt time.Time, mastered bool) error
}

// State is a session's lifecycle state.
type State int

const (
	// StateEmpty means nothing was due when the session started.
	StateEmpty State = iota
	// StateReady means the session has a current note awaiting review.
	StateReady
	// StateComplete means every note in the batch has been reviewed.
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateReady:
		return "ready"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

var (
	// ErrNotRevealed is returned when an outcome is submitted before
	// the current note's explanation has been revealed.
	ErrNotRevealed = errors.New("explanation not revealed")
	// ErrSessionFinished is returned for reveal or submit calls on an
	// empty or completed session.
	ErrSessionFinished = errors.New("review session finished")
)

const commitTimeout = 10 * time.Second

// Session walks the user through one fixed batch of due notes. The
// batch is snapshotted at start and never re-queried: notes that fall
// due mid-session wait for the next one.
//
// Submit advances the cursor before the schedule write is confirmed
// (optimistic advance). The write runs in its own goroutine against a
// background context; a failure is logged and retried once but never
// rolls the session back.
type Session struct {
	sched *Scheduler
	store Store
	log   *slog.Logger

	mu       sync.Mutex
	batch    []domain.Note
	pos      int
	revealed bool
	state    State

	commits    sync.WaitGroup
	retryDelay time.Duration
}

// StartSession fetches the user's due batch as of now and returns a
// session over it. An empty batch yields a session already in
// StateEmpty, which is a normal outcome, not an error.
func (s *Scheduler) StartSession(ctx context.Context, store Store, log *slog.Logger, userID string, now time.Time) (*Session, error) {
	batch, err := store.FetchDue(ctx, userID, now, s.batchSize)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		sched:      s,
		store:      store,
		log:        log,
		batch:      batch,
		state:      StateReady,
		retryDelay: 500 * time.Millisecond,
	}
	if len(batch) == 0 {
		sess.state = StateEmpty
	}
	return sess, nil
}

// Current returns the note under the cursor. ok is false once the
// session is empty or complete.
func (sess *Session) Current() (note domain.Note, ok bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateReady {
		return domain.Note{}, false
	}
	return sess.batch[sess.pos], true
}

// Reveal marks the current note's explanation as shown. It is
// idempotent and valid only while the session is ready.
func (sess *Session) Reveal() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateReady {
		return ErrSessionFinished
	}
	sess.revealed = true
	return nil
}

// Submit records the user's outcome for the current note, fires the
// schedule write, and advances the cursor. It is rejected without any
// state change if the explanation has not been revealed, if the
// session is finished, or if the outcome is unknown.
func (sess *Session) Submit(outcome Outcome, now time.Time) error {
	sess.mu.Lock()
	if sess.state != StateReady {
		sess.mu.Unlock()
		return ErrSessionFinished
	}
	if !sess.revealed {
		sess.mu.Unlock()
		return ErrNotRevealed
	}

	note := sess.batch[sess.pos]
	next, err := sess.sched.Apply(Schedule{Stage: note.Stage, DueAt: note.DueAt, Mastered: note.Mastered}, outcome, now)
	if err != nil {
		sess.mu.Unlock()
		return err
	}

	sess.pos++
	sess.revealed = false
	if sess.pos == len(sess.batch) {
		sess.state = StateComplete
	}
	sess.mu.Unlock()

	sess.commits.Add(1)
	go sess.commit(note.ID, next)
	return nil
}

// commit writes one note's new schedule with a single bounded retry.
// Each note appears at most once per batch, so writes never race each
// other, and a write that lands after the session ends is a late but
// harmless durability confirmation.
func (sess *Session) commit(noteID string, next Schedule) {
	defer sess.commits.Done()

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	err := sess.store.CommitSchedule(ctx, noteID, next.Stage, next.DueAt, next.Mastered)
	if err == nil {
		return
	}
	sess.log.Warn("schedule commit failed, retrying", "note_id", noteID, "error", err)

	time.Sleep(sess.retryDelay)
	ctx2, cancel2 := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel2()
	if err := sess.store.CommitSchedule(ctx2, noteID, next.Stage, next.DueAt, next.Mastered); err != nil {
		sess.log.Error("schedule commit lost after retry", "note_id", noteID, "error", err)
	}
}

// State reports the session's lifecycle state.
func (sess *Session) State() State {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// Position reports the cursor: how many outcomes have been submitted.
func (sess *Session) Position() int {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.pos
}

// Len reports the batch size snapshotted at session start.
func (sess *Session) Len() int {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.batch)
}

// Revealed reports whether the current note's explanation is shown.
func (sess *Session) Revealed() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.revealed
}

// Wait blocks until all in-flight schedule writes have finished.
// Useful on shutdown; a session never needs it for correctness.
func (sess *Session) Wait() {
	sess.commits.Wait()
}
