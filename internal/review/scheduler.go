// Package review implements the spaced-repetition scheduler: the
// interval ladder, the outcome transition rules, the day-boundary
// cutoff, and the in-memory review session.
package review

import (
	"errors"
	"fmt"
	"time"
)

// masteredHorizonYears pushes a mastered note's due time far enough
// out that it never becomes due again under realistic operation. The
// mastered flag is the real exclusion; the horizon only keeps the
// stored due time sensible.
const masteredHorizonYears = 100

// DefaultBatchSize caps how many due notes one session loads.
const DefaultBatchSize = 50

// DefaultCutoffHour is the local clock hour due times normalize to.
const DefaultCutoffHour = 4

var (
	// ErrUnknownOutcome is returned for an outcome value outside the
	// three the ladder defines.
	ErrUnknownOutcome = errors.New("unknown review outcome")

	// ErrNoteMastered is returned when forgot or remembered is applied
	// to a note that has already left the ladder.
	ErrNoteMastered = errors.New("note is already mastered")
)

// Schedule is a note's position on the review ladder.
type Schedule struct {
	Stage    int
	DueAt    time.Time
	Mastered bool
}

// Config holds the scheduler's tunables.
type Config struct {
	Intervals  []int
	CutoffHour int
	Location   *time.Location
	BatchSize  int
}

// DefaultConfig returns the scheduler configuration the product ships
// with. The interval slice is a fresh copy, so callers may tweak it
// without touching DefaultIntervals.
func DefaultConfig() Config {
	intervals := make([]int, len(DefaultIntervals))
	copy(intervals, DefaultIntervals)
	return Config{
		Intervals:  intervals,
		CutoffHour: DefaultCutoffHour,
		BatchSize:  DefaultBatchSize,
	}
}

// Scheduler applies review outcomes to note schedules.
type Scheduler struct {
	table     IntervalTable
	cutoff    Cutoff
	batchSize int
}

// New validates cfg and builds a Scheduler. Configuration errors are
// fatal at startup: a scheduler with an empty interval table or an
// invalid cutoff cannot produce valid schedules.
func New(cfg Config) (*Scheduler, error) {
	table, err := NewIntervalTable(cfg.Intervals)
	if err != nil {
		return nil, fmt.Errorf("invalid intervals: %w", err)
	}
	cutoff, err := NewCutoff(cfg.CutoffHour, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid cutoff: %w", err)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	return &Scheduler{table: table, cutoff: cutoff, batchSize: cfg.BatchSize}, nil
}

// Apply computes the schedule a note moves to when the user submits
// outcome at instant now.
//
//   - Forgot resets the stage to 0 and schedules for tomorrow: a
//     failed recall invalidates all prior spacing credit.
//   - Remembered advances one stage and schedules using the interval
//     the note just earned, i.e. the pre-transition stage's entry.
//   - Mastered leaves the stage untouched, sets the mastered flag, and
//     parks the due time beyond the horizon. Applying it again is a
//     no-op, so the operation is idempotent.
//
// Mastery is a terminal exit from the ladder: forgot and remembered on
// a mastered note return ErrNoteMastered instead of silently
// re-entering it.
//
// Every non-mastered due time is normalized to the cutoff hour before
// it leaves this function.
func (s *Scheduler) Apply(cur Schedule, outcome Outcome, now time.Time) (Schedule, error) {
	if cur.Mastered && outcome != Mastered {
		return Schedule{}, ErrNoteMastered
	}
	switch outcome {
	case Forgot:
		return Schedule{
			Stage: 0,
			DueAt: s.cutoff.Normalize(now.AddDate(0, 0, 1)),
		}, nil
	case Remembered:
		days := s.table.ForStage(cur.Stage)
		return Schedule{
			Stage: cur.Stage + 1,
			DueAt: s.cutoff.Normalize(now.AddDate(0, 0, days)),
		}, nil
	case Mastered:
		return Schedule{
			Stage:    cur.Stage,
			DueAt:    s.cutoff.Normalize(now.AddDate(masteredHorizonYears, 0, 0)),
			Mastered: true,
		}, nil
	}
	return Schedule{}, fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
}

// BatchSize reports the maximum due batch one session loads.
func (s *Scheduler) BatchSize() int { return s.batchSize }

// Cutoff exposes the day-boundary rule for collaborators that need to
// reason about review days, such as the daily digest.
func (s *Scheduler) Cutoff() Cutoff { return s.cutoff }

// Intervals exposes the interval table.
func (s *Scheduler) Intervals() IntervalTable { return s.table }
