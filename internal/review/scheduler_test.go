package review

import (
	"errors"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	sched, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sched
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"empty intervals", Config{CutoffHour: 4, BatchSize: 50}},
		{"negative interval", Config{Intervals: []int{1, -1}, CutoffHour: 4, BatchSize: 50}},
		{"bad cutoff hour", Config{Intervals: []int{1}, CutoffHour: 25, BatchSize: 50}},
		{"zero batch size", Config{Intervals: []int{1}, CutoffHour: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Fatal("expected a configuration error")
			}
		})
	}
}

func TestDefaultConfigCopiesIntervals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Intervals[0] = 99
	if DefaultIntervals[0] != 1 {
		t.Fatalf("mutating a config leaked into DefaultIntervals: %v", DefaultIntervals)
	}
}

func TestApplyForgot(t *testing.T) {
	sched := newTestScheduler(t)
	now := time.Date(2024, 5, 20, 22, 15, 0, 0, time.UTC)

	// Forgot resets to stage 0 and schedules for tomorrow at the
	// cutoff, regardless of how high the note had climbed.
	for _, stage := range []int{0, 1, 5, 12} {
		got, err := sched.Apply(Schedule{Stage: stage}, Forgot, now)
		if err != nil {
			t.Fatalf("Apply(stage=%d, forgot): %v", stage, err)
		}
		if got.Stage != 0 {
			t.Errorf("stage %d: new stage = %d, want 0", stage, got.Stage)
		}
		want := time.Date(2024, 5, 21, 4, 0, 0, 0, time.UTC)
		if !got.DueAt.Equal(want) {
			t.Errorf("stage %d: due = %v, want %v", stage, got.DueAt, want)
		}
		if got.Mastered {
			t.Errorf("stage %d: forgot must not master a note", stage)
		}
	}
}

func TestApplyRemembered(t *testing.T) {
	sched := newTestScheduler(t)
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

	// The interval used is the pre-transition stage's entry: that is
	// the spacing the note just earned by being recalled at it.
	for stage := 0; stage <= 9; stage++ {
		got, err := sched.Apply(Schedule{Stage: stage}, Remembered, now)
		if err != nil {
			t.Fatalf("Apply(stage=%d, remembered): %v", stage, err)
		}
		if got.Stage != stage+1 {
			t.Errorf("stage %d: new stage = %d, want %d", stage, got.Stage, stage+1)
		}
		days := sched.Intervals().ForStage(stage)
		want := time.Date(2024, 5, 20+days, 4, 0, 0, 0, time.UTC)
		if !got.DueAt.Equal(want) {
			t.Errorf("stage %d: due = %v, want %v", stage, got.DueAt, want)
		}
	}
}

func TestApplyMasteredIsIdempotent(t *testing.T) {
	sched := newTestScheduler(t)
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

	once, err := sched.Apply(Schedule{Stage: 3}, Mastered, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if once.Stage != 3 {
		t.Errorf("mastered changed the stage: got %d, want 3", once.Stage)
	}
	if !once.Mastered {
		t.Error("mastered flag not set")
	}
	if !once.DueAt.After(now.AddDate(99, 0, 0)) {
		t.Errorf("mastered due time %v is not beyond the horizon", once.DueAt)
	}

	twice, err := sched.Apply(once, Mastered, now)
	if err != nil {
		t.Fatalf("Apply twice: %v", err)
	}
	if twice != once {
		t.Errorf("mastered is not idempotent: %+v vs %+v", twice, once)
	}
}

// Mastery is terminal: only the idempotent mastered outcome is valid
// on a note that already left the ladder.
func TestApplyRejectsReviewOfMasteredNote(t *testing.T) {
	sched := newTestScheduler(t)
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

	cur, err := sched.Apply(Schedule{Stage: 4}, Mastered, now)
	if err != nil {
		t.Fatalf("Apply(mastered): %v", err)
	}

	for _, outcome := range []Outcome{Forgot, Remembered} {
		if _, err := sched.Apply(cur, outcome, now); !errors.Is(err, ErrNoteMastered) {
			t.Errorf("Apply(%s) on a mastered note = %v, want ErrNoteMastered", outcome, err)
		}
	}
}

func TestApplyUnknownOutcome(t *testing.T) {
	sched := newTestScheduler(t)
	_, err := sched.Apply(Schedule{Stage: 1}, Outcome("shrugged"), time.Now())
	if !errors.Is(err, ErrUnknownOutcome) {
		t.Fatalf("got %v, want ErrUnknownOutcome", err)
	}
}

// Scenario: a note at stage 2 answered "remembered" on day D at 10:00
// with cutoff hour 4 lands at stage 3, due D+4 at 04:00.
func TestRememberedEndToEnd(t *testing.T) {
	sched := newTestScheduler(t)
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

	got, err := sched.Apply(Schedule{Stage: 2}, Remembered, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Stage != 3 {
		t.Errorf("stage = %d, want 3", got.Stage)
	}
	want := time.Date(2024, 5, 24, 4, 0, 0, 0, time.UTC)
	if !got.DueAt.Equal(want) {
		t.Errorf("due = %v, want %v", got.DueAt, want)
	}
}

// Scenario: a note at stage 5 answered "forgot" at any time of day D
// lands at stage 0, due D+1 at the cutoff hour.
func TestForgotEndToEnd(t *testing.T) {
	sched := newTestScheduler(t)

	for _, hour := range []int{0, 3, 4, 12, 23} {
		now := time.Date(2024, 5, 20, hour, 31, 0, 0, time.UTC)
		got, err := sched.Apply(Schedule{Stage: 5}, Forgot, now)
		if err != nil {
			t.Fatalf("Apply at %02d:31: %v", hour, err)
		}
		if got.Stage != 0 {
			t.Errorf("at %02d:31: stage = %d, want 0", hour, got.Stage)
		}
		want := time.Date(2024, 5, 21, 4, 0, 0, 0, time.UTC)
		if !got.DueAt.Equal(want) {
			t.Errorf("at %02d:31: due = %v, want %v", hour, got.DueAt, want)
		}
	}
}

func TestParseOutcome(t *testing.T) {
	for _, s := range []string{"forgot", "remembered", "mastered"} {
		if _, err := ParseOutcome(s); err != nil {
			t.Errorf("ParseOutcome(%q): %v", s, err)
		}
	}
	if _, err := ParseOutcome("meh"); !errors.Is(err, ErrUnknownOutcome) {
		t.Errorf("ParseOutcome(\"meh\") = %v, want ErrUnknownOutcome", err)
	}
}
