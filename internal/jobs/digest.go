// Package jobs runs the application's background schedules.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/luocen/wrongbook/internal/review"
	"github.com/luocen/wrongbook/internal/storage"
)

// Digest logs each user's due count once per review day, at the same
// cutoff hour the scheduler normalizes due times to. It is the hook
// point for future reminder notifications.
type Digest struct {
	scheduler *gocron.Scheduler
	db        *storage.DB
	cutoff    review.Cutoff

	lastRun time.Time
}

// NewDigest creates the digest job.
func NewDigest(db *storage.DB, cutoff review.Cutoff) *Digest {
	return &Digest{
		scheduler: gocron.NewScheduler(time.UTC),
		db:        db,
		cutoff:    cutoff,
	}
}

// Start schedules the hourly check and returns immediately.
func (d *Digest) Start() {
	d.scheduler.Every(1).Hour().Do(d.tick)
	d.scheduler.StartAsync()
}

// Stop terminates the schedule.
func (d *Digest) Stop() {
	d.scheduler.Stop()
}

// tick fires the digest when the current hour matches the cutoff hour
// and it has not already run this review day.
func (d *Digest) tick() {
	now := time.Now()
	if d.cutoff.Normalize(now).Add(time.Hour).Before(now) || now.Before(d.cutoff.Normalize(now)) {
		return
	}
	if !d.lastRun.IsZero() && d.cutoff.Normalize(d.lastRun).Equal(d.cutoff.Normalize(now)) {
		return
	}
	d.lastRun = now
	d.Run(now)
}

// Run emits the digest for the review day containing now.
func (d *Digest) Run(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counts, err := d.db.DueCountsByUser(ctx, now)
	if err != nil {
		slog.Error("due digest failed", "error", err)
		return
	}
	if len(counts) == 0 {
		slog.Info("due digest: nothing due for anyone")
		return
	}
	for userID, n := range counts {
		slog.Info("due digest", "user_id", userID, "due", n)
	}
}
