// Package importer bulk-loads mistakes from markdown notebooks, local
// or git-hosted, into the store. Imports are idempotent: entries are
// deduplicated by content hash, so re-syncing a source only picks up
// what is new.
package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/luocen/wrongbook/internal/domain"
	"github.com/luocen/wrongbook/internal/gitsource"
	"github.com/luocen/wrongbook/internal/storage"
)

// Importer reconciles a user's registered sources with the store.
type Importer struct {
	db       *storage.DB
	reposDir string
	now      func() time.Time
}

// New creates an Importer. reposDir is where git sources are checked
// out.
func New(db *storage.DB, reposDir string) *Importer {
	return &Importer{db: db, reposDir: reposDir, now: time.Now}
}

// Report summarizes one sync run.
type Report struct {
	Sources  int
	Parsed   int
	Inserted int
	Skipped  int // already present, matched by content hash
	Errors   []error
}

// SyncAll imports every source the user has registered. Errors on one
// source are collected and do not stop the others. Notes already in
// the store are never touched or deleted by a sync: a captured mistake
// outlives the file it was imported from.
func (imp *Importer) SyncAll(ctx context.Context, userID string) Report {
	var report Report

	sources, err := imp.db.ListSources(ctx, userID)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("listing sources: %w", err))
		return report
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "kind", source.Kind, "path", source.Path)
		report.Sources++

		dir := source.Path
		if source.Kind == domain.SourceKindGit {
			localPath, err := gitsource.LocalPath(imp.reposDir, source.Path)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("source %d: %w", source.ID, err))
				continue
			}
			if err := gitsource.Sync(source.Path, localPath); err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("source %d: %w", source.ID, err))
				continue
			}
			dir = localPath
		}

		imp.importDir(ctx, userID, dir, &report)

		if err := imp.db.UpdateSourceLastSynced(ctx, source.ID, imp.now()); err != nil {
			slog.Warn("failed to stamp source after sync", "source_id", source.ID, "error", err)
		}
	}

	slog.Info("sync complete",
		"sources", report.Sources,
		"parsed", report.Parsed,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
	)
	return report
}

func (imp *Importer) importDir(ctx context.Context, userID, dir string, report *Report) {
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		drafts, parseErr := ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, draft := range drafts {
			report.Parsed++
			if err := imp.importDraft(ctx, userID, draft, report); err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("importing from %s: %w", path, err))
			}
		}
		return nil
	})
	if walkErr != nil {
		report.Errors = append(report.Errors, fmt.Errorf("walking %s: %w", dir, walkErr))
	}
}

// importDraft inserts one draft unless an identical note already
// exists. New notes start at stage 0, due immediately, so they show up
// in the next review session.
func (imp *Importer) importDraft(ctx context.Context, userID string, draft Draft, report *Report) error {
	hash := ContentHash(draft)

	existing, err := imp.db.FindNoteByContentHash(ctx, userID, hash)
	if err != nil {
		return fmt.Errorf("dedupe check: %w", err)
	}
	if existing != nil {
		report.Skipped++
		return nil
	}

	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("generating note id: %w", err)
	}

	var tags []string
	if draft.Topic != "" {
		tags = append(tags, draft.Topic)
	}

	now := imp.now()
	note := &domain.Note{
		ID:          id,
		UserID:      userID,
		Question:    draft.Question,
		Answer:      draft.Answer,
		Tags:        tags,
		ContentHash: hash,
		Stage:       0,
		DueAt:       now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := imp.db.InsertNote(ctx, note); err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	report.Inserted++
	return nil
}
