package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luocen/wrongbook/internal/domain"
	"github.com/luocen/wrongbook/internal/storage"
)

func setupImportTest(t *testing.T) (*Importer, *storage.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "wrongbook.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	notebook := filepath.Join(dir, "notebook")
	if err := os.MkdirAll(notebook, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	return New(db, filepath.Join(dir, "repos")), db, notebook
}

func writeNotebook(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestSyncAllImportsLocalNotebook(t *testing.T) {
	imp, db, notebook := setupImportTest(t)
	ctx := context.Background()

	writeNotebook(t, notebook, "mistakes.md", `
Q: Why did the deferred close leak?
A: The file was opened inside the loop.
T: Resource handling
---
Q: Why is the JSON field missing?
A: The struct field was unexported.
`)
	writeNotebook(t, notebook, "notes.txt", "Q: not markdown, ignored\nA: yes")

	if _, err := db.InsertSource(ctx, "alice", notebook, domain.SourceKindLocal); err != nil {
		t.Fatalf("InsertSource: %v", err)
	}

	report := imp.SyncAll(ctx, "alice")
	if len(report.Errors) != 0 {
		t.Fatalf("sync errors: %v", report.Errors)
	}
	if report.Parsed != 2 || report.Inserted != 2 || report.Skipped != 0 {
		t.Fatalf("report = %+v, want 2 parsed, 2 inserted", report)
	}

	notes, err := db.ListNotes(ctx, "alice", storage.NoteFilter{})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("got %d notes, want 2", len(notes))
	}
	for _, n := range notes {
		if n.Stage != 0 || n.Mastered {
			t.Errorf("imported note %s not at the bottom of the ladder: %+v", n.ID, n)
		}
		if n.DueAt.After(time.Now()) {
			t.Errorf("imported note %s not due immediately: %v", n.ID, n.DueAt)
		}
		if n.ContentHash == "" {
			t.Errorf("imported note %s has no content hash", n.ID)
		}
	}

	tagged, err := db.ListNotes(ctx, "alice", storage.NoteFilter{Tag: "Resource handling"})
	if err != nil {
		t.Fatalf("ListNotes by tag: %v", err)
	}
	if len(tagged) != 1 {
		t.Errorf("topic did not become a tag: %+v", tagged)
	}

	sources, err := db.ListSources(ctx, "alice")
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if sources[0].LastSyncedAt.IsZero() {
		t.Error("source not stamped after sync")
	}
}

func TestSyncAllIsIdempotent(t *testing.T) {
	imp, db, notebook := setupImportTest(t)
	ctx := context.Background()

	writeNotebook(t, notebook, "mistakes.md", "Q: One mistake\nA: One explanation")
	if _, err := db.InsertSource(ctx, "alice", notebook, domain.SourceKindLocal); err != nil {
		t.Fatalf("InsertSource: %v", err)
	}

	first := imp.SyncAll(ctx, "alice")
	if first.Inserted != 1 {
		t.Fatalf("first run inserted %d, want 1", first.Inserted)
	}

	second := imp.SyncAll(ctx, "alice")
	if second.Inserted != 0 || second.Skipped != 1 {
		t.Fatalf("second run = %+v, want 0 inserted 1 skipped", second)
	}
}

// A re-sync never deletes notes, even when the entry disappears from
// its source file.
func TestSyncDoesNotDeleteRemovedEntries(t *testing.T) {
	imp, db, notebook := setupImportTest(t)
	ctx := context.Background()

	writeNotebook(t, notebook, "mistakes.md", "Q: Keep me\nA: around")
	if _, err := db.InsertSource(ctx, "alice", notebook, domain.SourceKindLocal); err != nil {
		t.Fatalf("InsertSource: %v", err)
	}
	imp.SyncAll(ctx, "alice")

	writeNotebook(t, notebook, "mistakes.md", "Q: A different mistake\nA: entirely")
	imp.SyncAll(ctx, "alice")

	notes, err := db.ListNotes(ctx, "alice", storage.NoteFilter{})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("got %d notes, want both the old and the new one", len(notes))
	}
}
