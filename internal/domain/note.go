package domain

import "time"

// Note is one captured mistake: the missed question, the explanation
// generated for it, and its position on the review ladder.
type Note struct {
	ID           string
	UserID       string
	Question     string
	Answer       string
	ImageURL     string
	Tags         []string
	CollectionID string
	ContentHash  string
	Stage        int
	DueAt        time.Time
	Mastered     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Collection is a user-named folder of notes.
type Collection struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// ReviewLog records a single review event for a note.
type ReviewLog struct {
	NoteID     string
	UserID     string
	Outcome    string
	OldStage   int
	NewStage   int
	ReviewedAt time.Time
}

// Source kinds.
const (
	SourceKindLocal = "local"
	SourceKindGit   = "git"
)

// Source is an origin notes can be bulk-imported from: a local
// directory of markdown files or a git repository of them.
type Source struct {
	ID           int64
	UserID       string
	Path         string
	Kind         string // SourceKindLocal or SourceKindGit
	LastSyncedAt time.Time
}

// Stats summarizes a user's notebook.
type Stats struct {
	Total    int
	Mastered int
	DueNow   int
}
