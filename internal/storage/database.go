package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/luocen/wrongbook/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up
// to date. WAL mode keeps readers (due queries) from blocking behind
// the review session's schedule writes.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// InsertNote inserts a new note. New notes start at stage 0 and are
// due immediately, so they appear in the next review session.
//
// All timestamps are persisted in UTC. sqlite stores them as text and
// compares lexicographically, which only orders correctly within a
// single offset; callers may hand in times in any location.
func (db *DB) InsertNote(ctx context.Context, note *domain.Note) error {
	tags, err := json.Marshal(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags for note %s: %w", note.ID, err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, question, answer, image_url, tags, collection_id, content_hash, stage, due_at, mastered, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		note.ID,
		note.UserID,
		note.Question,
		note.Answer,
		note.ImageURL,
		string(tags),
		nullString(note.CollectionID),
		note.ContentHash,
		note.Stage,
		note.DueAt.UTC(),
		note.Mastered,
		note.CreatedAt.UTC(),
		note.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert note %s: %w", note.ID, err)
	}
	return nil
}

// FindNoteByID retrieves a note owned by the given user. Returns
// (nil, nil) when the note does not exist.
func (db *DB) FindNoteByID(ctx context.Context, userID, id string) (*domain.Note, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes WHERE user_id = ? AND id = ?
	`, userID, id)

	note, err := scanNote(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Note not found
		}
		return nil, fmt.Errorf("failed to find note %s: %w", id, err)
	}
	return note, nil
}

// FindNoteByContentHash looks up a note by its import dedupe hash.
// Returns (nil, nil) when no note matches.
func (db *DB) FindNoteByContentHash(ctx context.Context, userID, hash string) (*domain.Note, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes WHERE user_id = ? AND content_hash = ?
	`, userID, hash)

	note, err := scanNote(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find note by hash %s: %w", hash, err)
	}
	return note, nil
}

// NoteFilter narrows ListNotes. Zero values mean "no filter".
type NoteFilter struct {
	Search       string // substring over question and answer
	Tag          string
	CollectionID string
}

// ListNotes returns the user's notes, newest first, optionally
// filtered.
func (db *DB) ListNotes(ctx context.Context, userID string, filter NoteFilter) ([]domain.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = ?`
	args := []any{userID}

	if filter.Search != "" {
		query += ` AND (question LIKE ? OR answer LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Tag != "" {
		// Tags are stored as a JSON array of strings, so an exact tag
		// match is a quoted substring match.
		tag, err := json.Marshal(filter.Tag)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tag filter: %w", err)
		}
		query += ` AND tags LIKE ?`
		args = append(args, "%"+string(tag)+"%")
	}
	if filter.CollectionID != "" {
		query += ` AND collection_id = ?`
		args = append(args, filter.CollectionID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	return collectNotes(rows)
}

// UpdateNote rewrites a note's content fields. Schedule state is
// untouched; that only moves through CommitSchedule.
func (db *DB) UpdateNote(ctx context.Context, note *domain.Note) error {
	tags, err := json.Marshal(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags for note %s: %w", note.ID, err)
	}
	_, err = db.conn.ExecContext(ctx, `
		UPDATE notes
		SET question = ?, answer = ?, image_url = ?, tags = ?, collection_id = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`,
		note.Question,
		note.Answer,
		note.ImageURL,
		string(tags),
		nullString(note.CollectionID),
		note.UpdatedAt.UTC(),
		note.UserID,
		note.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note %s: %w", note.ID, err)
	}
	return nil
}

// DeleteNote removes a note and its review history.
func (db *DB) DeleteNote(ctx context.Context, userID, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM review_logs WHERE user_id = ? AND note_id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete review logs for note %s: %w", id, err)
	}
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

// FetchDue returns the user's unmastered notes whose due time has
// passed, most overdue first. Equal due times are ordered by id so the
// batch order is deterministic. This is the read half of the review
// store contract.
func (db *DB) FetchDue(ctx context.Context, userID string, now time.Time, limit int) ([]domain.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE user_id = ? AND mastered = 0 AND due_at <= ?
		ORDER BY due_at ASC, id ASC
		LIMIT ?
	`, userID, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due notes: %w", err)
	}
	defer rows.Close()

	return collectNotes(rows)
}

// CommitSchedule fully replaces one note's schedule state. The write
// carries the complete new state rather than a delta, so a duplicated
// or late commit is harmless. This is the write half of the review
// store contract.
func (db *DB) CommitSchedule(ctx context.Context, noteID string, stage int, dueAt time.Time, mastered bool) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE notes
		SET stage = ?, due_at = ?, mastered = ?, updated_at = ?
		WHERE id = ?
	`, stage, dueAt.UTC(), mastered, time.Now().UTC(), noteID)
	if err != nil {
		return fmt.Errorf("failed to commit schedule for note %s: %w", noteID, err)
	}
	return nil
}

// InsertReviewLog appends one review event to the history.
func (db *DB) InsertReviewLog(ctx context.Context, rl *domain.ReviewLog) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO review_logs (note_id, user_id, outcome, old_stage, new_stage, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rl.NoteID, rl.UserID, rl.Outcome, rl.OldStage, rl.NewStage, rl.ReviewedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert review log for note %s: %w", rl.NoteID, err)
	}
	return nil
}

// InsertCollection inserts a new collection.
func (db *DB) InsertCollection(ctx context.Context, c *domain.Collection) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO collections (id, user_id, name, created_at)
		VALUES (?, ?, ?, ?)
	`, c.ID, c.UserID, c.Name, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert collection %s: %w", c.ID, err)
	}
	return nil
}

// ListCollections returns the user's collections, oldest first.
func (db *DB) ListCollections(ctx context.Context, userID string) ([]domain.Collection, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, name, created_at
		FROM collections WHERE user_id = ?
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// DeleteCollection removes a collection. Its notes survive with no
// collection assigned.
func (db *DB) DeleteCollection(ctx context.Context, userID, id string) error {
	if _, err := db.conn.ExecContext(ctx, `
		UPDATE notes SET collection_id = NULL WHERE user_id = ? AND collection_id = ?
	`, userID, id); err != nil {
		return fmt.Errorf("failed to detach notes from collection %s: %w", id, err)
	}
	if _, err := db.conn.ExecContext(ctx, `
		DELETE FROM collections WHERE user_id = ? AND id = ?
	`, userID, id); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", id, err)
	}
	return nil
}

// InsertSource registers a bulk-import origin and returns its ID.
func (db *DB) InsertSource(ctx context.Context, userID, path, kind string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (user_id, path, kind)
		VALUES (?, ?, ?)
	`, userID, path, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// ListSources returns the user's bulk-import origins.
func (db *DB) ListSources(ctx context.Context, userID string) ([]domain.Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, path, kind, last_synced_at
		FROM sources WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var s domain.Source
		var synced sql.NullTime
		if err := rows.Scan(&s.ID, &s.UserID, &s.Path, &s.Kind, &synced); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		if synced.Valid {
			s.LastSyncedAt = synced.Time
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes a bulk-import origin. Notes imported from it
// stay; a captured mistake outlives where it came from.
func (db *DB) DeleteSource(ctx context.Context, userID string, id int64) error {
	if _, err := db.conn.ExecContext(ctx, `
		DELETE FROM sources WHERE user_id = ? AND id = ?
	`, userID, id); err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return nil
}

// UpdateSourceLastSynced stamps a source after a successful import.
func (db *DB) UpdateSourceLastSynced(ctx context.Context, id int64, at time.Time) error {
	if _, err := db.conn.ExecContext(ctx, `
		UPDATE sources SET last_synced_at = ? WHERE id = ?
	`, at.UTC(), id); err != nil {
		return fmt.Errorf("failed to update last synced for source %d: %w", id, err)
	}
	return nil
}

// Stats summarizes the user's notebook as of now.
func (db *DB) Stats(ctx context.Context, userID string, now time.Time) (domain.Stats, error) {
	var s domain.Stats
	row := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(mastered), 0),
			COALESCE(SUM(CASE WHEN mastered = 0 AND due_at <= ? THEN 1 ELSE 0 END), 0)
		FROM notes WHERE user_id = ?
	`, now.UTC(), userID)
	if err := row.Scan(&s.Total, &s.Mastered, &s.DueNow); err != nil {
		return domain.Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return s, nil
}

// DueCountsByUser returns, for every user with at least one due note,
// how many are due as of now. Feeds the daily digest.
func (db *DB) DueCountsByUser(ctx context.Context, now time.Time) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, COUNT(*)
		FROM notes
		WHERE mastered = 0 AND due_at <= ?
		GROUP BY user_id
	`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to count due notes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var userID string
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan due count row: %w", err)
		}
		counts[userID] = n
	}
	return counts, rows.Err()
}

const noteColumns = `id, user_id, question, answer, image_url, tags, collection_id, content_hash, stage, due_at, mastered, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*domain.Note, error) {
	var n domain.Note
	var tags string
	var collectionID sql.NullString
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Question,
		&n.Answer,
		&n.ImageURL,
		&tags,
		&collectionID,
		&n.ContentHash,
		&n.Stage,
		&n.DueAt,
		&n.Mastered,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags for note %s: %w", n.ID, err)
	}
	if collectionID.Valid {
		n.CollectionID = collectionID.String
	}
	return &n, nil
}

func collectNotes(rows *sql.Rows) ([]domain.Note, error) {
	var notes []domain.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, *note)
	}
	return notes, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
