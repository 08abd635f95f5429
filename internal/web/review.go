package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/luocen/wrongbook/internal/domain"
	"github.com/luocen/wrongbook/internal/review"
)

// handleReviewQueue returns the due batch for one review session: the
// user's unmastered notes whose due time has passed, most overdue
// first, capped at the configured batch size. The frontend snapshots
// this batch and walks it; it does not re-query mid-session.
func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	due, err := s.db.FetchDue(r.Context(), userID(r), s.now(), s.sched.BatchSize())
	if err != nil {
		serverError(w, "review queue", err)
		return
	}
	respondJSON(w, http.StatusOK, toNoteListJSON(due))
}

type submitReviewPayload struct {
	Outcome string `json:"outcome"`
}

type submitReviewResponse struct {
	ID           string    `json:"id"`
	ReviewStage  int       `json:"review_stage"`
	NextReviewAt time.Time `json:"next_review_at"`
	IsMastered   bool      `json:"is_mastered"`
}

// handleSubmitReview applies one outcome to one note: compute the new
// schedule, persist it as a full-state write, and append the review
// log. The response carries the complete new schedule so the frontend
// can advance optimistically without re-fetching.
func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var payload submitReviewPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	outcome, err := review.ParseOutcome(payload.Outcome)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	note, err := s.db.FindNoteByID(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		serverError(w, "submit review", err)
		return
	}
	if note == nil {
		respondError(w, http.StatusNotFound, "note not found")
		return
	}

	now := s.now()
	next, err := s.sched.Apply(review.Schedule{Stage: note.Stage, DueAt: note.DueAt, Mastered: note.Mastered}, outcome, now)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrNoteMastered):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, review.ErrUnknownOutcome):
			// ParseOutcome already screened the value; this is a bug.
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			serverError(w, "submit review", err)
		}
		return
	}

	if err := s.db.CommitSchedule(r.Context(), note.ID, next.Stage, next.DueAt, next.Mastered); err != nil {
		serverError(w, "submit review", err)
		return
	}
	if err := s.db.InsertReviewLog(r.Context(), &domain.ReviewLog{
		NoteID:     note.ID,
		UserID:     note.UserID,
		Outcome:    string(outcome),
		OldStage:   note.Stage,
		NewStage:   next.Stage,
		ReviewedAt: now,
	}); err != nil {
		// The schedule write already landed; losing one history row is
		// not worth failing the review.
		slog.Warn("failed to append review log", "note_id", note.ID, "error", err)
	}

	respondJSON(w, http.StatusOK, submitReviewResponse{
		ID:           note.ID,
		ReviewStage:  next.Stage,
		NextReviewAt: next.DueAt,
		IsMastered:   next.Mastered,
	})
}
