package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/luocen/wrongbook/internal/domain"
	"github.com/luocen/wrongbook/internal/storage"
)

// noteJSON is the wire shape of a note. Field names match what the
// frontend has always used.
type noteJSON struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	ImageURL     string    `json:"image_url,omitempty"`
	Tags         []string  `json:"tags"`
	CollectionID string    `json:"collection_id,omitempty"`
	ReviewStage  int       `json:"review_stage"`
	NextReviewAt time.Time `json:"next_review_at"`
	IsMastered   bool      `json:"is_mastered"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toNoteJSON(n domain.Note) noteJSON {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return noteJSON{
		ID:           n.ID,
		Question:     n.Question,
		Answer:       n.Answer,
		ImageURL:     n.ImageURL,
		Tags:         tags,
		CollectionID: n.CollectionID,
		ReviewStage:  n.Stage,
		NextReviewAt: n.DueAt,
		IsMastered:   n.Mastered,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

func toNoteListJSON(notes []domain.Note) []noteJSON {
	out := make([]noteJSON, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNoteJSON(n))
	}
	return out
}

type notePayload struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	ImageURL     string   `json:"image_url"`
	Tags         []string `json:"tags"`
	CollectionID string   `json:"collection_id"`
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var payload notePayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		respondError(w, http.StatusBadRequest, "question cannot be empty")
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		serverError(w, "create note", err)
		return
	}

	// New notes enter the ladder at stage 0 and are due immediately.
	now := s.now()
	note := domain.Note{
		ID:           id,
		UserID:       userID(r),
		Question:     payload.Question,
		Answer:       payload.Answer,
		ImageURL:     payload.ImageURL,
		Tags:         payload.Tags,
		CollectionID: payload.CollectionID,
		Stage:        0,
		DueAt:        now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.InsertNote(r.Context(), &note); err != nil {
		serverError(w, "create note", err)
		return
	}
	respondJSON(w, http.StatusCreated, toNoteJSON(note))
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	filter := storage.NoteFilter{
		Search:       r.URL.Query().Get("search"),
		Tag:          r.URL.Query().Get("tag"),
		CollectionID: r.URL.Query().Get("collection"),
	}
	notes, err := s.db.ListNotes(r.Context(), userID(r), filter)
	if err != nil {
		serverError(w, "list notes", err)
		return
	}
	respondJSON(w, http.StatusOK, toNoteListJSON(notes))
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.db.FindNoteByID(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		serverError(w, "get note", err)
		return
	}
	if note == nil {
		respondError(w, http.StatusNotFound, "note not found")
		return
	}
	respondJSON(w, http.StatusOK, toNoteJSON(*note))
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.db.FindNoteByID(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		serverError(w, "update note", err)
		return
	}
	if note == nil {
		respondError(w, http.StatusNotFound, "note not found")
		return
	}

	var payload notePayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		respondError(w, http.StatusBadRequest, "question cannot be empty")
		return
	}

	note.Question = payload.Question
	note.Answer = payload.Answer
	note.ImageURL = payload.ImageURL
	note.Tags = payload.Tags
	note.CollectionID = payload.CollectionID
	note.UpdatedAt = s.now()
	if err := s.db.UpdateNote(r.Context(), note); err != nil {
		serverError(w, "update note", err)
		return
	}
	respondJSON(w, http.StatusOK, toNoteJSON(*note))
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteNote(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		serverError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type collectionJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.db.ListCollections(r.Context(), userID(r))
	if err != nil {
		serverError(w, "list collections", err)
		return
	}
	out := make([]collectionJSON, 0, len(collections))
	for _, c := range collections {
		out = append(out, collectionJSON{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		respondError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		serverError(w, "create collection", err)
		return
	}
	c := domain.Collection{ID: id, UserID: userID(r), Name: payload.Name, CreatedAt: s.now()}
	if err := s.db.InsertCollection(r.Context(), &c); err != nil {
		serverError(w, "create collection", err)
		return
	}
	respondJSON(w, http.StatusCreated, collectionJSON{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt})
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteCollection(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		serverError(w, "delete collection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats(r.Context(), userID(r), s.now())
	if err != nil {
		serverError(w, "stats", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"total":    stats.Total,
		"mastered": stats.Mastered,
		"due_now":  stats.DueNow,
	})
}
