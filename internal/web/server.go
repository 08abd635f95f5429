// Package web exposes the application as a JSON API for the browser
// frontend.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/luocen/wrongbook/internal/importer"
	"github.com/luocen/wrongbook/internal/review"
	"github.com/luocen/wrongbook/internal/storage"
)

// Explainer generates explanations for captured mistakes. The text it
// returns is opaque payload; the server stores and serves it without
// interpreting it.
type Explainer interface {
	Explain(ctx context.Context, question string) (string, error)
	ExplainImage(ctx context.Context, question string, image []byte, mime string) (string, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	db        *storage.DB
	sched     *review.Scheduler
	explainer Explainer
	importer  *importer.Importer
	router    chi.Router
	now       func() time.Time
}

// NewServer creates and configures a new server. explainer may be nil
// when no AI backend is configured; the AI endpoints then return 503.
func NewServer(db *storage.DB, sched *review.Scheduler, explainer Explainer, imp *importer.Importer, corsOrigin string) *Server {
	s := &Server{
		db:        db,
		sched:     sched,
		explainer: explainer,
		importer:  imp,
		now:       time.Now,
	}
	s.routes(corsOrigin)
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes(corsOrigin string) {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", s.handleCreateNote)
			r.Get("/", s.handleListNotes)
			r.Get("/{id}", s.handleGetNote)
			r.Put("/{id}", s.handleUpdateNote)
			r.Delete("/{id}", s.handleDeleteNote)
		})

		r.Route("/collections", func(r chi.Router) {
			r.Get("/", s.handleListCollections)
			r.Post("/", s.handleCreateCollection)
			r.Delete("/{id}", s.handleDeleteCollection)
		})

		r.Get("/review/queue", s.handleReviewQueue)
		r.Post("/review/{id}", s.handleSubmitReview)

		r.Get("/stats", s.handleStats)

		r.Post("/ask", s.handleAsk)
		r.Post("/analyze", s.handleAnalyze)

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Post("/", s.handleCreateSource)
			r.Delete("/{id}", s.handleDeleteSource)
		})
		r.Post("/sync", s.handleSync)
	})

	s.router = r
}

type contextKey string

const userIDKey contextKey = "user_id"

// requireUser reads the user identity installed by the fronting auth
// layer. Authentication itself happens upstream; an absent header
// means the request never went through it.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func serverError(w http.ResponseWriter, op string, err error) {
	slog.Error("request failed", "op", op, "error", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}
