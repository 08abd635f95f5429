package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/luocen/wrongbook/internal/domain"
)

type sourceJSON struct {
	ID           int64      `json:"id"`
	Path         string     `json:"path"`
	Kind         string     `json:"kind"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

func toSourceJSON(s domain.Source) sourceJSON {
	out := sourceJSON{ID: s.ID, Path: s.Path, Kind: s.Kind}
	if !s.LastSyncedAt.IsZero() {
		t := s.LastSyncedAt
		out.LastSyncedAt = &t
	}
	return out
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.ListSources(r.Context(), userID(r))
	if err != nil {
		serverError(w, "list sources", err)
		return
	}
	out := make([]sourceJSON, 0, len(sources))
	for _, src := range sources {
		out = append(out, toSourceJSON(src))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.Path) == "" {
		respondError(w, http.StatusBadRequest, "path cannot be empty")
		return
	}

	kind := domain.SourceKindLocal
	if strings.HasSuffix(payload.Path, ".git") || strings.HasPrefix(payload.Path, "git@") ||
		strings.HasPrefix(payload.Path, "https://") || strings.HasPrefix(payload.Path, "http://") {
		kind = domain.SourceKindGit
	}

	id, err := s.db.InsertSource(r.Context(), userID(r), payload.Path, kind)
	if err != nil {
		serverError(w, "create source", err)
		return
	}
	respondJSON(w, http.StatusCreated, sourceJSON{ID: id, Path: payload.Path, Kind: kind})
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid source id")
		return
	}
	if err := s.db.DeleteSource(r.Context(), userID(r), id); err != nil {
		serverError(w, "delete source", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSync runs a bulk import of all the user's sources in the
// foreground and reports what it did.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report := s.importer.SyncAll(r.Context(), userID(r))

	errs := make([]string, 0, len(report.Errors))
	for _, e := range report.Errors {
		errs = append(errs, e.Error())
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sources":  report.Sources,
		"parsed":   report.Parsed,
		"inserted": report.Inserted,
		"skipped":  report.Skipped,
		"errors":   errs,
	})
}
