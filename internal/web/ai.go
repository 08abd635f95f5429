package web

import (
	"io"
	"net/http"
	"strings"
)

const maxImageSize = 10 << 20 // 10 MiB

// handleAsk generates a text explanation for a question.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.explainer == nil {
		respondError(w, http.StatusServiceUnavailable, "explanation backend not configured")
		return
	}

	var payload struct {
		Question string `json:"question"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		respondError(w, http.StatusBadRequest, "question cannot be empty")
		return
	}

	answer, err := s.explainer.Explain(r.Context(), payload.Question)
	if err != nil {
		serverError(w, "ask", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// handleAnalyze generates an explanation for a photographed question.
// Multipart form: "text" carries the user's question, "image" the
// photo.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.explainer == nil {
		respondError(w, http.StatusServiceUnavailable, "explanation backend not configured")
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	text := r.FormValue("text")
	if strings.TrimSpace(text) == "" {
		respondError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		serverError(w, "analyze", err)
		return
	}

	answer, err := s.explainer.ExplainImage(r.Context(), text, image, header.Header.Get("Content-Type"))
	if err != nil {
		serverError(w, "analyze", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
