package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRequiresTextBackend(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New accepted an empty config")
	}
	if _, err := New(Config{TextBaseURL: "http://localhost"}); err == nil {
		t.Error("New accepted a config without an API key")
	}
}

func TestExplain(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "  the answer  "}},
			},
		})
	}))
	defer srv.Close()

	c, err := New(Config{TextBaseURL: srv.URL, TextAPIKey: "sk-test", TextModel: "deepseek-chat"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	answer, err := c.Explain(context.Background(), "why is the sky blue?")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if answer != "the answer" {
		t.Errorf("answer = %q, want trimmed content", answer)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "deepseek-chat" || len(gotReq.Messages) != 2 {
		t.Errorf("request = %+v", gotReq)
	}
	if gotReq.Messages[1].Content != "why is the sky blue?" {
		t.Errorf("user message = %v", gotReq.Messages[1].Content)
	}
}

func TestExplainBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid api key"},
		})
	}))
	defer srv.Close()

	c, err := New(Config{TextBaseURL: srv.URL, TextAPIKey: "bad", TextModel: "m"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Explain(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("err = %v, want backend message surfaced", err)
	}
}

// Gateways in front of the backend answer with plain-text bodies; the
// status code must surface, not a JSON decode failure.
func TestExplainNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("Bad Gateway"))
	}))
	defer srv.Close()

	c, err := New(Config{TextBaseURL: srv.URL, TextAPIKey: "k", TextModel: "m"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Explain(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Errorf("err = %v, want the 502 status surfaced", err)
	}
}

func TestExplainImage(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "handwriting says 42"}},
			},
		})
	}))
	defer srv.Close()

	c, err := New(Config{
		TextBaseURL: srv.URL, TextAPIKey: "k", TextModel: "m",
		VisionBaseURL: srv.URL, VisionAPIKey: "k", VisionModel: "vl",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	answer, err := c.ExplainImage(context.Background(), "what does this say?", []byte{0xff, 0xd8}, "image/png")
	if err != nil {
		t.Fatalf("ExplainImage: %v", err)
	}
	if answer != "handwriting says 42" {
		t.Errorf("answer = %q", answer)
	}

	messages := gotBody["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("content parts = %d, want text and image", len(content))
	}
	imagePart := content[1].(map[string]any)["image_url"].(map[string]any)
	url := imagePart["url"].(string)
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("image url = %q, want inline data url", url)
	}
}

func TestExplainImageWithoutVisionBackend(t *testing.T) {
	c, err := New(Config{TextBaseURL: "http://localhost", TextAPIKey: "k", TextModel: "m"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.ExplainImage(context.Background(), "q", nil, ""); err == nil {
		t.Error("ExplainImage succeeded without a vision backend")
	}
}
