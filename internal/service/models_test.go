package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ayase/picvault/internal/config"
)

func TestTaggerService(t *testing.T) {
	var gotReq taggerRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tag" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request failed: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(taggerResponse{
			Rating:        "sensitive",
			GeneralTags:   []string{"outdoors", "sky"},
			CharacterTags: []string{"hatsune_miku"},
		})
	}))
	defer server.Close()

	svc := NewTaggerService(&config.TaggerConfig{
		BaseURL: server.URL,
		APIKey:  "sekrit",
		Model:   "wd-v1-4",
	})

	result, err := svc.Tag(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("Tag failed: %v", err)
	}
	if gotReq.Model != "wd-v1-4" {
		t.Errorf("request model = %q, want wd-v1-4", gotReq.Model)
	}
	decoded, _ := base64.StdEncoding.DecodeString(gotReq.Image)
	if string(decoded) != "fake-image" {
		t.Errorf("request image did not round-trip, got %q", decoded)
	}
	if result.Rating != "sensitive" {
		t.Errorf("rating = %q, want sensitive", result.Rating)
	}
	if len(result.GeneralTags) != 2 || len(result.CharacterTags) != 1 {
		t.Errorf("unexpected tag result: %+v", result)
	}
}

func TestTaggerServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"detail": "cannot decode image"})
	}))
	defer server.Close()

	svc := NewTaggerService(&config.TaggerConfig{BaseURL: server.URL, Model: "wd-v1-4"})
	_, err := svc.Tag(context.Background(), []byte("junk"))
	if err == nil {
		t.Fatal("expected error from failing server")
	}
	if !strings.Contains(err.Error(), "cannot decode image") {
		t.Errorf("error should carry server detail, got %v", err)
	}
}

func TestEmbedderService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3, 0.4}})
	}))
	defer server.Close()

	svc := NewEmbedderService(&config.EmbedderConfig{
		BaseURL:    server.URL,
		Model:      "clip-vit",
		Dimensions: 4,
	})

	vec, err := svc.EmbedImage(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("EmbedImage failed: %v", err)
	}
	if len(vec) != 4 || vec[1] != 0.2 {
		t.Errorf("unexpected embedding %v", vec)
	}
}

func TestEmbedderServiceDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2}})
	}))
	defer server.Close()

	svc := NewEmbedderService(&config.EmbedderConfig{
		BaseURL:    server.URL,
		Model:      "clip-vit",
		Dimensions: 768,
	})
	if _, err := svc.EmbedImage(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error on dimension mismatch")
	}
}

func TestScorerService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scoreResponse{Score: 6.85})
	}))
	defer server.Close()

	svc := NewScorerService(&config.ScorerConfig{
		Enabled: true,
		BaseURL: server.URL,
		Model:   "aesthetic-v2",
	})
	if !svc.IsEnabled() {
		t.Error("scorer should report enabled")
	}

	score, err := svc.ScoreImage(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("ScoreImage failed: %v", err)
	}
	if score != 6.85 {
		t.Errorf("score = %v, want 6.85", score)
	}
}

func TestCaptionerServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"image too large"}}`))
	}))
	defer server.Close()

	svc := NewCaptionerService(&config.CaptionConfig{
		Enabled: true,
		BaseURL: server.URL,
		APIKey:  "sekrit",
		Model:   "qwen-vl",
	})
	_, err := svc.Caption(context.Background(), []byte("junk"))
	if err == nil {
		t.Fatal("expected error from failing server")
	}
	if !strings.Contains(err.Error(), "image too large") {
		t.Errorf("error should carry server message, got %v", err)
	}
}

func TestCaptionerService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request failed: %v", err)
		}
		if len(req.Messages) == 0 || len(req.Messages[0].Content) < 2 {
			t.Errorf("caption request missing prompt or image: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"A mountain lake at sunset."}}]}`))
	}))
	defer server.Close()

	svc := NewCaptionerService(&config.CaptionConfig{
		Enabled: true,
		BaseURL: server.URL,
		APIKey:  "sekrit",
		Model:   "qwen-vl",
	})
	if !svc.IsEnabled() {
		t.Fatal("captioner should report enabled")
	}

	caption, err := svc.Caption(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("Caption failed: %v", err)
	}
	if caption != "A mountain lake at sunset." {
		t.Errorf("caption = %q", caption)
	}
}
