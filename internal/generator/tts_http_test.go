package generator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimbuscast/dialogserver/internal/control"
)

func TestElevenLabsTTSStreamChunksResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("expected xi-api-key header, got %q", r.Header.Get("xi-api-key"))
		}
		var body elevenLabsTTSRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if body.Text == "" {
			t.Error("expected non-empty text in request body")
		}
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 8192)) // two chunks at chunkBytes=4096
	}))
	defer srv.Close()

	tts := NewElevenLabsTTS(srv.URL, "test-key", "voice-1", "model-1", 2)

	var chunks []AudioChunk
	err := tts.Stream(t.Context(), "hello there", control.DefaultTurnControl(), Context{}, func(c AudioChunk) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].TimestampMs != 0 {
		t.Errorf("expected first chunk to start at ts 0, got %.2f", chunks[0].TimestampMs)
	}
	if chunks[1].TimestampMs != chunks[0].DurationMs {
		t.Errorf("expected second chunk ts to follow first chunk duration, got %.2f vs %.2f", chunks[1].TimestampMs, chunks[0].DurationMs)
	}
	for _, c := range chunks {
		if c.Encoding != "mp3" {
			t.Errorf("expected mp3 encoding, got %s", c.Encoding)
		}
	}
}

func TestElevenLabsTTSStreamNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tts := NewElevenLabsTTS(srv.URL, "bad-key", "voice-1", "model-1", 1)
	err := tts.Stream(t.Context(), "hello", control.DefaultTurnControl(), Context{}, func(AudioChunk) {})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected status code in error, got: %v", err)
	}
}

func TestElevenLabsTTSHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tts := NewElevenLabsTTS(srv.URL, "test-key", "voice-1", "model-1", 1)
	h := tts.Health(t.Context())
	if !h.Healthy {
		t.Error("expected healthy status")
	}
}
