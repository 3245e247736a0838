package generator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimbuscast/dialogserver/internal/control"
)

func TestTavusAvatarStreamEmitsFramesFromResponse(t *testing.T) {
	chunk := AudioChunk{Data: []byte("pcmdata"), TimestampMs: 100, DurationMs: 120}
	wantFrames := FrameCount(chunk.DurationMs)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("expected x-api-key header, got %q", r.Header.Get("x-api-key"))
		}
		var req tavusFrameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.ReplicaID != "replica-1" {
			t.Errorf("expected replica_id replica-1, got %s", req.ReplicaID)
		}

		resp := tavusFrameResponse{}
		for i := 0; i < wantFrames; i++ {
			resp.Frames = append(resp.Frames, tavusFrame{
				DataB64: encodeAudioForTransport([]byte{byte(i)}), Width: 256, Height: 256, ContentType: "raw_rgb",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	avatar := NewTavusAvatar(srv.URL, "secret", "replica-1", 1)

	var frames []VideoFrame
	err := avatar.Stream(t.Context(), chunk, control.DefaultTurnControl(), Context{FrameCounter: 10}, func(f VideoFrame) {
		frames = append(frames, f)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != wantFrames {
		t.Fatalf("expected %d frames, got %d", wantFrames, len(frames))
	}
	for i, f := range frames {
		if f.FrameIndex != 10+i {
			t.Errorf("frame %d: expected frame_index %d, got %d", i, 10+i, f.FrameIndex)
		}
	}
	if frames[len(frames)-1].TimestampMs <= frames[0].TimestampMs {
		t.Error("expected increasing timestamps across frames")
	}
}

func TestTavusAvatarStreamNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	avatar := NewTavusAvatar(srv.URL, "secret", "replica-1", 1)
	err := avatar.Stream(t.Context(), AudioChunk{DurationMs: 100}, control.DefaultTurnControl(), Context{}, func(VideoFrame) {})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
