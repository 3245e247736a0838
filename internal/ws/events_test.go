package ws

import (
	"encoding/base64"
	"testing"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/generator"
	"github.com/nimbuscast/dialogserver/internal/orchestrator"
)

func TestToOutboundEventAudioChunk(t *testing.T) {
	ev := orchestrator.Event{
		Kind: orchestrator.EventAudioChunk,
		Audio: generator.AudioChunk{
			Data: []byte("hello"), TimestampMs: 10, DurationMs: 250, SampleRate: 24000, Encoding: "mp3",
		},
	}
	wire := toOutboundEvent(ev)

	if wire.Type != "audio_chunk" {
		t.Errorf("expected type audio_chunk, got %s", wire.Type)
	}
	want := base64.StdEncoding.EncodeToString([]byte("hello"))
	if wire.Data != want {
		t.Errorf("expected base64 data %q, got %q", want, wire.Data)
	}
	if wire.DurationMs != 250 {
		t.Errorf("expected duration 250, got %.2f", wire.DurationMs)
	}
	if wire.Encoding != "mp3" {
		t.Errorf("expected encoding mp3, got %s", wire.Encoding)
	}
}

func TestToOutboundEventVideoFrameCarriesDrift(t *testing.T) {
	ev := orchestrator.Event{
		Kind:    orchestrator.EventVideoFrame,
		Video:   generator.VideoFrame{Data: []byte{1, 2, 3}, FrameIndex: 4, Width: 256, Height: 256, ContentType: "raw_rgb"},
		DriftMs: 42.5,
	}
	wire := toOutboundEvent(ev)

	if wire.DriftMs != 42.5 {
		t.Errorf("expected drift_ms 42.5, got %.2f", wire.DriftMs)
	}
	if wire.FrameIndex != 4 {
		t.Errorf("expected frame_index 4, got %d", wire.FrameIndex)
	}
	if wire.ContentType != "raw_rgb" {
		t.Errorf("expected content_type raw_rgb, got %s", wire.ContentType)
	}
}

func TestToOutboundEventError(t *testing.T) {
	ev := orchestrator.Event{Kind: orchestrator.EventError, ErrText: "boom"}
	wire := toOutboundEvent(ev)
	if wire.Code != "turn_error" {
		t.Errorf("expected code turn_error, got %q", wire.Code)
	}
	if wire.Message != "boom" {
		t.Errorf("expected message boom, got %q", wire.Message)
	}
}

func TestInboundControlUpdateNilMeansUnset(t *testing.T) {
	var upd *inboundControlUpdate
	c, err := upd.toTurnControl()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != control.DefaultTurnControl() {
		t.Errorf("expected default control for nil update, got %+v", c)
	}
}

func TestInboundControlUpdatePartialEmotionOnly(t *testing.T) {
	upd := &inboundControlUpdate{
		Emotion: &inboundEmotion{Label: "happy", Intensity: 0.9, Valence: 0.5, Arousal: 0.4},
	}
	c, err := upd.toTurnControl()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Emotion.Label != control.EmotionHappy {
		t.Errorf("expected happy emotion, got %s", c.Emotion.Label)
	}
	if c.Character != control.DefaultCharacterControl() {
		t.Errorf("expected default character when omitted, got %+v", c.Character)
	}
}

func TestInboundControlUpdateRejectsInvalidRange(t *testing.T) {
	upd := &inboundControlUpdate{
		Emotion: &inboundEmotion{Label: "happy", Intensity: 5.0},
	}
	if _, err := upd.toTurnControl(); err == nil {
		t.Error("expected error for out-of-range intensity")
	}
}
