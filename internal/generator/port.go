// Package generator defines the uniform streaming-producer contract
// shared by the LLM, TTS, and Avatar stages (and the optional Combined
// LLM+TTS transport), plus the concrete backends wired into this repo.
package generator

import (
	"context"

	"github.com/nimbuscast/dialogserver/internal/control"
)

// AudioChunk is the internal representation of one TTS-synthesized
// audio segment. DurationMs is strictly positive for any non-empty
// chunk; the HTTP and realtime backends compute it from the payload
// size and declared format, the mock backend from the segment's text
// length.
type AudioChunk struct {
	Data        []byte
	TimestampMs float64
	DurationMs  float64
	SampleRate  int
	Encoding    string // "mp3" | "pcm" | provider-specific tag
}

// VideoFrame is the internal representation of one lip-synced frame.
type VideoFrame struct {
	Data        []byte
	TimestampMs float64
	FrameIndex  int
	Width       int
	Height      int
	ContentType string // "jpeg" | "h264_nal" | "raw_rgb"
}

// HealthStatus reports whether a generator backend is currently usable.
type HealthStatus struct {
	Healthy   bool
	LatencyMs float64
	Detail    string
}

// Capabilities describes what a generator backend supports.
type Capabilities struct {
	SupportsStreaming bool
	SupportsEmotion   bool
	SupportsIdentity  bool
	MaxTextLength     int
	SupportedEmotions []control.EmotionLabel
}

// Context carries per-turn metadata threaded through a generator call:
// persona name, conversation history, and (for Avatar) a running frame
// counter used to keep frame_index monotonic across chunks in a turn.
type Context struct {
	PersonaName  string
	History      []HistoryTurn
	FrameCounter int
}

// HistoryTurn is one user/assistant exchange, as seen by the LLM call site.
type HistoryTurn struct {
	Role    string // "user" | "assistant"
	Content string
}

// TokenFunc receives one LLM output token as it streams.
type TokenFunc func(token string)

// LLM streams text tokens for a user message.
type LLM interface {
	// Stream pulls the full completion, invoking onToken for each token
	// as it arrives, and returns the complete text on success.
	Stream(ctx context.Context, userText string, c control.TurnControl, gctx Context, onToken TokenFunc) (string, error)
	Health(ctx context.Context) HealthStatus
	Capabilities() Capabilities
}

// TTS synthesizes speech for one text segment.
type TTS interface {
	// Stream pulls the chunk sequence for one segment, invoking onChunk
	// for each chunk as it arrives.
	Stream(ctx context.Context, text string, c control.TurnControl, gctx Context, onChunk func(AudioChunk)) error
	Health(ctx context.Context) HealthStatus
	Capabilities() Capabilities
}

// Avatar renders lip-synced video frames for one audio chunk. Target
// rate is 25 FPS: for a chunk of duration D ms it emits
// max(1, round(D/1000 * 25)) frames.
type Avatar interface {
	Stream(ctx context.Context, chunk AudioChunk, c control.TurnControl, gctx Context, onFrame func(VideoFrame)) error
	Health(ctx context.Context) HealthStatus
	Capabilities() Capabilities
}

// CombinedEvent is one event pulled from a Combined generator's mixed
// event stream.
type CombinedEvent struct {
	Kind        string // "text_delta" | "audio_chunk" | "turn_complete"
	Token       string
	Chunk       AudioChunk
	TurnID      string
}

// Combined fuses LLM+TTS through one persistent bidirectional
// transport. Connect is called once at process startup, not per turn;
// SendUserText/CancelResponse/Events operate per turn.
type Combined interface {
	Connect(ctx context.Context, systemInstructions, voice string) error
	SendUserText(ctx context.Context, text string) error
	CancelResponse(ctx context.Context) error
	// Events streams events until a "turn_complete" CombinedEvent (inclusive).
	Events(ctx context.Context) (<-chan CombinedEvent, <-chan error)
	Close() error
	Health(ctx context.Context) HealthStatus
	Capabilities() Capabilities
}

// FrameRateFPS is the avatar generator's target output rate.
const FrameRateFPS = 25

// FrameCount computes how many video frames a chunk of the given
// duration should produce: max(1, round(D/1000 * FrameRateFPS)).
func FrameCount(durationMs float64) int {
	n := int(durationMs/1000*FrameRateFPS + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}
