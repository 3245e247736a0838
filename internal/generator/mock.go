package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/nimbuscast/dialogserver/internal/control"
)

// MockLLM is a deterministic token-streaming backend used for offline
// tests and local development without a live model.
type MockLLM struct{}

var toneOpeners = map[control.EmotionLabel]string{
	control.EmotionNeutral:   "Here is a clear answer.",
	control.EmotionHappy:     "Great question, this is exciting.",
	control.EmotionSad:       "I understand, here is a calm response.",
	control.EmotionAngry:     "Let us be direct and focused.",
	control.EmotionSurprised: "Interesting twist, here is what matters.",
	control.EmotionFearful:   "Carefully and step by step, here is the answer.",
	control.EmotionDisgusted: "Let us keep this practical and concise.",
}

// Stream emits word-level tokens to emulate LLM streaming behavior.
func (MockLLM) Stream(ctx context.Context, userText string, c control.TurnControl, gctx Context, onToken TokenFunc) (string, error) {
	opener, ok := toneOpeners[c.Emotion.Label]
	if !ok {
		opener = toneOpeners[control.EmotionNeutral]
	}
	text := fmt.Sprintf("%s You asked: %s. I will keep the answer short, useful, and easy to act on.", opener, strings.TrimSpace(userText))

	var b strings.Builder
	for _, word := range strings.Fields(text) {
		select {
		case <-ctx.Done():
			return b.String(), ctx.Err()
		default:
		}
		tok := word + " "
		onToken(tok)
		b.WriteString(tok)
	}
	return strings.TrimSpace(b.String()), nil
}

func (MockLLM) Health(context.Context) HealthStatus { return HealthStatus{Healthy: true, Detail: "mock llm"} }

func (MockLLM) Capabilities() Capabilities {
	return Capabilities{
		SupportsStreaming: true, SupportsEmotion: true, MaxTextLength: 100000,
		SupportedEmotions: []control.EmotionLabel{
			control.EmotionNeutral, control.EmotionHappy, control.EmotionSad, control.EmotionAngry,
			control.EmotionSurprised, control.EmotionFearful, control.EmotionDisgusted,
		},
	}
}

// MockTTS is a deterministic pseudo-audio chunk stream for offline
// tests. Chunk timing approximates a real synthesizer closely enough
// to exercise avatar/drift behavior realistically.
type MockTTS struct{}

func (MockTTS) Stream(ctx context.Context, text string, c control.TurnControl, gctx Context, onChunk func(AudioChunk)) error {
	totalMs := float64(len(text)) * 12.0
	if totalMs < 250 {
		totalMs = 250
	}
	if totalMs > 1800 {
		totalMs = 1800
	}
	numChunks := len(text)/35 + 1
	if numChunks < 2 {
		numChunks = 2
	}
	if numChunks > 8 {
		numChunks = 8
	}
	chunkMs := totalMs / float64(numChunks)

	ts := 0.0
	for i := 0; i < numChunks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		payload := []byte(fmt.Sprintf("MOCK_MP3|chunk=%d|speed=%.2f|%s", i, c.Character.SpeechRate, text))
		if len(payload) > 2048 {
			payload = payload[:2048]
		}
		onChunk(AudioChunk{
			Data: payload, TimestampMs: ts, DurationMs: chunkMs,
			SampleRate: 24000, Encoding: "mock_mp3",
		})
		ts += chunkMs
	}
	return nil
}

func (MockTTS) Health(context.Context) HealthStatus { return HealthStatus{Healthy: true, LatencyMs: 0.1, Detail: "mock tts"} }

func (MockTTS) Capabilities() Capabilities {
	return Capabilities{
		SupportsStreaming: true, SupportsEmotion: true, MaxTextLength: 100000,
		SupportedEmotions: []control.EmotionLabel{
			control.EmotionNeutral, control.EmotionHappy, control.EmotionSad, control.EmotionAngry,
			control.EmotionSurprised, control.EmotionFearful, control.EmotionDisgusted,
		},
	}
}

// MockAvatar emits placeholder frames timed to match audio duration —
// exercises the full pipeline and drift tracker without a real avatar API.
type MockAvatar struct{}

const (
	mockFrameW, mockFrameH = 256, 256
	mockFrameDurationMs    = 1000.0 / float64(FrameRateFPS)
)

var mockBlackFrame = make([]byte, mockFrameW*mockFrameH*3)

func (MockAvatar) Stream(ctx context.Context, chunk AudioChunk, c control.TurnControl, gctx Context, onFrame func(VideoFrame)) error {
	frames := FrameCount(chunk.DurationMs)
	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		onFrame(VideoFrame{
			Data:        mockBlackFrame,
			TimestampMs: chunk.TimestampMs + float64(i)*mockFrameDurationMs,
			FrameIndex:  gctx.FrameCounter + i,
			Width:       mockFrameW,
			Height:      mockFrameH,
			ContentType: "raw_rgb",
		})
	}
	return nil
}

func (MockAvatar) Health(context.Context) HealthStatus {
	return HealthStatus{Healthy: true, Detail: "stub adapter — always healthy"}
}

func (MockAvatar) Capabilities() Capabilities {
	return Capabilities{SupportsStreaming: true}
}
