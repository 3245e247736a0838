package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/metrics"
)

// ElevenLabsTTS synthesizes speech via the ElevenLabs streaming HTTP
// API. A single HTTP response carries the whole segment's audio; it is
// read off in fixed-size chunks and re-packaged as AudioChunk values so
// downstream avatar/drift logic is indifferent to the real duration
// estimate versus the mock backend's synthetic one.
type ElevenLabsTTS struct {
	baseURL    string
	apiKey     string
	voiceID    string
	modelID    string
	client     *http.Client
	chunkBytes int
}

// NewElevenLabsTTS creates an ElevenLabs-backed TTS client.
func NewElevenLabsTTS(baseURL, apiKey, voiceID, modelID string, poolSize int) *ElevenLabsTTS {
	return &ElevenLabsTTS{
		baseURL:    baseURL,
		apiKey:     apiKey,
		voiceID:    voiceID,
		modelID:    modelID,
		client:     NewPooledHTTPClient(poolSize, 30*time.Second),
		chunkBytes: 4096,
	}
}

type elevenLabsTTSRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings elevenLabsVoiceOpt `json:"voice_settings"`
}

type elevenLabsVoiceOpt struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
}

// Stream posts the segment text and streams the MP3 response body back
// as a sequence of AudioChunks, estimating per-chunk duration from byte
// count at a fixed average MP3 bitrate (128kbps).
func (e *ElevenLabsTTS) Stream(ctx context.Context, text string, c control.TurnControl, gctx Context, onChunk func(AudioChunk)) error {
	reqBody, err := json.Marshal(elevenLabsTTSRequest{
		Text:    text,
		ModelID: e.modelID,
		VoiceSettings: elevenLabsVoiceOpt{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           float64(c.Emotion.Intensity),
		},
	})
	if err != nil {
		return fmt.Errorf("generator: marshal tts request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", e.baseURL, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("generator: create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("tts", "http").Inc()
		return fmt.Errorf("generator: tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("tts", "status").Inc()
		return fmt.Errorf("generator: tts status %d", resp.StatusCode)
	}

	const bytesPerMs = 128000.0 / 8.0 / 1000.0 // 128kbps MP3
	ts := 0.0
	buf := make([]byte, e.chunkBytes)
	for {
		n, readErr := io.ReadFull(resp.Body, buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			durationMs := float64(n) / bytesPerMs
			onChunk(AudioChunk{
				Data: data, TimestampMs: ts, DurationMs: durationMs,
				SampleRate: 24000, Encoding: "mp3",
			})
			ts += durationMs
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			metrics.Errors.WithLabelValues("tts", "stream_read").Inc()
			return fmt.Errorf("generator: read tts stream: %w", readErr)
		}
	}

	return nil
}

func (e *ElevenLabsTTS) Health(ctx context.Context) HealthStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/user", nil)
	if err != nil {
		return HealthStatus{Healthy: false, Detail: err.Error()}
	}
	req.Header.Set("xi-api-key", e.apiKey)

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return HealthStatus{Healthy: false, Detail: err.Error()}
	}
	defer resp.Body.Close()
	latency := float64(time.Since(start).Milliseconds())
	return HealthStatus{Healthy: resp.StatusCode == http.StatusOK, LatencyMs: latency}
}

func (e *ElevenLabsTTS) Capabilities() Capabilities {
	return Capabilities{
		SupportsStreaming: true, SupportsEmotion: true, MaxTextLength: 5000,
		SupportedEmotions: []control.EmotionLabel{
			control.EmotionNeutral, control.EmotionHappy, control.EmotionSad, control.EmotionAngry,
		},
	}
}
