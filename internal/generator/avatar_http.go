package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/metrics"
)

// TavusAvatar renders lip-synced frames via a Tavus-shaped HTTP replica
// API. Tavus (and HeyGen, which shares this client's request shape
// closely enough to share code) return a per-chunk frame batch rather
// than a raw stream, so one HTTP round trip covers one audio chunk.
type TavusAvatar struct {
	baseURL   string
	apiKey    string
	replicaID string
	client    *http.Client
}

// NewTavusAvatar creates a Tavus/HeyGen-shaped avatar HTTP client.
func NewTavusAvatar(baseURL, apiKey, replicaID string, poolSize int) *TavusAvatar {
	return &TavusAvatar{
		baseURL:   baseURL,
		apiKey:    apiKey,
		replicaID: replicaID,
		client:    NewPooledHTTPClient(poolSize, 30*time.Second),
	}
}

type tavusFrameRequest struct {
	ReplicaID  string  `json:"replica_id"`
	AudioB64   string  `json:"audio_base64"`
	DurationMs float64 `json:"duration_ms"`
}

type tavusFrameResponse struct {
	Frames []tavusFrame `json:"frames"`
}

type tavusFrame struct {
	DataB64     string `json:"data_base64"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"content_type"`
}

// Stream requests one frame batch for the given audio chunk and emits
// every frame in the response as a VideoFrame, spaced at the fixed
// avatar frame rate (40 ms apart at 25 FPS).
func (t *TavusAvatar) Stream(ctx context.Context, chunk AudioChunk, c control.TurnControl, gctx Context, onFrame func(VideoFrame)) error {
	reqBody, err := json.Marshal(tavusFrameRequest{
		ReplicaID:  t.replicaID,
		AudioB64:   encodeAudioForTransport(chunk.Data),
		DurationMs: chunk.DurationMs,
	})
	if err != nil {
		return fmt.Errorf("generator: marshal avatar request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v2/replicas/frames", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("generator: create avatar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("avatar", "http").Inc()
		return fmt.Errorf("generator: avatar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("avatar", "status").Inc()
		return fmt.Errorf("generator: avatar status %d", resp.StatusCode)
	}

	var out tavusFrameResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("generator: decode avatar response: %w", err)
	}

	frameMs := 1000.0 / float64(FrameRateFPS)
	for i, f := range out.Frames {
		data, decodeErr := decodeAudioFromTransport(f.DataB64)
		if decodeErr != nil {
			return fmt.Errorf("generator: decode frame payload: %w", decodeErr)
		}
		onFrame(VideoFrame{
			Data:        data,
			TimestampMs: chunk.TimestampMs + float64(i)*frameMs,
			FrameIndex:  gctx.FrameCounter + i,
			Width:       f.Width,
			Height:      f.Height,
			ContentType: f.ContentType,
		})
	}

	return nil
}

func (t *TavusAvatar) Health(ctx context.Context) HealthStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v2/replicas", nil)
	if err != nil {
		return HealthStatus{Healthy: false, Detail: err.Error()}
	}
	req.Header.Set("x-api-key", t.apiKey)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return HealthStatus{Healthy: false, Detail: err.Error()}
	}
	defer resp.Body.Close()
	return HealthStatus{Healthy: resp.StatusCode == http.StatusOK, LatencyMs: float64(time.Since(start).Milliseconds())}
}

func (t *TavusAvatar) Capabilities() Capabilities {
	return Capabilities{SupportsStreaming: false, SupportsIdentity: true}
}
