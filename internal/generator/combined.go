package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nimbuscast/dialogserver/internal/control"
)

// RealtimeCombined fuses LLM+TTS through a persistent upstream
// WebSocket connection (OpenAI Realtime API shape). Connect is called
// once, process-wide, at startup; SendUserText/CancelResponse/Events
// operate per turn over that same connection, serially shared across
// sessions.
type RealtimeCombined struct {
	wsURL  string
	apiKey string
	model  string

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	connectAt time.Time

	events  chan CombinedEvent
	errs    chan error
	done    chan struct{}
	drainMu sync.Mutex
}

// NewRealtimeCombined creates a combined LLM+TTS generator dialing the
// given Realtime-shaped WebSocket endpoint.
func NewRealtimeCombined(wsURL, apiKey, model string) *RealtimeCombined {
	return &RealtimeCombined{
		wsURL:  wsURL,
		apiKey: apiKey,
		model:  model,
		events: make(chan CombinedEvent, 64),
		errs:   make(chan error, 1),
	}
}

type realtimeSessionUpdate struct {
	Type    string                 `json:"type"`
	Session map[string]interface{} `json:"session"`
}

type realtimeEnvelope struct {
	Type     string          `json:"type"`
	Delta    string          `json:"delta"`
	Response json.RawMessage `json:"response"`
	Error    json.RawMessage `json:"error"`
}

type realtimeResponseID struct {
	ID string `json:"id"`
}

// Connect dials the upstream once and configures the session. A call
// made while already connected is a no-op and returns nil.
func (r *RealtimeCombined) Connect(ctx context.Context, systemInstructions, voice string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected {
		return nil
	}

	url := fmt.Sprintf("%s?model=%s", r.wsURL, r.model)
	header := http.Header{"Authorization": []string{"Bearer " + r.apiKey}}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("generator: realtime dial: %w", err)
	}

	update := realtimeSessionUpdate{
		Type: "session.update",
		Session: map[string]interface{}{
			"modalities":     []string{"text", "audio"},
			"instructions":   systemInstructions,
			"voice":          voice,
			"turn_detection": nil,
		},
	}
	if err := conn.WriteJSON(update); err != nil {
		conn.Close()
		return fmt.Errorf("generator: realtime session.update: %w", err)
	}

	var created realtimeEnvelope
	if err := conn.ReadJSON(&created); err != nil {
		conn.Close()
		return fmt.Errorf("generator: realtime session.created: %w", err)
	}
	if created.Type != "session.created" {
		conn.Close()
		return fmt.Errorf("generator: realtime expected session.created, got %q", created.Type)
	}

	r.conn = conn
	r.connected = true
	r.connectAt = time.Now()
	r.done = make(chan struct{})

	go r.listen()
	return nil
}

func (r *RealtimeCombined) listen() {
	for {
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()
		if conn == nil {
			return
		}

		var env realtimeEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			r.mu.Lock()
			r.connected = false
			r.mu.Unlock()
			select {
			case r.errs <- fmt.Errorf("generator: realtime read: %w", err):
			default:
			}
			return
		}
		r.handleServerEvent(env)
	}
}

func (r *RealtimeCombined) handleServerEvent(env realtimeEnvelope) {
	switch env.Type {
	case "response.output_audio.delta":
		data, err := decodeAudioFromTransport(env.Delta)
		if err != nil {
			return
		}
		durationMs := float64(len(data)) / 2 / 24000 * 1000 // 16-bit pcm @ 24kHz
		r.events <- CombinedEvent{
			Kind: "audio_chunk",
			Chunk: AudioChunk{
				Data: data, TimestampMs: float64(time.Now().UnixMilli()),
				DurationMs: durationMs, SampleRate: 24000, Encoding: "pcm",
			},
		}
	case "response.output_audio_transcript.delta":
		if env.Delta != "" {
			r.events <- CombinedEvent{Kind: "text_delta", Token: env.Delta}
		}
	case "response.done":
		var resp realtimeResponseID
		_ = json.Unmarshal(env.Response, &resp)
		r.events <- CombinedEvent{Kind: "turn_complete", TurnID: resp.ID}
	}
}

// SendUserText sends the user message and triggers a response.
func (r *RealtimeCombined) SendUserText(ctx context.Context, text string) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("generator: realtime not connected")
	}

	item := map[string]interface{}{
		"type": "conversation.item.create",
		"item": map[string]interface{}{
			"type": "message", "role": "user",
			"content": []map[string]string{{"type": "input_text", "text": text}},
		},
	}
	if err := conn.WriteJSON(item); err != nil {
		return fmt.Errorf("generator: realtime send item: %w", err)
	}
	return conn.WriteJSON(map[string]string{"type": "response.create"})
}

// CancelResponse cancels the in-flight response and drains any
// already-queued events so a barge-in doesn't leak stale audio/text
// into the next turn.
func (r *RealtimeCombined) CancelResponse(ctx context.Context) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := conn.WriteJSON(map[string]string{"type": "response.cancel"}); err != nil {
		return fmt.Errorf("generator: realtime cancel: %w", err)
	}

	r.drainMu.Lock()
	defer r.drainMu.Unlock()
	for {
		select {
		case <-r.events:
		default:
			return nil
		}
	}
}

// Events returns a channel streaming events until a turn_complete
// event (inclusive), plus a side channel for connection-level errors.
func (r *RealtimeCombined) Events(ctx context.Context) (<-chan CombinedEvent, <-chan error) {
	out := make(chan CombinedEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-r.events:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if ev.Kind == "turn_complete" {
					return
				}
			}
		}
	}()
	return out, r.errs
}

func (r *RealtimeCombined) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	r.connected = false
	return err
}

func (r *RealtimeCombined) Health(ctx context.Context) HealthStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return HealthStatus{Healthy: false, Detail: "disconnected"}
	}
	return HealthStatus{
		Healthy: true, Detail: "connected",
		LatencyMs: float64(time.Since(r.connectAt).Milliseconds()),
	}
}

func (r *RealtimeCombined) Capabilities() Capabilities {
	return Capabilities{
		SupportsStreaming: true, SupportsEmotion: true,
		SupportedEmotions: []control.EmotionLabel{
			control.EmotionNeutral, control.EmotionHappy, control.EmotionSad,
			control.EmotionAngry, control.EmotionSurprised,
		},
	}
}
