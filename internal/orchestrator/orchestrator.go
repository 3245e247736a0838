// Package orchestrator runs one dialogue turn end to end: LLM token
// streaming, sentence-boundary segmentation, TTS synthesis, and avatar
// frame rendering, pipelined so TTS begins on the first completed
// sentence rather than waiting for the full LLM response.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/generator"
	"github.com/nimbuscast/dialogserver/internal/metrics"
	"github.com/nimbuscast/dialogserver/internal/session"
)

// sentenceQueueCap bounds how many completed sentences the LLM producer
// may stage ahead of the TTS/Avatar consumer.
const sentenceQueueCap = 2

// EventKind identifies the wire-facing shape of one outbound Event.
type EventKind string

const (
	EventTextDelta     EventKind = "text_delta"
	EventAudioChunk    EventKind = "audio_chunk"
	EventVideoFrame    EventKind = "video_frame"
	EventTurnComplete  EventKind = "turn_complete"
	EventError         EventKind = "error"
)

// Event is one unit of turn output, queued onto a session's bounded
// outbound channel for the connection's send loop to serialize.
type Event struct {
	Kind    EventKind
	TurnID  string
	Token   string
	Audio   generator.AudioChunk
	Video   generator.VideoFrame
	DriftMs float64
	ErrText string
}

// Backends is the set of generator ports a turn may run against.
// Either Combined is set (realtime LLM+TTS) or LLM+TTS+Avatar are.
type Backends struct {
	LLM      generator.LLM
	TTS      generator.TTS
	Avatar   generator.Avatar
	Combined generator.Combined
}

// Orchestrator runs turns against a fixed set of generator backends.
type Orchestrator struct {
	backends Backends
}

// New creates an Orchestrator bound to the given generator backends.
func New(backends Backends) *Orchestrator {
	return &Orchestrator{backends: backends}
}

// CancelResponse signals the combined backend's in-flight response to
// stop, when running in combined mode. No-op in split-stage mode.
func (o *Orchestrator) CancelResponse(ctx context.Context) {
	if o.backends.Combined == nil {
		return
	}
	if err := o.backends.Combined.CancelResponse(ctx); err != nil {
		slog.Warn("combined cancel_response failed", "error", err)
	}
}

// RunTurn executes one turn for sess, resolving effective control from
// persona defaults and any pending control update, and emits Events to
// out until it sends EventTurnComplete, sends one EventError on a
// generator failure, or returns due to cancellation. Cancelling ctx
// stops the turn with neither turn_complete nor error.
func (o *Orchestrator) RunTurn(ctx context.Context, sess *session.Session, text string, userCtrl control.TurnControl, out chan<- Event) error {
	turnID := uuid.NewString()
	effectiveUserCtrl := userCtrl
	if pending := sess.TakePendingControl(); pending != nil {
		sess.Transition(session.StateCtrlMerge)
		effectiveUserCtrl = control.Merge(*pending, userCtrl)
	}
	resolved := control.Resolve(effectiveUserCtrl, sess.PersonaDefaults)

	sess.ResetDrift()
	sess.ResetFrameCounter()
	sess.AppendHistory("user", text)

	start := time.Now()

	var err error
	if o.backends.Combined != nil {
		err = o.runCombinedTurn(ctx, sess, text, resolved, turnID, out)
	} else {
		err = o.runSplitStageTurn(ctx, sess, text, resolved, turnID, out)
	}

	if ctx.Err() != nil {
		metrics.TurnsTotal.WithLabelValues("cancelled").Inc()
		return ctx.Err()
	}
	if err != nil {
		sess.Transition(session.StateTurnError)
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		emit(ctx, out, Event{Kind: EventError, TurnID: turnID, ErrText: err.Error()})
		return err
	}

	sess.Transition(session.StateTurnComplete)
	metrics.TurnsTotal.WithLabelValues("ok").Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	emit(ctx, out, Event{Kind: EventTurnComplete, TurnID: turnID})
	return nil
}

// runSplitStageTurn drives independent LLM, TTS, and Avatar backends
// through a producer/consumer pipeline: the LLM producer streams tokens
// and segments them into sentences; the TTS/Avatar consumer synthesizes
// and renders each sentence as it becomes available, so the first audio
// is emitted well before the LLM finishes the full response.
func (o *Orchestrator) runSplitStageTurn(ctx context.Context, sess *session.Session, text string, resolved control.TurnControl, turnID string, out chan<- Event) error {
	sentenceCh := make(chan string, sentenceQueueCap)

	var wg sync.WaitGroup
	var consumerErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		consumerErr = o.consumeSentences(ctx, sess, sentenceCh, resolved, out)
	}()

	fullText, llmErr := o.produceSentences(ctx, sess, text, resolved, sentenceCh, out)

	wg.Wait()

	if llmErr != nil {
		return fmt.Errorf("orchestrator: llm stage: %w", llmErr)
	}
	if consumerErr != nil {
		return fmt.Errorf("orchestrator: tts/avatar stage: %w", consumerErr)
	}

	if fullText != "" {
		sess.AppendHistory("assistant", fullText)
	}
	return nil
}

func (o *Orchestrator) produceSentences(ctx context.Context, sess *session.Session, text string, resolved control.TurnControl, sentenceCh chan<- string, out chan<- Event) (string, error) {
	defer close(sentenceCh)
	sess.Transition(session.StateLLMRun)

	var buf sentenceBuffer
	gctx := generator.Context{PersonaName: sess.PersonaName, History: sess.History()}

	start := time.Now()
	fullText, err := o.backends.LLM.Stream(ctx, text, resolved, gctx, func(token string) {
		emit(ctx, out, Event{Kind: EventTextDelta, TurnID: "", Token: token})
		if sentence, ok := buf.Add(token); ok {
			select {
			case sentenceCh <- sentence:
			case <-ctx.Done():
			}
		}
	})
	metrics.StageDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	if err != nil {
		return fullText, err
	}

	if remainder := buf.Flush(); remainder != "" {
		select {
		case sentenceCh <- remainder:
		case <-ctx.Done():
		}
	}
	return fullText, nil
}

func (o *Orchestrator) consumeSentences(ctx context.Context, sess *session.Session, sentenceCh <-chan string, resolved control.TurnControl, out chan<- Event) error {
	sess.Transition(session.StateTTSRun)
	for {
		select {
		case sentence, ok := <-sentenceCh:
			if !ok {
				return nil
			}
			if err := o.synthesizeSentence(ctx, sess, sentence, resolved, out); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (o *Orchestrator) synthesizeSentence(ctx context.Context, sess *session.Session, sentence string, resolved control.TurnControl, out chan<- Event) error {
	ttsStart := time.Now()
	gctx := generator.Context{PersonaName: sess.PersonaName, History: sess.History()}

	var chunkErr error
	err := o.backends.TTS.Stream(ctx, sentence, resolved, gctx, func(chunk generator.AudioChunk) {
		metrics.AudioChunksEmitted.Inc()
		emit(ctx, out, Event{Kind: EventAudioChunk, Audio: chunk})
		if chunkErr != nil {
			return
		}
		if o.backends.Avatar == nil {
			return
		}
		if err := o.renderAvatarFrames(ctx, sess, chunk, resolved, out); err != nil {
			chunkErr = err
		}
	})
	metrics.StageDuration.WithLabelValues("tts").Observe(time.Since(ttsStart).Seconds())
	if err != nil {
		slog.Error("tts stage failed", "error", err, "sentence", sentence)
		return err
	}
	return chunkErr
}

func (o *Orchestrator) renderAvatarFrames(ctx context.Context, sess *session.Session, chunk generator.AudioChunk, resolved control.TurnControl, out chan<- Event) error {
	sess.Transition(session.StateAvatarRun)
	n := generator.FrameCount(chunk.DurationMs)
	frameBase := sess.NextFrameCounter(n)
	gctx := generator.Context{PersonaName: sess.PersonaName, FrameCounter: frameBase}

	avatarStart := time.Now()
	err := o.backends.Avatar.Stream(ctx, chunk, resolved, gctx, func(frame generator.VideoFrame) {
		metrics.VideoFramesEmitted.Inc()
		drift := sess.DriftTracker.Update(chunk.TimestampMs, frame.TimestampMs)
		metrics.DriftMs.Observe(drift)
		emit(ctx, out, Event{Kind: EventVideoFrame, Video: frame, DriftMs: drift})
	})
	metrics.StageDuration.WithLabelValues("avatar").Observe(time.Since(avatarStart).Seconds())
	return err
}

// runCombinedTurn drives a single fused LLM+TTS backend (e.g. a
// realtime websocket API). Connect must already have been called once
// at process startup; this sends the user text and relays events until
// turn_complete. Avatar frames are still rendered locally from the
// relayed audio chunks, when an Avatar backend is configured.
func (o *Orchestrator) runCombinedTurn(ctx context.Context, sess *session.Session, text string, resolved control.TurnControl, turnID string, out chan<- Event) error {
	sess.Transition(session.StateLLMRun)
	if resolved.Character != control.DefaultCharacterControl() {
		slog.Warn("character control has no effect in combined mode", "session_id", sess.ID, "persona_id", resolved.Character.PersonaID)
	}
	if err := o.backends.Combined.SendUserText(ctx, text); err != nil {
		return fmt.Errorf("orchestrator: combined send: %w", err)
	}

	events, errs := o.backends.Combined.Events(ctx)
	var fullText string

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case "text_delta":
				fullText += ev.Token
				emit(ctx, out, Event{Kind: EventTextDelta, Token: ev.Token})
			case "audio_chunk":
				metrics.AudioChunksEmitted.Inc()
				sess.Transition(session.StateTTSRun)
				emit(ctx, out, Event{Kind: EventAudioChunk, Audio: ev.Chunk})
				if o.backends.Avatar != nil {
					sess.Transition(session.StateAvatarRun)
					if err := o.renderAvatarFrames(ctx, sess, ev.Chunk, resolved, out); err != nil {
						return err
					}
				}
			case "turn_complete":
				if fullText != "" {
					sess.AppendHistory("assistant", fullText)
				}
				return nil
			}
		case err := <-errs:
			if err != nil {
				return fmt.Errorf("orchestrator: combined stream: %w", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// emit sends ev on out, dropping it instead of blocking forever if ctx
// is cancelled while the send loop on the other end is gone.
func emit(ctx context.Context, out chan<- Event, ev Event) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}
