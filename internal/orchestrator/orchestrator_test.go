package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/generator"
	"github.com/nimbuscast/dialogserver/internal/session"
)

func mockBackends() Backends {
	return Backends{LLM: generator.MockLLM{}, TTS: generator.MockTTS{}, Avatar: generator.MockAvatar{}}
}

func newTestSession() *session.Session {
	return session.New("sess-1", "default", "Default", control.PersonaDefaults("default"))
}

func drain(out chan Event) []Event {
	var events []Event
	for ev := range out {
		events = append(events, ev)
	}
	return events
}

// S1 — offline smoke test against deterministic mocks.
func TestRunTurnScenarioS1(t *testing.T) {
	orch := New(mockBackends())
	sess := newTestSession()
	out := make(chan Event, 256)

	userCtrl := control.TurnControl{
		Emotion:   control.EmotionControl{Label: control.EmotionHappy, Intensity: 0.7, Valence: 0, Arousal: 0.6},
		Character: control.CharacterControl{PersonaID: "default", SpeechRate: 1.05, PitchShift: 0, Expressivity: 0.8, MotionGain: 1.0},
	}

	err := orch.RunTurn(context.Background(), sess, "Explain one practical tip to improve model inference latency.", userCtrl, out)
	close(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := drain(out)

	var audioCount, videoCount int
	var turnComplete bool
	var text strings.Builder
	for _, ev := range events {
		switch ev.Kind {
		case EventTextDelta:
			text.WriteString(ev.Token)
		case EventAudioChunk:
			audioCount++
		case EventVideoFrame:
			videoCount++
		case EventTurnComplete:
			turnComplete = true
		case EventError:
			t.Fatalf("unexpected error event: %s", ev.ErrText)
		}
	}

	if audioCount < 1 {
		t.Error("expected at least one audio_chunk")
	}
	if videoCount < 1 {
		t.Error("expected at least one video_frame")
	}
	if !turnComplete {
		t.Error("expected a turn_complete event")
	}

	full := text.String()
	if !strings.ContainsAny(full, ".!?") {
		t.Error("expected end-sentence punctuation in concatenated text_delta tokens")
	}
	words := make(map[string]bool)
	for _, w := range strings.Fields(full) {
		words[strings.ToLower(strings.Trim(w, ".,!?"))] = true
	}
	if len(words) <= 8 {
		t.Errorf("expected more than 8 distinct words, got %d", len(words))
	}

	if sess.State() != session.StateTurnComplete {
		t.Errorf("expected session state TURN_COMPLETE, got %s", sess.State())
	}
}

// Invariant 4 — outbound order is text_delta*, then (audio_chunk, its
// video_frames in frame_index order)*, terminated by turn_complete.
func TestRunTurnEventOrdering(t *testing.T) {
	orch := New(mockBackends())
	sess := newTestSession()
	out := make(chan Event, 256)

	err := orch.RunTurn(context.Background(), sess, "A short reply will do here.", control.DefaultTurnControl(), out)
	close(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := drain(out)
	if len(events) == 0 {
		t.Fatal("expected events")
	}
	if events[len(events)-1].Kind != EventTurnComplete {
		t.Fatalf("expected last event to be turn_complete, got %s", events[len(events)-1].Kind)
	}

	var lastFrameIndex = -1
	sawAudioSinceLastCheck := false
	for _, ev := range events[:len(events)-1] {
		switch ev.Kind {
		case EventAudioChunk:
			lastFrameIndex = -1
			sawAudioSinceLastCheck = true
		case EventVideoFrame:
			if !sawAudioSinceLastCheck {
				t.Fatal("video_frame emitted before any audio_chunk")
			}
			if ev.Video.FrameIndex <= lastFrameIndex {
				t.Errorf("frame_index must strictly increase: got %d after %d", ev.Video.FrameIndex, lastFrameIndex)
			}
			lastFrameIndex = ev.Video.FrameIndex
		case EventError, EventTurnComplete:
			t.Fatalf("unexpected terminal event mid-stream: %s", ev.Kind)
		}
	}
}

// S4 — interrupt mid-turn ends the stream with neither turn_complete nor error.
func TestRunTurnCancellationEmitsNoTerminalEvent(t *testing.T) {
	orch := New(mockBackends())
	sess := newTestSession()
	out := make(chan Event, 256)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		orch.RunTurn(ctx, sess, "long answer please keep streaming words for a while", control.DefaultTurnControl(), out)
	}()

	// Let a little work happen before cancelling.
	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
	close(out)

	events := drain(out)
	for _, ev := range events {
		if ev.Kind == EventTurnComplete || ev.Kind == EventError {
			t.Errorf("cancelled turn must not emit %s", ev.Kind)
		}
	}
}

func TestRunTurnControlMergeBeforeResolve(t *testing.T) {
	orch := New(mockBackends())
	sess := session.New("sess-2", "excited", "Excited", control.PersonaDefaults("excited"))
	out := make(chan Event, 256)

	pending := control.TurnControl{
		Emotion:   control.EmotionControl{Label: control.EmotionSad, Intensity: 0.4, Valence: -0.2, Arousal: -0.1},
		Character: control.DefaultCharacterControl(),
	}
	sess.SetPendingControl(pending)

	err := orch.RunTurn(context.Background(), sess, "B", control.DefaultTurnControl(), out)
	close(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := drain(out)

	if sess.TakePendingControl() != nil {
		t.Error("pending control must be cleared after the turn consumes it")
	}

	// The pending sad emotion (merged in before persona resolution) must
	// have won out over the excited persona's happy default — proving
	// merge happens before resolve, not after.
	var text string
	for _, ev := range events {
		if ev.Kind == EventTextDelta {
			text += ev.Token
		}
	}
	if !strings.Contains(text, "calm response") {
		t.Errorf("expected sad-toned opener from merged pending control, got text: %q", text)
	}
}
