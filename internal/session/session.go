// Package session implements the per-connection dialogue state
// machine: turn history, pending control overrides, drift tracking,
// and the in-flight turn's cancellation handle.
package session

import (
	"context"
	"sync"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/drift"
	"github.com/nimbuscast/dialogserver/internal/generator"
)

// State is one node of the per-turn state machine.
type State string

const (
	StateIdle            State = "IDLE"
	StateLLMRun          State = "LLM_RUN"
	StateCtrlMerge       State = "CTRL_MERGE"
	StateTTSRun          State = "TTS_RUN"
	StateAvatarRun       State = "AVATAR_RUN"
	StateStreamingOutput State = "STREAMING_OUTPUT"
	StateTurnComplete    State = "TURN_COMPLETE"
	StateTurnError       State = "TURN_ERROR"
	StateInterrupted     State = "INTERRUPTED"
)

var validStates = map[State]bool{
	StateIdle: true, StateLLMRun: true, StateCtrlMerge: true, StateTTSRun: true,
	StateAvatarRun: true, StateStreamingOutput: true, StateTurnComplete: true,
	StateTurnError: true, StateInterrupted: true,
}

// Session is the server-side state for one active dialogue connection.
// Fields are guarded by mu because the WS receive loop, send loop, and
// the orchestrator's turn goroutine all touch it concurrently.
type Session struct {
	ID              string
	PersonaID       string
	PersonaName     string
	PersonaDefaults control.TurnControl

	DriftTracker *drift.Tracker

	mu            sync.Mutex
	state         State
	history       []generator.HistoryTurn
	pendingCtrl   *control.TurnControl
	frameCounter  int
	cancelCurrent context.CancelFunc
	turnDone      chan struct{}
}

// New creates a session bound to the given persona.
func New(id, personaID, personaName string, defaults control.TurnControl) *Session {
	return &Session{
		ID:              id,
		PersonaID:       personaID,
		PersonaName:     personaName,
		PersonaDefaults: defaults,
		DriftTracker:    drift.NewTracker(0),
		state:           StateIdle,
	}
}

// Transition moves the session to a new state. Unknown states panic —
// this guards against a typo introducing an unreachable state, mirroring
// the assertion in the state machine this was ported from.
func (s *Session) Transition(state State) {
	if !validStates[state] {
		panic("session: unknown state " + string(state))
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginTurn records the cancel function for a newly started turn and
// returns a channel that closes when the turn goroutine exits.
func (s *Session) BeginTurn(cancel context.CancelFunc) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCurrent = cancel
	s.turnDone = make(chan struct{})
	return s.turnDone
}

// EndTurn clears the turn handle, unconditionally settles the session
// back to IDLE, and signals turnDone. Safe to call once per turn,
// always by the turn goroutine itself — this is what makes every
// TURN_COMPLETE/TURN_ERROR settle back to IDLE for the next user_text.
func (s *Session) EndTurn() {
	s.mu.Lock()
	done := s.turnDone
	s.cancelCurrent = nil
	s.turnDone = nil
	s.state = StateIdle
	s.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// CancelCurrentTurn cancels any in-flight turn and blocks until its
// goroutine has finished, then unconditionally resets state to IDLE —
// a no-op wait if no turn is running, but the IDLE reset always applies.
func (s *Session) CancelCurrentTurn() {
	s.mu.Lock()
	cancel := s.cancelCurrent
	done := s.turnDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		if done != nil {
			<-done
		}
	}
	s.Transition(StateIdle)
}

// AppendHistory records one exchange for multi-turn context.
func (s *Session) AppendHistory(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, generator.HistoryTurn{Role: role, Content: content})
}

// History returns a snapshot of the conversation so far.
func (s *Session) History() []generator.HistoryTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]generator.HistoryTurn, len(s.history))
	copy(out, s.history)
	return out
}

// SetPendingControl stores a control update to be merged into the next
// turn's effective control.
func (s *Session) SetPendingControl(c control.TurnControl) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingCtrl = &c
}

// TakePendingControl returns and clears any pending control update.
func (s *Session) TakePendingControl() *control.TurnControl {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.pendingCtrl
	s.pendingCtrl = nil
	return c
}

// NextFrameCounter returns the current frame counter and advances it
// by n, keeping avatar frame_index monotonic across chunks in a turn.
func (s *Session) NextFrameCounter(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.frameCounter
	s.frameCounter += n
	return cur
}

// ResetDrift clears the session's drift tracker, used at the start of
// each new turn so a stale drift reading from a prior turn never leaks.
func (s *Session) ResetDrift() {
	s.DriftTracker.Reset()
}

// ResetFrameCounter zeroes the avatar frame_index counter, used at the
// start of each new turn so frame_index values start at 0 per turn
// instead of continuing from wherever the previous turn left off.
func (s *Session) ResetFrameCounter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameCounter = 0
}
