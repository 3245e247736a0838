// Package ws implements the per-session WebSocket connection loop:
// upgrading the HTTP request, relaying inbound control/text messages
// into the orchestrator, and serializing outbound turn events back to
// the client.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/metrics"
	"github.com/nimbuscast/dialogserver/internal/orchestrator"
	"github.com/nimbuscast/dialogserver/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// sessionNotFoundCloseCode is sent when the path names a session id the
// registry does not know about.
const sessionNotFoundCloseCode = 4004

// outboundQueueCap bounds how many events may be staged for the send
// loop before the turn producing them blocks.
const outboundQueueCap = 64

// Handler upgrades and runs WebSocket dialogue sessions.
type Handler struct {
	registry *session.Registry
	orch     *orchestrator.Orchestrator
}

// NewHandler creates a connection handler bound to a session registry
// and turn orchestrator.
func NewHandler(registry *session.Registry, orch *orchestrator.Orchestrator) *Handler {
	return &Handler{registry: registry, orch: orch}
}

// ServeHTTP upgrades the request and runs the named session's
// connection loop. sessionID comes from the URL path (see routes.go).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	sess := h.registry.Get(sessionID)
	if sess == nil {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(sessionNotFoundCloseCode, "session not found"), time.Now().Add(time.Second))
		conn.Close()
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err, "session_id", sessionID)
		return
	}
	defer conn.Close()

	h.runSession(conn, sess)
}

func (h *Handler) runSession(conn *websocket.Conn, sess *session.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()

	out := make(chan orchestrator.Event, outboundQueueCap)
	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		h.sendLoop(conn, out)
	}()

	h.recvLoop(ctx, conn, sess, out)

	sess.CancelCurrentTurn()
	close(out)
	<-sendDone

	slog.Info("session stream closed", "session_id", sess.ID)
}

// recvLoop reads inbound frames until the connection closes. A
// user_text message implicitly cancels any turn already in flight
// (barge-in), then starts a new one in its own goroutine so the loop
// keeps reading — an interrupt or the next user_text is never blocked
// behind a long-running turn.
func (h *Handler) recvLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, out chan<- orchestrator.Event) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("bad inbound message", "session_id", sess.ID, "error", err)
			continue
		}

		switch msg.Type {
		case "user_text":
			ctrl, err := msg.Control.toTurnControl()
			if err != nil {
				slog.Warn("invalid inline control on user_text", "session_id", sess.ID, "error", err)
				continue
			}
			h.handleUserText(ctx, sess, msg.Text, ctrl, out)
		case "interrupt":
			metrics.Interrupts.Inc()
			sess.CancelCurrentTurn()
			h.orch.CancelResponse(ctx)
		case "control_update":
			ctrl, err := msg.Control.toTurnControl()
			if err != nil {
				slog.Warn("invalid control_update", "session_id", sess.ID, "error", err)
				continue
			}
			sess.SetPendingControl(ctrl)
		}
	}
}

func (h *Handler) handleUserText(ctx context.Context, sess *session.Session, text string, turnCtrl control.TurnControl, out chan<- orchestrator.Event) {
	inFlight := sess.State() != session.StateIdle
	sess.CancelCurrentTurn()
	if inFlight {
		metrics.BargeIns.Inc()
		h.orch.CancelResponse(ctx)
	}

	turnCtx, cancel := context.WithCancel(ctx)
	sess.BeginTurn(cancel)

	go func() {
		defer cancel()
		defer sess.EndTurn()
		if err := h.orch.RunTurn(turnCtx, sess, text, turnCtrl, out); err != nil && turnCtx.Err() == nil {
			slog.Error("turn failed", "session_id", sess.ID, "error", err)
		}
	}()
}

func (h *Handler) sendLoop(conn *websocket.Conn, out <-chan orchestrator.Event) {
	var mu sync.Mutex
	for ev := range out {
		wire := toOutboundEvent(ev)
		payload, err := json.Marshal(wire)
		if err != nil {
			continue
		}
		mu.Lock()
		writeErr := conn.WriteMessage(websocket.TextMessage, payload)
		mu.Unlock()
		if writeErr != nil {
			slog.Info("write failed, closing send loop", "error", writeErr)
			return
		}
	}
}
