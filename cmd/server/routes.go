package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/generator"
	"github.com/nimbuscast/dialogserver/internal/models"
	"github.com/nimbuscast/dialogserver/internal/orchestrator"
	"github.com/nimbuscast/dialogserver/internal/session"
)

type deps struct {
	cfg       config
	registry  *session.Registry
	wsHandler http.Handler
	backends  orchestrator.Backends
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.HandleFunc("GET /v1/health", d.handleHealth)
	mux.HandleFunc("GET /v1/capabilities", d.handleCapabilities)
	mux.HandleFunc("POST /v1/sessions", d.handleCreateSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", d.handleCloseSession)
	mux.Handle("GET /ws/sessions/{id}/stream", d.wsHandler)
}

// healthView is the wire shape of one generator stage's probe result.
type healthView struct {
	Healthy   bool    `json:"healthy"`
	LatencyMs float64 `json:"latency_ms"`
	Detail    string  `json:"detail,omitempty"`
}

func toHealthView(h generator.HealthStatus) healthView {
	return healthView{Healthy: h.Healthy, LatencyMs: h.LatencyMs, Detail: h.Detail}
}

func (d deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	stages := map[string]interface{}{}
	allHealthy := true
	record := func(name string, h generator.HealthStatus) {
		stages[name] = toHealthView(h)
		allHealthy = allHealthy && h.Healthy
	}
	if d.backends.Combined != nil {
		record("combined", d.backends.Combined.Health(ctx))
	} else {
		if d.backends.LLM != nil {
			record("llm", d.backends.LLM.Health(ctx))
		}
		if d.backends.TTS != nil {
			record("tts", d.backends.TTS.Health(ctx))
		}
	}
	if d.backends.Avatar != nil {
		record("avatar", d.backends.Avatar.Health(ctx))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":          "ok",
		"all_healthy":     allHealthy,
		"active_sessions": d.registry.Len(),
		"generators":      stages,
	})
}

func (d deps) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"personas":        control.Personas(),
		"llm_engine":      d.cfg.llmEngine,
		"tts_engine":      d.cfg.ttsEngine,
		"avatar_engine":   d.cfg.avatarEngine,
		"realtime":        d.cfg.realtimeEnabled,
		"drift_budget_ms": d.cfg.driftBudgetMs,
	}

	if d.backends.Combined != nil {
		resp["combined"] = d.backends.Combined.Capabilities()
	} else {
		if d.backends.LLM != nil {
			resp["llm"] = d.backends.LLM.Capabilities()
		}
		if d.backends.TTS != nil {
			resp["tts"] = d.backends.TTS.Capabilities()
		}
	}
	if d.backends.Avatar != nil {
		resp["avatar"] = d.backends.Avatar.Capabilities()
	}

	if d.cfg.llmEngine == "ollama" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if names, err := models.ListLLMModels(ctx, d.cfg.ollamaURL); err == nil {
			resp["ollama_models"] = names
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type createSessionRequest struct {
	PersonaID string `json:"persona_id"`
}

type createSessionResponse struct {
	SessionID   string `json:"session_id"`
	PersonaID   string `json:"persona_id"`
	PersonaName string `json:"persona_name"`
	StreamURL   string `json:"stream_url"`
}

func (d deps) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
	}
	if req.PersonaID == "" {
		req.PersonaID = "default"
	}

	sess := d.registry.Create(req.PersonaID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createSessionResponse{
		SessionID:   sess.ID,
		PersonaID:   sess.PersonaID,
		PersonaName: sess.PersonaName,
		StreamURL:   "/ws/sessions/" + sess.ID + "/stream",
	})
}

func (d deps) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if d.registry.Get(id) == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	d.registry.Close(id)
	w.WriteHeader(http.StatusNoContent)
}
