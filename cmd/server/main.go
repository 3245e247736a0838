package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/generator"
	"github.com/nimbuscast/dialogserver/internal/models"
	"github.com/nimbuscast/dialogserver/internal/orchestrator"
	"github.com/nimbuscast/dialogserver/internal/session"
	"github.com/nimbuscast/dialogserver/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	if cfg.llmEngine == "ollama" {
		preloadCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := models.PreloadLLM(preloadCtx, cfg.ollamaURL, cfg.ollamaModel); err != nil {
			slog.Warn("ollama preload failed, continuing anyway", "model", cfg.ollamaModel, "error", err)
		}
		cancel()
	}

	backends := buildBackends(cfg)
	orch := orchestrator.New(backends)
	registry := session.NewRegistry()
	wsHandler := ws.NewHandler(registry, orch)

	mux := http.NewServeMux()
	registerRoutes(mux, deps{cfg: cfg, registry: registry, wsHandler: wsHandler, backends: backends})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv, cfg)

	slog.Info("dialog server starting", "addr", addr, "llm_engine", cfg.llmEngine, "tts_engine", cfg.ttsEngine, "avatar_engine", cfg.avatarEngine, "realtime", cfg.realtimeEnabled)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("dialog server stopped")
}

func awaitShutdown(srv *http.Server, cfg config) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	if cfg.llmEngine == "ollama" {
		if err := models.UnloadAllLLMs(ctx, cfg.ollamaURL); err != nil {
			slog.Warn("ollama unload on shutdown failed", "error", err)
		}
	}
}

// buildBackends wires concrete generator implementations per engine
// selection. Each stage defaults to its mock backend so the server runs
// standalone without any upstream API keys configured. The combined
// backend owns one process-wide persistent connection, serially shared
// across sessions one turn at a time, so it is connected here rather
// than per session or per turn.
func buildBackends(cfg config) orchestrator.Backends {
	if cfg.realtimeEnabled {
		combined := generator.NewRealtimeCombined(cfg.realtimeWSURL, cfg.openaiAPIKey, cfg.realtimeModel)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		instructions := control.SystemPrompt(control.DefaultTurnControl(), control.PersonaName("default"))
		if err := combined.Connect(ctx, instructions, cfg.realtimeVoice); err != nil {
			slog.Error("realtime combined connect failed", "error", err)
			os.Exit(1)
		}

		return orchestrator.Backends{
			Combined: combined,
			Avatar:   buildAvatar(cfg),
		}
	}

	return orchestrator.Backends{
		LLM:    buildLLM(cfg),
		TTS:    buildTTS(cfg),
		Avatar: buildAvatar(cfg),
	}
}

func buildLLM(cfg config) generator.LLM {
	openaiProvider := agents.NewOpenAIProvider(agents.OpenAIProviderParams{
		BaseURL:      param.NewOpt(cfg.openaiURL + "/v1/"),
		APIKey:       param.NewOpt(cfg.openaiAPIKey),
		UseResponses: param.NewOpt(true),
	})
	ollamaProvider := agents.NewOpenAIProvider(agents.OpenAIProviderParams{
		BaseURL:      param.NewOpt(cfg.ollamaURL + "/v1/"),
		APIKey:       param.NewOpt("ollama"),
		UseResponses: param.NewOpt(false),
	})

	router := generator.NewRouter(map[string]generator.LLM{
		"mock":   generator.MockLLM{},
		"openai": generator.NewAgentLLM(openaiProvider, cfg.openaiModel, cfg.llmMaxTokens),
		"ollama": generator.NewAgentLLM(ollamaProvider, cfg.ollamaModel, cfg.llmMaxTokens),
	}, "mock")

	backend, err := router.Route(cfg.llmEngine)
	if err != nil {
		slog.Error("llm router", "error", err)
		return generator.MockLLM{}
	}
	return backend
}

func buildTTS(cfg config) generator.TTS {
	router := generator.NewRouter(map[string]generator.TTS{
		"mock":       generator.MockTTS{},
		"elevenlabs": generator.NewElevenLabsTTS(cfg.elevenlabsURL, cfg.elevenlabsAPIKey, cfg.elevenlabsVoiceID, cfg.elevenlabsModelID, cfg.ttsPoolSize),
	}, "mock")

	backend, err := router.Route(cfg.ttsEngine)
	if err != nil {
		slog.Error("tts router", "error", err)
		return generator.MockTTS{}
	}
	return backend
}

func buildAvatar(cfg config) generator.Avatar {
	router := generator.NewRouter(map[string]generator.Avatar{
		"mock":   generator.MockAvatar{},
		"tavus":  generator.NewTavusAvatar(cfg.tavusURL, cfg.tavusAPIKey, cfg.tavusReplicaID, cfg.avatarPoolSize),
		"heygen": generator.NewTavusAvatar(cfg.heygenURL, cfg.heygenAPIKey, cfg.tavusReplicaID, cfg.avatarPoolSize),
	}, "mock")

	backend, err := router.Route(cfg.avatarEngine)
	if err != nil {
		slog.Error("avatar router", "error", err)
		return generator.MockAvatar{}
	}
	return backend
}
