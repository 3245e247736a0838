package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/nimbuscast/dialogserver/internal/env"
)

// tuning holds knobs loaded from dialogserver.json. These are values
// that may eventually move to a database; for now a JSON file keeps
// them out of env vars.
type tuning struct {
	LLMMaxTokens   int     `json:"llm_max_tokens"`
	LLMPoolSize    int     `json:"llm_pool_size"`
	TTSPoolSize    int     `json:"tts_pool_size"`
	AvatarPoolSize int     `json:"avatar_pool_size"`
	DriftBudgetMs  float64 `json:"drift_budget_ms"`
	OpenAIURL      string  `json:"openai_url"`
	OpenAIModel    string  `json:"openai_model"`
	OllamaModel    string  `json:"ollama_model"`
}

// defaultTuning returns the built-in defaults used when dialogserver.json
// is absent or malformed, and for any field the file leaves out.
func defaultTuning() tuning {
	return tuning{
		LLMMaxTokens:   512,
		LLMPoolSize:    50,
		TTSPoolSize:    50,
		AvatarPoolSize: 50,
		DriftBudgetMs:  80.0,
		OpenAIURL:      "https://api.openai.com",
		OpenAIModel:    "gpt-4.1-nano",
		OllamaModel:    "llama3.2:3b",
	}
}

// loadTuning reads path if present, otherwise returns defaults.
func loadTuning(path string) tuning {
	t := defaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Info("no config file, using defaults", "path", path)
		return t
	}
	if err = json.Unmarshal(data, &t); err != nil {
		slog.Warn("bad config file, using defaults", "path", path, "error", err)
		return defaultTuning()
	}
	slog.Info("loaded config", "path", path)
	return t
}

// config holds deployment-time settings loaded from environment
// variables through the flat env.Str/env.Int/env.Float helpers, with
// tuning-file values as the fallbacks where a tuning field exists.
type config struct {
	port string

	llmEngine   string
	llmMaxTokens int
	llmPoolSize int

	openaiAPIKey string
	openaiURL    string
	openaiModel  string

	ollamaURL   string
	ollamaModel string

	ttsEngine        string
	elevenlabsAPIKey string
	elevenlabsURL    string
	elevenlabsVoiceID string
	elevenlabsModelID string
	ttsPoolSize      int

	avatarEngine      string
	tavusAPIKey       string
	tavusURL          string
	tavusReplicaID    string
	heygenAPIKey      string
	heygenURL         string
	avatarPoolSize    int

	realtimeEnabled bool
	realtimeWSURL   string
	realtimeModel   string
	realtimeVoice   string

	driftBudgetMs float64
}

func loadConfig() config {
	t := loadTuning("dialogserver.json")

	return config{
		port: env.Str("DIALOG_PORT", "8000"),

		llmEngine:    env.Str("LLM_ENGINE", "mock"),
		llmMaxTokens: env.Int("LLM_MAX_TOKENS", t.LLMMaxTokens),
		llmPoolSize:  env.Int("LLM_POOL_SIZE", t.LLMPoolSize),

		openaiAPIKey: env.Str("OPENAI_API_KEY", ""),
		openaiURL:    env.Str("OPENAI_URL", t.OpenAIURL),
		openaiModel:  env.Str("OPENAI_MODEL", t.OpenAIModel),

		ollamaURL:   env.Str("OLLAMA_URL", "http://localhost:11434"),
		ollamaModel: env.Str("OLLAMA_MODEL", t.OllamaModel),

		ttsEngine:         env.Str("TTS_ENGINE", "mock"),
		elevenlabsAPIKey:  env.Str("ELEVENLABS_API_KEY", ""),
		elevenlabsURL:     env.Str("ELEVENLABS_URL", "https://api.elevenlabs.io"),
		elevenlabsVoiceID: env.Str("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		elevenlabsModelID: env.Str("ELEVENLABS_MODEL_ID", "eleven_turbo_v2_5"),
		ttsPoolSize:       env.Int("TTS_POOL_SIZE", t.TTSPoolSize),

		avatarEngine:   env.Str("AVATAR_ENGINE", "mock"),
		tavusAPIKey:    env.Str("TAVUS_API_KEY", ""),
		tavusURL:       env.Str("TAVUS_URL", "https://tavusapi.com"),
		tavusReplicaID: env.Str("TAVUS_REPLICA_ID", ""),
		heygenAPIKey:   env.Str("HEYGEN_API_KEY", ""),
		heygenURL:      env.Str("HEYGEN_URL", "https://api.heygen.com"),
		avatarPoolSize: env.Int("AVATAR_POOL_SIZE", t.AvatarPoolSize),

		realtimeEnabled: env.Str("REALTIME_ENABLED", "") == "true",
		realtimeWSURL:   env.Str("REALTIME_WS_URL", "wss://api.openai.com/v1/realtime"),
		realtimeModel:   env.Str("REALTIME_MODEL", "gpt-4o-realtime-preview-2024-12-17"),
		realtimeVoice:   env.Str("REALTIME_VOICE", "alloy"),

		driftBudgetMs: env.Float("DRIFT_BUDGET_MS", t.DriftBudgetMs),
	}
}
