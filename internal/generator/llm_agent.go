package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/nimbuscast/dialogserver/internal/control"
)

// AgentLLM is the real LLM backend, routing through the openai-agents-go
// SDK. One AgentLLM instance is bound to one provider and one model;
// Stream builds a fresh single-turn agent per call so that each turn's
// persona/emotion system prompt can differ.
type AgentLLM struct {
	provider  agents.ModelProvider
	model     string
	maxTokens int
}

// NewAgentLLM creates an LLM backend bound to one model provider.
func NewAgentLLM(provider agents.ModelProvider, model string, maxTokens int) *AgentLLM {
	return &AgentLLM{provider: provider, model: model, maxTokens: maxTokens}
}

// Stream runs one turn through the SDK, folding prior turn history into
// the prompt (the SDK call used here is single-message, so history is
// rendered as a transcript ahead of the live user line).
func (a *AgentLLM) Stream(ctx context.Context, userText string, c control.TurnControl, gctx Context, onToken TokenFunc) (string, error) {
	systemPrompt := control.SystemPrompt(c, gctx.PersonaName)

	agent := agents.New("dialog-assistant").
		WithInstructions(systemPrompt).
		WithModel(a.model).
		WithModelSettings(modelsettings.ModelSettings{
			MaxTokens: param.NewOpt(int64(a.maxTokens)),
		})

	runner := agents.Runner{Config: agents.RunConfig{
		ModelProvider:   a.provider,
		MaxTurns:        1,
		TracingDisabled: true,
	}}

	message := renderTranscript(gctx.History, userText)

	events, errCh, err := runner.RunStreamedChan(ctx, agent, message)
	if err != nil {
		return "", fmt.Errorf("generator: llm stream start: %w", err)
	}

	var textBuf strings.Builder
	for ev := range events {
		raw, ok := ev.(agents.RawResponsesStreamEvent)
		if !ok {
			continue
		}
		if raw.Data.Type != "response.output_text.delta" {
			continue
		}
		if onToken != nil {
			onToken(raw.Data.Delta)
		}
		textBuf.WriteString(raw.Data.Delta)
	}

	if streamErr := <-errCh; streamErr != nil {
		return textBuf.String(), fmt.Errorf("generator: llm stream: %w", streamErr)
	}
	return textBuf.String(), nil
}

func renderTranscript(history []HistoryTurn, userText string) string {
	if len(history) == 0 {
		return userText
	}
	var b strings.Builder
	for _, h := range history {
		fmt.Fprintf(&b, "%s: %s\n", h.Role, h.Content)
	}
	fmt.Fprintf(&b, "user: %s", userText)
	return b.String()
}

func (a *AgentLLM) Health(ctx context.Context) HealthStatus {
	if a.provider == nil {
		return HealthStatus{Healthy: false, Detail: "no model provider configured"}
	}
	return HealthStatus{Healthy: true, Detail: fmt.Sprintf("model=%s", a.model)}
}

func (a *AgentLLM) Capabilities() Capabilities {
	return Capabilities{
		SupportsStreaming: true,
		SupportsEmotion:   true,
		MaxTextLength:     32000,
		SupportedEmotions: []control.EmotionLabel{
			control.EmotionNeutral, control.EmotionHappy, control.EmotionSad, control.EmotionAngry,
			control.EmotionSurprised, control.EmotionFearful, control.EmotionDisgusted,
		},
	}
}
