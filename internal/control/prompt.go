package control

import (
	"fmt"
	"strings"
)

// SystemPrompt injects the resolved emotion/character controls into an
// LLM system prompt so the model's text carries the target register
// before TTS and avatar rendering are applied.
func SystemPrompt(effective TurnControl, personaName string) string {
	e, c := effective.Emotion, effective.Character
	parts := []string{fmt.Sprintf("You are %s.", personaName)}

	if e.Label != EmotionNeutral || e.Intensity > 0.3 {
		parts = append(parts, fmt.Sprintf("Respond with a %s tone (intensity %.1f/1.0).", e.Label, e.Intensity))
	}
	switch {
	case c.SpeechRate < 0.85:
		parts = append(parts, "Speak slowly and deliberately.")
	case c.SpeechRate > 1.2:
		parts = append(parts, "Speak at a brisk, energetic pace.")
	}
	if c.Expressivity > 0.7 {
		parts = append(parts, "Be expressive and emotionally engaged.")
	}

	parts = append(parts, "Keep responses conversational and appropriately brief.")
	return strings.Join(parts, " ")
}
