package control

import (
	"strings"
	"testing"
)

func TestSystemPromptNeutralDefaultIsTerse(t *testing.T) {
	c := TurnControl{
		Emotion:   EmotionControl{Label: EmotionNeutral, Intensity: 0},
		Character: DefaultCharacterControl(),
	}
	p := SystemPrompt(c, "Default")
	if !strings.Contains(p, "You are Default.") {
		t.Errorf("expected persona name in prompt, got %q", p)
	}
	if strings.Contains(p, "tone") {
		t.Errorf("expected no tone line for neutral zero-intensity control, got %q", p)
	}
}

func TestSystemPromptIncludesToneForHighIntensity(t *testing.T) {
	c := TurnControl{
		Emotion:   EmotionControl{Label: EmotionHappy, Intensity: 0.8},
		Character: DefaultCharacterControl(),
	}
	p := SystemPrompt(c, "Buddy")
	if !strings.Contains(p, "happy tone") {
		t.Errorf("expected happy tone line, got %q", p)
	}
}

func TestSystemPromptSpeechRateExtremes(t *testing.T) {
	slow := SystemPrompt(TurnControl{Character: CharacterControl{SpeechRate: 0.7}}, "Buddy")
	if !strings.Contains(slow, "slowly") {
		t.Errorf("expected slow-pace instruction, got %q", slow)
	}
	fast := SystemPrompt(TurnControl{Character: CharacterControl{SpeechRate: 1.4}}, "Buddy")
	if !strings.Contains(fast, "brisk") {
		t.Errorf("expected brisk-pace instruction, got %q", fast)
	}
}

func TestSystemPromptExpressivityLine(t *testing.T) {
	p := SystemPrompt(TurnControl{Character: CharacterControl{Expressivity: 0.9}}, "Buddy")
	if !strings.Contains(p, "expressive") {
		t.Errorf("expected expressivity instruction, got %q", p)
	}
}
