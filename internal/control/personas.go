package control

// PersonaPreset is an immutable named TurnControl used as a session's
// persona defaults.
type PersonaPreset struct {
	ID          string
	DisplayName string
	Control     TurnControl
}

var presets = map[string]PersonaPreset{
	"default": {
		ID: "default", DisplayName: "Default",
		Control: TurnControl{
			Emotion:   EmotionControl{Label: EmotionNeutral, Intensity: 0.5, Valence: 0.0, Arousal: 0.0},
			Character: CharacterControl{PersonaID: "default", SpeechRate: 1.00, PitchShift: 0.00, Expressivity: 0.60, MotionGain: 1.0},
		},
	},
	"professional": {
		ID: "professional", DisplayName: "Professional",
		Control: TurnControl{
			Emotion:   EmotionControl{Label: EmotionNeutral, Intensity: 0.3, Valence: 0.1, Arousal: -0.1},
			Character: CharacterControl{PersonaID: "professional", SpeechRate: 0.95, PitchShift: 0.00, Expressivity: 0.40, MotionGain: 0.7},
		},
	},
	"casual": {
		ID: "casual", DisplayName: "Casual",
		Control: TurnControl{
			Emotion:   EmotionControl{Label: EmotionHappy, Intensity: 0.4, Valence: 0.3, Arousal: 0.1},
			Character: CharacterControl{PersonaID: "casual", SpeechRate: 1.05, PitchShift: 0.00, Expressivity: 0.70, MotionGain: 1.1},
		},
	},
	"excited": {
		ID: "excited", DisplayName: "Excited",
		Control: TurnControl{
			Emotion:   EmotionControl{Label: EmotionHappy, Intensity: 0.8, Valence: 0.7, Arousal: 0.6},
			Character: CharacterControl{PersonaID: "excited", SpeechRate: 1.20, PitchShift: 0.05, Expressivity: 0.90, MotionGain: 1.5},
		},
	},
}

// PersonaDefaults returns the preset's TurnControl, falling back to
// "default" for an unknown persona_id.
func PersonaDefaults(personaID string) TurnControl {
	if p, ok := presets[personaID]; ok {
		return p.Control
	}
	return presets["default"].Control
}

// PersonaName returns the preset's display name, falling back to
// "default" for an unknown persona_id.
func PersonaName(personaID string) string {
	if p, ok := presets[personaID]; ok {
		return p.DisplayName
	}
	return presets["default"].DisplayName
}

// Personas returns all registered presets, for the capabilities endpoint.
func Personas() []PersonaPreset {
	out := make([]PersonaPreset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	return out
}
