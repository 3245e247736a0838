// Package control holds the per-turn emotion/character controls, their
// layered resolution, and the persona presets that seed them.
package control

import "fmt"

// EmotionLabel is the closed set of emotional tones a turn can carry.
type EmotionLabel string

const (
	EmotionNeutral   EmotionLabel = "neutral"
	EmotionHappy     EmotionLabel = "happy"
	EmotionSad       EmotionLabel = "sad"
	EmotionAngry     EmotionLabel = "angry"
	EmotionSurprised EmotionLabel = "surprised"
	EmotionFearful   EmotionLabel = "fearful"
	EmotionDisgusted EmotionLabel = "disgusted"
)

var validEmotionLabels = map[EmotionLabel]bool{
	EmotionNeutral: true, EmotionHappy: true, EmotionSad: true,
	EmotionAngry: true, EmotionSurprised: true, EmotionFearful: true,
	EmotionDisgusted: true,
}

// EmotionControl carries the emotional register of a turn.
type EmotionControl struct {
	Label     EmotionLabel `json:"label"`
	Intensity float64      `json:"intensity"`
	Valence   float64      `json:"valence"`
	Arousal   float64      `json:"arousal"`
}

// DefaultEmotionControl is the zero-argument construction used by the
// resolver and Merge to detect "the client left this unset".
func DefaultEmotionControl() EmotionControl {
	return EmotionControl{Label: EmotionNeutral, Intensity: 0.5, Valence: 0, Arousal: 0}
}

// NewEmotionControl validates field ranges and returns the control, or an
// error if any field is out of range. An empty label becomes neutral;
// numeric fields are taken as given, so a zero value stays zero.
func NewEmotionControl(label EmotionLabel, intensity, valence, arousal float64) (EmotionControl, error) {
	if label == "" {
		label = EmotionNeutral
	}
	if !validEmotionLabels[label] {
		return EmotionControl{}, fmt.Errorf("control: unknown emotion label %q", label)
	}
	if intensity < 0 || intensity > 1 {
		return EmotionControl{}, fmt.Errorf("control: intensity %.3f out of range [0,1]", intensity)
	}
	if valence < -1 || valence > 1 {
		return EmotionControl{}, fmt.Errorf("control: valence %.3f out of range [-1,1]", valence)
	}
	if arousal < -1 || arousal > 1 {
		return EmotionControl{}, fmt.Errorf("control: arousal %.3f out of range [-1,1]", arousal)
	}
	return EmotionControl{Label: label, Intensity: intensity, Valence: valence, Arousal: arousal}, nil
}

// CharacterControl carries voice/persona performance knobs for a turn.
type CharacterControl struct {
	PersonaID    string  `json:"persona_id"`
	SpeechRate   float64 `json:"speech_rate"`
	PitchShift   float64 `json:"pitch_shift"`
	Expressivity float64 `json:"expressivity"`
	MotionGain   float64 `json:"motion_gain"`
}

// DefaultCharacterControl is the zero-argument construction.
func DefaultCharacterControl() CharacterControl {
	return CharacterControl{PersonaID: "default", SpeechRate: 1.0, PitchShift: 0, Expressivity: 0.6, MotionGain: 1.0}
}

// NewCharacterControl validates field ranges. An empty persona_id
// becomes "default"; numeric fields are taken as given, so a zero
// speech_rate is rejected as out of range.
func NewCharacterControl(personaID string, speechRate, pitchShift, expressivity, motionGain float64) (CharacterControl, error) {
	if personaID == "" {
		personaID = "default"
	}
	if speechRate < 0.25 || speechRate > 4.0 {
		return CharacterControl{}, fmt.Errorf("control: speech_rate %.3f out of range [0.25,4.0]", speechRate)
	}
	if pitchShift < -1 || pitchShift > 1 {
		return CharacterControl{}, fmt.Errorf("control: pitch_shift %.3f out of range [-1,1]", pitchShift)
	}
	if expressivity < 0 || expressivity > 1 {
		return CharacterControl{}, fmt.Errorf("control: expressivity %.3f out of range [0,1]", expressivity)
	}
	if motionGain < 0 || motionGain > 2 {
		return CharacterControl{}, fmt.Errorf("control: motion_gain %.3f out of range [0,2]", motionGain)
	}
	return CharacterControl{
		PersonaID: personaID, SpeechRate: speechRate, PitchShift: pitchShift,
		Expressivity: expressivity, MotionGain: motionGain,
	}, nil
}

// TurnControl pairs an emotion and a character control. Equality is
// structural — both fields are plain comparable structs.
type TurnControl struct {
	Emotion   EmotionControl   `json:"emotion"`
	Character CharacterControl `json:"character"`
}

// DefaultTurnControl returns the zero-argument construction used as the
// "nothing was supplied" sentinel throughout resolve/merge.
func DefaultTurnControl() TurnControl {
	return TurnControl{Emotion: DefaultEmotionControl(), Character: DefaultCharacterControl()}
}
