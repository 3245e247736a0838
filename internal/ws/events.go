package ws

import (
	"encoding/base64"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/generator"
	"github.com/nimbuscast/dialogserver/internal/orchestrator"
)

// outboundEvent is the wire shape of one server→client event: a flat
// tagged union on Type, with binary payloads (audio/video) base64
// inline in Data rather than sent as separate binary frames. Fields
// irrelevant to a given Type are omitted from the encoded JSON.
type outboundEvent struct {
	Type        string  `json:"type"`
	TurnID      string  `json:"turn_id,omitempty"`
	Token       string  `json:"token,omitempty"`
	Data        string  `json:"data,omitempty"`
	TimestampMs float64 `json:"timestamp_ms,omitempty"`
	DurationMs  float64 `json:"duration_ms,omitempty"`
	SampleRate  int     `json:"sample_rate,omitempty"`
	Encoding    string  `json:"encoding,omitempty"`
	FrameIndex  int     `json:"frame_index,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	DriftMs     float64 `json:"drift_ms,omitempty"`
	Code        string  `json:"code,omitempty"`
	Message     string  `json:"message,omitempty"`
}

func toOutboundEvent(ev orchestrator.Event) outboundEvent {
	out := outboundEvent{Type: string(ev.Kind), TurnID: ev.TurnID}
	switch ev.Kind {
	case orchestrator.EventTextDelta:
		out.Token = ev.Token
	case orchestrator.EventAudioChunk:
		audioToEvent(&out, ev.Audio)
	case orchestrator.EventVideoFrame:
		videoToEvent(&out, ev.Video)
		out.DriftMs = ev.DriftMs
	case orchestrator.EventError:
		out.Code = "turn_error"
		out.Message = ev.ErrText
	}
	return out
}

func audioToEvent(out *outboundEvent, c generator.AudioChunk) {
	out.Data = base64.StdEncoding.EncodeToString(c.Data)
	out.TimestampMs = c.TimestampMs
	out.DurationMs = c.DurationMs
	out.SampleRate = c.SampleRate
	out.Encoding = c.Encoding
}

func videoToEvent(out *outboundEvent, f generator.VideoFrame) {
	out.Data = base64.StdEncoding.EncodeToString(f.Data)
	out.TimestampMs = f.TimestampMs
	out.FrameIndex = f.FrameIndex
	out.Width = f.Width
	out.Height = f.Height
	out.ContentType = f.ContentType
}

// inboundMessage is the wire shape of one client→server message.
type inboundMessage struct {
	Type    string                `json:"type"`
	Text    string                `json:"text,omitempty"`
	Control *inboundControlUpdate `json:"control,omitempty"`
}

type inboundControlUpdate struct {
	Emotion   *inboundEmotion   `json:"emotion,omitempty"`
	Character *inboundCharacter `json:"character,omitempty"`
}

type inboundEmotion struct {
	Label     string  `json:"label"`
	Intensity float64 `json:"intensity"`
	Valence   float64 `json:"valence"`
	Arousal   float64 `json:"arousal"`
}

type inboundCharacter struct {
	PersonaID    string  `json:"persona_id"`
	SpeechRate   float64 `json:"speech_rate"`
	PitchShift   float64 `json:"pitch_shift"`
	Expressivity float64 `json:"expressivity"`
	MotionGain   float64 `json:"motion_gain"`
}

// toTurnControl converts a wire control update into a TurnControl,
// leaving any omitted section at its zero/default value so Merge's
// default-detection behaves the same as an explicitly-default update.
func (m *inboundControlUpdate) toTurnControl() (control.TurnControl, error) {
	out := control.DefaultTurnControl()
	if m == nil {
		return out, nil
	}
	if m.Emotion != nil {
		e, err := control.NewEmotionControl(control.EmotionLabel(m.Emotion.Label), m.Emotion.Intensity, m.Emotion.Valence, m.Emotion.Arousal)
		if err != nil {
			return out, err
		}
		out.Emotion = e
	}
	if m.Character != nil {
		c, err := control.NewCharacterControl(m.Character.PersonaID, m.Character.SpeechRate, m.Character.PitchShift, m.Character.Expressivity, m.Character.MotionGain)
		if err != nil {
			return out, err
		}
		out.Character = c
	}
	return out, nil
}
