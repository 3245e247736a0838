package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dialog_sessions_active",
		Help: "Currently open dialogue sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialog_sessions_total",
		Help: "Total sessions created",
	})

	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialog_turns_total",
		Help: "Turns completed by outcome",
	}, []string{"outcome"}) // ok | error | cancelled

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dialog_stage_duration_seconds",
		Help:    "Per-stage generator latency",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0},
	}, []string{"stage"}) // llm | tts | avatar

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dialog_turn_duration_seconds",
		Help:    "End-to-end turn latency from user_text to turn_complete",
		Buckets: []float64{0.1, 0.2, 0.5, 0.8, 1.0, 1.5, 2.0, 3.0, 5.0},
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialog_errors_total",
		Help: "Error counts by stage and kind",
	}, []string{"stage", "kind"})

	AudioChunksEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialog_audio_chunks_total",
		Help: "Total TTS audio chunks emitted",
	})

	VideoFramesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialog_video_frames_total",
		Help: "Total avatar video frames emitted",
	})

	DriftMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dialog_av_drift_ms",
		Help:    "Per-frame audio/video drift in milliseconds",
		Buckets: []float64{-200, -100, -50, -20, 0, 20, 50, 100, 200},
	})

	BargeIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialog_barge_ins_total",
		Help: "Turns cancelled by a new user_text before completion",
	})

	Interrupts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialog_interrupts_total",
		Help: "Turns cancelled by an explicit interrupt event",
	})
)
