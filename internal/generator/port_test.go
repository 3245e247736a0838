package generator

import "testing"

// S6 — two chunks of 80ms and 1000ms must yield 2 and 25 frames respectively.
func TestFrameCountScenarioS6(t *testing.T) {
	cases := []struct {
		durationMs float64
		want       int
	}{
		{80, 2},
		{1000, 25},
		{1, 1},   // max(1, round(...)) floor
		{0, 1},
	}
	for _, c := range cases {
		if got := FrameCount(c.durationMs); got != c.want {
			t.Errorf("FrameCount(%.0f) = %d, want %d", c.durationMs, got, c.want)
		}
	}
}

func TestFrameCountTotalAcrossChunks(t *testing.T) {
	total := FrameCount(80) + FrameCount(1000)
	if total != 27 {
		t.Errorf("expected 27 total frames, got %d", total)
	}
}
