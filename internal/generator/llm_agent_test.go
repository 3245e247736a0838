package generator

import "testing"

func TestRenderTranscriptNoHistory(t *testing.T) {
	got := renderTranscript(nil, "hello")
	if got != "hello" {
		t.Errorf("expected bare user text with no history, got %q", got)
	}
}

func TestRenderTranscriptIncludesPriorTurns(t *testing.T) {
	history := []HistoryTurn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello there"},
	}
	got := renderTranscript(history, "how are you")
	want := "user: hi\nassistant: hello there\nuser: how are you"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestAgentLLMHealthRequiresProvider(t *testing.T) {
	a := NewAgentLLM(nil, "gpt-test", 512)
	h := a.Health(t.Context())
	if h.Healthy {
		t.Error("expected unhealthy with nil provider")
	}
}
