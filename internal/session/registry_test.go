package session

import "testing"

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()
	s := r.Create("excited")

	if got := r.Get(s.ID); got != s {
		t.Errorf("expected Get to return the created session")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 session, got %d", r.Len())
	}
	if s.PersonaName != "Excited" {
		t.Errorf("expected persona name Excited, got %s", s.PersonaName)
	}
}

func TestRegistryGetUnknownReturnsNil(t *testing.T) {
	r := NewRegistry()
	if r.Get("missing") != nil {
		t.Error("expected nil for unknown session id")
	}
	if _, err := r.GetOrErr("missing"); err == nil {
		t.Error("expected error for unknown session id")
	}
}

func TestRegistryCloseRemovesSession(t *testing.T) {
	r := NewRegistry()
	s := r.Create("default")
	r.Close(s.ID)

	if r.Get(s.ID) != nil {
		t.Error("expected session removed after close")
	}
	if r.Len() != 0 {
		t.Errorf("expected 0 sessions, got %d", r.Len())
	}
}

func TestRegistryCloseIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := r.Create("default")
	r.Close(s.ID)
	r.Close(s.ID) // must not panic
}

func TestRegistryUnknownPersonaFallsBackToDefault(t *testing.T) {
	r := NewRegistry()
	s := r.Create("no_such_persona")
	if s.PersonaName != "Default" {
		t.Errorf("expected fallback to Default persona, got %s", s.PersonaName)
	}
}
