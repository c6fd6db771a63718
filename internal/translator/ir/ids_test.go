package ir

import (
	"strings"
	"testing"
)

func TestGenToolCallID(t *testing.T) {
	id := GenToolCallID()
	if !strings.HasPrefix(id, "call_") || len(id) != len("call_")+24 {
		t.Errorf("GenToolCallID() = %q, want call_ + 24 hex chars", id)
	}
	if id2 := GenToolCallID(); id == id2 {
		t.Errorf("GenToolCallID() returned same ID twice: %q", id)
	}
}
