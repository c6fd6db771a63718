package ir

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// GenToolCallID returns an OpenAI-style tool call id ("call_" + 24 hex chars).
// Used when a provider omits the id of a tool call.
func GenToolCallID() string {
	u := uuid.New()
	return "call_" + hex.EncodeToString(u[:12])
}
