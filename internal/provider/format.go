package provider

import "strings"

// Format identifies one of the supported wire protocols.
type Format string

const (
	FormatClaude Format = "claude" // content-block protocol
	FormatOpenAI Format = "openai" // chat completion protocol
	FormatGemini Format = "gemini" // parts/candidates protocol
)

// Formats lists every supported format.
var Formats = []Format{FormatClaude, FormatOpenAI, FormatGemini}

// ParseFormat resolves a provider name or alias.
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "claude", "anthropic":
		return FormatClaude, true
	case "openai", "openai-compat", "openai-compatible", "chat-completions":
		return FormatOpenAI, true
	case "gemini", "google", "vertex", "vertex-compat", "aistudio":
		return FormatGemini, true
	default:
		return "", false
	}
}

func (f Format) String() string {
	return string(f)
}
