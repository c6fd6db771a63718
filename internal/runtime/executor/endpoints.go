package executor

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabogi/agent-router/internal/provider"
)

const (
	DefaultClaudeBaseURL = "https://api.anthropic.com"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

	DefaultAnthropicVersion = "2023-06-01"
)

func defaultBaseURL(f provider.Format) string {
	switch f {
	case provider.FormatClaude:
		return DefaultClaudeBaseURL
	case provider.FormatGemini:
		return DefaultGeminiBaseURL
	default:
		return DefaultOpenAIBaseURL
	}
}

// endpoint returns the request URL for model. Gemini carries the model and
// streaming mode in the path; the others carry them in the body.
func (c *Client) endpoint(model string, stream bool) string {
	base := strings.TrimRight(c.baseURL, "/")
	switch c.format {
	case provider.FormatClaude:
		return base + "/v1/messages"
	case provider.FormatGemini:
		path := base + "/v1beta/models/" + url.PathEscape(model)
		if stream {
			return path + ":streamGenerateContent?alt=sse"
		}
		return path + ":generateContent"
	default:
		return base + "/chat/completions"
	}
}

// setHeaders applies content negotiation, credentials and custom headers.
// Custom headers are applied first so they cannot replace the credentials.
func (c *Client) setHeaders(req *http.Request, stream bool) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	switch c.format {
	case provider.FormatClaude:
		req.Header.Set("x-api-key", c.cfg.APIKey)
		version := c.cfg.AnthropicVersion
		if version == "" {
			version = DefaultAnthropicVersion
		}
		req.Header.Set("anthropic-version", version)
	case provider.FormatGemini:
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	default:
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}
