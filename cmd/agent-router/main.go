// Command agent-router translates canonical LLM requests to Claude, OpenAI
// and Gemini and serves them over HTTP.
package main

import "github.com/sashabogi/agent-router/internal/cli"

func main() {
	cli.Execute()
}
