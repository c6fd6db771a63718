package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/config"
	"github.com/sashabogi/agent-router/internal/runtime/executor"
	"github.com/sashabogi/agent-router/internal/sseutil"
)

const upstreamReply = `{"id":"c1","model":"gpt-x","choices":[{"finish_reason":"stop",
	"message":{"role":"assistant","content":"hello"}}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`

const upstreamStream = `data: {"id":"c1","model":"gpt-x","choices":[{"delta":{"role":"assistant","content":"he"}}]}` + "\n\n" +
	`data: {"id":"c1","choices":[{"delta":{"content":"llo"}}]}` + "\n\n" +
	`data: {"id":"c1","choices":[{"delta":{},"finish_reason":"stop"}]}` + "\n\n" +
	"data: [DONE]\n\n"

func newTestServer(t *testing.T, upstream http.HandlerFunc) *httptest.Server {
	t.Helper()
	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)

	cfg := config.NewDefaultConfig()
	cfg.Providers = []config.Provider{
		{Type: "openai", Name: "up", APIKey: "k", BaseURL: up.URL, Model: "gpt-x"},
	}
	pool, err := executor.NewPool(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(cfg, pool).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func replyWith(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gjson.GetBytes(mustRead(r), "stream").Bool() {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, upstreamStream)
			return
		}
		_, _ = io.WriteString(w, body)
	}
}

func mustRead(r *http.Request) []byte {
	b, _ := io.ReadAll(r.Body)
	return b
}

const helloRequest = `{"messages":[{"role":"user","content":"hi"}],"max_tokens":32}`

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, replyWith(upstreamReply))
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", gjson.GetBytes(body, "providers.0.name").String())
	assert.Equal(t, "openai", gjson.GetBytes(body, "providers.0.format").String())
	assert.Equal(t, "closed", gjson.GetBytes(body, "providers.0.breaker").String())
}

func TestComplete(t *testing.T) {
	srv := newTestServer(t, replyWith(upstreamReply))
	resp, body := post(t, srv.URL+"/v1/complete", helloRequest)

	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "up", gjson.GetBytes(body, "provider").String())
	assert.Equal(t, "assistant", gjson.GetBytes(body, "message.role").String())
	assert.Equal(t, "hello", gjson.GetBytes(body, "message.content.0.text").String())
	assert.Equal(t, "end_turn", gjson.GetBytes(body, "stop_reason").String())
	assert.Equal(t, int64(3), gjson.GetBytes(body, "usage.input_tokens").Int())
}

func TestCompleteStream(t *testing.T) {
	srv := newTestServer(t, replyWith(upstreamReply))
	resp, err := http.Post(srv.URL+"/v1/complete", "application/json",
		strings.NewReader(`{"stream":true,"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := sseutil.NewReader(resp.Body)
	var types []string
	var text strings.Builder
	var meta gjson.Result
	for {
		payload, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ev := gjson.ParseBytes(payload)
		if !ev.Get("type").Exists() {
			meta = ev
			continue
		}
		types = append(types, ev.Get("type").String())
		text.WriteString(ev.Get("delta.text").String())
	}

	assert.Equal(t, []string{"content_block_start", "content_block_delta", "content_block_delta", "message_stop"}, types)
	assert.Equal(t, "hello", text.String())
	assert.Equal(t, "end_turn", meta.Get("stop_reason").String())
}

func TestCompleteStreamClientDisconnectReleasesUpstream(t *testing.T) {
	released := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `data: {"id":"c1","model":"gpt-x","choices":[{"delta":{"content":"he"}}]}`+"\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(released)
	})

	resp, err := http.Post(srv.URL+"/v1/complete", "application/json",
		strings.NewReader(`{"stream":true,"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload, err := sseutil.NewReader(resp.Body).Next()
	require.NoError(t, err)
	assert.Equal(t, "content_block_start", gjson.GetBytes(payload, "type").String())
	require.NoError(t, resp.Body.Close())

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream stream not released after client disconnect")
	}
}

func TestCompleteMapsTaxonomyErrors(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":"rate_limit_exceeded","message":"slow down"}}`)
	})
	resp, body := post(t, srv.URL+"/v1/complete", helloRequest)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "3", resp.Header.Get("Retry-After"))
	assert.Equal(t, "rate_limit_error", gjson.GetBytes(body, "error.type").String())
	assert.True(t, gjson.GetBytes(body, "error.retryable").Bool())
	assert.Equal(t, int64(3000), gjson.GetBytes(body, "error.retry_after_ms").Int())
}

func TestCompleteRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, replyWith(upstreamReply))

	tests := []struct {
		name   string
		body   string
		status int
		typ    string
	}{
		{"invalid json", `{"messages":`, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"bad role", `{"messages":[{"role":"system","content":"x"}]}`, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"unknown provider", `{"provider":"nope","messages":[{"role":"user","content":"x"}]}`, http.StatusBadRequest, "configuration_error"},
		{"bad tool", `{"messages":[{"role":"user","content":"x"}],"tools":[{"name":"","input_schema":{"type":"object"}}]}`, http.StatusUnprocessableEntity, "translation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv.URL+"/v1/complete", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Equal(t, tt.typ, gjson.GetBytes(body, "error.type").String())
		})
	}
}

func TestTranslateTools(t *testing.T) {
	srv := newTestServer(t, replyWith(upstreamReply))

	openaiTools := `[{"type":"function","function":{"name":"get_weather","description":"Weather",
		"parameters":{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}}}]`

	resp, body := post(t, srv.URL+"/v1/translate/tools/openai/gemini", openaiTools)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "get_weather", gjson.GetBytes(body, "0.functionDeclarations.0.name").String())

	resp, body = post(t, srv.URL+"/v1/translate/tools/openai/canonical", openaiTools)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "city", gjson.GetBytes(body, "0.input_schema.required.0").String())

	resp, body = post(t, srv.URL+"/v1/translate/tools/canonical/anthropic",
		`[{"name":"t","description":"d","input_schema":{"type":"object","properties":{}}}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "t", gjson.GetBytes(body, "0.name").String())

	resp, body = post(t, srv.URL+"/v1/translate/tools/cohere/openai", openaiTools)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "translation_error", gjson.GetBytes(body, "error.type").String())

	resp, body = post(t, srv.URL+"/v1/translate/tools/openai/claude", `{"not":"an array"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))
}

func TestTranslateRequestAndResponse(t *testing.T) {
	srv := newTestServer(t, replyWith(upstreamReply))

	resp, body := post(t, srv.URL+"/v1/translate/request/claude",
		`{"model":"claude-x","system":"be brief","messages":[{"role":"assistant","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "be brief", gjson.GetBytes(body, "system").String())
	assert.Equal(t, "user", gjson.GetBytes(body, "messages.0.role").String(), "leading user turn is synthesized")

	resp, body = post(t, srv.URL+"/v1/translate/response/gemini",
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"hey"}]},"finishReason":"MAX_TOKENS"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "hey", gjson.GetBytes(body, "message.content.0.text").String())
	assert.Equal(t, "max_tokens", gjson.GetBytes(body, "stop_reason").String())
}

func TestCountTokens(t *testing.T) {
	srv := newTestServer(t, replyWith(upstreamReply))
	resp, body := post(t, srv.URL+"/v1/count_tokens", `{"messages":[{"role":"user","content":"hello world"}]}`)

	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Greater(t, gjson.GetBytes(body, "total").Int(), int64(2))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, replyWith(upstreamReply))
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/v1/complete", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
