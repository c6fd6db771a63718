package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sashabogi/agent-router/internal/json"
	log "github.com/sashabogi/agent-router/internal/logging"
	"github.com/sashabogi/agent-router/internal/provider"
	"github.com/sashabogi/agent-router/internal/runtime/executor"
	"github.com/sashabogi/agent-router/internal/sseutil"
	"github.com/sashabogi/agent-router/internal/tokens"
	"github.com/sashabogi/agent-router/internal/translator"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// canonicalFormat names the canonical tool shape in translate routes.
const canonicalFormat = "canonical"

// CompleteRequest is the canonical request accepted by /v1/complete.
type CompleteRequest struct {
	Provider    string       `json:"provider,omitempty"`
	Model       string       `json:"model,omitempty"`
	System      string       `json:"system,omitempty"`
	Messages    []ir.Message `json:"messages"`
	Tools       []ir.Tool    `json:"tools,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

// ToIR converts the wire request into the canonical request.
func (r *CompleteRequest) ToIR() *ir.Request {
	return &ir.Request{
		Model:       r.Model,
		System:      r.System,
		Messages:    r.Messages,
		Tools:       r.Tools,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
		Stream:      r.Stream,
	}
}

// CompleteResponse is the canonical reply of a non-streaming completion.
type CompleteResponse struct {
	ID         string     `json:"id,omitempty"`
	Provider   string     `json:"provider"`
	Model      string     `json:"model,omitempty"`
	Message    ir.Message `json:"message"`
	StopReason string     `json:"stop_reason,omitempty"`
	Usage      UsageBody  `json:"usage"`
}

type UsageBody struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func metaBody(meta ir.StreamMeta) gin.H {
	return gin.H{
		"id":          meta.MessageID,
		"model":       meta.Model,
		"stop_reason": string(meta.StopReason),
		"usage":       UsageBody{InputTokens: meta.Usage.InputTokens, OutputTokens: meta.Usage.OutputTokens},
	}
}

// readBody reads the request body, mapping size violations to 413.
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if isBodyTooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest, "request body too large")
		} else {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "cannot read request body")
		}
		return nil, false
	}
	return body, true
}

func bindCanonical(c *gin.Context) (*CompleteRequest, bool) {
	body, ok := readBody(c)
	if !ok {
		return nil, false
	}
	var req CompleteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return nil, false
	}
	return &req, true
}

func parseFormat(c *gin.Context, param string) (provider.Format, bool) {
	name := c.Param(param)
	f, ok := provider.ParseFormat(name)
	if !ok {
		respondTaxonomyError(c, ir.NewTranslationError(-1, "unsupported provider format %q", name))
	}
	return f, ok
}

func (s *Server) healthz(c *gin.Context) {
	providers := make([]gin.H, 0)
	for _, name := range s.pool.Names() {
		client, err := s.pool.Get(name)
		if err != nil {
			continue
		}
		providers = append(providers, gin.H{
			"name":    client.Name(),
			"format":  client.Format().String(),
			"model":   client.Model(),
			"breaker": client.BreakerState().String(),
		})
	}
	respondOK(c, gin.H{"status": "ok", "providers": providers})
}

func (s *Server) complete(c *gin.Context) {
	req, ok := bindCanonical(c)
	if !ok {
		return
	}
	client, err := s.pool.Get(req.Provider)
	if err != nil {
		respondTaxonomyError(c, err)
		return
	}

	if req.Stream {
		s.streamCompletion(c, client, req)
		return
	}

	resp, err := client.Complete(c.Request.Context(), req.ToIR())
	if err != nil {
		respondTaxonomyError(c, err)
		return
	}
	respondOK(c, CompleteResponse{
		ID:         resp.Meta.MessageID,
		Provider:   client.Name(),
		Model:      resp.Meta.Model,
		Message:    resp.Message,
		StopReason: string(resp.Meta.StopReason),
		Usage:      UsageBody{InputTokens: resp.Meta.Usage.InputTokens, OutputTokens: resp.Meta.Usage.OutputTokens},
	})
}

// streamCompletion writes canonical chunks as content-block SSE events,
// followed by a meta event and the done sentinel. Failures before the first
// byte are JSON errors; later failures become an in-stream error event.
func (s *Server) streamCompletion(c *gin.Context, client *executor.Client, req *CompleteRequest) {
	st, err := client.Stream(c.Request.Context(), req.ToIR())
	if err != nil {
		respondTaxonomyError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// Chan closes the stream; cancel unblocks its producer on early return.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	w := c.Writer
	for item := range st.Chan(ctx) {
		if item.Err != nil {
			e := provider.Translate(item.Err, client.Format().String())
			log.WithError(e).Warnf("%s: stream ended with error", client.Name())
			_, _ = w.Write(ir.BuildClaudeErrorSSE(errorType(e.Kind), e.Error()))
			w.Flush()
			return
		}
		frame, encErr := ir.EncodeChunkSSE(item.Value)
		if encErr != nil {
			log.WithError(encErr).Error("cannot encode stream chunk")
			continue
		}
		if _, werr := w.Write(frame); werr != nil {
			return
		}
		w.Flush()
	}
	if ctx.Err() != nil {
		return
	}

	meta, _ := json.Marshal(metaBody(st.Meta()))
	_, _ = w.Write(sseutil.Frame("meta", meta))
	_, _ = w.Write(sseutil.Done())
	w.Flush()
}

func (s *Server) countTokens(c *gin.Context) {
	req, ok := bindCanonical(c)
	if !ok {
		return
	}
	if err := ir.ValidateMessages(req.Messages); err != nil {
		respondTaxonomyError(c, err)
		return
	}
	b, err := tokens.Count(req.ToIR())
	if err != nil {
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	respondOK(c, b)
}

// translateTools converts a tool array between formats. Either side may be
// "canonical".
func (s *Server) translateTools(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	var tools []ir.Tool
	if from := c.Param("from"); from == canonicalFormat {
		if err := json.Unmarshal(body, &tools); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		if err := ir.ValidateTools(tools); err != nil {
			respondTaxonomyError(c, err)
			return
		}
	} else {
		f, ok := parseFormat(c, "from")
		if !ok {
			return
		}
		var err error
		if tools, err = translator.FromProviderTools(body, f); err != nil {
			respondTaxonomyError(c, err)
			return
		}
	}

	if c.Param("to") == canonicalFormat {
		respondOK(c, tools)
		return
	}
	to, ok := parseFormat(c, "to")
	if !ok {
		return
	}
	out, err := translator.ToProviderTools(tools, to)
	if err != nil {
		respondTaxonomyError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", out)
}

// translateRequest renders the provider request body for a canonical request
// without sending it.
func (s *Server) translateRequest(c *gin.Context) {
	req, ok := bindCanonical(c)
	if !ok {
		return
	}
	f, ok := parseFormat(c, "format")
	if !ok {
		return
	}
	out, err := translator.BuildRequest(req.ToIR(), f)
	if err != nil {
		respondTaxonomyError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", out)
}

// translateResponse parses a captured provider response into canonical form.
func (s *Server) translateResponse(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	f, ok := parseFormat(c, "format")
	if !ok {
		return
	}
	resp, err := translator.ParseResponse(body, f)
	if err != nil {
		respondTaxonomyError(c, err)
		return
	}
	out := metaBody(resp.Meta)
	out["message"] = resp.Message
	respondOK(c, out)
}
