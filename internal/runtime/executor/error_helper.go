package executor

import (
	"fmt"
	"io"
	"net/http"

	log "github.com/sashabogi/agent-router/internal/logging"
	"github.com/sashabogi/agent-router/internal/provider"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 1 << 20

// HandleHTTPError reads a non-2xx response body and translates it into the
// taxonomy. It does not close the body.
func HandleHTTPError(resp *http.Response, format provider.Format, name string) *ir.Error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr != nil {
		log.Debugf("%s: failed to read error body: %v", name, readErr)
	}

	log.Debugf("%s: error status: %d, body: %s", name, resp.StatusCode, summarizeErrorBody(body))

	e := provider.TranslateResponse(resp.StatusCode, resp.Header, body, format.String())
	if e.Message == "" {
		e.Message = fmt.Sprintf("%s returned status %d", name, resp.StatusCode)
	}
	return e
}

func summarizeErrorBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
