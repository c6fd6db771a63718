package to_ir

import (
	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// StreamReducer turns one decoded SSE payload into zero or more canonical
// chunks. A reducer owns the state of exactly one stream and is not safe for
// concurrent use.
type StreamReducer interface {
	Reduce(frame gjson.Result) ([]ir.StreamChunk, error)
	Meta() ir.StreamMeta
}

// streamError turns a provider-signaled error frame into a Translation error.
func streamError(provider string, errObj gjson.Result) error {
	msg := errObj.Get("message").String()
	if msg == "" {
		msg = errObj.Raw
	}
	e := ir.NewTranslationError(-1, "%s stream error: %s", provider, msg)
	e.Provider = provider
	return e
}
