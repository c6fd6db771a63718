package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sashabogi/agent-router/internal/api"
	"github.com/sashabogi/agent-router/internal/json"
	"github.com/sashabogi/agent-router/internal/provider"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// openInput returns the named file, or stdin for no argument or "-".
func openInput(c *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(c.InOrStdin()), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

func readInput(c *cobra.Command, args []string) ([]byte, error) {
	rc, err := openInput(c, args)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// readCanonicalRequest decodes a /v1/complete style request body.
func readCanonicalRequest(c *cobra.Command, args []string) (*api.CompleteRequest, error) {
	rc, err := openInput(c, args)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var req api.CompleteRequest
	if err := json.NewDecoder(rc).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

func parseFormatFlag(flag, name string) (provider.Format, error) {
	f, ok := provider.ParseFormat(name)
	if !ok {
		return "", ir.NewTranslationError(-1, "--%s: unsupported provider format %q", flag, name)
	}
	return f, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeRawJSON pretty-prints an already encoded JSON document.
func writeRawJSON(w io.Writer, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return writeJSON(w, v)
}
