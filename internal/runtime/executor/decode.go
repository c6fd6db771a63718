package executor

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding lists every encoding decodeBody understands.
const acceptEncoding = "gzip, deflate, br, zstd"

// decodedBody closes both the decoder and the underlying body.
type decodedBody struct {
	io.Reader
	closeDecoder func()
	body         io.ReadCloser
}

func (d *decodedBody) Close() error {
	if d.closeDecoder != nil {
		d.closeDecoder()
	}
	return d.body.Close()
}

// decodeBody replaces resp.Body with a decoding reader according to
// Content-Encoding and drops the headers that no longer describe it.
func decodeBody(resp *http.Response) error {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if encoding == "" || encoding == "identity" {
		return nil
	}

	body := resp.Body
	var decoded *decodedBody
	switch encoding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return fmt.Errorf("gzip decode: %w", err)
		}
		decoded = &decodedBody{Reader: zr, closeDecoder: func() { _ = zr.Close() }, body: body}
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			return fmt.Errorf("deflate decode: %w", err)
		}
		decoded = &decodedBody{Reader: zr, closeDecoder: func() { _ = zr.Close() }, body: body}
	case "br":
		decoded = &decodedBody{Reader: brotli.NewReader(body), body: body}
	case "zstd":
		zr, err := zstd.NewReader(body)
		if err != nil {
			return fmt.Errorf("zstd decode: %w", err)
		}
		decoded = &decodedBody{Reader: zr, closeDecoder: zr.Close, body: body}
	default:
		return fmt.Errorf("unsupported content encoding %q", encoding)
	}

	resp.Body = decoded
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}
