package sseutil

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func collect(t *testing.T, r *Reader) []string {
	t.Helper()
	var out []string
	for {
		p, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, string(p))
	}
}

func TestReaderFraming(t *testing.T) {
	input := "event: message_start\n" +
		"data: {\"a\":1}\n\n" +
		": keep-alive comment\n" +
		"id: 7\n" +
		"data:{\"b\":2}\r\n\r\n" +
		"data: [DONE]\n\n" +
		"data: {\"ignored\":true}\n\n"

	got := collect(t, NewReader(strings.NewReader(input)))
	want := []string{`{"a":1}`, `{"b":2}`}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("payloads = %q, want %q", got, want)
	}
}

func TestReaderSplitReads(t *testing.T) {
	input := "data: {\"text\":\"hello world\"}\n\ndata: {\"text\":\"again\"}\n\n"
	got := collect(t, NewReader(iotest.OneByteReader(strings.NewReader(input))))
	if len(got) != 2 || got[1] != `{"text":"again"}` {
		t.Errorf("payloads = %q", got)
	}
}

func TestReaderUnterminatedFinalLine(t *testing.T) {
	got := collect(t, NewReader(strings.NewReader("data: {\"a\":1}\n\ndata: {\"b\":2}")))
	if len(got) != 2 || got[1] != `{"b":2}` {
		t.Errorf("payloads = %q", got)
	}
}

func TestReaderCustomPrefixAndSentinel(t *testing.T) {
	input := "payload> one\npayload>two\npayload> END\npayload> three\n"
	r := NewReader(strings.NewReader(input), WithDataPrefix("payload> "), WithDoneSentinel("END"))
	got := collect(t, r)
	if strings.Join(got, ",") != "one,two" {
		t.Errorf("payloads = %q", got)
	}
}

func TestReaderLineTooLong(t *testing.T) {
	r := NewReader(strings.NewReader("data: "+strings.Repeat("x", 100)+"\n"), WithMaxLineSize(32))
	if _, err := r.Next(); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
}

func TestReaderPropagatesReadErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewReader(io.MultiReader(strings.NewReader("data: {\"a\":1}\n"), iotest.ErrReader(boom)))
	if p, err := r.Next(); err != nil || string(p) != `{"a":1}` {
		t.Fatalf("first Next = %q, %v", p, err)
	}
	if _, err := r.Next(); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestReaderKeepsErrorAfterUnterminatedPayload(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewReader(io.MultiReader(strings.NewReader("data: a\n\ndata: tail"), iotest.ErrReader(boom)))
	for _, want := range []string{"a", "tail"} {
		p, err := r.Next()
		if err != nil || string(p) != want {
			t.Fatalf("Next = %q, %v; want %q", p, err, want)
		}
	}
	if _, err := r.Next(); !errors.Is(err, boom) {
		t.Fatalf("expected read error after final payload, got %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF once the error is reported, got %v", err)
	}
}

func TestFrame(t *testing.T) {
	if got := string(Frame("ping", []byte(`{"type":"ping"}`))); got != "event: ping\ndata: {\"type\":\"ping\"}\n\n" {
		t.Errorf("Frame = %q", got)
	}
	if got := string(Done()); got != "data: [DONE]\n\n" {
		t.Errorf("Done = %q", got)
	}
}
