package lsp

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"testing"
)

func TestReadMessageLockedParsesFraming(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`
	frame := "Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body

	c := &Client{out: bufio.NewReader(strings.NewReader(frame))}
	msg, err := c.readMessageLocked()
	if err != nil {
		t.Fatalf("readMessageLocked: %v", err)
	}
	if msg["id"].(float64) != 1 {
		t.Errorf("id = %v, want 1", msg["id"])
	}
	result, ok := msg["result"].(map[string]any)
	if !ok || result["ok"] != true {
		t.Errorf("result = %v", msg["result"])
	}
}

func TestReadMessageLockedMissingContentLength(t *testing.T) {
	c := &Client{out: bufio.NewReader(strings.NewReader("\r\n{}"))}
	if _, err := c.readMessageLocked(); err == nil {
		t.Error("expected an error for a frame with no Content-Length header")
	}
}

func TestLocationFromResultHandlesListAndObject(t *testing.T) {
	single := map[string]any{
		"uri":   "file:///a.py",
		"range": map[string]any{"start": map[string]any{"line": float64(3), "character": float64(5)}},
	}
	loc := locationFromResult(single)
	if loc == nil || loc.URI != "file:///a.py" || loc.Line != 3 || loc.Character != 5 {
		t.Fatalf("locationFromResult(single) = %+v", loc)
	}

	list := []any{single}
	loc2 := locationFromResult(list)
	if loc2 == nil || loc2.URI != loc.URI {
		t.Fatalf("locationFromResult(list) = %+v", loc2)
	}

	if locationFromResult([]any{}) != nil {
		t.Error("expected nil for empty list result")
	}
}

func TestTypeInfoFromContentsVariants(t *testing.T) {
	if ti := typeInfoFromContents("plain string"); ti == nil || ti.Signature != "plain string" {
		t.Errorf("string contents: %+v", ti)
	}
	if ti := typeInfoFromContents(map[string]any{"value": "def f(): ..."}); ti == nil || ti.Signature != "def f(): ..." {
		t.Errorf("object contents: %+v", ti)
	}
	if ti := typeInfoFromContents([]any{map[string]any{"value": "x: int"}}); ti == nil || ti.Signature != "x: int" {
		t.Errorf("list contents: %+v", ti)
	}
	if typeInfoFromContents(nil) != nil {
		t.Error("expected nil for nil contents")
	}
}

func TestIsAvailableFalseForEmptyCommand(t *testing.T) {
	c := New(nil, "/tmp")
	if c.IsAvailable() {
		t.Error("expected IsAvailable to be false with no configured command")
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// A read failure partway through a session (the server process died, or its
// stdout pipe closed) must drop the client to Stopped and make Definition
// report absence rather than an error, so Pass 2 absorbs it as a failed
// resolution instead of aborting the scan.
func TestDefinitionStopsClientOnPipeError(t *testing.T) {
	c := &Client{
		state: Ready,
		stdin: nopWriteCloser{io.Discard},
		out:   bufio.NewReader(strings.NewReader("")),
	}

	loc, err := c.Definition("file:///a.py", 0, 0)
	if err != nil {
		t.Fatalf("Definition returned an error, want absence: %v", err)
	}
	if loc != nil {
		t.Fatalf("Definition = %+v, want nil", loc)
	}
	if got := c.State(); got != Stopped {
		t.Errorf("state = %s, want stopped", got)
	}

	// Once stopped, further calls keep returning absence without touching
	// the dead pipe again.
	if _, err := c.Hover("file:///a.py", 0, 0); err != nil {
		t.Errorf("Hover after stop returned an error: %v", err)
	}
}
