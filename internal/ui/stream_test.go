package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/arin/livedit/internal/status"
)

func init() {
	color.NoColor = true
}

func TestPrinter_BasicTokens(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "  ", nil)

	p.OnStatus(status.Thinking)
	p.OnChunk("hello")
	p.OnChunk(" world")
	p.OnStatus(status.Applying)
	p.OnStatus(status.Done)

	if p.Text() != "hello world" {
		t.Errorf("expected 'hello world', got %q", p.Text())
	}
	if !strings.HasPrefix(buf.String(), "  hello world") {
		t.Errorf("expected output to start with prefix, got %q", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\n\n") {
		t.Errorf("expected output to end with a blank line, got %q", buf.String())
	}
	if p.Status() != status.Done {
		t.Errorf("expected done, got %s", p.Status())
	}
}

func TestPrinter_EmptyPrefix(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "", nil)
	p.OnChunk("test")
	p.OnStatus(status.Done)

	if strings.HasPrefix(buf.String(), " ") {
		t.Error("empty prefix should not add leading space")
	}
}

func TestPrinter_SkipsEmptyChunks(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "> ", nil)
	p.OnChunk("")
	p.OnChunk("hello")
	p.OnChunk("")

	if buf.String() != "> hello" {
		t.Errorf("expected '> hello', got %q", buf.String())
	}
}

func TestPrinter_Error(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "  ", nil)
	p.OnStatus(status.Thinking)
	p.OnStatus(status.Error)

	if !strings.Contains(buf.String(), "Error occurred") {
		t.Errorf("expected error label, got %q", buf.String())
	}
	if p.Text() != "" {
		t.Errorf("expected no text, got %q", p.Text())
	}
}

func TestPrinter_CancelledKeepsPartialText(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "", nil)
	p.OnStatus(status.Thinking)
	p.OnChunk("partial")
	p.OnStatus(status.Cancelled)

	out := buf.String()
	if !strings.HasPrefix(out, "partial\n") {
		t.Errorf("expected partial text on its own line, got %q", out)
	}
	if !strings.Contains(out, "(cancelled)") {
		t.Errorf("expected cancelled marker, got %q", out)
	}
	if p.Status() != status.Cancelled {
		t.Errorf("expected cancelled, got %s", p.Status())
	}
}

func TestPrinter_TrailingNewlineNotDoubled(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "", nil)
	p.OnChunk("line\n")
	p.OnStatus(status.Done)

	if buf.String() != "line\n\n" {
		t.Errorf("expected 'line\\n\\n', got %q", buf.String())
	}
}
