// Package editor holds the three live buffers (Markdown, Code and HTML)
// that streamed model output is written into, and picks which buffer a
// piece of content belongs to.
package editor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Mode identifies one of the editor buffers.
type Mode int

const (
	Markdown Mode = iota
	Code
	HTML
)

var modeNames = [...]string{"markdown", "code", "html"}

func (m Mode) String() string {
	if m < Markdown || m > HTML {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts "markdown"/"md", "code"/"js" and "html".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return Markdown, nil
	case "code", "js", "javascript":
		return Code, nil
	case "html":
		return HTML, nil
	}
	return Markdown, fmt.Errorf("unknown editor mode %q", s)
}

var (
	htmlPattern = regexp.MustCompile(`(?i)<!DOCTYPE html>|<html[\s>]`)
	codePattern = regexp.MustCompile(`\b(function|const|let|var|class|import|export|=>)\b|console\.log|\(\)\s*=>`)
)

// Detect classifies content. HTML wins over Code, Code over Markdown.
func Detect(content string) Mode {
	switch {
	case htmlPattern.MatchString(content):
		return HTML
	case codePattern.MatchString(content):
		return Code
	default:
		return Markdown
	}
}

const (
	initialMarkdown = "# Welcome to the Editor\n\nYou can write **Markdown**, HTML, or code here!\n\nTry typing @ to see available tools."
	initialCode     = "function helloWorld() {\n  console.log('Hello, world!');\n}\n\n// Try typing @ to see available tools"
	initialHTML     = "<!DOCTYPE html>\n<html>\n  <head>\n    <title>Hello</title>\n  </head>\n  <body>\n    <h1>Hello, world!</h1>\n    <!-- Try typing @ to see available tools -->\n  </body>\n</html>"
)

// Buffers is the persisted form of the editor.
type Buffers struct {
	Markdown string `json:"markdownValue"`
	Code     string `json:"codeValue"`
	HTML     string `json:"htmlValue"`
}

// DefaultBuffers returns the welcome documents.
func DefaultBuffers() Buffers {
	return Buffers{Markdown: initialMarkdown, Code: initialCode, HTML: initialHTML}
}

// Editor is safe for concurrent use.
type Editor struct {
	mu     sync.RWMutex
	bufs   Buffers
	active Mode
}

// New returns an editor holding the welcome documents with Markdown active.
func New() *Editor {
	return &Editor{bufs: DefaultBuffers(), active: Markdown}
}

// Apply writes content to the buffer Detect picks, makes it active and
// returns the chosen mode. It is called with the full accumulated text
// on every chunk, so the target buffer may change mid-stream.
func (e *Editor) Apply(content string) Mode {
	m := Detect(content)
	e.Set(m, content)
	return m
}

// Set replaces the buffer for m and makes it active.
func (e *Editor) Set(m Mode, content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch m {
	case HTML:
		e.bufs.HTML = content
	case Code:
		e.bufs.Code = content
	default:
		m = Markdown
		e.bufs.Markdown = content
	}
	e.active = m
}

// Get returns the buffer for m.
func (e *Editor) Get(m Mode) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch m {
	case HTML:
		return e.bufs.HTML
	case Code:
		return e.bufs.Code
	default:
		return e.bufs.Markdown
	}
}

// Active returns the mode last written or selected.
func (e *Editor) Active() Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// Select makes m active without changing any buffer.
func (e *Editor) Select(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = m
}

// Snapshot returns a copy of all buffers.
func (e *Editor) Snapshot() Buffers {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bufs
}

// Restore overwrites buffers with the non-empty fields of b.
func (e *Editor) Restore(b Buffers) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b.Markdown != "" {
		e.bufs.Markdown = b.Markdown
	}
	if b.Code != "" {
		e.bufs.Code = b.Code
	}
	if b.HTML != "" {
		e.bufs.HTML = b.HTML
	}
}

// MarshalJSON encodes the buffers only.
func (e *Editor) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Snapshot())
}

// UnmarshalJSON restores buffers from data, keeping current values for
// missing or empty fields.
func (e *Editor) UnmarshalJSON(data []byte) error {
	var b Buffers
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	e.Restore(b)
	return nil
}
