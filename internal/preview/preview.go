// Package preview renders editor buffers for the terminal.
package preview

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"

	"github.com/arin/livedit/internal/editor"
)

const defaultWidth = 80

// Renderer turns buffer contents into terminal output. With color off
// Markdown is laid out without ANSI styling and code is returned as is,
// which keeps piped output clean.
type Renderer struct {
	width int
	color bool
	style string
}

// New returns a renderer wrapping Markdown at width columns.
func New(width int, color bool) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	return &Renderer{width: width, color: color, style: "monokai"}
}

// Render formats content the way the buffer identified by m is shown.
func (r *Renderer) Render(m editor.Mode, content string) (string, error) {
	switch m {
	case editor.Markdown:
		return r.markdown(content)
	case editor.Code:
		return r.highlight(content, "javascript")
	case editor.HTML:
		return r.highlight(content, "html")
	}
	return "", fmt.Errorf("cannot preview %s", m)
}

func (r *Renderer) markdown(content string) (string, error) {
	style := "dark"
	if !r.color {
		style = "notty"
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(r.width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := tr.Render(content)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

func (r *Renderer) highlight(code, language string) (string, error) {
	if !r.color {
		return code, nil
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(r.style)
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("failed to tokenise %s: %w", language, err)
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, it); err != nil {
		return "", fmt.Errorf("failed to highlight %s: %w", language, err)
	}
	return buf.String(), nil
}
