package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/arin/livedit/internal/status"
)

// Printer renders a streaming turn to a terminal. Text is written as it
// arrives behind prefix; while nothing has arrived the optional spinner
// shows the status label. It satisfies chat.Listener.
type Printer struct {
	w      io.Writer
	prefix string
	spin   *Spinner

	text    strings.Builder
	started bool
	final   status.Status
}

// NewPrinter writes to w. spin may be nil.
func NewPrinter(w io.Writer, prefix string, spin *Spinner) *Printer {
	return &Printer{w: w, prefix: prefix, spin: spin}
}

// OnChunk prints text, stopping the spinner on the first fragment.
func (p *Printer) OnChunk(text string) {
	if text == "" {
		return
	}
	if !p.started {
		p.stopSpinner()
		fmt.Fprint(p.w, p.prefix)
		p.started = true
	}
	fmt.Fprint(p.w, text)
	p.text.WriteString(text)
}

// OnStatus updates the spinner and closes off the output on a terminal status.
func (p *Printer) OnStatus(s status.Status) {
	p.final = s
	switch s {
	case status.Thinking, status.Applying:
		if p.spin != nil && !p.started {
			p.spin.SetMessage(s.Label())
			p.spin.Start()
		}
	case status.Done:
		p.stopSpinner()
		p.endLine()
	case status.Error:
		p.stopSpinner()
		p.endLine()
		color.New(color.FgRed).Fprintf(p.w, "  ✗ %s\n", s.Label())
	case status.Cancelled:
		p.stopSpinner()
		p.endLine()
		color.New(color.Faint).Fprintf(p.w, "  (%s)\n", strings.ToLower(s.Label()))
	}
}

func (p *Printer) stopSpinner() {
	if p.spin != nil {
		p.spin.Stop()
	}
}

func (p *Printer) endLine() {
	if p.started && !strings.HasSuffix(p.text.String(), "\n") {
		fmt.Fprintln(p.w)
	}
	fmt.Fprintln(p.w)
}

// Text returns everything printed so far, trimmed.
func (p *Printer) Text() string {
	return strings.TrimSpace(p.text.String())
}

// Status returns the last status seen.
func (p *Printer) Status() status.Status {
	return p.final
}
