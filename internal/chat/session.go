// Package chat ties a streaming provider to the conversation state: the
// transcript, the live editor and the status controller. A Session runs
// one turn at a time; sending a new prompt cancels the turn in flight and
// waits for it to wind down before the next one starts.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/arin/livedit/internal/ai"
	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/editor"
	"github.com/arin/livedit/internal/history"
	"github.com/arin/livedit/internal/logging"
	"github.com/arin/livedit/internal/stats"
	"github.com/arin/livedit/internal/status"
	"github.com/arin/livedit/internal/store"
)

// ErrorText replaces the assistant message when a turn fails.
const ErrorText = "Sorry, I encountered an error. Please try again."

var (
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrNoStore     = errors.New("session has no store")
)

// Listener observes a turn. Calls are sequential and in order.
type Listener interface {
	OnChunk(text string)
	OnStatus(s status.Status)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Chunk  func(text string)
	Status func(s status.Status)
}

func (f ListenerFuncs) OnChunk(text string) {
	if f.Chunk != nil {
		f.Chunk(text)
	}
}

func (f ListenerFuncs) OnStatus(s status.Status) {
	if f.Status != nil {
		f.Status(s)
	}
}

// Option configures a Session.
type Option func(*Session)

// WithStore enables Save and Load.
func WithStore(st store.Store) Option {
	return func(s *Session) { s.store = st }
}

// WithStats records a stats.Record tagged with source after every turn.
func WithStats(source string) Option {
	return func(s *Session) { s.statsSource = source }
}

// Session is one conversation.
type Session struct {
	provider ai.Provider
	cfg      *config.Config

	status     *status.Controller
	transcript *history.Transcript
	editor     *editor.Editor

	store       store.Store
	statsSource string
	log         *logrus.Entry

	mu      sync.Mutex
	current *Handle
}

// NewSession returns a session that streams through p using the model
// and sampling options in cfg.
func NewSession(p ai.Provider, cfg *config.Config, opts ...Option) *Session {
	s := &Session{
		provider:   p,
		cfg:        cfg,
		status:     status.NewController(),
		transcript: history.NewTranscript(),
		editor:     editor.New(),
		log:        logging.Component("chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status returns the controller for the current turn.
func (s *Session) Status() *status.Controller { return s.status }

// Transcript returns the conversation transcript.
func (s *Session) Transcript() *history.Transcript { return s.transcript }

// Editor returns the live editor.
func (s *Session) Editor() *editor.Editor { return s.editor }

// Busy reports whether a turn is streaming.
func (s *Session) Busy() bool { return s.status.Busy() }

// Cancel stops the turn in flight, if any, and reports whether there was one.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	h := s.current
	s.mu.Unlock()
	if h == nil {
		return false
	}
	h.Cancel()
	return true
}

// begin installs a fresh handle and retires the previous one, waiting
// until it has stopped invoking callbacks.
func (s *Session) begin(ctx context.Context) *Handle {
	h := newHandle(ctx)

	s.mu.Lock()
	prev := s.current
	s.current = h
	s.mu.Unlock()

	if prev != nil {
		prev.Cancel()
		<-prev.Done()
	}
	return h
}

func (s *Session) end(h *Handle) {
	h.finish()
	s.mu.Lock()
	if s.current == h {
		s.current = nil
	}
	s.mu.Unlock()
}

// Send runs one turn for prompt and blocks until it reaches a terminal
// status. Text accumulates into a new assistant message and is written
// to the editor buffer chosen by editor.Detect on every chunk. l may be
// nil. The returned error is non-nil only when the request is rejected
// before streaming starts.
func (s *Session) Send(ctx context.Context, prompt string, l Listener) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	if l == nil {
		l = ListenerFuncs{}
	}

	h := s.begin(ctx)
	defer s.end(h)

	req := ai.NewRequest(s.cfg, prompt)
	log := s.log.WithField("model", req.Model)

	s.transcript.Append(history.SenderUser, prompt)
	aiID := s.transcript.Append(history.SenderAI, "")

	var (
		acc   strings.Builder
		mode  = s.editor.Active()
		final status.Status
		timer = stats.Start()
	)

	onChunk := func(text string) {
		acc.WriteString(text)
		timer.Chunk(text)
		s.transcript.Update(aiID, acc.String())
		mode = s.editor.Apply(acc.String())
		l.OnChunk(text)
	}
	onStatus := func(st status.Status) {
		if st == status.Thinking {
			s.status.Start()
		} else if err := s.status.Apply(st); err != nil {
			log.WithError(err).Warn("ignoring status transition")
			if !st.Terminal() || final.Terminal() {
				return
			}
		}
		final = st
		if st == status.Error {
			s.transcript.Update(aiID, ErrorText)
		}
		l.OnStatus(st)
	}

	err := s.provider.Stream(h.Context(), req, onChunk, onStatus)
	if err != nil && !final.Terminal() {
		if final == "" {
			s.status.Start()
		}
		onStatus(status.Error)
	}

	log.WithFields(logrus.Fields{
		"status": final,
		"chars":  acc.Len(),
		"mode":   mode.String(),
	}).Debug("turn finished")

	if s.statsSource != "" {
		rec := timer.Finish(prompt, req.Model, string(final), mode.String(), s.statsSource)
		if serr := stats.Save(rec); serr != nil {
			log.WithError(serr).Warn("failed to record stats")
		}
	}
	return err
}

// Save persists the transcript and editor buffers.
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return ErrNoStore
	}
	chatLog, err := json.Marshal(s.transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	if err := s.store.Set(ctx, store.KeyChatLog, chatLog); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	buffers, err := json.Marshal(s.editor)
	if err != nil {
		return fmt.Errorf("failed to encode editor: %w", err)
	}
	if err := s.store.Set(ctx, store.KeyEditorContent, buffers); err != nil {
		return fmt.Errorf("failed to save editor: %w", err)
	}
	return nil
}

// Load restores the transcript and editor buffers. Missing keys and
// undecodable documents leave the current state untouched.
func (s *Session) Load(ctx context.Context) error {
	if s.store == nil {
		return ErrNoStore
	}

	chatLog, err := s.store.Get(ctx, store.KeyChatLog)
	switch {
	case err == nil:
		if !s.transcript.Restore(chatLog) {
			s.log.Warn("ignoring saved transcript that is not a message array")
		}
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("failed to load transcript: %w", err)
	}

	buffers, err := s.store.Get(ctx, store.KeyEditorContent)
	switch {
	case err == nil:
		if uerr := json.Unmarshal(buffers, s.editor); uerr != nil {
			s.log.WithError(uerr).Warn("ignoring undecodable editor content")
		}
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("failed to load editor: %w", err)
	}
	return nil
}
