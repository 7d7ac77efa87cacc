package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arin/livedit/internal/chat"
	"github.com/arin/livedit/internal/status"
	"github.com/arin/livedit/internal/store"
)

const (
	healthTimeout = 3 * time.Second
	maxStateBytes = 4 << 20
)

type chatRequest struct {
	Prompt string `json:"prompt"`
}

// event is one line of the /api/chat response stream.
type event struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Status status.Status `json:"status,omitempty"`
	Label  string        `json:"label,omitempty"`
	Mode   string        `json:"mode,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": chat.ErrEmptyPrompt.Error()})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	emit := func(ev event) {
		if err := enc.Encode(ev); err == nil {
			c.Writer.Flush()
		}
	}

	editor := s.session.Editor()
	l := chat.ListenerFuncs{
		Chunk: func(text string) {
			emit(event{Type: "chunk", Text: text, Mode: editor.Active().String()})
		},
		Status: func(st status.Status) {
			emit(event{Type: "status", Status: st, Label: st.Label(), Mode: editor.Active().String()})
		},
	}

	if err := s.session.Send(c.Request.Context(), req.Prompt, l); err != nil {
		s.log.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Warn("chat turn failed")
		emit(event{Type: "error", Error: err.Error()})
	}
}

func (s *Server) cancel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": s.session.Cancel()})
}

func (s *Server) status(c *gin.Context) {
	ctrl := s.session.Status()
	cur := ctrl.Current()
	c.JSON(http.StatusOK, gin.H{
		"status":  cur,
		"label":   cur.Label(),
		"busy":    ctrl.Busy(),
		"history": ctrl.History(),
	})
}

func (s *Server) transcript(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Transcript())
}

func (s *Server) editor(c *gin.Context) {
	e := s.session.Editor()
	c.JSON(http.StatusOK, gin.H{
		"active":  e.Active().String(),
		"buffers": e.Snapshot(),
	})
}

func (s *Server) save(c *gin.Context) {
	if err := s.session.Save(c.Request.Context()); err != nil {
		if errors.Is(err, chat.ErrNoStore) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		s.log.WithError(err).Error("save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.Status(http.StatusNoContent)
}

// stateKey validates the :key parameter against the fixed keys the
// front end persists.
func (s *Server) stateKey(c *gin.Context) (string, bool) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no store configured"})
		return "", false
	}
	key := c.Param("key")
	if key != store.KeyChatLog && key != store.KeyEditorContent {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown key"})
		return "", false
	}
	return key, true
}

func (s *Server) getState(c *gin.Context) {
	key, ok := s.stateKey(c)
	if !ok {
		return
	}
	data, err := s.store.Get(c.Request.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("state read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read state"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) putState(c *gin.Context) {
	key, ok := s.stateKey(c)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxStateBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if len(data) > maxStateBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "state too large"})
		return
	}
	if !json.Valid(data) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be JSON"})
		return
	}
	if err := s.store.Set(c.Request.Context(), key, data); err != nil {
		s.log.WithError(err).WithField("key", key).Error("state write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write state"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) health(c *gin.Context) {
	checks := gin.H{"api": "ok"}
	code := http.StatusOK
	state := "healthy"

	if s.models != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if _, err := s.models.ListModels(ctx); err != nil {
			checks["ollama"] = gin.H{"ok": false, "error": err.Error()}
			code = http.StatusServiceUnavailable
			state = "degraded"
		} else {
			checks["ollama"] = gin.H{"ok": true}
		}
	}

	c.JSON(code, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"model":     s.cfg.Model,
		"busy":      s.session.Busy(),
		"checks":    checks,
	})
}

// static serves the front end build and falls back to index.html so
// client side routes resolve.
func (s *Server) static(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	dir := s.cfg.Server.StaticDir
	if dir == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))
	if serveFile(c, name) {
		return
	}
	if !serveFile(c, filepath.Join(dir, "index.html")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	}
}

// serveFile writes the regular file at name and reports whether it did.
// name must already be cleaned and rooted in the static directory.
func serveFile(c *gin.Context, name string) bool {
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		return false
	}
	http.ServeContent(c.Writer, c.Request, fi.Name(), fi.ModTime(), f)
	return true
}
