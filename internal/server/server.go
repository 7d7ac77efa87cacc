// Package server exposes the chat session, the editor state and a
// pass-through to the local Ollama API over HTTP, and serves the web
// front end from a static directory.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/arin/livedit/internal/ai"
	"github.com/arin/livedit/internal/chat"
	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/logging"
	"github.com/arin/livedit/internal/store"
)

const shutdownTimeout = 5 * time.Second

// ModelLister reports the models installed upstream. *ai.Client
// satisfies it; /health uses it to check Ollama is reachable.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ai.Model, error)
}

// Server wires the HTTP routes to a single shared chat session.
type Server struct {
	cfg     *config.Config
	session *chat.Session
	store   store.Store
	models  ModelLister
	engine  *gin.Engine
	log     *logrus.Entry
}

// New builds the route table. st backs the /api/state endpoints and may
// be nil, in which case they answer 503.
func New(cfg *config.Config, session *chat.Session, st store.Store, models ModelLister) (*Server, error) {
	target, err := url.Parse(cfg.Endpoint)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid Ollama endpoint %q", cfg.Endpoint)
	}

	s := &Server{
		cfg:     cfg,
		session: session,
		store:   st,
		models:  models,
		engine:  gin.New(),
		log:     logging.Component("server"),
	}
	s.registerRoutes(target)
	return s, nil
}

func (s *Server) registerRoutes(target *url.URL) {
	r := s.engine
	r.Use(recovery(s.log))
	r.Use(requestID())
	r.Use(accessLog(s.log))
	r.Use(cors(s.cfg.Server.CorsOrigins))

	r.GET("/health", s.health)

	prefix := s.cfg.Server.ProxyPrefix
	r.Any(prefix+"/*path", gin.WrapH(newOllamaProxy(target, prefix, s.log)))

	api := r.Group("/api")
	limited := api.Group("/chat")
	limited.Use(rateLimit(newClientLimiter(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst)))
	limited.POST("", s.chat)
	api.POST("/chat/cancel", s.cancel)
	api.GET("/chat/status", s.status)
	api.GET("/transcript", s.transcript)
	api.GET("/editor", s.editor)
	api.POST("/save", s.save)
	api.GET("/state/:key", s.getState)
	api.PUT("/state/:key", s.putState)

	r.NoRoute(s.static)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.log.WithFields(logrus.Fields{
		"addr":     ln.Addr().String(),
		"upstream": s.cfg.Endpoint,
	}).Info("server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.session.Cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("server stopped")
	return nil
}
