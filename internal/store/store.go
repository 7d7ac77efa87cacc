// Package store persists small JSON documents (the chat transcript and
// editor buffers) under fixed keys.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/arin/livedit/internal/config"
)

// Fixed keys used by the application.
const (
	KeyChatLog       = "chatLog"
	KeyEditorContent = "editorContent"
)

// ErrNotFound is returned by Get when nothing is stored under a key.
var ErrNotFound = errors.New("key not found")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Store is a small key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// ValidKey reports whether key can be used with any backend.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func checkKey(key string) error {
	if !ValidKey(key) {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}

// Open returns the backend selected by cfg.Store.Backend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case "", "file":
		return NewFileStore(config.Dir()), nil
	case "sqlite":
		return OpenSQLite(cfg.Store.Path)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
