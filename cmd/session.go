package cmd

import (
	"context"
	"fmt"

	"github.com/arin/livedit/internal/ai"
	"github.com/arin/livedit/internal/chat"
	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/store"
)

// openSession builds a client and a session restored from the configured
// store. The caller closes the returned store.
func openSession(ctx context.Context, cfg *config.Config, source string) (*chat.Session, *ai.Client, store.Store, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	client := ai.NewClient(cfg)
	session := chat.NewSession(client, cfg, chat.WithStore(st), chat.WithStats(source))
	if err := session.Load(ctx); err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	return session, client, st, nil
}
