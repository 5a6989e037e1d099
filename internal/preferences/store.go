// Package preferences keeps the service tag each user has selected.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgard/textrelay/internal/config"
	"github.com/edgard/textrelay/internal/database"
)

// ErrInvalidTag is returned by Set for a tag outside the configured set.
var ErrInvalidTag = errors.New("unknown service tag")

// Store maps user IDs to their selected service tag. An unseen user gets the
// default tag on first Get, and that default is persisted.
type Store interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID, tag string) error
	All(ctx context.Context) (map[string]string, error)
}

// New builds the Store selected by cfg.Preferences.Backend. db is only
// used by the sqlite backend and may be nil otherwise.
func New(cfg *config.Config, db database.Store, logger *slog.Logger) (Store, error) {
	tags := cfg.ServiceTags()
	switch cfg.Preferences.Backend {
	case "", "file":
		fs, err := NewFileStore(cfg.Preferences.Path, cfg.Relay.DefaultService, tags, logger)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "sqlite":
		if db == nil {
			return nil, errors.New("sqlite preferences backend requires a database")
		}
		return NewSQLStore(db, cfg.Relay.DefaultService, tags, logger), nil
	default:
		return nil, fmt.Errorf("unknown preferences backend %q", cfg.Preferences.Backend)
	}
}
