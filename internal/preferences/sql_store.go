package preferences

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/lo"

	"github.com/edgard/textrelay/internal/database"
)

// SQLStore keeps preferences in the SQLite user_preferences table.
type SQLStore struct {
	db         database.Store
	defaultTag string
	tags       []string
	logger     *slog.Logger
}

// NewSQLStore wraps a database store.
func NewSQLStore(db database.Store, defaultTag string, tags []string, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLStore{
		db:         db,
		defaultTag: defaultTag,
		tags:       tags,
		logger:     logger.With("component", "preferences", "backend", "sqlite"),
	}
}

// Get returns the user's tag, inserting the default for a new user. A stored
// tag that is no longer configured yields the default.
func (s *SQLStore) Get(ctx context.Context, userID string) (string, error) {
	pref, err := s.db.GetPreference(ctx, userID)
	if err != nil {
		return s.defaultTag, err
	}
	if pref != nil {
		if lo.Contains(s.tags, pref.ServiceTag) {
			return pref.ServiceTag, nil
		}
		s.logger.WarnContext(ctx, "Stored service tag is not configured, using default",
			"user_id", userID, "service_tag", pref.ServiceTag, "default", s.defaultTag)
		return s.defaultTag, nil
	}

	if err := s.db.SavePreference(ctx, &database.Preference{UserID: userID, ServiceTag: s.defaultTag}); err != nil {
		return s.defaultTag, err
	}
	s.logger.DebugContext(ctx, "Default preference assigned", "user_id", userID, "service_tag", s.defaultTag)
	return s.defaultTag, nil
}

// Set upserts tag for userID.
func (s *SQLStore) Set(ctx context.Context, userID, tag string) error {
	if !lo.Contains(s.tags, tag) {
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	if err := s.db.SavePreference(ctx, &database.Preference{UserID: userID, ServiceTag: tag}); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Preference updated", "user_id", userID, "service_tag", tag)
	return nil
}

// All returns every stored preference.
func (s *SQLStore) All(ctx context.Context) (map[string]string, error) {
	prefs, err := s.db.GetAllPreferences(ctx)
	if err != nil {
		return nil, err
	}
	return lo.MapValues(prefs, func(p *database.Preference, _ string) string {
		return p.ServiceTag
	}), nil
}
