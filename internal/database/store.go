package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the database operations on user preferences.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetPreference returns the preference for userID, or nil, nil if none is stored.
	GetPreference(ctx context.Context, userID string) (*Preference, error)

	// SavePreference inserts or updates the preference for pref.UserID.
	SavePreference(ctx context.Context, pref *Preference) error

	// GetAllPreferences returns every stored preference keyed by user ID.
	GetAllPreferences(ctx context.Context) (map[string]*Preference, error)

	// RunSQLMaintenance performs database maintenance (VACUUM).
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetPreference retrieves the preference for userID. Returns nil, nil if not found.
func (s *sqlxStore) GetPreference(ctx context.Context, userID string) (*Preference, error) {
	if userID == "" {
		return nil, errors.New("user_id cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var pref Preference
	query := `SELECT user_id, service_tag, created_at, updated_at
	          FROM user_preferences WHERE user_id = ?`

	err := s.db.GetContext(ctx, &pref, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No preference found", "user_id", userID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching preference",
			"user_id", userID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting preference", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get preference for user %s: %w", userID, err)
	}

	return &pref, nil
}

// SavePreference upserts pref. CreatedAt is kept for existing rows.
func (s *sqlxStore) SavePreference(ctx context.Context, pref *Preference) error {
	if pref == nil {
		return errors.New("cannot save nil preference")
	}
	if pref.UserID == "" {
		return errors.New("preference must have a non-empty user_id")
	}
	if pref.ServiceTag == "" {
		return errors.New("preference must have a non-empty service_tag")
	}

	now := time.Now().UTC()
	pref.UpdatedAt = now
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}

	query := `
		INSERT INTO user_preferences (user_id, service_tag, created_at, updated_at)
		VALUES (:user_id, :service_tag, :created_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			service_tag = excluded.service_tag,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.NamedExecContext(ctx, query, pref); err != nil {
		s.logger.ErrorContext(ctx, "Error saving preference",
			"user_id", pref.UserID, "service_tag", pref.ServiceTag, "error", err)
		return fmt.Errorf("failed to save preference for user %s: %w", pref.UserID, err)
	}

	s.logger.DebugContext(ctx, "Preference saved", "user_id", pref.UserID, "service_tag", pref.ServiceTag)
	return nil
}

// GetAllPreferences retrieves all stored preferences.
func (s *sqlxStore) GetAllPreferences(ctx context.Context) (map[string]*Preference, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var prefs []*Preference
	query := `SELECT user_id, service_tag, created_at, updated_at FROM user_preferences`

	err := s.db.SelectContext(ctx, &prefs, query)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching preferences", "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting all preferences", "error", err)
		return nil, fmt.Errorf("failed to get all preferences: %w", err)
	}

	result := make(map[string]*Preference, len(prefs))
	for _, p := range prefs {
		result[p.UserID] = p
	}

	s.logger.DebugContext(ctx, "Fetched all preferences", "count", len(result))
	return result, nil
}

// RunSQLMaintenance executes VACUUM on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	start := time.Now()

	// VACUUM cannot run inside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed", "duration", time.Since(start))
	return nil
}
