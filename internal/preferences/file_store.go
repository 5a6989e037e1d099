package preferences

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/lo"
)

// FileStore keeps preferences in a JSON object on disk. The file is read once
// by NewFileStore and rewritten in full after every change.
type FileStore struct {
	path       string
	defaultTag string
	tags       []string
	logger     *slog.Logger

	mu    sync.Mutex
	prefs map[string]string
}

// NewFileStore loads path, or starts empty when it does not exist yet.
// tags is the set of accepted service tags.
func NewFileStore(path, defaultTag string, tags []string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &FileStore{
		path:       path,
		defaultTag: defaultTag,
		tags:       tags,
		logger:     logger.With("component", "preferences", "backend", "file"),
		prefs:      make(map[string]string),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("Preferences file not found, starting empty", "path", path)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read preferences file %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &s.prefs); err != nil {
			return nil, fmt.Errorf("failed to parse preferences file %s: %w", path, err)
		}
	}
	if s.prefs == nil {
		s.prefs = make(map[string]string)
	}

	s.logger.Info("Preferences loaded", "path", path, "users", len(s.prefs))
	return s, nil
}

// Get returns the user's tag, assigning and saving the default for a new user.
// A stored tag that is no longer configured yields the default. The map is
// left unchanged when the save fails, so the next call retries it.
func (s *FileStore) Get(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tag, ok := s.prefs[userID]; ok {
		if lo.Contains(s.tags, tag) {
			return tag, nil
		}
		s.logger.Warn("Stored service tag is not configured, using default",
			"user_id", userID, "service_tag", tag, "default", s.defaultTag)
		return s.defaultTag, nil
	}

	s.prefs[userID] = s.defaultTag
	if err := s.save(); err != nil {
		delete(s.prefs, userID)
		return s.defaultTag, err
	}
	s.logger.Debug("Default preference assigned", "user_id", userID, "service_tag", s.defaultTag)
	return s.defaultTag, nil
}

// Set stores tag for userID and rewrites the file. On a failed write the
// previous value is restored.
func (s *FileStore) Set(_ context.Context, userID, tag string) error {
	if !lo.Contains(s.tags, tag) {
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.prefs[userID]
	s.prefs[userID] = tag
	if err := s.save(); err != nil {
		if existed {
			s.prefs[userID] = prev
		} else {
			delete(s.prefs, userID)
		}
		return err
	}
	s.logger.Info("Preference updated", "user_id", userID, "service_tag", tag)
	return nil
}

// All returns a copy of every stored preference.
func (s *FileStore) All(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.prefs), nil
}

// save writes the map through a temp file and rename. Callers hold s.mu.
func (s *FileStore) save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.prefs); err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp preferences file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp preferences file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		s.logger.Error("Failed to save preferences", "path", s.path, "error", err)
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}
