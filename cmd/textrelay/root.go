package main

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/edgard/textrelay/internal/config"
	"github.com/edgard/textrelay/internal/database"
	"github.com/edgard/textrelay/internal/logger"
	"github.com/edgard/textrelay/internal/preferences"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "textrelay",
		Short: "Telegram relay for the text review API",
		Long: `textrelay forwards Telegram messages to the text review API and sends
the answers back, split to fit Telegram's message limit.

Configuration is read from a YAML file and BOT_* environment variables.
A .env file in the working directory is loaded first if present.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")

	root.AddCommand(newRunCmd(&configPath), newPrefsCmd(&configPath))
	return root
}

// setup loads the configuration and installs the default logger.
func setup(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return nil, nil, err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Debug("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
	return cfg, log, nil
}

// storage holds the preference store and, for the sqlite backend, the
// database it lives in.
type storage struct {
	db    *sqlx.DB
	store database.Store
	prefs preferences.Store
}

func openStorage(cfg *config.Config, log *slog.Logger) (*storage, error) {
	s := &storage{}
	if cfg.Preferences.Backend == "sqlite" {
		db, err := database.NewDB(cfg.Database.Path, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
		}
		s.db = db
		s.store = database.NewStore(db, log)
	}

	prefs, err := preferences.New(cfg, s.store, log)
	if err != nil {
		s.Close(log)
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}
	s.prefs = prefs
	return s, nil
}

func (s *storage) Close(log *slog.Logger) {
	database.CloseDB(s.db, log)
}
