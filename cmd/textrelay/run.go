package main

import (
	"context"
	"errors"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/textrelay/internal/bot"
	"github.com/edgard/textrelay/internal/bot/handlers"
	"github.com/edgard/textrelay/internal/bot/tasks"
	"github.com/edgard/textrelay/internal/config"
	"github.com/edgard/textrelay/internal/logger"
	"github.com/edgard/textrelay/internal/metrics"
	"github.com/edgard/textrelay/internal/relay"
	"github.com/edgard/textrelay/internal/telegram"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(*configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, log)
		},
	}
}

// run wires every component together and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := openStorage(cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		return err
	}
	defer store.Close(log)

	m := metrics.New()

	hDeps := handlers.HandlerDeps{
		Logger:      log,
		Config:      cfg,
		Preferences: store.prefs,
		Dispatcher:  relay.NewClient(cfg.API, m, log),
		Normalizer:  relay.NewNormalizer(relay.LabelsFromConfig(cfg.Messages)),
		Metrics:     m,
	}

	tDeps := tasks.TaskDeps{Logger: log}
	if store.store != nil {
		tDeps.Store = store.store
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewRelayHandler(hDeps)),
	)
	if err != nil {
		return err
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return err
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return err
	}
	if err := telegram.PublishCommands(ctx, tg, handlers.BotCommands(hDeps, cmdHandlers), log); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		return err
	}

	var server bot.Server
	if cfg.Metrics.ListenAddr != "" {
		server = metrics.NewServer(cfg.Metrics.ListenAddr, m, healthCheck(store), log)
	}

	log.Info("Starting bot...", "api_url", cfg.API.URL, "preferences_backend", cfg.Preferences.Backend)
	if err := bot.NewBot(log, tg, sched, server).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Bot stopped due to error", "error", err)
		return err
	}

	log.Info("Bot stopped gracefully")
	return nil
}

func healthCheck(s *storage) metrics.HealthFunc {
	return func(ctx context.Context) error {
		if s.store == nil {
			return nil
		}
		return s.store.Ping(ctx)
	}
}
