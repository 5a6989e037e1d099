package handlers

import (
	"log/slog"

	"github.com/edgard/textrelay/internal/config"
	"github.com/edgard/textrelay/internal/metrics"
	"github.com/edgard/textrelay/internal/preferences"
	"github.com/edgard/textrelay/internal/relay"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger      *slog.Logger
	Config      *config.Config
	Preferences preferences.Store
	Dispatcher  relay.Dispatcher
	Normalizer  *relay.Normalizer
	Metrics     *metrics.Metrics // optional
}
