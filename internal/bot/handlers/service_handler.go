package handlers

import (
	"context"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/textrelay/internal/config"
)

// NewServiceHandler returns a handler that switches the sender to svc.
func NewServiceHandler(deps HandlerDeps, svc config.ServiceConfig) bot.HandlerFunc {
	return serviceHandler{deps: deps, service: svc}.Handle
}

type serviceHandler struct {
	deps    HandlerDeps
	service config.ServiceConfig
}

func (h serviceHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h serviceHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	log := h.deps.Logger.With("handler", "service", "service_tag", h.service.Tag)

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Service handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	userID := strconv.FormatInt(update.Message.From.ID, 10)

	reply := h.service.Confirmation
	if reply == "" {
		reply = h.service.Tag
	}
	if err := h.deps.Preferences.Set(ctx, userID, h.service.Tag); err != nil {
		log.ErrorContext(ctx, "Failed to save service preference", "error", err, "user_id", userID, "chat_id", chatID)
		reply = h.deps.Config.Messages.PreferenceError
	} else {
		log.InfoContext(ctx, "Service selected", "user_id", userID, "chat_id", chatID)
	}

	if _, err := m.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
		log.ErrorContext(ctx, "Failed to send service confirmation", "error", err, "chat_id", chatID)
	}
}
