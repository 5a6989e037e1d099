// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic.
package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegisteredHandler represents a command handler with its description and middleware.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Description string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands returns every bot command keyed by "/name". Service
// selection commands are omitted when a fixed service is configured.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Description: "Начать работу",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/help"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "help",
		Description: "Как пользоваться ботом",
		Handler:     NewHelpHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}

	if deps.Config.Relay.FixedService != "" {
		return handlers
	}

	for _, svc := range deps.Config.Relay.Services {
		handlers["/"+svc.Tag] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     svc.Tag,
			Description: svc.Description,
			Handler:     NewServiceHandler(deps, svc),
			MatchType:   tgbot.MatchTypeCommandStartOnly,
		}
	}

	return handlers
}

// BotCommands lists the registered commands for the Telegram command menu:
// /start and /help first, then services in configuration order.
func BotCommands(deps HandlerDeps, registered map[string]RegisteredHandler) []models.BotCommand {
	order := []string{"start", "help"}
	if deps.Config.Relay.FixedService == "" {
		order = append(order, deps.Config.ServiceTags()...)
	}

	commands := make([]models.BotCommand, 0, len(order))
	for _, name := range order {
		h, ok := registered["/"+name]
		if !ok {
			continue
		}
		description := h.Description
		if description == "" {
			description = name
		}
		commands = append(commands, models.BotCommand{Command: name, Description: description})
	}
	return commands
}
