package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/tidwall/gjson"

	"github.com/edgard/textrelay/internal/relay"
)

const (
	typingInterval      = 4 * time.Second
	cleanupTimeout      = 10 * time.Second
	maxLoggedTextLength = 50
)

// NewRelayHandler returns the default handler: it forwards plain text to the
// upstream API and replies with the normalized answer.
func NewRelayHandler(deps HandlerDeps) bot.HandlerFunc {
	return relayHandler{deps}.Handle
}

type relayHandler struct {
	deps HandlerDeps
}

func (h relayHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h relayHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	log := h.deps.Logger.With("handler", "relay")

	msg := update.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		log.DebugContext(ctx, "Ignoring update without text or sender", "update_id", update.ID)
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		log.DebugContext(ctx, "Ignoring unknown command", "chat_id", msg.Chat.ID, "text", msg.Text)
		return
	}

	chatID := msg.Chat.ID
	userID := strconv.FormatInt(msg.From.ID, 10)
	log = log.With("chat_id", chatID, "user_id", userID)
	log.InfoContext(ctx, "Received message", "username", msg.From.Username, "text", preview(msg.Text))

	typingCtx, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	h.keepTyping(typingCtx, m, chatID)

	if noticeID := h.sendProcessingNotice(ctx, m, chatID); noticeID != 0 {
		defer h.deleteMessage(ctx, m, chatID, noticeID)
	}

	service := h.resolveService(ctx, userID)
	raw, err := h.deps.Dispatcher.Dispatch(ctx, msg.Text, service)
	stopTyping()

	var reply string
	if err != nil {
		log.ErrorContext(ctx, "Dispatch failed", append([]any{"service", service, "error", err}, errorAttrs(err)...)...)
		reply = h.errorNotice(err)
	} else {
		reply = h.deps.Normalizer.Normalize(raw)
	}

	delivered := newChunkSender(m, h.deps, log).Send(ctx, chatID, reply)
	log.InfoContext(ctx, "Reply sent", "service", service, "chunks_delivered", delivered)
}

// resolveService returns the fixed service if configured, otherwise the
// user's stored preference. A store failure falls back to the default.
func (h relayHandler) resolveService(ctx context.Context, userID string) string {
	cfg := h.deps.Config.Relay
	if cfg.FixedService != "" {
		return cfg.FixedService
	}

	tag, err := h.deps.Preferences.Get(ctx, userID)
	if err != nil {
		h.deps.Logger.WarnContext(ctx, "Failed to load preference, using default",
			"user_id", userID, "default", cfg.DefaultService, "error", err)
		return cfg.DefaultService
	}
	return tag
}

// keepTyping sends a typing action now and refreshes it until ctx is done.
func (h relayHandler) keepTyping(ctx context.Context, m Messenger, chatID int64) {
	send := func() error {
		_, err := m.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})
		return err
	}
	if err := send(); err != nil {
		h.deps.Logger.DebugContext(ctx, "Typing action failed", "error", err, "chat_id", chatID)
	}

	go func() {
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := send(); err != nil && ctx.Err() == nil {
					h.deps.Logger.DebugContext(ctx, "Typing action failed", "error", err, "chat_id", chatID)
				}
			}
		}
	}()
}

// sendProcessingNotice returns the notice's message ID, or 0 if none was sent.
func (h relayHandler) sendProcessingNotice(ctx context.Context, m Messenger, chatID int64) int {
	text := h.deps.Config.Messages.Processing
	if text == "" {
		return 0
	}
	sent, err := m.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil || sent == nil {
		h.deps.Logger.WarnContext(ctx, "Failed to send processing notice", "error", err, "chat_id", chatID)
		return 0
	}
	return sent.ID
}

func (h relayHandler) deleteMessage(ctx context.Context, m Messenger, chatID int64, messageID int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if _, err := m.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: messageID}); err != nil {
		h.deps.Logger.WarnContext(ctx, "Failed to delete processing notice", "error", err, "chat_id", chatID, "message_id", messageID)
	}
}

// errorNotice maps a dispatch error to the user-facing notice. API errors
// carry the status code and any JSON details from the response body.
func (h relayHandler) errorNotice(err error) string {
	msgs := h.deps.Config.Messages

	var derr *relay.DispatchError
	switch {
	case errors.Is(err, relay.ErrConnectionFailed):
		return msgs.ConnectionFailed
	case errors.Is(err, relay.ErrTimeout):
		return msgs.Timeout
	case errors.Is(err, relay.ErrAPI) && errors.As(err, &derr):
		notice := fmt.Sprintf(msgs.APIError, derr.StatusCode)
		if len(derr.Details) > 0 {
			notice += "\n\n" + strings.TrimSpace(gjson.GetBytes(derr.Details, "@pretty").String())
		}
		return notice
	default:
		return msgs.UnknownError
	}
}

func errorAttrs(err error) []any {
	var derr *relay.DispatchError
	if !errors.As(err, &derr) {
		return nil
	}
	attrs := []any{"kind", derr.KindName()}
	if derr.StatusCode != 0 {
		attrs = append(attrs, "status", derr.StatusCode)
	}
	return attrs
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= maxLoggedTextLength {
		return s
	}
	return string(r[:maxLoggedTextLength]) + "..."
}
