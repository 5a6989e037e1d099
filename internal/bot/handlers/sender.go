package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/textrelay/internal/metrics"
	"github.com/edgard/textrelay/internal/relay"
)

// chunkSender delivers text as a sequence of Telegram messages.
type chunkSender struct {
	messenger Messenger
	parseMode models.ParseMode
	maxLength int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func newChunkSender(m Messenger, deps HandlerDeps, log *slog.Logger) chunkSender {
	return chunkSender{
		messenger: m,
		parseMode: models.ParseMode(deps.Config.Telegram.ParseMode),
		maxLength: deps.Config.Telegram.MaxMessageLength,
		logger:    log,
		metrics:   deps.Metrics,
	}
}

// Send splits text and sends the chunks in order. A chunk that fails is
// dropped and the rest are still sent. Returns the number delivered.
func (s chunkSender) Send(ctx context.Context, chatID int64, text string) int {
	chunks := relay.Chunk(text, s.maxLength)
	s.logger.DebugContext(ctx, "Sending reply", "chat_id", chatID, "chunks", len(chunks))

	delivered := 0
	for i, chunk := range chunks {
		if s.sendChunk(ctx, chatID, chunk, i) {
			delivered++
		}
	}
	return delivered
}

// sendChunk sends one chunk in the configured parse mode and retries once as
// plain text when Telegram rejects it.
func (s chunkSender) sendChunk(ctx context.Context, chatID int64, text string, index int) bool {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text, ParseMode: s.parseMode}
	_, err := s.messenger.SendMessage(ctx, params)
	if err == nil {
		s.metrics.ChunkSent()
		return true
	}

	if s.parseMode == "" {
		s.logger.ErrorContext(ctx, "Failed to send reply chunk", "error", err, "chat_id", chatID, "chunk", index)
		return false
	}

	s.logger.WarnContext(ctx, "Formatted send failed, retrying as plain text",
		"error", err, "chat_id", chatID, "chunk", index, "parse_mode", s.parseMode)

	plain := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if _, err := s.messenger.SendMessage(ctx, plain); err != nil {
		s.metrics.SendFallback(false)
		s.logger.ErrorContext(ctx, "Plain text retry failed, dropping chunk", "error", err, "chat_id", chatID, "chunk", index)
		return false
	}

	s.metrics.SendFallback(true)
	s.metrics.ChunkSent()
	return true
}
