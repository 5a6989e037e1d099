package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/textrelay/internal/config"
	"github.com/edgard/textrelay/internal/metrics"
	"github.com/edgard/textrelay/internal/preferences"
	"github.com/edgard/textrelay/internal/relay"
)

// fakeMessenger records outbound calls. Sends in a parse mode fail when
// rejectFormatted is set; every send fails when rejectAll is set.
type fakeMessenger struct {
	mu              sync.Mutex
	sent            []bot.SendMessageParams
	actions         int
	deleted         []int
	rejectFormatted bool
	rejectAll       bool
	nextID          int
}

func (f *fakeMessenger) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectAll || (f.rejectFormatted && p.ParseMode != "") {
		return nil, errors.New("Bad Request: can't parse entities")
	}
	f.sent = append(f.sent, *p)
	f.nextID++
	return &models.Message{ID: f.nextID}, nil
}

func (f *fakeMessenger) SendChatAction(context.Context, *bot.SendChatActionParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions++
	return true, nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, p *bot.DeleteMessageParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, p.MessageID)
	return true, nil
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, p := range f.sent {
		out[i] = p.Text
	}
	return out
}

func (f *fakeMessenger) counts() (actions int, deleted []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.actions, append([]int(nil), f.deleted...)
}

type fakeDispatcher struct {
	raw   relay.RawResponse
	err   error
	calls []relay.Request
}

func (d *fakeDispatcher) Dispatch(_ context.Context, query, serviceType string) (relay.RawResponse, error) {
	d.calls = append(d.calls, relay.Request{Query: query, Type: serviceType})
	return d.raw, d.err
}

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{
			MaxMessageLength: config.DefaultTelegramMaxMessageLength,
			ParseMode:        config.DefaultTelegramParseMode,
		},
		API: config.APIConfig{Timeout: 5 * time.Second},
		Relay: config.RelayConfig{
			DefaultService: config.DefaultService,
			Services:       config.DefaultServices,
		},
		Messages: config.DefaultMessages,
	}
}

func testDeps(t *testing.T, cfg *config.Config, d relay.Dispatcher) HandlerDeps {
	t.Helper()
	prefs, err := preferences.NewFileStore(filepath.Join(t.TempDir(), "prefs.json"),
		cfg.Relay.DefaultService, cfg.ServiceTags(), nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return HandlerDeps{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:      cfg,
		Preferences: prefs,
		Dispatcher:  d,
		Normalizer:  relay.NewNormalizer(relay.LabelsFromConfig(cfg.Messages)),
		Metrics:     metrics.New(),
	}
}

func textUpdate(userID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			Chat: models.Chat{ID: userID},
			From: &models.User{ID: userID, Username: "tester"},
			Text: text,
		},
	}
}

func TestRelayEndToEnd(t *testing.T) {
	t.Parallel()

	received := make(chan relay.Request, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req relay.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode upstream request: %v", err)
		}
		received <- req
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": {"text": "Готово"}}`))
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.API.URL = upstream.URL
	deps := testDeps(t, cfg, relay.NewClient(cfg.API, nil, nil))
	fake := &fakeMessenger{}

	relayHandler{deps}.handle(context.Background(), fake, textUpdate(42, "Проверь текст"))

	req := <-received
	if req != (relay.Request{Query: "Проверь текст", Type: "alfa_friday"}) {
		t.Errorf("upstream request = %+v", req)
	}

	texts := fake.texts()
	want := []string{cfg.Messages.Processing, "Готово"}
	if len(texts) != len(want) || texts[0] != want[0] || texts[1] != want[1] {
		t.Fatalf("sent = %q, want %q", texts, want)
	}
	actions, deleted := fake.counts()
	if len(deleted) != 1 || deleted[0] != 1 {
		t.Errorf("deleted = %v, want the processing notice (1)", deleted)
	}
	if actions < 1 {
		t.Error("no typing action sent")
	}

	all, err := deps.Preferences.All(context.Background())
	if err != nil || all["42"] != "alfa_friday" {
		t.Errorf("default preference not persisted: %v, %v", all, err)
	}
}

func TestRelayUnreachableHost(t *testing.T) {
	t.Parallel()

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()

	cfg := testConfig()
	cfg.API.URL = url
	deps := testDeps(t, cfg, relay.NewClient(cfg.API, nil, nil))
	fake := &fakeMessenger{}

	relayHandler{deps}.handle(context.Background(), fake, textUpdate(7, "hello"))

	texts := fake.texts()
	if len(texts) != 2 || texts[1] != cfg.Messages.ConnectionFailed {
		t.Errorf("sent = %q, want connection-failed notice last", texts)
	}
}

func TestRelayErrorNotices(t *testing.T) {
	t.Parallel()

	msgs := config.DefaultMessages
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{name: "timeout", err: &relay.DispatchError{Kind: relay.ErrTimeout}, contains: []string{msgs.Timeout}},
		{name: "unknown", err: &relay.DispatchError{Kind: relay.ErrUnknown}, contains: []string{msgs.UnknownError}},
		{name: "plain error", err: errors.New("boom"), contains: []string{msgs.UnknownError}},
		{name: "api error without details", err: &relay.DispatchError{Kind: relay.ErrAPI, StatusCode: 503}, contains: []string{"503"}},
		{
			name:     "api error with details",
			err:      &relay.DispatchError{Kind: relay.ErrAPI, StatusCode: 422, Details: []byte(`{"detail":"bad type"}`)},
			contains: []string{"422", `"detail": "bad type"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			cfg.Messages.Processing = ""
			fake := &fakeMessenger{}
			relayHandler{testDeps(t, cfg, &fakeDispatcher{err: tt.err})}.handle(context.Background(), fake, textUpdate(1, "q"))

			texts := fake.texts()
			if len(texts) != 1 {
				t.Fatalf("sent %d messages, want 1: %q", len(texts), texts)
			}
			for _, want := range tt.contains {
				if !strings.Contains(texts[0], want) {
					t.Errorf("notice %q does not contain %q", texts[0], want)
				}
			}
		})
	}
}

func TestRelayUsesStoredPreference(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	d := &fakeDispatcher{raw: relay.TextResponse("ok")}
	deps := testDeps(t, cfg, d)
	if err := deps.Preferences.Set(context.Background(), "5", "final_trainer"); err != nil {
		t.Fatal(err)
	}

	relayHandler{deps}.handle(context.Background(), &fakeMessenger{}, textUpdate(5, "text"))

	if len(d.calls) != 1 || d.calls[0].Type != "final_trainer" {
		t.Errorf("dispatch calls = %+v, want type final_trainer", d.calls)
	}
}

func TestRelayFixedService(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Relay.FixedService = "speach_trainer"
	d := &fakeDispatcher{raw: relay.TextResponse("ok")}
	deps := testDeps(t, cfg, d)

	relayHandler{deps}.handle(context.Background(), &fakeMessenger{}, textUpdate(5, "text"))

	if len(d.calls) != 1 || d.calls[0].Type != "speach_trainer" {
		t.Errorf("dispatch calls = %+v, want type speach_trainer", d.calls)
	}
	all, _ := deps.Preferences.All(context.Background())
	if len(all) != 0 {
		t.Errorf("fixed service should not touch preferences, got %v", all)
	}
}

func TestRelayIgnoresNonText(t *testing.T) {
	t.Parallel()

	updates := map[string]*models.Update{
		"no message":      {ID: 1},
		"blank text":      textUpdate(1, "   "),
		"unknown command": textUpdate(1, "/unknown"),
	}
	for name, update := range updates {
		d := &fakeDispatcher{}
		fake := &fakeMessenger{}
		relayHandler{testDeps(t, testConfig(), d)}.handle(context.Background(), fake, update)
		if len(d.calls) != 0 || len(fake.texts()) != 0 {
			t.Errorf("%s: dispatched %d, sent %d, want nothing", name, len(d.calls), len(fake.texts()))
		}
	}
}

func TestRelayChunksLongReplies(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Messages.Processing = ""
	cfg.Telegram.MaxMessageLength = 16
	reply := "first chunk here second chunk here third"
	deps := testDeps(t, cfg, &fakeDispatcher{raw: relay.TextResponse(reply)})
	fake := &fakeMessenger{}

	relayHandler{deps}.handle(context.Background(), fake, textUpdate(1, "q"))

	want := relay.Chunk(reply, 16)
	got := fake.texts()
	if len(got) != len(want) || len(got) < 2 {
		t.Fatalf("sent %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunkSenderPlainTextFallback(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	deps := testDeps(t, cfg, nil)
	fake := &fakeMessenger{rejectFormatted: true}

	delivered := newChunkSender(fake, deps, deps.Logger).Send(context.Background(), 1, "*broken markdown")
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	if fake.sent[0].ParseMode != "" {
		t.Errorf("retry parse mode = %q, want plain", fake.sent[0].ParseMode)
	}
}

func TestChunkSenderDropsFailedChunks(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Telegram.MaxMessageLength = 5
	deps := testDeps(t, cfg, nil)
	fake := &fakeMessenger{rejectAll: true}

	if delivered := newChunkSender(fake, deps, deps.Logger).Send(context.Background(), 1, "aaaa bbbb cccc"); delivered != 0 {
		t.Errorf("delivered = %d, want 0", delivered)
	}
}

func TestServiceHandler(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	deps := testDeps(t, cfg, nil)
	svc := cfg.Relay.Services[1]
	fake := &fakeMessenger{}

	serviceHandler{deps: deps, service: svc}.handle(context.Background(), fake, textUpdate(9, "/"+svc.Tag))

	if texts := fake.texts(); len(texts) != 1 || texts[0] != svc.Confirmation {
		t.Errorf("sent = %q, want confirmation %q", texts, svc.Confirmation)
	}
	if tag, _ := deps.Preferences.Get(context.Background(), "9"); tag != svc.Tag {
		t.Errorf("preference = %q, want %q", tag, svc.Tag)
	}
}

func TestStartAndHelp(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Messages.Help = "Ask @botname anything"
	cfg.Telegram.BotInfo = &models.User{Username: "relaybot"}
	deps := testDeps(t, cfg, nil)
	fake := &fakeMessenger{}

	startHandler{deps}.handle(context.Background(), fake, textUpdate(1, "/start"))
	helpHandler{deps}.handle(context.Background(), fake, textUpdate(1, "/help"))

	texts := fake.texts()
	if len(texts) != 2 || texts[0] != cfg.Messages.Welcome || texts[1] != "Ask @relaybot anything" {
		t.Errorf("sent = %q", texts)
	}
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	deps := testDeps(t, cfg, nil)

	registered := RegisterAllCommands(deps)
	if len(registered) != 2+len(cfg.Relay.Services) {
		t.Errorf("registered %d commands, want %d", len(registered), 2+len(cfg.Relay.Services))
	}
	commands := BotCommands(deps, registered)
	if commands[0].Command != "start" || commands[1].Command != "help" || commands[2].Command != "alfa_friday" {
		t.Errorf("command order = %+v", commands)
	}

	cfg.Relay.FixedService = "alfa_friday"
	registered = RegisterAllCommands(deps)
	if _, ok := registered["/alfa_friday"]; ok || len(registered) != 2 {
		t.Errorf("fixed service should hide service commands, got %d", len(registered))
	}
	if got := BotCommands(deps, registered); len(got) != 2 {
		t.Errorf("BotCommands() = %+v, want start and help", got)
	}
}
