package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/edgard/textrelay/internal/config"
	"github.com/edgard/textrelay/internal/metrics"
	"github.com/edgard/textrelay/internal/resilience"
)

// Request is the payload sent upstream for one user message.
type Request struct {
	Query string `json:"query"`
	Type  string `json:"type"`
}

// Dispatcher sends a query to the upstream API.
type Dispatcher interface {
	Dispatch(ctx context.Context, query, serviceType string) (RawResponse, error)
}

// Client is the HTTP Dispatcher. It performs at most one attempt per call,
// and none while its circuit breaker is open.
type Client struct {
	http    *resty.Client
	url     string
	breaker *resilience.CircuitBreaker // nil when disabled
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates an upstream API client from cfg. m may be nil.
func NewClient(cfg config.APIConfig, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "api_client")

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json, text/plain, */*").
		SetLogger(restyLogger{log})
	if cfg.Username != "" {
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}

	var breaker *resilience.CircuitBreaker
	if cfg.CircuitBreaker.MaxFailures > 0 {
		breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "upstream_api",
			MaxFailures: cfg.CircuitBreaker.MaxFailures,
			OpenTimeout: cfg.CircuitBreaker.OpenTimeout,
			Logger:      log,
		})
	}

	log.Info("API client initialized", "url", cfg.URL, "timeout", cfg.Timeout,
		"basic_auth", cfg.Username != "", "circuit_breaker", breaker != nil)
	return &Client{
		http:    client,
		url:     cfg.URL,
		breaker: breaker,
		logger:  log,
		metrics: m,
	}
}

// Dispatch posts {query, type} to the API. A 200 reply is returned as JSON when
// it decodes, otherwise as text. Any other status is an ErrAPI DispatchError.
func (c *Client) Dispatch(ctx context.Context, query, serviceType string) (RawResponse, error) {
	requestID := uuid.NewString()
	log := c.logger.With("request_id", requestID, "service", serviceType)
	log.InfoContext(ctx, "Dispatching request to API", "query_length", len([]rune(query)))

	var resp *resty.Response
	post := func() error {
		var err error
		resp, err = c.http.R().
			SetContext(ctx).
			SetHeader("X-Request-ID", requestID).
			SetBody(Request{Query: query, Type: serviceType}).
			Post(c.url)
		return err
	}

	start := time.Now()
	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(post)
	} else {
		err = post()
	}
	duration := time.Since(start)

	if err != nil {
		derr := classifyTransportError(err)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			derr = &DispatchError{Kind: ErrConnectionFailed, Err: err}
		}
		c.metrics.ObserveDispatch(serviceType, duration, derr.KindName())
		log.ErrorContext(ctx, "API request failed", "kind", derr.KindName(), "error", err, "duration", duration)
		return RawResponse{}, derr
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		derr := &DispatchError{Kind: ErrAPI, StatusCode: resp.StatusCode()}
		if len(body) > 0 && gjson.ValidBytes(body) {
			derr.Details = body
		}
		c.metrics.ObserveDispatch(serviceType, duration, derr.KindName())
		log.ErrorContext(ctx, "API returned error status",
			"status", resp.StatusCode(), "body_preview", preview(body), "duration", duration)
		return RawResponse{}, derr
	}

	c.metrics.ObserveDispatch(serviceType, duration, "")
	raw := parseBody(body)
	log.InfoContext(ctx, "Received API response",
		"status", resp.StatusCode(), "json", raw.IsJSON(), "bytes", len(body), "duration", duration)
	return raw, nil
}

func preview(b []byte) string {
	const limit = 200
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}

// restyLogger routes resty's own diagnostics into slog.
type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Error(fmt.Sprintf(format, v...)) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Warn(fmt.Sprintf(format, v...)) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug(fmt.Sprintf(format, v...)) }
