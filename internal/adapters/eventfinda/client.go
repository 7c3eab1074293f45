package eventfinda

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/pkg/metrics"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxBodyBytes = 8 << 20
	defaultUserAgent    = "eventures/1.0"
)

// ClientConfig configures the fetch client.
type ClientConfig struct {
	Credentials  domain.BasicAuthCredentials
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// Client downloads Eventfinda pages with HTTP Basic authentication.
// It performs exactly one request per Fetch call and never retries.
type Client struct {
	http         *http.Client
	creds        domain.BasicAuthCredentials
	maxBodyBytes int64
	userAgent    string
}

// NewClient creates a client. Zero config values fall back to defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		creds:        cfg.Credentials,
		maxBodyBytes: cfg.MaxBodyBytes,
		userAgent:    cfg.UserAgent,
	}
}

// Fetch issues one authenticated GET for the page described by req.
func (c *Client) Fetch(ctx context.Context, req domain.RequestDescriptor) ([]byte, error) {
	start := time.Now()
	body, err := c.fetch(ctx, req)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			metrics.FetchErrors.WithLabelValues(fetchKindLabel(fe.Kind)).Inc()
		}
		return nil, err
	}
	metrics.PagesFetched.Inc()
	return body, nil
}

func (c *Client) fetch(ctx context.Context, req domain.RequestDescriptor) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, http.NoBody)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.ErrNetwork, URL: req.URL, Err: fmt.Errorf("create request: %w", err)}
	}
	if !c.creds.Empty() {
		httpReq.SetBasicAuth(c.creds.Username, c.creds.Password)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	slog.DebugContext(ctx, "fetching page", "url", req.URL, "offset", req.PageOffset, "rows", req.PageSize)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &domain.FetchError{Kind: domain.ErrHTTPStatus, StatusCode: resp.StatusCode, URL: req.URL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, c.transportError(ctx, req.URL, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, &domain.FetchError{
			Kind: domain.ErrNetwork,
			URL:  req.URL,
			Err:  fmt.Errorf("response exceeds %d bytes", c.maxBodyBytes),
		}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &domain.FetchError{Kind: domain.ErrEmptyResponse, URL: req.URL}
	}
	return body, nil
}

// transportError distinguishes caller cancellation from network failure.
func (c *Client) transportError(ctx context.Context, url string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.FetchError{Kind: domain.ErrCancelled, URL: url, Err: ctxErr}
	}
	return &domain.FetchError{Kind: domain.ErrNetwork, URL: url, Err: err}
}

func fetchKindLabel(kind error) string {
	switch {
	case errors.Is(kind, domain.ErrNetwork):
		return "network"
	case errors.Is(kind, domain.ErrHTTPStatus):
		return "http_status"
	case errors.Is(kind, domain.ErrEmptyResponse):
		return "empty_response"
	case errors.Is(kind, domain.ErrCancelled):
		return "cancelled"
	case errors.Is(kind, domain.ErrCircuitOpen):
		return "circuit_open"
	default:
		return "unknown"
	}
}
