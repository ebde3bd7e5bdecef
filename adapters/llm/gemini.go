// Package llm relays generation requests to a Gemini-compatible API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

const (
	DefaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel          = "gemini-2.5-flash"
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
	DefaultTimeout        = 120 * time.Second
)

var (
	// ErrNoAPIKey is returned before any request when no API key is configured.
	ErrNoAPIKey = fmt.Errorf("generative AI API key: %w", ports.ErrNotConfigured)

	// ErrEmptyResponse is returned when a response carries no candidate text.
	ErrEmptyResponse = errors.New("model returned no candidates")
)

// Config configures the Gemini client.
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	MaxRetries     int           // retries after the first attempt
	InitialBackoff time.Duration // doubles on each retry
	Timeout        time.Duration // per-attempt HTTP client timeout
	Logger         zerolog.Logger
}

// Client implements ports.Generator for the Gemini generateContent API.
type Client struct {
	apiKey         string
	model          string
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
	client         *http.Client
	logger         zerolog.Logger
}

// NewClient creates a new Gemini client. Zero config fields take defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		apiKey:         cfg.APIKey,
		model:          strings.TrimPrefix(cfg.Model, "models/"),
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		client:         &http.Client{Timeout: cfg.Timeout},
		logger:         cfg.Logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// apiError is the error envelope returned by the API.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate posts body to models/{model}:generateContent, authenticated with
// the x-goog-api-key header, and returns the
// response body verbatim. 429, 5xx and connection errors are retried with
// exponential backoff; other failures return immediately.
func (c *Client) Generate(ctx context.Context, body []byte) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.initialBackoff * time.Duration(1<<(attempt-1))
			c.logger.Warn().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Str("last_error", lastErr.Error()).
				Msg("retrying generate request after transient error")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		respBody, retry, err := c.do(ctx, url, body)
		if err == nil {
			return respBody, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

// do performs one attempt and reports whether a failure is transient.
func (c *Client) do(ctx context.Context, url string, body []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The key travels in a header so transport errors, which quote the URL, never carry it.
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		if isConnectionError(err) {
			return nil, true, fmt.Errorf("connection error: %w", err)
		}
		return nil, false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		return respBody, false, nil
	}

	msg := string(respBody)
	var errResp apiError
	if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}
	err = fmt.Errorf("API error (%d): %s", resp.StatusCode, msg)

	retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return nil, retry, err
}

func isConnectionError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "connection reset") || strings.Contains(s, "connection refused")
}

// Ensure interface compliance.
var _ ports.Generator = (*Client)(nil)
