package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/drivemanager/drivectl/internal/config"
	"github.com/drivemanager/drivectl/internal/http"
	"github.com/drivemanager/drivectl/internal/ratelimit"
	"github.com/drivemanager/drivectl/internal/session"
	"github.com/drivemanager/drivectl/internal/version"
)

// retryLogger implements the retryablehttp.LeveledLogger interface on top of zerolog.
type retryLogger struct {
	logger zerolog.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not every request
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// neverRetry stops retryablehttp after the first attempt. The backend's
// mutations are not idempotent, so a failed call is surfaced to the user instead.
func neverRetry(ctx context.Context, _ *nethttp.Response, _ error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

// Option configures a Client.
type Option func(*Client)

// WithAuthRejectedHook registers fn to run after a 401 has cleared the session.
// The CLI uses it to print the login hint, the navigator to redirect.
func WithAuthRejectedHook(fn func()) Option {
	return func(c *Client) {
		c.onAuthRejected = fn
	}
}

// WithHTTPClient replaces the proxy-aware client built from the config.
func WithHTTPClient(hc *nethttp.Client) Option {
	return func(c *Client) {
		c.baseHTTPClient = hc
	}
}

// Client talks to the drive backend on behalf of the session in Store.
// Safe for concurrent use.
type Client struct {
	httpClient     *nethttp.Client
	baseHTTPClient *nethttp.Client
	baseURL        string
	session        *session.Store
	limiter        *ratelimit.RateLimiter
	onAuthRejected func()
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, sess *session.Store, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.APIBaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("API base URL is empty: set api_url in the config file or %s", config.EnvAPIBaseURL)
	}
	if sess == nil {
		return nil, fmt.Errorf("session store is required")
	}

	c := &Client{
		baseURL: baseURL,
		session: sess,
		limiter: ratelimit.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseHTTPClient == nil {
		// Configure HTTP client with proxy support
		httpClient, err := http.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
		}
		c.baseHTTPClient = httpClient
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = c.baseHTTPClient
	retryClient.RetryMax = 0
	retryClient.CheckRetry = neverRetry
	retryClient.Logger = &retryLogger{logger: log.With().Str("component", "http").Logger()}
	c.httpClient = retryClient.StandardClient()

	return c, nil
}

// request describes one call. Exactly one of jsonBody or body may be set.
type request struct {
	method      string
	path        string
	jsonBody    interface{}
	body        io.Reader
	contentType string
	// anonymous calls (login, register) send no token and never tear the session down
	anonymous bool
}

// do performs the request and decodes a 2xx JSON body into out (if non-nil).
// Every return is one of: nil, ErrAuthenticationRejected, *ApplicationError, *TransportError
// or a context error.
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter cancelled: %w", err)
	}

	body := r.body
	contentType := r.contentType
	if r.jsonBody != nil {
		jsonData, err := json.Marshal(r.jsonBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(jsonData)
		contentType = "application/json"
	}

	req, err := nethttp.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	sentToken := false
	if !r.anonymous {
		if token, ok := c.session.CurrentToken(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
			sentToken = true
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Error().Err(err).Str("method", r.method).Str("path", r.path).Str("request_id", requestID).
			Msg("API call failed")
		return &TransportError{Message: msgConnectFailed, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().Str("method", r.method).Str("path", r.path).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Str("request_id", requestID).Msg("API call")

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Message: msgConnectFailed, Err: err}
	}

	if resp.StatusCode == nethttp.StatusUnauthorized && !r.anonymous {
		// Without a credential there is no session to tear down
		if sentToken {
			c.rejectSession(r)
		}
		return ErrAuthenticationRejected
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// An error body the server could not phrase as JSON (proxy pages, truncated
		// payloads) means no usable answer came back.
		if len(bytes.TrimSpace(respBody)) > 0 {
			if !isJSON(resp.Header.Get("Content-Type")) {
				log.Debug().Str("path", r.path).Int("status", resp.StatusCode).Str("body", truncate(respBody, 200)).
					Msg("Non-JSON error response")
				return &TransportError{Message: msgNonJSON}
			}
			if !json.Valid(respBody) {
				return &TransportError{Message: msgInvalidJSON}
			}
		}
		return newApplicationError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		log.Debug().Str("path", r.path).Str("body", truncate(respBody, 200)).Msg("Non-JSON response")
		return &TransportError{Message: msgNonJSON}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &TransportError{Message: msgInvalidJSON, Err: err}
	}
	return nil
}

// rejectSession clears the stored credential and fires the hook.
func (c *Client) rejectSession(r request) {
	log.Warn().Str("method", r.method).Str("path", r.path).Msg("Authentication rejected, clearing session")
	if err := c.session.Logout(); err != nil {
		log.Error().Err(err).Msg("Failed to clear session after 401")
	}
	if c.onAuthRejected != nil {
		c.onAuthRejected()
	}
}

func newApplicationError(status int, body []byte) *ApplicationError {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(body, &payload) == nil {
		msg = payload.Message
		if msg == "" {
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status %d", status)
	}
	return &ApplicationError{StatusCode: status, Message: msg}
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
