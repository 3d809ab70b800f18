// Package gw2 implements the ObjectiveClient port against the Guild Wars 2
// Wizard's Vault API.
package gw2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ObjectiveClient = (*Client)(nil)

const (
	// DefaultBaseURL is the public Guild Wars 2 API host.
	DefaultBaseURL = "https://api.guildwars2.com/"

	resourcePath  = "v2/account/wizardsvault/"
	schemaVersion = "latest"
	maxRetries    = 3
	maxBodyBytes  = 1 << 20
)

// Options tunes a Client. Zero values fall back to production defaults.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// RetryInterval is the wait before the first retry; each further retry doubles it.
	RetryInterval time.Duration

	// RequestsPerSecond and Burst bound the aggregate outbound request rate.
	RequestsPerSecond float64
	Burst             int
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RetryInterval == 0 {
		o.RetryInterval = 2 * time.Second
	}
	if o.RequestsPerSecond == 0 {
		o.RequestsPerSecond = 5
	}
	if o.Burst == 0 {
		o.Burst = 10
	}
	return o
}

// Client fetches Wizard's Vault objectives. Connection failures and 408
// responses are retried up to three times with exponential backoff.
type Client struct {
	http          *http.Client
	baseURL       *url.URL
	tokens        driven.TokenSource
	limiter       *rate.Limiter
	retryInterval time.Duration
}

// NewClient creates a Client that resolves API keys through tokens.
func NewClient(tokens driven.TokenSource, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	return NewClientWithHTTPClient(&http.Client{Timeout: opts.Timeout}, tokens, opts)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client. Tests use
// it to point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, tokens driven.TokenSource, opts Options) (*Client, error) {
	opts = opts.withDefaults()

	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	return &Client{
		http:          httpClient,
		baseURL:       u,
		tokens:        tokens,
		limiter:       rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		retryInterval: opts.RetryInterval,
	}, nil
}

// FetchObjectives returns the account's objectives for one sub-endpoint.
func (c *Client) FetchObjectives(ctx context.Context, endpoint model.Endpoint, accountName string) ([]model.Objective, error) {
	if !endpoint.Valid() {
		return nil, fmt.Errorf("fetch objectives: unknown endpoint %q", endpoint)
	}
	if strings.TrimSpace(accountName) == "" {
		return nil, fmt.Errorf("fetch %s objectives: %w: blank account name", endpoint, driven.ErrInvalidAccount)
	}

	objectives, err := c.fetch(ctx, endpoint, accountName)
	requestsTotal.WithLabelValues(string(endpoint), outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("fetch %s objectives for account %s: %w", endpoint, accountName, err)
	}
	return objectives, nil
}

func (c *Client) fetch(ctx context.Context, endpoint model.Endpoint, accountName string) ([]model.Objective, error) {
	token, err := c.tokens.Token(ctx, accountName)
	if errors.Is(err, driven.ErrAccountNotFound) || (err == nil && token == "") {
		return nil, driven.ErrNoToken
	}
	if err != nil {
		return nil, err
	}

	status, body, err := c.getWithRetry(ctx, endpoint, accountName, token)
	if err != nil {
		return nil, err
	}

	if err := statusError(status); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, driven.ErrUnexpectedStatus) {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "gw2 request rejected", "account", accountName, "endpoint", endpoint, "status", status)
		return nil, err
	}

	resp, err := DecodeResponse(body)
	if err != nil {
		slog.Error("gw2 response invalid", "account", accountName, "endpoint", endpoint, "error", err)
		return nil, err
	}

	objectives := make([]model.Objective, 0, len(resp.Objectives))
	for _, o := range resp.Objectives {
		objectives = append(objectives, model.Objective{
			ID:               o.ID,
			Title:            o.Title,
			Track:            model.Track(o.Track),
			Acclaim:          o.Acclaim,
			ProgressCurrent:  o.ProgressCurrent,
			ProgressComplete: o.ProgressComplete,
			Claimed:          o.Claimed,
			Endpoint:         endpoint,
			AccountName:      accountName,
		})
	}
	return objectives, nil
}

// errRetryableStatus marks a 408 response for the backoff loop.
var errRetryableStatus = errors.New("request timeout status")

// getWithRetry performs the GET and returns the final status and body. A 408
// that survives every retry is returned as a plain status for mapping.
func (c *Client) getWithRetry(ctx context.Context, endpoint model.Endpoint, accountName, token string) (int, []byte, error) {
	target := c.baseURL.JoinPath(resourcePath, string(endpoint)).String()

	var status int
	var body []byte

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Schema-Version", schemaVersion)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return classifyTransportError(ctx, err)
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		if status == http.StatusRequestTimeout {
			_, _ = io.Copy(io.Discard, resp.Body)
			return errRetryableStatus
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return classifyTransportError(ctx, err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("gw2 request failed, retrying",
			"account", accountName,
			"endpoint", endpoint,
			"retry_in", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify)
	switch {
	case errors.Is(err, errRetryableStatus):
		return status, nil, nil
	case err != nil:
		return 0, nil, err
	}
	return status, body, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 60 * c.retryInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

// classifyTransportError maps a failed round trip. Caller cancellation and
// timeouts are permanent; other network failures are retried.
func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return backoff.Permanent(ctxErr)
	}

	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return backoff.Permanent(fmt.Errorf("%w: %w", driven.ErrTimeout, err))
	}

	return fmt.Errorf("%w: %w", driven.ErrConnection, err)
}

// statusError maps a final HTTP status to its error kind. 200 maps to nil.
func statusError(status int) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return driven.ErrUnauthorized
	case http.StatusForbidden:
		return driven.ErrForbidden
	case http.StatusNotFound:
		return driven.ErrRemoteNotFound
	case http.StatusTooManyRequests:
		return driven.ErrRateLimited
	case http.StatusServiceUnavailable:
		return driven.ErrServiceUnavailable
	default:
		return fmt.Errorf("%w: status %d", driven.ErrUnexpectedStatus, status)
	}
}
