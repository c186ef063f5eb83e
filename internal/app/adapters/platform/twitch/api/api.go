package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
	"io"
	"log/slog"
	"modbot/internal/app/adapters/metrics"
	"modbot/internal/app/infrastructure/config"
	"modbot/internal/app/infrastructure/storage"
	"modbot/internal/app/ports"
	"modbot/pkg/logger"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Twitch is a Helix API client. Every request goes through a rate limiter, a
// circuit breaker and a retrying transport, in that order.
type Twitch struct {
	log      logger.Logger
	baseURL  string
	clientID string
	token    string
	userID   string
	pageSize int

	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[int]
	ids     *storage.Cache[string]
}

type Option func(t *Twitch)

// WithTransport sets the base transport, e.g. one dialing through a proxy.
func WithTransport(rt http.RoundTripper) Option {
	return func(t *Twitch) {
		rc, ok := t.client.Transport.(*retryablehttp.RoundTripper)
		if !ok {
			return
		}
		rc.Client.HTTPClient.Transport = rt
	}
}

// WithIDCache sets the login to user id cache. Without it every lookup hits
// the API.
func WithIDCache(ids *storage.Cache[string]) Option {
	return func(t *Twitch) {
		t.ids = ids
	}
}

func NewTwitch(log logger.Logger, cfg *config.Config, opts ...Option) *Twitch {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.RetryMax = cfg.Helix.RetryMax
	rc.RetryWaitMin = cfg.Helix.RetryWaitMin
	rc.RetryWaitMax = cfg.Helix.RetryWaitMax
	rc.Backoff = backoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = logger.Leveled{Inner: log}

	perMinute := cfg.Helix.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 600
	}

	t := &Twitch{
		log:      log,
		baseURL:  cfg.Helix.BaseURL,
		clientID: cfg.App.ClientID,
		token:    cfg.App.OAuth,
		userID:   cfg.App.UserID,
		pageSize: cfg.Velocity.PageSize,
		client:   rc.StandardClient(),
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), max(1, perMinute/10)),
	}
	if t.baseURL == "" {
		t.baseURL = config.DefaultHelixURL
	}
	if t.pageSize <= 0 || t.pageSize > 100 {
		t.pageSize = 100
	}

	failures := cfg.Helix.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	t.breaker = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "helix",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.Helix.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrBadRequest) ||
				errors.Is(err, ErrUnauthorized) ||
				errors.Is(err, ports.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.HelixBreakerState.Set(float64(to))
			log.Warn("Helix circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	for _, opt := range opts {
		opt(t)
	}
	return t
}

type twitchRequest struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     any
}

// doTwitchRequest sends one Helix request and decodes a 2xx body into target.
// Retries for 429 and 5xx happen in the transport; what reaches here is the
// final answer.
func (t *Twitch) doTwitchRequest(ctx context.Context, reqData twitchRequest, target any) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := t.breaker.Execute(func() (int, error) {
		return t.send(ctx, reqData, target)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("helix %s: %w", reqData.Endpoint, err)
	}
	return err
}

func (t *Twitch) send(ctx context.Context, reqData twitchRequest, target any) (int, error) {
	u := t.baseURL + "/" + reqData.Endpoint
	if len(reqData.Query) > 0 {
		u += "?" + reqData.Query.Encode()
	}

	var body io.Reader
	if reqData.Body != nil {
		raw, err := json.Marshal(reqData.Body)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}

	t.log.Trace("Preparing Twitch request", slog.String("method", reqData.Method), slog.String("url", u))

	req, err := http.NewRequestWithContext(ctx, reqData.Method, u, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Client-Id", t.clientID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		metrics.HelixRequests.WithLabelValues(reqData.Endpoint, "error").Inc()
		return 0, fmt.Errorf("helix %s: %w", reqData.Endpoint, err)
	}
	defer resp.Body.Close()

	metrics.HelixRequests.WithLabelValues(reqData.Endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read helix %s response: %w", reqData.Endpoint, err)
	}
	t.log.Trace("Response received", slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if target == nil || len(raw) == 0 {
			return resp.StatusCode, nil
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return resp.StatusCode, fmt.Errorf("decode helix %s response: %w", reqData.Endpoint, err)
		}
		return resp.StatusCode, nil
	}

	apiErr := &TwitchAPIError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, apiErr); err != nil {
		apiErr.Message = string(raw)
	}
	apiErr.Status = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		apiErr.sentinel = ErrBadRequest
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		apiErr.sentinel = ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		apiErr.sentinel = ports.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr.sentinel = ErrRateLimited
	}

	t.log.Debug("Twitch API returned an error", slog.Int("status", resp.StatusCode), slog.String("endpoint", reqData.Endpoint), slog.String("message", apiErr.Message))
	return resp.StatusCode, apiErr
}

// backoff waits until Ratelimit-Reset on 429 and otherwise falls back to
// exponential backoff.
func backoff(minWait, maxWait time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if wait := calcWaitDuration(resp.Header.Get("Ratelimit-Reset")); wait > 0 {
			return min(wait, maxWait)
		}
	}
	return retryablehttp.DefaultBackoff(minWait, maxWait, attemptNum, resp)
}

func calcWaitDuration(resetHeader string) time.Duration {
	if resetHeader == "" {
		return 0
	}

	ts, err := strconv.ParseInt(resetHeader, 10, 64)
	if err != nil {
		return 0
	}

	resetTime := time.Unix(ts, 0)
	now := time.Now()

	if resetTime.Before(now) {
		return 0
	}
	return resetTime.Sub(now)
}
