// Package client implements the people directory over its JSON:API HTTP
// interface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vrwarp/locus/internal/directory/models"
	"github.com/vrwarp/locus/pkg/platform/circuit"
	"github.com/vrwarp/locus/pkg/platform/sentinel"
)

const (
	opListPeople   = "list_people"
	opGetPerson    = "get_person"
	opCheckInCount = "check_in_count"
	opUpdateField  = "update_person_field"

	defaultMaxRetries = 3
	maxResponseBytes  = 16 << 20
)

// Client talks to the directory API. It honours HTTP 429 by waiting for
// Retry-After (or 1s, 2s, 4s) up to maxRetries times and performs no other
// retry.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	appID      string
	secret     string
	limiter    *rate.Limiter
	breaker    *circuit.Breaker
	metrics    *Metrics
	logger     *slog.Logger
	maxRetries int
	backoff    func(attempt int) time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCredentials enables HTTP basic auth with an application id and secret.
func WithCredentials(appID, secret string) Option {
	return func(c *Client) {
		c.appID = appID
		c.secret = secret
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff overrides the wait used when a 429 carries no Retry-After.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(c *Client) { c.backoff = fn }
}

func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid directory base url %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		breaker:    circuit.New("directory"),
		logger:     slog.Default(),
		maxRetries: defaultMaxRetries,
		backoff:    exponentialBackoff,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// exponentialBackoff waits 1s, 2s, 4s... for attempts 0, 1, 2...
func exponentialBackoff(attempt int) time.Duration {
	return time.Second << attempt
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ListPeople fetches one zero-based page.
func (c *Client) ListPeople(ctx context.Context, page, perPage int) (models.Page, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(page*perPage))
	q.Set("per_page", strconv.Itoa(perPage))

	var resp listResponse
	if err := c.do(ctx, opListPeople, http.MethodGet, "/people/v2/people", q, nil, &resp); err != nil {
		return models.Page{}, err
	}

	people := make([]models.Person, 0, len(resp.Data))
	for _, r := range resp.Data {
		p, err := c.toPerson(ctx, r)
		if err != nil {
			return models.Page{}, newError(CategoryBadData, opListPeople, "malformed person record", 0, err)
		}
		people = append(people, p)
	}
	return models.Page{People: people, HasMore: resp.Links.Next != ""}, nil
}

func (c *Client) GetPerson(ctx context.Context, personID string) (models.Person, error) {
	var resp personResponse
	if err := c.do(ctx, opGetPerson, http.MethodGet, "/people/v2/people/"+url.PathEscape(personID), nil, nil, &resp); err != nil {
		return models.Person{}, err
	}
	p, err := c.toPerson(ctx, resp.Data)
	if err != nil {
		return models.Person{}, newError(CategoryBadData, opGetPerson, "malformed person record", 0, err)
	}
	return p, nil
}

func (c *Client) CheckInCount(ctx context.Context, personID string) (int, error) {
	var resp checkInResponse
	if err := c.do(ctx, opCheckInCount, http.MethodGet, "/check-ins/v2/people/"+url.PathEscape(personID), nil, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Data.Attributes.CheckInCount == nil {
		return 0, newError(CategoryBadData, opCheckInCount, "response has no check_in_count", 0, nil)
	}
	return *resp.Data.Attributes.CheckInCount, nil
}

func (c *Client) UpdatePersonField(ctx context.Context, personID, field, value string) error {
	attr, err := wireAttribute(field)
	if err != nil {
		return newError(CategoryBadData, opUpdateField, "unsupported field", 0, err)
	}
	body := updateRequest{Data: updateResource{
		Type:       personType,
		ID:         personID,
		Attributes: map[string]string{attr: value},
	}}
	return c.do(ctx, opUpdateField, http.MethodPatch, "/people/v2/people/"+url.PathEscape(personID), nil, body, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.observe(op, outcome(err), start)
	}()

	if c.breaker != nil && !c.breaker.Allow() {
		return newError(CategoryOutage, op, "circuit open", 0, sentinel.ErrUnavailable)
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return newError(CategoryInternal, op, "encode request", 0, err)
		}
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var resp *http.Response
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return newError(CategoryTimeout, op, "rate limiter wait", 0, err)
			}
		}
		resp, err = c.send(ctx, method, u.String(), payload)
		if err != nil {
			return c.recordTransport(op, err)
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.maxRetries {
			break
		}

		wait := retryAfter(resp.Header.Get("Retry-After"), c.backoff(attempt))
		drain(resp)
		c.metrics.incRetry()
		c.logger.WarnContext(ctx, "directory rate limited, retrying",
			"operation", op,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"wait_ms", wait.Milliseconds(),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return newError(CategoryTimeout, op, "cancelled during rate-limit wait", 0, err)
		}
	}
	defer drain(resp)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.recordSuccess()
		if out == nil {
			return nil
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return newError(CategoryOutage, op, "read response", resp.StatusCode, err)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return newError(CategoryBadData, op, "decode response", resp.StatusCode, err)
		}
		return nil
	}
	return c.statusError(op, resp)
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", contentTypeJSONAPI)
	}
	if c.appID != "" {
		req.SetBasicAuth(c.appID, c.secret)
	}
	return c.httpClient.Do(req)
}

func (c *Client) statusError(op string, resp *http.Response) error {
	var apiErr errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := http.StatusText(resp.StatusCode)
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.message() != "" {
		msg = apiErr.message()
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.recordSuccess()
		return newError(CategoryAuthentication, op, msg, status, nil)
	case status == http.StatusNotFound:
		c.recordSuccess()
		return newError(CategoryNotFound, op, msg, status, sentinel.ErrNotFound)
	case status == http.StatusTooManyRequests:
		c.recordSuccess()
		return newError(CategoryRateLimited, op, msg, status, nil)
	case status >= 500:
		c.recordFailure(op)
		return newError(CategoryOutage, op, msg, status, sentinel.ErrUnavailable)
	default:
		c.recordSuccess()
		return newError(CategoryBadData, op, msg, status, nil)
	}
}

func (c *Client) recordTransport(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return newError(CategoryTimeout, op, "request cancelled", 0, err)
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		c.recordFailure(op)
		return newError(CategoryTimeout, op, "request timed out", 0, err)
	default:
		c.recordFailure(op)
		return newError(CategoryOutage, op, "request failed", 0, errors.Join(sentinel.ErrUnavailable, err))
	}
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
}

func (c *Client) recordFailure(op string) {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Error("directory circuit opened", "operation", op, "breaker", c.breaker.Name())
	}
}

// retryAfter parses a Retry-After value in seconds, falling back when absent
// or malformed.
func retryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(GetCategory(err))
}
