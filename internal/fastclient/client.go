package fastclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ErrTransport marks failures where no HTTP response was received.
var ErrTransport = errors.New("http transport failure")

// HeaderProvider supplies extra headers for every request; blank keys or values are skipped.
type HeaderProvider func() map[string]string

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status=%d body=%s", e.Status, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool { return shouldRetryStatus(e.Status) }

// IsUnavailable is true for transport failures and temporary upstream statuses.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransport) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Temporary()
}

type Client struct {
	baseURL   string
	http      *fasthttp.Client
	headers   HeaderProvider
	userAgent string
	logger    *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
			c.http.ReadTimeout = d
			c.http.WriteTimeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.http.MaxConnsPerHost = n
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the total attempts for retryable requests.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = strings.TrimSpace(ua) }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDial replaces the network dialer, e.g. with an in-memory listener.
func WithDial(d fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &fasthttp.Client{
			ReadTimeout:         30 * time.Second,
			WriteTimeout:        30 * time.Second,
			MaxConnsPerHost:     16,
			MaxConnWaitTimeout:  10 * time.Second,
			MaxResponseBodySize: 256 << 20,
		},
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one call relative to the base URL.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	ContentType string
	Body        []byte
	Accept      string
	Retry       bool
}

// DoJSON encodes in as the body (when non-nil) and decodes a 2xx body into out (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, in, out any, retry bool) error {
	req := Request{Method: method, Path: path, Query: query, Accept: "application/json", Retry: retry}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.Body = payload
		req.ContentType = "application/json"
	}
	body, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Do returns a copy of the response body of a 2xx response.
func (c *Client) Do(ctx context.Context, r Request) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}
	method := r.Method
	if method == "" {
		method = fasthttp.MethodGet
	}
	req.Header.SetMethod(method)
	req.SetRequestURI(target)
	if r.ContentType != "" {
		req.Header.SetContentType(r.ContentType)
	}
	if r.Accept != "" {
		req.Header.Set("Accept", r.Accept)
	}
	if c.userAgent != "" {
		req.Header.SetUserAgent(c.userAgent)
	}
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if len(r.Body) > 0 {
		req.SetBody(r.Body)
	}

	attempts := 1
	if r.Retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("%w: %s %s: %v", ErrTransport, method, r.Path, err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			se := &StatusError{Status: status, Body: truncate(string(resp.Body()), 512)}
			if !se.Temporary() {
				return nil, se
			}
			lastErr = se
		} else {
			return append([]byte(nil), resp.Body()...), nil
		}

		if attempt == attempts {
			break
		}
		c.logger.Debug("retrying upstream request",
			zap.String("path", r.Path),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return nil, lastErr
		}
		resp.Reset()
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
