// Package diagclient talks to a daemon's diagnostics server.
//
// Requests go through resty on top of a retrying transport and a circuit
// breaker, so a CLI polling a restarting daemon backs off instead of
// spinning. Bodies are decoded with sonic.
package diagclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/GriffinCanCode/horizon/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/horizon/internal/infrastructure/server"
)

// ErrUnhealthy is returned by Health when the event loop is not running.
var ErrUnhealthy = errors.New("event loop not running")

// Client is a diagnostics API client. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *resty.Client
	breaker *resilience.Breaker
	dialer  *websocket.Dialer
}

type options struct {
	timeout  time.Duration
	retries  int
	minWait  time.Duration
	maxWait  time.Duration
	breaker  resilience.Settings
	dialWait time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetries sets how often a failed request is retried and the backoff
// bounds between attempts.
func WithRetries(n int, minWait, maxWait time.Duration) Option {
	return func(o *options) {
		o.retries = n
		o.minWait = minWait
		o.maxWait = maxWait
	}
}

// WithBreaker replaces the circuit breaker settings.
func WithBreaker(s resilience.Settings) Option {
	return func(o *options) { o.breaker = s }
}

// New creates a client for the server at baseURL, e.g.
// "http://127.0.0.1:8090".
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("diagnostics url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("diagnostics url %q: scheme must be http or https", baseURL)
	}

	o := options{
		timeout:  5 * time.Second,
		retries:  2,
		minWait:  100 * time.Millisecond,
		maxWait:  time.Second,
		dialWait: 5 * time.Second,
		breaker: resilience.Settings{
			Cooldown: 5 * time.Second,
			Trip:     func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 3 },
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = o.retries
	retry.RetryWaitMin = o.minWait
	retry.RetryWaitMax = o.maxWait
	retry.Logger = nil
	retry.CheckRetry = checkRetry

	rc := resty.NewWithClient(retry.StandardClient()).
		SetBaseURL(base.String()).
		SetTimeout(o.timeout).
		SetHeader("User-Agent", "horizonctl/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	return &Client{
		base:    base,
		http:    rc,
		breaker: resilience.New("diagnostics", o.breaker),
		dialer:  &websocket.Dialer{HandshakeTimeout: o.dialWait},
	}, nil
}

// checkRetry retries like retryablehttp does, except that 503 is an answer:
// the server is up and reporting a stopped event loop.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.StatusCode == http.StatusServiceUnavailable {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Health returns nil while the event loop runs and ErrUnhealthy once it
// has stopped.
func (c *Client) Health(ctx context.Context) error {
	code, err := resilience.Do(c.breaker, func() (int, error) {
		resp, err := c.http.R().SetContext(ctx).Get("/healthz")
		if err != nil {
			return 0, fmt.Errorf("health: %w", err)
		}
		switch resp.StatusCode() {
		case http.StatusOK, http.StatusServiceUnavailable:
			return resp.StatusCode(), nil
		default:
			return 0, fmt.Errorf("health: unexpected status %s", resp.Status())
		}
	})
	if err != nil {
		return err
	}
	if code == http.StatusServiceUnavailable {
		return ErrUnhealthy
	}
	return nil
}

// Status fetches /status.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	return resilience.Do(c.breaker, func() (*server.StatusResponse, error) {
		var out server.StatusResponse
		resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/status")
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status: unexpected status %s", resp.Status())
		}
		return &out, nil
	})
}

// Metrics fetches the Prometheus exposition text.
func (c *Client) Metrics(ctx context.Context) (string, error) {
	return resilience.Do(c.breaker, func() (string, error) {
		resp, err := c.http.R().SetContext(ctx).Get("/metrics")
		if err != nil {
			return "", fmt.Errorf("metrics: %w", err)
		}
		if resp.IsError() {
			return "", fmt.Errorf("metrics: unexpected status %s", resp.Status())
		}
		return resp.String(), nil
	})
}

// Watch subscribes to /status/stream and calls fn for each frame until fn
// returns an error, limit frames have been seen (limit <= 0 means no
// limit), ctx is done or the server goes away. A server shutdown ends the
// watch without error.
func (c *Client) Watch(ctx context.Context, limit int, fn func(*server.StatusResponse) error) error {
	u := *c.base
	u.Scheme = "ws"
	if c.base.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/status/stream"

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for seen := 0; limit <= 0 || seen < limit; seen++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		var frame server.StatusResponse
		if err := sonic.Unmarshal(data, &frame); err != nil {
			return fmt.Errorf("watch: decode frame: %w", err)
		}
		if err := fn(&frame); err != nil {
			return err
		}
	}
	return nil
}
