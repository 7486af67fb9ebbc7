// Package redcap is a client for the REDCap clinical data capture HTTP API.
//
// Endpoint methods assemble a form-encoded request and hand it to the
// resilient invoker in package invoke, which owns retries for transient
// network failure. Application-level rejections come back in the parsed
// payload for the caller to interpret.
package redcap

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/clindata/redcap/internal/config"
	"github.com/clindata/redcap/internal/logging"
	"github.com/clindata/redcap/internal/metrics"
	"github.com/clindata/redcap/internal/resilience"
	"github.com/clindata/redcap/invoke"
)

// DefaultRetryPolicy is applied when neither the client nor the call
// overrides it.
var DefaultRetryPolicy = invoke.RetryPolicy{MaxAttempts: 3, Wait: 5 * time.Second}

// Client issues REDCap API calls against a single project URL and token.
// It is safe for concurrent use; every call owns its own request state.
type Client struct {
	url     string
	token   string
	invoker *invoke.Invoker
	policy  invoke.RetryPolicy
	log     *logging.Logger
}

type clientOptions struct {
	timeout   time.Duration
	policy    invoke.RetryPolicy
	logger    *zap.Logger
	rps       float64
	breaker   *resilience.Settings
	observer  invoke.Observer
	transport invoke.Transport
}

// Option configures a Client.
type Option func(*clientOptions)

// WithTimeout sets the per-attempt transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithRetryPolicy sets the client-wide default retry policy. Individual calls
// may still override it.
func WithRetryPolicy(p invoke.RetryPolicy) Option {
	return func(o *clientOptions) { o.policy = p }
}

// WithLogger attaches a structured logger. The token never appears in log
// output; use MaskToken for any display purpose.
func WithLogger(log *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = log }
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64) Option {
	return func(o *clientOptions) { o.rps = rps }
}

// WithBreaker shields the transport with a circuit breaker that opens after
// threshold consecutive transient failures and probes again after cooldown.
func WithBreaker(threshold uint32, cooldown time.Duration) Option {
	return func(o *clientOptions) {
		o.breaker = &resilience.Settings{FailureThreshold: threshold, Cooldown: cooldown}
	}
}

// WithMetrics registers Prometheus instrumentation for request execution
// against reg. Passing nil uses the default registry.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *clientOptions) { o.observer = metrics.NewRecorder(reg) }
}

// WithObserver attaches a custom per-attempt observer.
func WithObserver(obs invoke.Observer) Option {
	return func(o *clientOptions) { o.observer = obs }
}

// WithTransport replaces the transport. Mainly for tests.
func WithTransport(t invoke.Transport) Option {
	return func(o *clientOptions) { o.transport = t }
}

// New creates a client for the project reachable at apiURL with the given
// API token.
func New(apiURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(apiURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("redcap: api url must be absolute: %q", apiURL)
	}
	if token == "" {
		return nil, fmt.Errorf("redcap: api token required")
	}

	o := clientOptions{
		timeout: invoke.DefaultTimeout,
		policy:  DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(&o)
	}

	log := logging.NewDefault()
	if o.logger != nil {
		log = &logging.Logger{Logger: o.logger}
	}

	transport := o.transport
	if transport == nil {
		var topts []invoke.TransportOption
		if o.rps > 0 {
			topts = append(topts, invoke.WithRateLimit(o.rps))
		}
		transport = invoke.NewHTTPTransport(topts...)
	}
	if o.breaker != nil {
		transport = newBreakerTransport(transport, *o.breaker, log)
	}

	ivOpts := []invoke.Option{
		invoke.WithTimeout(o.timeout),
		invoke.WithLogger(log.Logger),
	}
	if o.observer != nil {
		ivOpts = append(ivOpts, invoke.WithObserver(o.observer))
	}

	return &Client{
		url:     apiURL,
		token:   token,
		invoker: invoke.New(transport, ivOpts...),
		policy:  o.policy,
		log:     log,
	}, nil
}

// FromEnv creates a client from REDCAP_* environment variables.
func FromEnv(opts ...Option) (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithTimeout(cfg.API.Timeout),
		WithRetryPolicy(invoke.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Wait:        cfg.Retry.Wait,
		}),
		WithLogger(log.Logger),
	}
	return New(cfg.API.URL, cfg.API.Token, append(base, opts...)...)
}

// String identifies the client without exposing the token.
func (c *Client) String() string {
	return fmt.Sprintf("redcap.Client(url=%s, token=%s)", c.url, MaskToken(c.token))
}

// newSpec starts a RequestSpec with the token and content selector, the two
// fields every call carries.
func (c *Client) newSpec(content string) *invoke.RequestSpec {
	return invoke.NewRequestSpec().
		Set("token", c.token).
		Set("content", content)
}

// call runs one invocation, preferring the per-call policy override.
func (c *Client) call(ctx context.Context, spec *invoke.RequestSpec, override *invoke.RetryPolicy, parse invoke.Parser) (interface{}, error) {
	policy := c.policy
	if override != nil {
		policy = *override
	}
	return c.invoker.Invoke(ctx, c.url, spec, policy, parse)
}

// callFile is call for multipart file imports.
func (c *Client) callFile(ctx context.Context, spec *invoke.RequestSpec, file invoke.File, override *invoke.RetryPolicy, parse invoke.Parser) (interface{}, error) {
	policy := c.policy
	if override != nil {
		policy = *override
	}
	return c.invoker.InvokeFile(ctx, c.url, spec, file, policy, parse)
}

// breakerTransport runs sends through a circuit breaker. An open circuit
// surfaces as a non-transient error, so the invoker stops instead of burning
// attempts against a server already known to be unreachable.
type breakerTransport struct {
	next    invoke.Transport
	breaker *resilience.Breaker
}

func newBreakerTransport(next invoke.Transport, settings resilience.Settings, log *logging.Logger) *breakerTransport {
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(from, to resilience.State) {
			log.Warn("circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return &breakerTransport{next: next, breaker: resilience.New(settings)}
}

func (b *breakerTransport) Send(ctx context.Context, endpoint string, spec *invoke.RequestSpec, timeout time.Duration) (*invoke.Response, error) {
	return b.breaker.Do(func() (*invoke.Response, error) {
		return b.next.Send(ctx, endpoint, spec, timeout)
	})
}

func (b *breakerTransport) SendFile(ctx context.Context, endpoint string, spec *invoke.RequestSpec, file invoke.File, timeout time.Duration) (*invoke.Response, error) {
	ft, ok := b.next.(invoke.FileTransport)
	if !ok {
		return nil, fmt.Errorf("transport does not support file uploads")
	}
	return b.breaker.Do(func() (*invoke.Response, error) {
		return ft.SendFile(ctx, endpoint, spec, file, timeout)
	})
}
