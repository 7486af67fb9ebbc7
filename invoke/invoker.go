package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single transport attempt unless overridden.
const DefaultTimeout = 30 * time.Second

// RetryPolicy bounds the retry loop for one invocation. It is caller-supplied
// per call and stateless; there is no process-wide default that mutates.
type RetryPolicy struct {
	// MaxAttempts is the total number of transport calls allowed, including
	// the first. 1 means fail fast with no retry.
	MaxAttempts int
	// Wait is the pause between attempts. 0 means immediate retry.
	Wait time.Duration
}

func (p RetryPolicy) validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.Wait < 0 {
		return fmt.Errorf("retry policy: wait must be non-negative, got %s", p.Wait)
	}
	return nil
}

// Parser interprets a completed exchange for one endpoint. Returning an error
// marks the body as a contract violation; the invoker wraps it in *ParseError
// and performs no retry.
type Parser func(*Response) (interface{}, error)

// Observer receives per-attempt and exhaustion events, e.g. for Prometheus
// instrumentation. Implementations must be safe for concurrent use.
type Observer interface {
	Attempt(content string, attempt, status int, elapsed time.Duration, err error)
	Exhausted(content string, attempts int)
}

// Invoker executes RequestSpecs against a Transport, retrying transient
// network failures up to the supplied policy bound. It keeps no state across
// calls; every invocation owns its own attempt counter.
type Invoker struct {
	transport Transport
	timeout   time.Duration
	log       *zap.Logger
	observer  Observer
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithTimeout sets the per-attempt transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(iv *Invoker) { iv.timeout = d }
}

// WithLogger attaches a structured logger. Log lines never carry the token.
func WithLogger(log *zap.Logger) Option {
	return func(iv *Invoker) {
		if log != nil {
			iv.log = log
		}
	}
}

// WithObserver attaches an attempt observer.
func WithObserver(obs Observer) Option {
	return func(iv *Invoker) { iv.observer = obs }
}

// New creates an Invoker over the given transport.
func New(transport Transport, opts ...Option) *Invoker {
	iv := &Invoker{
		transport: transport,
		timeout:   DefaultTimeout,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(iv)
	}
	return iv
}

// Invoke executes spec against the transport under policy and hands any
// completed exchange to parse. Only transient network failures are retried;
// an exchange with a non-2xx status is final at this layer and reaches the
// parser, since a deterministic rejection cannot succeed on retry. Exhaustion
// yields an *ExhaustedError matching ErrExhausted.
func (iv *Invoker) Invoke(ctx context.Context, endpoint string, spec *RequestSpec, policy RetryPolicy, parse Parser) (interface{}, error) {
	return iv.run(ctx, endpoint, spec, policy, parse, func(attemptCtx context.Context) (*Response, error) {
		return iv.transport.Send(attemptCtx, endpoint, spec, iv.timeout)
	})
}

// InvokeFile is Invoke for multipart file imports. The transport must
// implement FileTransport.
func (iv *Invoker) InvokeFile(ctx context.Context, endpoint string, spec *RequestSpec, file File, policy RetryPolicy, parse Parser) (interface{}, error) {
	ft, ok := iv.transport.(FileTransport)
	if !ok {
		return nil, fmt.Errorf("transport does not support file uploads")
	}
	return iv.run(ctx, endpoint, spec, policy, parse, func(attemptCtx context.Context) (*Response, error) {
		return ft.SendFile(attemptCtx, endpoint, spec, file, iv.timeout)
	})
}

func (iv *Invoker) run(ctx context.Context, endpoint string, spec *RequestSpec, policy RetryPolicy, parse Parser, send func(context.Context) (*Response, error)) (interface{}, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, fmt.Errorf("request spec required")
	}
	if parse == nil {
		return nil, fmt.Errorf("parser required")
	}

	content, _ := spec.Get("content")
	log := iv.log.With(
		zap.String("invocation_id", uuid.NewString()),
		zap.String("endpoint", endpoint),
		zap.String("content", content),
	)

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		start := time.Now()
		resp, err := send(ctx)
		elapsed := time.Since(start)

		if err != nil {
			var te *TransientError
			if !errors.As(err, &te) {
				// Invalid input or caller-side cancellation; not retryable.
				return nil, err
			}
			lastErr = err
			iv.observeAttempt(content, attempt, 0, elapsed, err)
			log.Warn("transient failure",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", policy.MaxAttempts),
				zap.Error(err),
			)
			if attempt == policy.MaxAttempts {
				break
			}
			// The pause blocks only this invocation; no locks are held.
			if err := sleep(ctx, policy.Wait); err != nil {
				return nil, err
			}
			continue
		}

		iv.observeAttempt(content, attempt, resp.Status, elapsed, nil)
		out, perr := parse(resp)
		if perr != nil {
			return nil, &ParseError{Status: resp.Status, Cause: perr}
		}
		return out, nil
	}

	if iv.observer != nil {
		iv.observer.Exhausted(content, policy.MaxAttempts)
	}
	log.Error("attempts exhausted", zap.Int("attempts", policy.MaxAttempts), zap.Error(lastErr))
	return nil, &ExhaustedError{Attempts: policy.MaxAttempts, Cause: lastErr}
}

func (iv *Invoker) observeAttempt(content string, attempt, status int, elapsed time.Duration, err error) {
	if iv.observer != nil {
		iv.observer.Attempt(content, attempt, status, elapsed, err)
	}
}

// sleep pauses for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
