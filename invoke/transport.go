package invoke

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const userAgent = "redcap-go/1.0"

// Response is the outcome of one completed HTTP exchange. Any status code,
// including 4xx/5xx, is a valid transport result; interpreting it belongs to
// the parser and the caller.
type Response struct {
	Status int
	Body   []byte
}

// File is a buffered file attachment for a multipart import. Buffering the
// content keeps the request repeatable across retry attempts.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Transport performs exactly one network round trip per call.
type Transport interface {
	Send(ctx context.Context, endpoint string, spec *RequestSpec, timeout time.Duration) (*Response, error)
}

// FileTransport additionally supports multipart file uploads.
type FileTransport interface {
	Transport
	SendFile(ctx context.Context, endpoint string, spec *RequestSpec, file File, timeout time.Duration) (*Response, error)
}

// HTTPTransport implements Transport over resty with a pooled HTTP transport.
type HTTPTransport struct {
	resty   *resty.Client
	limiter *rate.Limiter
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithRateLimit caps outbound requests per second with a token bucket.
// rps <= 0 leaves the transport unlimited.
func WithRateLimit(rps float64) TransportOption {
	return func(t *HTTPTransport) {
		if rps > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// WithRestyClient replaces the underlying resty client. Mainly for tests.
func WithRestyClient(rc *resty.Client) TransportOption {
	return func(t *HTTPTransport) { t.resty = rc }
}

// NewHTTPTransport creates a transport with pooled connections and keep-alive.
func NewHTTPTransport(opts ...TransportOption) *HTTPTransport {
	pooled := retryablehttp.NewClient()
	pooled.RetryMax = 0 // retries belong to the Invoker
	pooled.Logger = nil

	rc := resty.New()
	rc.SetTransport(pooled.HTTPClient.Transport).
		SetHeader("User-Agent", userAgent)

	t := &HTTPTransport{
		resty:   rc,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send performs one form-encoded POST. Completed exchanges return the status
// and raw body regardless of status code; network-level failures return a
// *TransientError. Caller-side cancellation propagates unwrapped.
func (t *HTTPTransport) Send(ctx context.Context, endpoint string, spec *RequestSpec, timeout time.Duration) (*Response, error) {
	if err := validateSend(endpoint, spec, timeout); err != nil {
		return nil, err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := t.resty.R().
		SetContext(reqCtx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(encodeForm(spec)).
		Post(endpoint)
	if err != nil {
		return nil, t.classify(ctx, err)
	}

	return &Response{Status: resp.StatusCode(), Body: resp.Body()}, nil
}

// SendFile performs one multipart POST carrying the spec fields plus one file
// part. Content type is sniffed from the buffered data when not supplied.
func (t *HTTPTransport) SendFile(ctx context.Context, endpoint string, spec *RequestSpec, file File, timeout time.Duration) (*Response, error) {
	if err := validateSend(endpoint, spec, timeout); err != nil {
		return nil, err
	}
	if file.Field == "" || file.Name == "" {
		return nil, fmt.Errorf("file field and name required")
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(file.Data).String()
	}

	fields := make([]*resty.MultipartField, 0, spec.Len()+1)
	for _, f := range spec.Fields() {
		fields = append(fields, &resty.MultipartField{
			Param:  f.Key,
			Reader: strings.NewReader(f.Value),
		})
	}
	fields = append(fields, &resty.MultipartField{
		Param:       file.Field,
		FileName:    file.Name,
		ContentType: contentType,
		Reader:      bytes.NewReader(file.Data),
	})

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := t.resty.R().
		SetContext(reqCtx).
		SetMultipartFields(fields...).
		Post(endpoint)
	if err != nil {
		return nil, t.classify(ctx, err)
	}

	return &Response{Status: resp.StatusCode(), Body: resp.Body()}, nil
}

// classify separates caller-side cancellation from transient network failure.
// The per-attempt timeout lives in a child context, so its expiry is reported
// as transient while the caller's own cancellation propagates unwrapped.
func (t *HTTPTransport) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &TransientError{Cause: err}
}

func validateSend(endpoint string, spec *RequestSpec, timeout time.Duration) error {
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("endpoint must be an absolute URL: %q", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https scheme: %q", endpoint)
	}
	if spec == nil || spec.Len() == 0 {
		return fmt.Errorf("request spec is empty")
	}
	if _, ok := spec.Get("token"); !ok {
		return fmt.Errorf("request spec missing token field")
	}
	if _, ok := spec.Get("content"); !ok {
		return fmt.Errorf("request spec missing content field")
	}
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// encodeForm writes the spec as application/x-www-form-urlencoded, preserving
// field order. Empty values are encoded, never dropped.
func encodeForm(spec *RequestSpec) string {
	var b strings.Builder
	for i, f := range spec.Fields() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
	}
	return b.String()
}
