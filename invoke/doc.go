// Package invoke implements the resilient request execution layer for the
// REDCap API.
//
// The package is built from two pieces:
//   - Transport: performs exactly one form-encoded HTTP POST and returns the
//     numeric status and raw body for any completed exchange. Network-level
//     failures (reset, timeout, DNS) surface as *TransientError so callers can
//     decide retryability without matching error strings.
//   - Invoker: runs a Transport call under a caller-supplied RetryPolicy,
//     retrying transient failures only. A completed exchange, whatever its
//     status code, is final at this layer and is handed to the supplied Parser.
//
// Retry is reserved exclusively for transient network failure. Application
// rejections (4xx/5xx bodies) and parser failures are never retried; they reach
// the caller, who alone knows the endpoint semantics.
//
// Built on go-resty/resty with a pooled transport from go-retryablehttp.
//
// Example:
//
//	transport := invoke.NewHTTPTransport()
//	inv := invoke.New(transport)
//	spec := invoke.NewRequestSpec().
//		Set("token", token).
//		Set("content", "record").
//		Set("format", "json")
//	out, err := inv.Invoke(ctx, apiURL, spec, invoke.RetryPolicy{MaxAttempts: 3, Wait: 5 * time.Second}, invoke.JSONArray)
package invoke
