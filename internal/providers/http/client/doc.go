// Package client is the HTTP client shared by outbound API integrations.
//
// Built on go-resty/resty over a hashicorp/go-retryablehttp transport:
//   - 5xx, 429 and connection errors retried with exponential backoff
//   - per-client rate limiting (golang.org/x/time/rate)
//   - circuit breaker that ignores the caller's own 4xx mistakes
//   - trace headers and upstream metrics on every request
//
// Example Usage:
//
//	c := client.NewClient(client.DefaultConfig("weather"), logger).
//		WithTracer(tracer).
//		WithMetrics(metrics)
//	resp, err := c.Get(ctx, "current", url, map[string]string{"q": "London"})
package client
