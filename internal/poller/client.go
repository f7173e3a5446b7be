package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// DefaultTimeout bounds a single heartbeat fetch.
const DefaultTimeout = 20 * time.Second

// connection pooling limits to prevent resource exhaustion when polling many endpoints
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// ErrorKind classifies a [TransportError].
type ErrorKind int

const (
	// KindHTTPStatus is a response with a non-2xx status code.
	KindHTTPStatus ErrorKind = iota + 1

	// KindConnection is a failure to reach the endpoint (DNS, refused
	// connection, malformed URL).
	KindConnection

	// KindRetrieval is a timeout or an interrupted read of the response.
	KindRetrieval
)

func (k ErrorKind) String() string {
	switch k {
	case KindHTTPStatus:
		return "http_status"
	case KindConnection:
		return "connection"
	case KindRetrieval:
		return "retrieval"
	default:
		return "unknown"
	}
}

// TransportError reports a heartbeat that could not be fetched. It never
// reaches payload parsing.
type TransportError struct {
	Kind   ErrorKind
	URL    string
	Code   int
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("%s: http status %d %s", e.URL, e.Code, e.Reason)
	default:
		return fmt.Sprintf("%s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message is the alert text sent for this failure.
func (e *TransportError) Message() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("Warn: HTTP Error: %s - Code %d - %s", e.URL, e.Code, e.Reason)
	case KindConnection:
		return fmt.Sprintf("Warn: URLError: %s - %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("Warn: Problem retrieving %s. Will try again in a few minutes.", e.URL)
	}
}

// Response holds the result of one fetch made by [Client].
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error is a [*TransportError], or the context error when the caller's
	// context was cancelled.
	Error error
}

// Client is an HTTP client wrapper for fetching heartbeats.
//
// Timeouts are applied per request via context rather than globally.
// Response bodies are limited to 1MB.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new polling [Client] with pooled connections.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// Fetch GETs url with the given headers and timeout.
//
// Fetch always returns a Response; failures are captured in the Error field
// rather than returned separately. A zero timeout uses [DefaultTimeout].
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) Response {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   &TransportError{Kind: KindConnection, URL: url, Err: err},
		}
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   classify(ctx, url, err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error: &TransportError{
				Kind:   KindHTTPStatus,
				URL:    url,
				Code:   resp.StatusCode,
				Reason: http.StatusText(resp.StatusCode),
			},
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return Response{StatusCode: resp.StatusCode, Latency: time.Since(start), Error: ctx.Err()}
		}
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      &TransportError{Kind: KindRetrieval, URL: url, Err: err},
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// classify maps a failed round trip to a TransportError. Cancellation of
// the caller's context is returned as is.
func classify(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TransportError{Kind: KindRetrieval, URL: url, Err: err}
	}
	return &TransportError{Kind: KindConnection, URL: url, Err: err}
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times; the client remains usable.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
