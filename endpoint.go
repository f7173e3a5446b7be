package pinger

import (
	"errors"
	"net/url"
	"time"
)

// Endpoint is a heartbeat URL to monitor.
//
// Endpoint is immutable after creation via [NewEndpoint]. Getters return
// copies of mutable data.
type Endpoint struct {
	url     string
	headers map[string]string
	timeout time.Duration
}

// URL returns the endpoint's target URL. It is also the endpoint's key in
// the query API.
func (e Endpoint) URL() string {
	return e.url
}

// Headers returns a copy of the endpoint's custom HTTP headers.
// Returns nil if no custom headers are set.
func (e Endpoint) Headers() map[string]string {
	return copyMap(e.headers)
}

// Timeout returns the endpoint's request timeout. Zero means the monitor's
// request timeout applies (see [WithRequestTimeout]).
func (e Endpoint) Timeout() time.Duration {
	return e.timeout
}

// NewEndpoint creates an [Endpoint] for rawURL.
//
// The rawURL parameter must be an absolute http:// or https:// URL.
//
// Example:
//
//	ep, err := pinger.NewEndpoint("https://jobs.example.com/status",
//	    pinger.WithHeaders("X-Env", "prod"),
//	    pinger.WithTimeout(5 * time.Second),
//	)
func NewEndpoint(rawURL string, opts ...EndpointOption) (Endpoint, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Endpoint{}, errors.New("URL must have an http:// or https:// scheme")
	}
	if parsedURL.Host == "" {
		return Endpoint{}, errors.New("URL must have a host")
	}

	cfg := &endpointConfig{
		headers: make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Endpoint{}, err
		}
	}

	return Endpoint{
		url:     rawURL,
		headers: cfg.headers,
		timeout: cfg.timeout,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
