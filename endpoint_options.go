package pinger

import (
	"errors"
	"net/http"
	"time"
)

// endpointConfig holds mutable state during endpoint construction.
type endpointConfig struct {
	headers map[string]string
	timeout time.Duration
}

// EndpointOption is a function that configures an [Endpoint] during construction.
//
// Options return an error if validation fails.
type EndpointOption func(*endpointConfig) error

// WithHeaders adds custom HTTP headers to poll requests for this endpoint.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
// Keys are canonicalized, so "x-env" and "X-Env" name the same header.
//
// Example:
//
//	ep, err := pinger.NewEndpoint(url,
//	    pinger.WithHeaders("X-Env", "prod"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) EndpointOption {
	return func(cfg *endpointConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			if keyValues[i] == "" {
				return errors.New("header name cannot be empty")
			}
			cfg.headers[http.CanonicalHeaderKey(keyValues[i])] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the HTTP request timeout for this endpoint.
//
// A fetch that does not complete in time is a retrieval error and moves the
// endpoint to [StatusError].
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) EndpointOption {
	return func(cfg *endpointConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}
