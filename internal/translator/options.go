package translator

import (
	"net/http"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

type options struct {
	httpClient *http.Client
}

// Option customizes a backend client.
type Option func(*options)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func buildOptions(timeout time.Duration, opts []Option) options {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	o := options{httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
