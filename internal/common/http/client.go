// Package http builds the outbound HTTP client used for page fetches.
package http

import (
	"fmt"
	"net/http"
	"time"
)

// Options tune the client built by NewClient
type Options struct {
	MaxRedirects        int
	MaxIdleConnsPerHost int
	Transport           http.RoundTripper
}

type Option func(*Options)

// WithMaxRedirects caps how many redirects a request follows
func WithMaxRedirects(n int) Option {
	return func(o *Options) { o.MaxRedirects = n }
}

func WithMaxIdleConnsPerHost(n int) Option {
	return func(o *Options) { o.MaxIdleConnsPerHost = n }
}

// WithTransport replaces the pooled transport, mostly for tests
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Options) { o.Transport = rt }
}

// NewClient returns a client with an overall request timeout, proxy support
// from the environment and a redirect cap of five unless overridden.
func NewClient(timeout time.Duration, opts ...Option) *http.Client {
	o := Options{MaxRedirects: 5, MaxIdleConnsPerHost: 10}
	for _, opt := range opts {
		opt(&o)
	}

	rt := o.Transport
	if rt == nil {
		rt = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: o.MaxIdleConnsPerHost,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	limit := o.MaxRedirects
	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		},
	}
}
