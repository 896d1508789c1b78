// SPDX-License-Identifier: MIT

// Package httpx builds the outbound HTTP clients used by downloaders.
package httpx

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultClientTimeout         = 10 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 5 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4

	// DefaultUserAgent is sent when the request does not set one.
	DefaultUserAgent = "recipefeed/1"
)

// NewClient returns a hardened HTTP client for feed and token downloads.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := min(timeout, defaultDialTimeout)
	responseHeaderTimeout := min(timeout, defaultResponseHeaderTimeout)

	return &http.Client{
		Timeout: timeout,
		Transport: &userAgent{
			agent: DefaultUserAgent,
			next: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          defaultMaxIdleConns,
				MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
				IdleConnTimeout:       defaultIdleConnTimeout,
				TLSHandshakeTimeout:   dialTimeout,
				ResponseHeaderTimeout: responseHeaderTimeout,
				ExpectContinueTimeout: defaultExpectContinueTimeout,
			},
		},
	}
}

// Transport returns the underlying *http.Transport of a client built by
// NewClient, or nil.
func Transport(c *http.Client) *http.Transport {
	switch t := c.Transport.(type) {
	case *userAgent:
		tr, _ := t.next.(*http.Transport)
		return tr
	case *http.Transport:
		return t
	}
	return nil
}

type userAgent struct {
	agent string
	next  http.RoundTripper
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", u.agent)
	return u.next.RoundTrip(r)
}
