// Package transport owns the network plumbing for probes: address-family
// pinned dialing, redirect policy, per-host rate limiting, and response body
// capping.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UserAgent identifies the monitor on every request.
const UserAgent = "xylositemonitor"

// MaxRedirectHops bounds transparent redirect following. Exceeding it is a
// network error, not a test failure.
const MaxRedirectHops = 5

// Family selects which address family name resolution and dialing are
// constrained to.
type Family string

const (
	FamilyIPv4 Family = "ip4"
	FamilyIPv6 Family = "ip6"
)

func (f Family) dialNetwork() string {
	if f == FamilyIPv6 {
		return "tcp6"
	}
	return "tcp4"
}

// Client issues probe requests. It keeps one http.Client per address family
// and redirect policy, so individual calls stay free of shared mutable state.
type Client struct {
	clients      map[clientKey]*http.Client
	limiters     map[string]*rate.Limiter
	limitersMu   sync.RWMutex
	rateLimit    int
	maxBodyBytes int64
}

type clientKey struct {
	family Family
	follow bool
}

// NewClient builds a Client. rateLimit is max requests per second per host,
// zero for unlimited. maxBodyMB caps how much of a response body is read.
func NewClient(timeout time.Duration, rateLimit int, maxBodyMB int) *Client {
	c := &Client{
		clients:      make(map[clientKey]*http.Client),
		limiters:     make(map[string]*rate.Limiter),
		rateLimit:    rateLimit,
		maxBodyBytes: int64(maxBodyMB) * 1024 * 1024,
	}

	for _, family := range []Family{FamilyIPv4, FamilyIPv6} {
		for _, follow := range []bool{true, false} {
			c.clients[clientKey{family, follow}] = newHTTPClient(timeout, family, follow)
		}
	}
	return c
}

func newHTTPClient(timeout time.Duration, family Family, follow bool) *http.Client {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          20,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   timeout,
			ExpectContinueTimeout: 1 * time.Second,
			DialContext:           familyDialContext(family, timeout),
			ForceAttemptHTTP2:     false,
		},
	}

	if follow {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirectHops {
				return fmt.Errorf("stopped after %d redirects", MaxRedirectHops)
			}
			return nil
		}
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// familyDialContext resolves the host constrained to one address family and
// dials the first returned address. TLS verification still happens against
// the hostname; only the connection is pinned.
func familyDialContext(family Family, timeout time.Duration) func(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	return func(ctx context.Context, _, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := net.DefaultResolver.LookupIP(ctx, string(family), host)
		if err != nil {
			return nil, fmt.Errorf("no %s address for %q: %w", familyName(family), host, err)
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("no %s address for %q", familyName(family), host)
		}

		return dialer.DialContext(ctx, family.dialNetwork(), net.JoinHostPort(ips[0].String(), port))
	}
}

func familyName(f Family) string {
	if f == FamilyIPv6 {
		return "IPv6"
	}
	return "IPv4"
}

// Fetch issues one GET and returns the response with its (capped) body
// already read and closed. When followRedirects is false the first response
// is returned as-is, redirect or not.
func (c *Client) Fetch(ctx context.Context, url string, family Family, followRedirects bool) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", UserAgent)

	if limiter := c.getRateLimiter(req.URL.Host); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("rate limiter cancelled: %w", err)
		}
	}

	resp, err := c.clients[clientKey{family, followRedirects}].Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

func (c *Client) getRateLimiter(host string) *rate.Limiter {
	if c.rateLimit <= 0 {
		return nil
	}

	c.limitersMu.RLock()
	limiter, exists := c.limiters[host]
	c.limitersMu.RUnlock()

	if exists {
		return limiter
	}

	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()

	if limiter, exists := c.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(c.rateLimit), 1)
	c.limiters[host] = limiter
	return limiter
}
