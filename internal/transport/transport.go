// Package transport builds the HTTP transports used to reach upstream providers.
// Transports are shared per proxy URL so streaming requests reuse pooled
// HTTP/2 connections.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

// Settings holds connection pool, timeout and HTTP/2 settings.
type Settings struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration

	H2ReadIdleTimeout time.Duration
	H2PingTimeout     time.Duration
}

// DefaultSettings returns the settings used for provider traffic.
// ResponseHeaderTimeout is long because large prompts can take minutes
// before the first byte.
func DefaultSettings() Settings {
	return Settings{
		MaxIdleConns:          1000,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 600 * time.Second,
		DialTimeout:           30 * time.Second,
		KeepAlive:             30 * time.Second,
		H2ReadIdleTimeout:     30 * time.Second,
		H2PingTimeout:         15 * time.Second,
	}
}

func (s Settings) dialer() *net.Dialer {
	return &net.Dialer{Timeout: s.DialTimeout, KeepAlive: s.KeepAlive}
}

// Build returns a new transport. An empty proxyURL dials directly.
// Supported proxy schemes are http, https and socks5.
func (s Settings) Build(proxyURL string) (*http.Transport, error) {
	t := &http.Transport{
		MaxIdleConns:          s.MaxIdleConns,
		MaxIdleConnsPerHost:   s.MaxIdleConnsPerHost,
		IdleConnTimeout:       s.IdleConnTimeout,
		TLSHandshakeTimeout:   s.TLSHandshakeTimeout,
		ResponseHeaderTimeout: s.ResponseHeaderTimeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
		// Content-Encoding is negotiated and decoded by the executor.
		DisableCompression: true,
		TLSClientConfig:    &tls.Config{MinVersion: tls.VersionTLS12},
		WriteBufferSize:    64 * 1024,
		ReadBufferSize:     64 * 1024,
		DialContext:        s.dialer().DialContext,
	}

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		switch u.Scheme {
		case "http", "https":
			t.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			var auth *proxy.Auth
			if u.User != nil {
				password, _ := u.User.Password()
				auth = &proxy.Auth{User: u.User.Username(), Password: password}
			}
			d, err := proxy.SOCKS5("tcp", u.Host, auth, s.dialer())
			if err != nil {
				return nil, fmt.Errorf("socks5 proxy: %w", err)
			}
			if cd, ok := d.(proxy.ContextDialer); ok {
				t.DialContext = cd.DialContext
			} else {
				t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return d.Dial(network, addr)
				}
			}
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
	}

	if h2, err := http2.ConfigureTransports(t); err == nil {
		h2.ReadIdleTimeout = s.H2ReadIdleTimeout
		h2.PingTimeout = s.H2PingTimeout
	}
	return t, nil
}

const (
	maxCacheSize = 100
	cacheExpiry  = 30 * time.Minute
)

type cachedTransport struct {
	transport *http.Transport
	lastUsed  time.Time
}

// Cache hands out one transport per proxy URL. Least recently used entries
// are evicted once the cache is full, and entries unused for longer than
// the expiry are dropped on the next lookup.
type Cache struct {
	settings Settings

	mu      sync.Mutex
	entries map[string]*cachedTransport
	now     func() time.Time
}

// NewCache creates a cache that builds transports from settings.
func NewCache(settings Settings) *Cache {
	return &Cache{
		settings: settings,
		entries:  make(map[string]*cachedTransport),
		now:      time.Now,
	}
}

// Get returns the transport for proxyURL, building it on first use.
func (c *Cache) Get(proxyURL string) (*http.Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.expireLocked(now)

	if cached, ok := c.entries[proxyURL]; ok {
		cached.lastUsed = now
		return cached.transport, nil
	}

	t, err := c.settings.Build(proxyURL)
	if err != nil {
		return nil, err
	}
	if len(c.entries) >= maxCacheSize {
		c.evictLocked()
	}
	c.entries[proxyURL] = &cachedTransport{transport: t, lastUsed: now}
	return t, nil
}

// Len reports the number of cached transports.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close closes idle connections on every cached transport and empties the cache.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, cached := range c.entries {
		cached.transport.CloseIdleConnections()
		delete(c.entries, key)
	}
}

func (c *Cache) expireLocked(now time.Time) {
	for key, cached := range c.entries {
		if now.Sub(cached.lastUsed) > cacheExpiry {
			cached.transport.CloseIdleConnections()
			delete(c.entries, key)
		}
	}
}

func (c *Cache) evictLocked() {
	var oldestKey string
	var oldest time.Time
	for key, cached := range c.entries {
		if oldestKey == "" || cached.lastUsed.Before(oldest) {
			oldestKey, oldest = key, cached.lastUsed
		}
	}
	if cached, ok := c.entries[oldestKey]; ok {
		cached.transport.CloseIdleConnections()
		delete(c.entries, oldestKey)
	}
}

var (
	defaultCache     *Cache
	defaultCacheOnce sync.Once
)

// Default returns the process-wide cache built from DefaultSettings.
func Default() *Cache {
	defaultCacheOnce.Do(func() {
		defaultCache = NewCache(DefaultSettings())
	})
	return defaultCache
}

// NewHTTPClient returns a client backed by the default cache. The client has
// no overall timeout: streaming responses are bounded by context and idle
// timeouts instead.
func NewHTTPClient(proxyURL string) (*http.Client, error) {
	t, err := Default().Get(proxyURL)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: t}, nil
}
