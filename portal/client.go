// Package portal is the CampusFix API client. It layers a dual-tier
// response cache, transparent backend failover, and session handling
// under a plain verb-oriented interface, so page-level consumers just
// issue requests and receive either live or cached JSON.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusfix/campusfix/cache"
)

const (
	defaultTimeout          = 15 * time.Second
	escalatedTimeout        = 60 * time.Second
	defaultUnauthorizedWait = 100 * time.Millisecond
)

// Client is the portal HTTP client. One instance owns its cache tiers
// and endpoint index and is shared by all callers; construct a fresh
// one per test for isolation.
type Client struct {
	http    *http.Client
	eps     *endpoints
	session *Session
	cache   *cache.Dual
	store   cache.Store
	ct      *cacheTransport
	log     zerolog.Logger
}

type options struct {
	transport         http.RoundTripper
	store             cache.Store
	log               zerolog.Logger
	ttl               time.Duration
	timeout           time.Duration
	escalated         time.Duration
	thumb             ThumbOptions
	onUnauthorized    func()
	unauthorizedDelay time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithTransport replaces the underlying network transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithStore attaches a persistent store for the cache tier, session
// and snapshots. Without it the client is memory-only.
func WithStore(s cache.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets the client logger. Default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithTTL sets the memory-tier freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithTimeout sets the per-attempt request timeout. The escalated
// ceiling used after a failover or timeout retry stays at 60s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithThumbOptions overrides the thumbnail reducer bounds.
func WithThumbOptions(t ThumbOptions) Option {
	return func(o *options) { o.thumb = t }
}

// WithUnauthorizedHook registers the callback scheduled after a 401
// tears the session down, the client-side equivalent of redirecting to
// the landing page.
func WithUnauthorizedHook(fn func()) Option {
	return func(o *options) { o.onUnauthorized = fn }
}

// New builds a client for the given ordered backend list. The first
// URL is the active backend; later ones are failover targets.
func New(baseURLs []string, opts ...Option) (*Client, error) {
	o := options{
		transport:         http.DefaultTransport,
		log:               zerolog.Nop(),
		ttl:               cache.DefaultTTL,
		timeout:           defaultTimeout,
		escalated:         escalatedTimeout,
		thumb:             DefaultThumbOptions(),
		unauthorizedDelay: defaultUnauthorizedWait,
	}
	for _, opt := range opts {
		opt(&o)
	}

	eps, err := newEndpoints(baseURLs)
	if err != nil {
		return nil, err
	}

	session := NewSession(o.store, o.log)
	dual := cache.NewDual(cache.NewMemory(o.ttl), o.store, o.log)
	session.onInvalidate = dual.Memory().Reset

	fo := &failoverTransport{
		next:              o.transport,
		eps:               eps,
		session:           session,
		log:               o.log,
		timeout:           o.timeout,
		escalated:         o.escalated,
		onUnauthorized:    o.onUnauthorized,
		unauthorizedDelay: o.unauthorizedDelay,
	}
	ct := &cacheTransport{
		next:    fo,
		cache:   dual,
		session: session,
		log:     o.log,
		thumb:   o.thumb,
	}

	return &Client{
		http:    &http.Client{Transport: ct},
		eps:     eps,
		session: session,
		cache:   dual,
		store:   o.store,
		ct:      ct,
		log:     o.log,
	}, nil
}

// Session exposes the client's session store.
func (c *Client) Session() *Session { return c.session }

// ActiveBase returns the currently active backend URL.
func (c *Client) ActiveBase() string { return c.eps.Active() }

// Flush blocks until background cache work (persistent writes and
// refreshes) has drained. Call before process exit.
func (c *Client) Flush() { c.ct.Flush() }

// Get issues a GET and decodes the JSON response into out. The
// response may come from cache; out can be nil to discard the body.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a JSON POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Patch issues a JSON PATCH.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Put issues a JSON PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	u := cache.ResolveKey(path, c.eps.Active())

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("portal: encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.exec(req, out)
}

// postForm issues a form-encoded POST, the shape the login endpoint
// expects.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	u := cache.ResolveKey(path, c.eps.Active())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.exec(req, out)
}

func (c *Client) exec(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{Status: resp.StatusCode, URL: req.URL.String(), Body: b}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("portal: decode %s: %w", req.URL, err)
	}
	return nil
}

// APIError is a non-2xx response surfaced to the caller. The client
// does not interpret domain error payloads; Body is whatever the
// backend sent.
type APIError struct {
	Status int
	URL    string
	Body   []byte
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("portal: %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("portal: %s: status %d: %s", e.URL, e.Status, msg)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}
