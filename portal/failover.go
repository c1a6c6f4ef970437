package portal

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// endpoints is the ordered backend list. Exactly one is active;
// rotation wraps and is shared by every caller, so a failover rebinds
// the default backend for all subsequent requests.
type endpoints struct {
	mu   sync.Mutex
	urls []*url.URL
	idx  int
}

func newEndpoints(raw []string) (*endpoints, error) {
	if len(raw) == 0 {
		return nil, errors.New("portal: at least one base URL required")
	}
	urls := make([]*url.URL, 0, len(raw))
	for _, r := range raw {
		u, err := url.Parse(r)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("portal: base URL must be absolute: " + r)
		}
		urls = append(urls, u)
	}
	return &endpoints{urls: urls}, nil
}

func (e *endpoints) Len() int { return len(e.urls) }

// Active returns the current base URL as a string.
func (e *endpoints) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.urls[e.idx].String()
}

// Rotate advances to the next backend, wrapping, and returns it.
func (e *endpoints) Rotate() *url.URL {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.idx = (e.idx + 1) % len(e.urls)
	return e.urls[e.idx]
}

// attempt tracks the per-logical-request recovery flags. Each flag
// flips false->true at most once; concurrent requests carry their own
// attempt and fail over independently.
type attempt struct {
	failoverTried bool
	retried       bool
	timeout       time.Duration
}

// failoverTransport re-issues failed requests: once against the next
// backend on a network-level failure, once with an escalated timeout
// on a timeout, both silently. A 401 response tears the session down
// as a side effect and still reaches the caller.
type failoverTransport struct {
	next    http.RoundTripper
	eps     *endpoints
	session *Session
	log     zerolog.Logger

	timeout   time.Duration // per-attempt ceiling before escalation
	escalated time.Duration

	onUnauthorized    func()
	unauthorizedDelay time.Duration
}

func (t *failoverTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	at := attempt{timeout: t.timeout}
	target := req.URL

	for {
		resp, err := t.do(req, target, at.timeout)
		if err == nil {
			if resp.StatusCode == http.StatusUnauthorized {
				t.handleUnauthorized(req)
			}
			return resp, nil
		}

		// a caller-cancelled request is not a backend failure
		if req.Context().Err() != nil {
			return nil, err
		}

		if !at.failoverTried && t.eps.Len() > 1 {
			at.failoverTried = true
			at.timeout = t.escalated
			next := t.eps.Rotate()
			u := *target
			u.Scheme = next.Scheme
			u.Host = next.Host
			target = &u
			t.log.Warn().
				Str("backend", next.String()).
				Err(err).
				Msg("switching backend")
			continue
		}

		if isTimeout(err) && !at.retried {
			at.retried = true
			at.timeout = t.escalated
			t.log.Warn().
				Str("url", req.URL.String()).
				Dur("timeout", t.escalated).
				Msg("request timed out, retrying with escalated timeout")
			continue
		}

		return nil, err
	}
}

// do runs a single attempt against target under its own deadline. The
// caller's request is never modified; each attempt gets its own clone.
// The deadline is released when the response body is closed, not when
// the attempt returns, so callers can stream the body.
func (t *failoverTransport) do(req *http.Request, target *url.URL, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), timeout)

	r := req.Clone(ctx)
	u := *target
	r.URL = &u
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, err
		}
		r.Body = body
	}

	resp, err := t.next.RoundTrip(r)
	if err != nil {
		cancel()
		return nil, err
	}
	// the cache layer reads the URL this attempt was actually sent to
	resp.Request = r
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// handleUnauthorized clears the session and schedules the configured
// redirect hook. Nothing to do when already signed out (the landing
// page case).
func (t *failoverTransport) handleUnauthorized(req *http.Request) {
	if t.session == nil || t.session.Token() == "" {
		return
	}
	t.log.Warn().Str("url", req.URL.String()).Msg("authentication failed, clearing session")
	t.session.Clear()
	if t.onUnauthorized != nil {
		hook := t.onUnauthorized
		time.AfterFunc(t.unauthorizedDelay, hook)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}
