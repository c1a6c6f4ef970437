package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campusfix/campusfix/cache"
)

const (
	// headerBackgroundRefresh tags a request issued solely to update
	// the cache; tagged requests bypass the short-circuit path.
	headerBackgroundRefresh = "X-Background-Refresh"

	// headerCacheTier marks synthesized responses with their origin.
	headerCacheTier = "X-Cache"

	// headerRequestID correlates a cached response with the background
	// refresh it triggered.
	headerRequestID = "X-Request-Id"
)

// cacheTransport applies the cache-then-revalidate policy to every
// outbound GET. Fresh memory entries short-circuit with zero network
// I/O; persistent entries are served immediately and revalidated by a
// background request dispatched only after the cached response has
// been delivered. Successful responses update the memory tier
// synchronously and the persistent tier asynchronously.
type cacheTransport struct {
	next    http.RoundTripper
	cache   *cache.Dual
	session *Session
	log     zerolog.Logger
	thumb   ThumbOptions

	jobs sync.WaitGroup // background persists and refreshes
}

func (t *cacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if tok := t.session.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if req.Method != http.MethodGet {
		return t.next.RoundTrip(req)
	}

	key := req.URL.String()

	if req.Header.Get(headerBackgroundRefresh) == "" {
		if payload, ok := t.cache.FreshMemory(key); ok {
			t.log.Debug().Str("key", key).Msg("serving fresh in-memory response")
			// served payloads re-enter the memory tier like any other
			// response, re-stamping their freshness
			t.cache.StoreMemory(key, payload)
			return synthesize(req, payload, "memory"), nil
		}

		if payload, ok := t.cache.Persistent(key); ok {
			t.log.Debug().Str("key", key).Msg("serving persistent response, scheduling refresh")
			// the served payload becomes the fresh memory entry, so
			// repeat GETs short-circuit instead of piling up refreshes
			t.cache.StoreMemory(key, payload)
			release := make(chan struct{})
			t.scheduleRefresh(req, key, release)
			// released on return, after the response value is set, so
			// the caller is handed the cached payload before the
			// refresh request can start
			defer close(release)
			return synthesize(req, payload, "persistent"), nil
		}
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		// a failover below may have rebound the backend mid-flight;
		// store under the URL the request was finally sent to, where
		// later lookups against the new active base will resolve
		if resp.Request != nil {
			key = resp.Request.URL.String()
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, err
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))

		t.cache.StoreMemory(key, body)
		t.persistAsync(key, body)
	}
	return resp, nil
}

// scheduleRefresh spawns the tagged duplicate request. Its outcome is
// logged, never surfaced: the original caller already has a response.
func (t *cacheTransport) scheduleRefresh(req *http.Request, key string, release <-chan struct{}) {
	refresh := req.Clone(context.Background())
	refresh.Body = nil
	refresh.Header.Set(headerBackgroundRefresh, "1")
	refresh.Header.Set(headerRequestID, uuid.NewString())

	t.jobs.Add(1)
	go func() {
		defer t.jobs.Done()
		<-release

		resp, err := t.RoundTrip(refresh)
		if err != nil {
			t.log.Warn().Str("key", key).Err(err).Msg("background refresh failed")
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
}

// persistAsync writes the payload to the persistent tier without
// delaying the response path. Issue collections are stored in lite
// form, thumbnails computed best-effort per record; everything else is
// stored verbatim. Errors never leave the goroutine.
func (t *cacheTransport) persistAsync(key string, payload json.RawMessage) {
	t.jobs.Add(1)
	go func() {
		defer t.jobs.Done()
		t.persist(key, payload)
	}()
}

func (t *cacheTransport) persist(key string, payload json.RawMessage) {
	if !isIssueCollection(key) {
		t.cache.StorePersistent(key, payload)
		return
	}

	issues, ok := decodeIssues(payload)
	if !ok {
		// unexpected shape, keep the full payload rather than nothing
		t.cache.StorePersistent(key, payload)
		return
	}

	lite := make([]LiteIssue, 0, len(issues))
	for _, is := range issues {
		thumb := ""
		if is.ImageData != nil && *is.ImageData != "" {
			thumb = Thumbnail(context.Background(), *is.ImageData, t.thumb)
		}
		lite = append(lite, MakeLiteIssue(is, thumb))
	}

	b, err := json.Marshal(lite)
	if err != nil {
		t.log.Warn().Str("key", key).Err(err).Msg("lite projection marshal failed")
		return
	}
	t.cache.StorePersistent(key, b)
}

// Flush blocks until all scheduled background work has completed.
func (t *cacheTransport) Flush() { t.jobs.Wait() }

// synthesize builds a 200 response from a cached payload, no network
// involved.
func synthesize(req *http.Request, payload json.RawMessage, tier string) *http.Response {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set(headerCacheTier, tier)
	return &http.Response{
		Status:        "200 OK (Cached)",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(payload)),
		ContentLength: int64(len(payload)),
		Request:       req,
	}
}
