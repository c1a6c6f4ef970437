package portal

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfix/campusfix/cache"
)

// stubRT is a scriptable network layer recording every request that
// actually reaches it.
type stubRT struct {
	mu       sync.Mutex
	requests []*http.Request
	status   int
	body     string
}

func (s *stubRT) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req.Clone(req.Context()))
	s.mu.Unlock()

	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return &http.Response{
		Status:     http.StatusText(status),
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(s.body)),
		Request:    req,
	}, nil
}

func (s *stubRT) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubRT) request(i int) *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func newTestCacheTransport(t *testing.T, rt http.RoundTripper) (*cacheTransport, *cache.Dual) {
	t.Helper()
	disk, err := cache.OpenLevel(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })

	dual := cache.NewDual(cache.NewMemory(cache.DefaultTTL), disk, zerolog.Nop())
	ct := &cacheTransport{
		next:    rt,
		cache:   dual,
		session: NewSession(nil, zerolog.Nop()),
		log:     zerolog.Nop(),
		thumb:   DefaultThumbOptions(),
	}
	return ct, dual
}

func doGET(t *testing.T, ct *cacheTransport, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := ct.RoundTrip(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(body)
}

func TestMemoryShortCircuit(t *testing.T) {
	rt := &stubRT{body: `{"fresh":true}`}
	ct, dual := newTestCacheTransport(t, rt)

	const key = "http://backend/stats"
	dual.StoreMemory(key, json.RawMessage(`{"cached":true}`))

	resp, body := doGET(t, ct, key)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"cached":true}`, body)
	assert.Equal(t, "memory", resp.Header.Get(headerCacheTier))
	assert.Equal(t, 0, rt.calls(), "fresh memory hit must not touch the network")
}

func TestStaleThenRefresh(t *testing.T) {
	rt := &stubRT{body: `{"v":2}`}
	ct, dual := newTestCacheTransport(t, rt)

	const key = "http://backend/stats"
	dual.StorePersistent(key, json.RawMessage(`{"v":1}`))

	resp, body := doGET(t, ct, key)
	assert.Equal(t, `{"v":1}`, body, "caller gets the stale persistent payload immediately")
	assert.Equal(t, "persistent", resp.Header.Get(headerCacheTier))

	ct.Flush()

	require.Equal(t, 1, rt.calls(), "exactly one background call")
	bg := rt.request(0)
	assert.Equal(t, "1", bg.Header.Get(headerBackgroundRefresh))
	assert.NotEmpty(t, bg.Header.Get(headerRequestID))

	// the refresh repopulated the memory tier with the fresh payload
	payload, ok := dual.FreshMemory(key)
	require.True(t, ok)
	assert.Equal(t, `{"v":2}`, string(payload))
}

// A stale-persistent serve seeds the memory tier, so consecutive GETs
// within the TTL short-circuit instead of each scheduling a refresh.
func TestStaleServeFillsMemoryTier(t *testing.T) {
	rt := &stubRT{body: `{"v":2}`}
	ct, dual := newTestCacheTransport(t, rt)

	const key = "http://backend/stats"
	dual.StorePersistent(key, json.RawMessage(`{"v":1}`))

	_, body := doGET(t, ct, key)
	assert.Equal(t, `{"v":1}`, body)
	if _, ok := dual.FreshMemory(key); !ok {
		t.Fatal("synthesized response should populate the memory tier")
	}

	doGET(t, ct, key)
	doGET(t, ct, key)
	ct.Flush()

	require.Equal(t, 1, rt.calls(), "one refresh total across consecutive stale GETs")
}

func TestNetworkPathCachesBothTiers(t *testing.T) {
	rt := &stubRT{body: `{"total_issues":3}`}
	ct, dual := newTestCacheTransport(t, rt)

	const key = "http://backend/stats"
	_, body := doGET(t, ct, key)
	assert.Equal(t, `{"total_issues":3}`, body)
	assert.Equal(t, 1, rt.calls())

	// memory is updated synchronously
	payload, ok := dual.FreshMemory(key)
	require.True(t, ok)
	assert.Equal(t, `{"total_issues":3}`, string(payload))

	// persistent write is async and stores the full payload for
	// non-collection endpoints
	ct.Flush()
	payload, ok = dual.Persistent(key)
	require.True(t, ok)
	assert.Equal(t, `{"total_issues":3}`, string(payload))
}

func TestIssueListingPersistedLite(t *testing.T) {
	img := pngDataURL(t, 400, 300)
	full, err := json.Marshal([]Issue{
		{ID: 1, Title: "Leaky tap", Status: StatusPending, ImageData: &img},
		{ID: 2, Title: "No wifi", Status: StatusPending},
	})
	require.NoError(t, err)

	rt := &stubRT{body: string(full)}
	ct, dual := newTestCacheTransport(t, rt)

	const key = "http://backend/issues"
	doGET(t, ct, key)

	// memory keeps the full payload, image intact
	payload, ok := dual.FreshMemory(key)
	require.True(t, ok)
	var fromMem []Issue
	require.NoError(t, json.Unmarshal(payload, &fromMem))
	require.NotNil(t, fromMem[0].ImageData)

	ct.Flush()

	payload, ok = dual.Persistent(key)
	require.True(t, ok)
	var lite []LiteIssue
	require.NoError(t, json.Unmarshal(payload, &lite))
	require.Len(t, lite, 2)

	assert.Nil(t, lite[0].ImageData, "image_data must be null in persisted form")
	require.NotNil(t, lite[0].Thumb, "image-bearing record should get a thumbnail")
	assert.True(t, strings.HasPrefix(*lite[0].Thumb, "data:image/jpeg;base64,"))
	assert.Less(t, len(*lite[0].Thumb), 80<<10)

	assert.Nil(t, lite[1].ImageData)
	assert.Nil(t, lite[1].Thumb, "record without image gets a null thumb")
}

func TestBackgroundTagBypassesShortCircuit(t *testing.T) {
	rt := &stubRT{body: `{"v":2}`}
	ct, dual := newTestCacheTransport(t, rt)

	const key = "http://backend/stats"
	dual.StoreMemory(key, json.RawMessage(`{"v":1}`))

	req, err := http.NewRequest(http.MethodGet, key, nil)
	require.NoError(t, err)
	req.Header.Set(headerBackgroundRefresh, "1")
	resp, err := ct.RoundTrip(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	assert.Equal(t, `{"v":2}`, string(body), "tagged request must hit the network")
	assert.Equal(t, 1, rt.calls())
}

func TestOnlyGETUsesCache(t *testing.T) {
	rt := &stubRT{body: `{"ok":true}`}
	ct, dual := newTestCacheTransport(t, rt)
	ct.session.SetToken("tok-123")

	const key = "http://backend/issues"
	dual.StoreMemory(key, json.RawMessage(`[{"id":1}]`))

	req, err := http.NewRequest(http.MethodPost, key, strings.NewReader(`{}`))
	require.NoError(t, err)
	resp, err := ct.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, 1, rt.calls(), "POST passes through untouched")
	assert.Equal(t, "Bearer tok-123", rt.request(0).Header.Get("Authorization"))

	// the POST must not disturb the cached GET payload
	payload, _ := dual.FreshMemory(key)
	assert.Equal(t, `[{"id":1}]`, string(payload))
}

func TestNon200NotCached(t *testing.T) {
	rt := &stubRT{status: http.StatusNotFound, body: `{"detail":"missing"}`}
	ct, dual := newTestCacheTransport(t, rt)

	const key = "http://backend/stats"
	resp, _ := doGET(t, ct, key)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ct.Flush()
	if _, ok := dual.FreshMemory(key); ok {
		t.Error("error responses must not be cached")
	}
	if _, ok := dual.Persistent(key); ok {
		t.Error("error responses must not be persisted")
	}
}

func TestMalformedIssuePayloadPersistedVerbatim(t *testing.T) {
	// collection URL but unexpected shape: keep the full payload
	rt := &stubRT{body: `{"total":3}`}
	ct, dual := newTestCacheTransport(t, rt)

	const key = "http://backend/issues"
	doGET(t, ct, key)
	ct.Flush()

	payload, ok := dual.Persistent(key)
	require.True(t, ok)
	assert.Equal(t, `{"total":3}`, string(payload))
}
