package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poly4/fpl-analsyer-sub000/internal/cache"
	"github.com/poly4/fpl-analsyer-sub000/internal/config"
	"github.com/poly4/fpl-analsyer-sub000/internal/fetch"
	"github.com/poly4/fpl-analsyer-sub000/internal/live"
	"github.com/poly4/fpl-analsyer-sub000/internal/projection"
)

type fakeCache struct {
	stats cache.Stats
	size  int
}

func (f *fakeCache) Stats() cache.Stats { return f.stats }
func (f *fakeCache) Size() int          { return f.size }

type fakeLive struct {
	state live.ConnectionState
}

func (f *fakeLive) State() live.ConnectionState { return f.state }

type fakeEngine struct {
	resp    projection.Response
	err     error
	lastReq projection.Request
}

func (f *fakeEngine) Compute(_ context.Context, req projection.Request) (projection.Response, error) {
	f.lastReq = req
	return f.resp, f.err
}

type fakeFetcher struct {
	result       fetch.Result
	err          error
	lastEndpoint string
	lastParams   map[string]string
	lastClass    cache.DataClass
}

func (f *fakeFetcher) GetJSON(_ context.Context, endpoint string, params map[string]string, class cache.DataClass) (fetch.Result, error) {
	f.lastEndpoint = endpoint
	f.lastParams = params
	f.lastClass = class
	return f.result, f.err
}

type testServer struct {
	srv     *Server
	cache   *fakeCache
	live    *fakeLive
	engine  *fakeEngine
	fetcher *fakeFetcher
	clock   *clockwork.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		cache:   &fakeCache{},
		live:    &fakeLive{state: live.StateConnected},
		engine:  &fakeEngine{},
		fetcher: &fakeFetcher{},
		clock:   clockwork.NewFakeClock(),
	}
	ts.srv = NewServer(&config.Config{Port: "8080"}, ts.cache, ts.live, ts.engine, ts.fetcher, ts.clock)
	return ts
}

func doRequest(t *testing.T, ts *testServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ts.srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleLiveness(t *testing.T) {
	ts := newTestServer(t)
	ts.clock.Advance(90 * time.Second)

	rec := doRequest(t, ts, http.MethodGet, "/health/live", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","uptime":90}`, rec.Body.String())
}

func TestHandleReadiness_Connected(t *testing.T) {
	ts := newTestServer(t)
	ts.live.state = live.StateConnected

	rec := doRequest(t, ts, http.MethodGet, "/health/ready", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleReadiness_ReconnectingIsDegradedNotDown(t *testing.T) {
	ts := newTestServer(t)
	ts.live.state = live.StateReconnecting

	rec := doRequest(t, ts, http.MethodGet, "/health/ready", "")

	assert.Equal(t, http.StatusOK, rec.Code, "Cached data keeps serving during reconnects")
	assert.Contains(t, rec.Body.String(), `"degraded"`)
	assert.Contains(t, rec.Body.String(), "reconnecting")
}

func TestHandleReadiness_ClosedIsUnhealthy(t *testing.T) {
	ts := newTestServer(t)
	ts.live.state = live.StateClosed

	rec := doRequest(t, ts, http.MethodGet, "/health/ready", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unhealthy"`)
}

func TestHandleCacheStats(t *testing.T) {
	ts := newTestServer(t)
	ts.cache.stats = cache.Stats{ValidEntries: 4, StaleEntries: 2, ApproxBytes: 1024}
	ts.cache.size = 6

	rec := doRequest(t, ts, http.MethodGet, "/api/cache/stats", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"entries":6,"valid_entries":4,"stale_entries":2,"approx_bytes":1024}`,
		rec.Body.String())
}

func TestHandleLiveState(t *testing.T) {
	ts := newTestServer(t)
	ts.live.state = live.StateConnecting

	rec := doRequest(t, ts, http.MethodGet, "/api/live/state", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"connecting"}`, rec.Body.String())
}

func TestHandleProjection_Passthrough(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.engine.resp = projection.Response{
		ID:   id,
		Type: projection.ResponseSuccess,
		Data: json.RawMessage(`{"projections":[]}`),
	}

	body := fmt.Sprintf(`{"id":%q,"type":"EXPECTED_POINTS","data":{"players":[]}}`, id)
	rec := doRequest(t, ts, http.MethodPost, "/api/projection", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, projection.OpExpectedPoints, ts.engine.lastReq.Type)
	assert.Equal(t, id, ts.engine.lastReq.ID)

	var resp projection.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, projection.ResponseSuccess, resp.Type)
}

func TestHandleProjection_EngineErrorEnvelopeIsStill200(t *testing.T) {
	ts := newTestServer(t)
	ts.engine.resp = projection.Response{
		ID:    uuid.New(),
		Type:  projection.ResponseError,
		Error: `unknown operation "MYSTERY"`,
	}

	rec := doRequest(t, ts, http.MethodPost, "/api/projection", `{"type":"MYSTERY","data":{}}`)

	assert.Equal(t, http.StatusOK, rec.Code, "The compute protocol carries its own error envelope")
	assert.Contains(t, rec.Body.String(), "unknown operation")
}

func TestHandleProjection_MissingType(t *testing.T) {
	ts := newTestServer(t)

	rec := doRequest(t, ts, http.MethodPost, "/api/projection", `{"data":{}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "type is required")
}

func TestHandleProjection_MalformedBody(t *testing.T) {
	ts := newTestServer(t)

	rec := doRequest(t, ts, http.MethodPost, "/api/projection", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProjection_EngineUnavailable(t *testing.T) {
	ts := newTestServer(t)
	ts.engine.err = fmt.Errorf("compute request not accepted: %w", context.Canceled)

	rec := doRequest(t, ts, http.MethodPost, "/api/projection", `{"type":"TEAM_STATS","data":{}}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleData_FreshFetch(t *testing.T) {
	ts := newTestServer(t)
	ts.fetcher.result = fetch.Result{Data: []byte(`{"standings":[]}`)}

	rec := doRequest(t, ts, http.MethodGet, "/api/data/league/42/standings?page=2", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"standings":[]}`, rec.Body.String())
	assert.Equal(t, "league/42/standings", ts.fetcher.lastEndpoint)
	assert.Equal(t, map[string]string{"page": "2"}, ts.fetcher.lastParams)
	assert.Equal(t, cache.ClassLeague, ts.fetcher.lastClass)
}

func TestHandleData_CacheHit(t *testing.T) {
	ts := newTestServer(t)
	ts.fetcher.result = fetch.Result{Data: []byte(`{}`), FromCache: true}

	rec := doRequest(t, ts, http.MethodGet, "/api/data/manager/7", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, cache.ClassManager, ts.fetcher.lastClass)
}

func TestHandleData_StaleCarriesCacheDate(t *testing.T) {
	ts := newTestServer(t)
	cachedAt := time.Date(2025, 11, 2, 15, 4, 5, 0, time.UTC)
	ts.fetcher.result = fetch.Result{Data: []byte(`{}`), Stale: true, CachedAt: cachedAt}

	rec := doRequest(t, ts, http.MethodGet, "/api/data/live/12", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stale", rec.Header().Get("X-Cache"))
	assert.Equal(t, "2025-11-02T15:04:05Z", rec.Header().Get("X-Cache-Date"))
}

func TestHandleData_UpstreamFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.fetcher.err = fmt.Errorf("connection refused")

	rec := doRequest(t, ts, http.MethodGet, "/api/data/league/42", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream fetch failed")
}

func TestHandleData_UpstreamNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.fetcher.err = fmt.Errorf("fetch manager/999: %w", fetch.ErrNotFound)

	rec := doRequest(t, ts, http.MethodGet, "/api/data/manager/999", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no upstream resource at this endpoint")
}

func TestClassify(t *testing.T) {
	cases := map[string]cache.DataClass{
		"manager/7":           cache.ClassManager,
		"entry/7/history":     cache.ClassManager,
		"league/42/standings": cache.ClassLeague,
		"leagues-classic/9":   cache.ClassLeague,
		"analytics/form":      cache.ClassAnalytics,
		"live/12":             cache.ClassLive,
		"event/12/live":       cache.ClassLive,
		"bootstrap-static":    cache.ClassDefault,
		"fixtures":            cache.ClassDefault,
	}
	for endpoint, expected := range cases {
		assert.Equal(t, expected, classify(endpoint), "endpoint %s", endpoint)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := doRequest(t, ts, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
