package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/poly4/fpl-analsyer-sub000/internal/cache"
)

func TestFetcher_PopulatesCacheOnMiss(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"standings":[]}`))
	}))
	defer upstream.Close()

	clock := clockwork.NewFakeClock()
	store := cache.NewStore(clock)
	fetcher := NewFetcher(upstream.URL, store)

	res, err := fetcher.GetJSON(context.Background(), "league/42/standings", nil, cache.ClassLeague)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"standings":[]}`), res.Data)
	assert.False(t, res.FromCache)
	assert.False(t, res.Stale)

	// Second read is served from cache without touching the upstream.
	res, err = fetcher.GetJSON(context.Background(), "league/42/standings", nil, cache.ClassLeague)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, int32(1), calls.Load(), "Upstream should be hit exactly once")
}

func TestFetcher_StaleFallbackOnUpstreamError(t *testing.T) {
	var failing atomic.Bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"rank":7}`))
	}))
	defer upstream.Close()

	clock := clockwork.NewFakeClock()
	store := cache.NewStore(clock)
	fetcher := NewFetcher(upstream.URL, store)

	_, err := fetcher.GetJSON(context.Background(), "league/42/standings", nil, cache.ClassLeague)
	require.NoError(t, err)
	cachedAt := clock.Now()

	// Entry expires, upstream starts failing: the read degrades to the
	// stale entry with its original timestamp instead of erroring.
	clock.Advance(61 * time.Minute)
	failing.Store(true)

	res, err := fetcher.GetJSON(context.Background(), "league/42/standings", nil, cache.ClassLeague)
	require.NoError(t, err, "Stale fallback must not surface the fetch error")
	assert.True(t, res.Stale)
	assert.Equal(t, []byte(`{"rank":7}`), res.Data)
	assert.Equal(t, cachedAt, res.CachedAt)
}

func TestFetcher_NotFoundBypassesStaleFallback(t *testing.T) {
	var gone atomic.Bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gone.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"rank":7}`))
	}))
	defer upstream.Close()

	clock := clockwork.NewFakeClock()
	store := cache.NewStore(clock)
	fetcher := NewFetcher(upstream.URL, store)

	_, err := fetcher.GetJSON(context.Background(), "league/42/standings", nil, cache.ClassLeague)
	require.NoError(t, err)

	// The entry expires and the upstream resource disappears. Unlike an
	// outage, a 404 surfaces instead of degrading to the stale entry.
	clock.Advance(61 * time.Minute)
	gone.Store(true)

	_, err = fetcher.GetJSON(context.Background(), "league/42/standings", nil, cache.ClassLeague)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetcher_ErrorWhenNoStaleEntry(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	clock := clockwork.NewFakeClock()
	store := cache.NewStore(clock)
	fetcher := NewFetcher(upstream.URL, store)

	_, err := fetcher.GetJSON(context.Background(), "manager/1", nil, cache.ClassManager)
	require.Error(t, err, "With nothing cached the fetch error surfaces")
	assert.Equal(t, 0, store.Size(), "Failed fetch must write nothing")
}

func TestFetcher_CancellationWritesNothing(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{}`))
	}))
	defer upstream.Close()
	defer close(release)

	clock := clockwork.NewFakeClock()
	store := cache.NewStore(clock)
	fetcher := NewFetcher(upstream.URL, store)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := fetcher.GetJSON(ctx, "live/gw10", nil, cache.ClassLive)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Size(), "Cancelled fetch must leave the cache untouched")
}

func TestFetcher_SingleflightDeduplicatesConcurrentMisses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`{"v":1}`))
	}))
	defer upstream.Close()

	clock := clockwork.NewFakeClock()
	store := cache.NewStore(clock)
	fetcher := NewFetcher(upstream.URL, store)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := fetcher.GetJSON(context.Background(), "live/gw10", nil, cache.ClassLive)
			assert.NoError(t, err)
			assert.Equal(t, []byte(`{"v":1}`), res.Data)
		}()
	}

	// Let all five goroutines pile onto the same in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "Concurrent misses for one key share one upstream request")
}

func TestFetcher_RateLimitFallsBackToStale(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"v":1}`))
	}))
	defer upstream.Close()

	clock := clockwork.NewFakeClock()
	store := cache.NewStore(clock)
	fetcher := NewFetcher(upstream.URL, store, WithRateLimit(rate.Every(time.Hour), 1))

	// First request consumes the single available token and seeds the cache.
	_, err := fetcher.GetJSON(context.Background(), "live/gw10", nil, cache.ClassLive)
	require.NoError(t, err)

	// Expire the entry; the refresh is rate-limited, so the stale entry serves.
	clock.Advance(time.Minute)
	res, err := fetcher.GetJSON(context.Background(), "live/gw10", nil, cache.ClassLive)
	require.NoError(t, err)
	assert.True(t, res.Stale)

	// A key with no history has nothing to fall back on.
	_, err = fetcher.GetJSON(context.Background(), "live/gw11", nil, cache.ClassLive)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestFetcher_SendsQueryParams(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "1", r.URL.Query().Get("phase"))
		w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	clock := clockwork.NewFakeClock()
	store := cache.NewStore(clock)
	fetcher := NewFetcher(upstream.URL, store)

	_, err := fetcher.GetJSON(context.Background(), "league/42", map[string]string{"page": "2", "phase": "1"}, cache.ClassLeague)
	require.NoError(t, err)
}
