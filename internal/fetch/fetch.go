package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/poly4/fpl-analsyer-sub000/internal/cache"
	"github.com/poly4/fpl-analsyer-sub000/internal/metrics"
)

const (
	defaultRequestTimeout = 10 * time.Second

	breakerFailureRate      = 0.6
	breakerMinRequests      = 5
	breakerRollingWindow    = 10 * time.Second
	breakerOpenDelay        = 15 * time.Second
	breakerSuccessThreshold = 1
)

// ErrRateLimited is returned when the outbound rate limit rejects a fetch
// and no stale entry exists to fall back on.
var ErrRateLimited = errors.New("upstream rate limit exceeded")

// ErrNotFound is returned when the upstream API has no resource at the
// requested endpoint. A missing resource never degrades to a stale read.
var ErrNotFound = errors.New("upstream resource not found")

// Result is the outcome of a read-through fetch.
type Result struct {
	Data []byte
	// FromCache is true when the data came from a valid cache entry.
	FromCache bool
	// Stale is true when the upstream fetch failed and an expired entry
	// was served instead. CachedAt then carries the original cache time
	// so the UI can render "showing cached data from <timestamp>".
	Stale    bool
	CachedAt time.Time
}

// Fetcher is the read path that glues the upstream HTTP API to the cache:
// valid cache entries are served directly, misses trigger a deduplicated
// fetch that seeds the cache, and failed refreshes degrade to a stale read
// when one exists.
type Fetcher struct {
	baseURL string
	store   *cache.Store
	client  *http.Client
	group   singleflight.Group
	breaker circuitbreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client (tests inject short timeouts).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithRateLimit bounds outbound request rate to the upstream API.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(f *Fetcher) { f.limiter = rate.NewLimiter(limit, burst) }
}

// NewFetcher creates a Fetcher over the given API base URL and cache store.
func NewFetcher(baseURL string, store *cache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL: baseURL,
		store:   store,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	f.breaker = circuitbreaker.NewBuilder[[]byte]().
		HandleIf(func(_ []byte, err error) bool {
			// Missing resources are not upstream outages.
			return err != nil && !errors.Is(err, ErrNotFound)
		}).
		WithFailureRateThreshold(breakerFailureRate, breakerMinRequests, breakerRollingWindow).
		WithDelay(breakerOpenDelay).
		WithSuccessThreshold(breakerSuccessThreshold).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Upstream circuit breaker state changed",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			metrics.FetchBreakerState.Set(breakerStateToFloat(e.NewState))
		}).
		Build()

	for _, opt := range opts {
		opt(f)
	}
	return f
}

func breakerStateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// GetJSON performs a read-through fetch of endpoint with the given query
// parameters, caching the response body under the data class TTL.
//
// Cancellation is all-or-nothing: if ctx aborts the in-flight request,
// nothing is written to the cache.
func (f *Fetcher) GetJSON(ctx context.Context, endpoint string, params map[string]string, class cache.DataClass) (Result, error) {
	key := cache.BuildKey(endpoint, params)

	if data, ok := f.store.Get(key); ok {
		metrics.FetchRequestsTotal.WithLabelValues("cache_hit").Inc()
		return Result{Data: data, FromCache: true}, nil
	}

	// Concurrent misses for the same key share one upstream request.
	data, err, _ := f.group.Do(key, func() (any, error) {
		return f.fetch(ctx, endpoint, params)
	})
	if err == nil {
		body := data.([]byte)
		f.store.Set(key, body, class)
		metrics.FetchRequestsTotal.WithLabelValues("fetched").Inc()
		return Result{Data: body}, nil
	}

	// Caller cancellation is not a degraded-read situation; surface it.
	if ctx.Err() != nil {
		metrics.FetchRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("fetch %s cancelled: %w", endpoint, ctx.Err())
	}

	// A 404 means the resource does not exist, not that the upstream is
	// unhealthy. Stale data for it would be a lie.
	if errors.Is(err, ErrNotFound) {
		metrics.FetchRequestsTotal.WithLabelValues("not_found").Inc()
		return Result{}, fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	if stale, cachedAt, ok := f.store.GetStaleOrNull(key); ok {
		slog.Warn("Refresh failed, serving stale cache entry",
			"endpoint", endpoint,
			"cached_at", cachedAt,
			"error", err,
		)
		metrics.FetchRequestsTotal.WithLabelValues("stale_fallback").Inc()
		return Result{Data: stale, Stale: true, CachedAt: cachedAt}, nil
	}

	metrics.FetchRequestsTotal.WithLabelValues("error").Inc()
	return Result{}, fmt.Errorf("fetch %s: %w", endpoint, err)
}

func (f *Fetcher) fetch(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if !f.limiter.Allow() {
		return nil, ErrRateLimited
	}

	return failsafe.NewExecutor[[]byte](f.breaker).WithContext(ctx).Get(func() ([]byte, error) {
		start := time.Now()
		body, err := f.doRequest(ctx, endpoint, params)
		metrics.FetchDuration.Observe(time.Since(start).Seconds())
		return body, err
	})
}

func (f *Fetcher) doRequest(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	u, err := url.Parse(f.baseURL + "/" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for name, value := range params {
			q.Set(name, value)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d for %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
