// Package fetch implements the read-through path between the upstream
// fantasy API and the cache.
//
// Misses are deduplicated with singleflight, guarded by a circuit breaker
// and an outbound rate limit, and failed refreshes degrade to a stale cache
// read when one exists rather than surfacing an error.
package fetch
