package cache

import "time"

// DataClass tags a cache entry with the staleness policy of its payload.
type DataClass string

const (
	// ClassManager covers manager identity and history, which changes rarely.
	ClassManager DataClass = "manager"
	// ClassLeague covers league standings and overviews.
	ClassLeague DataClass = "league"
	// ClassAnalytics covers derived analytics and predictions.
	ClassAnalytics DataClass = "analytics"
	// ClassLive covers per-gameweek live scores.
	ClassLive DataClass = "live"
	// ClassDefault is applied to anything unclassified.
	ClassDefault DataClass = "default"
)

// TTL returns the fixed time-to-live for the data class. The table is
// policy, not configuration: callers cannot override it at runtime.
func (c DataClass) TTL() time.Duration {
	switch c {
	case ClassManager:
		return 24 * time.Hour
	case ClassLeague:
		return time.Hour
	case ClassAnalytics:
		return 5 * time.Minute
	case ClassLive:
		return 30 * time.Second
	default:
		return 5 * time.Minute
	}
}
