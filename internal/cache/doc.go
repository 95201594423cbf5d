// Package cache implements the TTL-keyed request cache with stale-read fallback.
//
// Each entry is tagged with a DataClass whose fixed TTL determines validity.
// Normal reads treat expired entries as misses; GetStaleOrNull serves them
// anyway so a failed refresh can degrade to "last known data" instead of an
// error. A background sweep reclaims entries once they outlive a retention
// grace beyond their TTL.
package cache
