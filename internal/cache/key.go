package cache

import (
	"net/url"
	"sort"
	"strings"
)

// BuildKey derives a deterministic cache key from an endpoint identifier and
// a parameter set. Parameters are sorted lexicographically by name before
// concatenation, so two logically identical requests always collide on the
// same entry regardless of call-site ordering.
func BuildKey(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[name]))
	}
	return b.String()
}
