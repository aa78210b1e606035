package antrian

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// prefixTable resolves URL prefixes to durations.
type prefixTable struct {
	entries []PrefixDuration
}

// newPrefixTable copies entries, longest prefix first. Empty prefixes are
// dropped; for duplicate prefixes the last one wins.
func newPrefixTable(entries []PrefixDuration) *prefixTable {
	byPrefix := make(map[string]time.Duration, len(entries))
	for _, e := range entries {
		if e.Prefix == "" {
			continue
		}
		byPrefix[e.Prefix] = e.Duration
	}

	t := &prefixTable{entries: make([]PrefixDuration, 0, len(byPrefix))}
	for p, d := range byPrefix {
		t.entries = append(t.entries, PrefixDuration{Prefix: p, Duration: d})
	}
	sort.Slice(t.entries, func(i, j int) bool {
		if len(t.entries[i].Prefix) != len(t.entries[j].Prefix) {
			return len(t.entries[i].Prefix) > len(t.entries[j].Prefix)
		}
		return t.entries[i].Prefix < t.entries[j].Prefix
	})
	return t
}

// longest returns the longest prefix matching path.
func (t *prefixTable) longest(path string) (PrefixDuration, bool) {
	for _, e := range t.entries {
		if strings.HasPrefix(path, e.Prefix) {
			return e, true
		}
	}
	return PrefixDuration{}, false
}

// largest returns the largest duration among all prefixes matching path.
func (t *prefixTable) largest(path string) (time.Duration, bool) {
	var (
		max     time.Duration
		matched bool
	)
	for _, e := range t.entries {
		if strings.HasPrefix(path, e.Prefix) {
			if !matched || e.Duration > max {
				max = e.Duration
			}
			matched = true
		}
	}
	return max, matched
}

// urlPath strips scheme, host, query and fragment so that both absolute and
// relative URLs match path prefixes.
func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" && u.Host == "" {
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
