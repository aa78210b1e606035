package antrian

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CacheDirectives represents parsed Cache-Control directives.
type CacheDirectives struct {
	NoStore bool
	NoCache bool
	Private bool
	MaxAge  *time.Duration
}

// parseCacheControl parses Cache-Control header into structured directives.
func parseCacheControl(header string) *CacheDirectives {
	directives := &CacheDirectives{}
	if header == "" {
		return directives
	}

	for _, part := range strings.Split(header, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		// Handle directives with values
		if key, value, ok := strings.Cut(part, "="); ok {
			value = strings.Trim(strings.TrimSpace(value), "\"")
			if strings.TrimSpace(key) == "max-age" {
				if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
					maxAge := time.Duration(seconds) * time.Second
					directives.MaxAge = &maxAge
				}
			}
			continue
		}

		switch part {
		case "no-store":
			directives.NoStore = true
		case "no-cache":
			directives.NoCache = true
		case "private":
			directives.Private = true
		}
	}

	return directives
}

// storableTTL returns how long resp may be cached when its route allows ttl.
// It is 0 for error statuses and for no-store, no-cache or private
// responses; a max-age shorter than ttl wins.
func storableTTL(resp *Response, ttl time.Duration) time.Duration {
	if resp == nil || resp.StatusCode >= http.StatusBadRequest || ttl <= 0 {
		return 0
	}
	d := parseCacheControl(resp.Header.Get("Cache-Control"))
	if d.NoStore || d.NoCache || d.Private {
		return 0
	}
	if d.MaxAge != nil && *d.MaxAge < ttl {
		return *d.MaxAge
	}
	return ttl
}
