// Package cachehit classifies a response as served from cache or not,
// based on the vendor headers caches commonly add.
package cachehit

import (
	"net/http"
	"strings"
)

// Headers are checked in this order.
var Headers = []string{
	"x-cache",
	"cf-cache-status",
	"x-varnish",
	"x-proxy-cache",
	"x-kinsta-cache",
	"x-wpe-cached",
	"x-litespeed-cache",
}

var reported = append(append([]string{}, Headers...), "age", "cache-control", "cache-status", "vary", "expires")

// IsHit reports whether any known cache header signals a hit.
func IsHit(header http.Header) bool {
	for _, name := range Headers {
		for _, val := range header.Values(name) {
			if isHitValue(val) {
				return true
			}
		}
	}
	return false
}

// Lookup returns the first known cache header signalling a hit. Without a
// hit it returns the first known cache header present, if any.
func Lookup(header http.Header) (name, value string, hit bool) {
	for _, n := range Headers {
		for _, v := range header.Values(n) {
			if isHitValue(v) {
				return n, v, true
			}
			if name == "" {
				name, value = n, v
			}
		}
	}
	return name, value, false
}

// IsHitMap is IsHit for plain maps, with keys compared case-insensitively.
func IsHitMap(header map[string]string) bool {
	lower := make(map[string]string, len(header))
	for k, v := range header {
		lower[strings.ToLower(k)] = v
	}
	for _, name := range Headers {
		if val, ok := lower[name]; ok && isHitValue(val) {
			return true
		}
	}
	return false
}

// Relevant returns the known cache headers present in header, with
// lowercased names. It is what gets reported back per request.
func Relevant(header http.Header) map[string]string {
	relevant := make(map[string]string)
	for _, name := range reported {
		if val := header.Get(name); val != "" {
			relevant[name] = val
		}
	}
	return relevant
}

func isHitValue(val string) bool {
	val = strings.ToLower(val)
	return strings.Contains(val, "hit") || val == "cached"
}
