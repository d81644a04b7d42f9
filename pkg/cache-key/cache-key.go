// Package cachekey derives the key under which a shared cache would store a
// response, so request variants can be compared.
package cachekey

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/always-cache/cache-investigator/rfc9111"
)

const (
	originSeparator = ":"
	methodSeparator = ":"
	varySeparator   = "\t"
)

type CacheKeyer struct {
	// Unique identifier for the origin, usually its host.
	OriginId string
	// Cache key prefix for this origin
	OriginPrefix string
}

func NewCacheKeyer(originId string) CacheKeyer {
	return CacheKeyer{
		OriginId:     originId,
		OriginPrefix: originId + originSeparator,
	}
}

// KeyPrefix returns the cache key for a request without the vary headers,
// i.e. the part shared by all variants of the same URL.
func (c CacheKeyer) KeyPrefix(method string, u *url.URL) string {
	return c.OriginPrefix + method + methodSeparator + u.RequestURI() + varySeparator
}

// Key returns the full cache key of a request, given the headers of the
// response it received. A response with "Vary: *" gets a key nothing else
// can match.
func (c CacheKeyer) Key(method, rawURL string, req, res http.Header) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	key := c.KeyPrefix(method, u)
	vary, wildcard := rfc9111.VaryFields(res)
	if wildcard {
		return key + "\n*", nil
	}
	for _, field := range rfc9111.SelectedFields(req, vary) {
		key = key + "\n" + field
	}
	return key, nil
}

// SameEntry reports whether two keys address the same stored response.
func SameEntry(a, b string) bool {
	return a != "" && a == b && !strings.HasSuffix(a, "\n*")
}

// VaryHeaders returns the request headers encoded in a key.
func (c CacheKeyer) VaryHeaders(key string) http.Header {
	header := make(http.Header)
	lines := strings.Split(key, "\n")
	for i := 1; i < len(lines); i++ {
		if entry := strings.SplitN(lines[i], ": ", 2); len(entry) == 2 {
			header.Add(entry[0], entry[1])
		}
	}
	return header
}
