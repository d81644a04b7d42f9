package rfc9111

import (
	"net/http"
	"time"
)

// §  4.2.  Freshness
// §
// §     A "fresh" response is one whose age has not yet exceeded its
// §     freshness lifetime.  Conversely, a "stale" response is one where it
// §     has.
// §
// §     [...]
// §
// §     The calculation to determine if a response is fresh is:
// §
// §        response_is_fresh = (freshness_lifetime > current_age)

// IsFresh reports whether the response was fresh when it was received.
func IsFresh(header http.Header, requestTime, responseTime time.Time) bool {
	return FreshnessLifetime(header, responseTime).Lifetime > InitialAge(header, requestTime, responseTime)
}
