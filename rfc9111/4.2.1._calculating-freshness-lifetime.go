package rfc9111

import (
	"net/http"
	"time"
)

// Freshness is the outcome of the lifetime calculation. Explicit reports
// whether it came from the response itself rather than a heuristic.
type Freshness struct {
	Lifetime time.Duration
	Source   string
	Explicit bool
}

// §  4.2.1.  Calculating Freshness Lifetime
// §
// §     A cache can calculate the freshness lifetime (denoted as
// §     freshness_lifetime) of a response by evaluating the following rules
// §     and using the first match:

// FreshnessLifetime calculates the freshness lifetime of a response as seen
// by a shared cache. receivedAt stands in for a missing Date header.
func FreshnessLifetime(header http.Header, receivedAt time.Time) Freshness {
	cc := ResponseCacheControl(header)
	// §     *  If the cache is shared and the s-maxage response directive
	// §        (Section 5.2.2.10) is present, use its value, or
	if val, ok := cc.SMaxAge(); ok {
		return Freshness{Lifetime: val, Source: "s-maxage", Explicit: true}
	}
	// §     *  If the max-age response directive (Section 5.2.2.1) is present,
	// §        use its value, or
	if val, ok := cc.MaxAge(); ok {
		return Freshness{Lifetime: val, Source: "max-age", Explicit: true}
	}
	// §     *  If the Expires response header field (Section 5.3) is present, use
	// §        its value minus the value of the Date response header field (using
	// §        the time the message was received if it is not present, as per
	// §        Section 6.6.1 of [HTTP]), or
	if expires, ok := getExpires(header); ok {
		date := receivedAt
		if d, err := HttpDate(header.Get("Date")); err == nil {
			date = d
		}
		lifetime := expires.Sub(date)
		if lifetime < 0 {
			lifetime = 0
		}
		return Freshness{Lifetime: lifetime, Source: "expires", Explicit: true}
	}
	// §     *  Otherwise, no explicit expiration time is present in the response.
	// §        A heuristic freshness lifetime might be applicable; see
	// §        Section 4.2.2.
	if lifetime, ok := heuristicFreshness(header, receivedAt); ok {
		return Freshness{Lifetime: lifetime, Source: "heuristic"}
	}
	return Freshness{Source: "none"}
}

// String renders the lifetime in delta-seconds, e.g. "max-age=600s".
func (f Freshness) String() string {
	if f.Source == "heuristic" {
		return "heuristic=" + toDeltaSeconds(f.Lifetime) + "s"
	}
	if !f.Explicit {
		return "no explicit freshness"
	}
	return f.Source + "=" + toDeltaSeconds(f.Lifetime) + "s"
}
