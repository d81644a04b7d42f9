package rfc9111

import (
	"net/http"
	"time"
)

// §  4.2.2.  Calculating Heuristic Freshness
// §
// §     Since origin servers do not always provide explicit expiration times,
// §     a cache MAY assign a heuristic expiration time when an explicit time
// §     is not specified, employing algorithms that use other field values
// §     (such as the Last-Modified time) to estimate a plausible expiration
// §     time.
// §
// §     [...]
// §
// §     If the response has a Last-Modified header field (Section 8.8.2 of
// §     [HTTP]), caches are encouraged to use a heuristic expiration value
// §     that is no more than some fraction of the interval since that time.
// §     A typical setting of this fraction might be 10%.
const heuristicFraction = 10

// heuristicFreshness returns 10% of the time since Last-Modified, if the
// response has a usable Last-Modified header.
func heuristicFreshness(header http.Header, receivedAt time.Time) (time.Duration, bool) {
	lastModified, err := HttpDate(header.Get("Last-Modified"))
	if err != nil {
		return 0, false
	}
	date := receivedAt
	if d, err := HttpDate(header.Get("Date")); err == nil {
		date = d
	}
	interval := date.Sub(lastModified)
	if interval <= 0 {
		return 0, false
	}
	return (interval / heuristicFraction).Truncate(time.Second), true
}
