package rfc9211

import (
	"net/http"
	"strconv"
	"strings"
)

// §  2.  The Cache-Status HTTP Response Header Field
// §
// §     The Cache-Status HTTP response header field indicates caches' handling
// §     of the request corresponding to the response it occurs within.
// §
// §     Its value is a List (Section 3.1 of [STRUCTURED-FIELDS]):
// §
// §     Cache-Status   = sf-list
// §
// §     Each member of the list represents a cache that has handled the
// §     request.  The first member of the list represents the cache closest
// §     to the origin server, and the last member of the list represents the
// §     cache closest to the user

type FwdReason string

const (
	// The cache was configured to not handle this request.
	FwdBypass FwdReason = "bypass"

	// The request method's semantics require the request to be
	// forwarded.
	FwdMethod FwdReason = "method"

	// The cache did not contain any responses that matched the
	// request URI.
	FwdUriMiss FwdReason = "uri-miss"

	// The cache contained a response that matched the request
	// URI, but it could not select a response based upon this request's
	// header fields and stored Vary header fields.
	FwdVaryMiss FwdReason = "vary-miss"

	// The cache did not contain any responses that could be used to
	// satisfy this request.
	FwdMiss FwdReason = "miss"

	// The cache was able to select a fresh response for the
	// request, but the request's semantics did not allow its use.
	FwdRequest FwdReason = "request"

	// The cache was able to select a response for the request, but
	// it was stale.
	FwdStale FwdReason = "stale"

	// The cache was able to select a partial response for the
	// request, but it did not contain all of the requested ranges.
	FwdPartial FwdReason = "partial"
)

// Entry is one member of a Cache-Status list.
type Entry struct {
	Cache     string    `json:"cache"`
	Hit       bool      `json:"hit"`
	Fwd       FwdReason `json:"fwd,omitempty"`
	FwdStatus int       `json:"fwdStatus,omitempty"`
	// TTL is in seconds and may be negative for stale responses.
	TTL    *int   `json:"ttl,omitempty"`
	Stored bool   `json:"stored,omitempty"`
	Key    string `json:"key,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Parse reads all Cache-Status fields of a header, in list order.
// Members that are not understood are skipped.
func Parse(header http.Header) []Entry {
	var entries []Entry
	for _, field := range header.Values("Cache-Status") {
		for _, member := range splitOutsideQuotes(field, ',') {
			if entry, ok := parseMember(member); ok {
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

// Closest returns the member nearest to the user, i.e. the last one.
func Closest(entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[len(entries)-1], true
}

func parseMember(member string) (Entry, bool) {
	parts := splitOutsideQuotes(member, ';')
	name := unquote(strings.TrimSpace(parts[0]))
	if name == "" {
		return Entry{}, false
	}
	entry := Entry{Cache: name}
	for _, param := range parts[1:] {
		key, val, hasVal := strings.Cut(strings.TrimSpace(param), "=")
		key = strings.ToLower(strings.TrimSpace(key))
		val = unquote(strings.TrimSpace(val))
		switch key {
		// §  2.1.  The hit Parameter
		// §     "hit", when true, indicates that the request was satisfied by the
		// §     cache; that is, it was not forwarded, and the response was obtained
		// §     from the cache.
		case "hit":
			entry.Hit = !hasVal || val == "?1"
		// §  2.2.  The fwd Parameter
		// §     "fwd" indicates that the request went forward towards the origin
		// §     and why.
		case "fwd":
			entry.Fwd = FwdReason(strings.ToLower(val))
		case "fwd-status":
			entry.FwdStatus, _ = strconv.Atoi(val)
		// §  2.4.  The ttl Parameter
		// §     "ttl" indicates the response's remaining freshness lifetime as
		// §     calculated by the cache, as an integer number of seconds
		case "ttl":
			if ttl, err := strconv.Atoi(val); err == nil {
				entry.TTL = &ttl
			}
		case "stored":
			entry.Stored = !hasVal || val == "?1"
		case "key":
			entry.Key = val
		case "detail":
			entry.Detail = val
		}
	}
	return entry, true
}

// String renders the entry back into its field form.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Cache)
	if e.Hit {
		b.WriteString("; hit")
	}
	if e.Fwd != "" {
		b.WriteString("; fwd=" + string(e.Fwd))
	}
	if e.FwdStatus != 0 {
		b.WriteString("; fwd-status=" + strconv.Itoa(e.FwdStatus))
	}
	if e.TTL != nil {
		b.WriteString("; ttl=" + strconv.Itoa(*e.TTL))
	}
	if e.Stored {
		b.WriteString("; stored")
	}
	if e.Detail != "" {
		b.WriteString("; detail=" + e.Detail)
	}
	return b.String()
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inQuotes {
				i++
			}
		case '"':
			inQuotes = !inQuotes
		case sep:
			if !inQuotes {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}
