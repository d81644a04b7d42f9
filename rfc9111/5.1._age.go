package rfc9111

import (
	"net/http"
	"strings"
	"time"
)

// §  5.1.  Age
// §
// §     The "Age" response header field conveys the sender's estimate of the
// §     time since the response was generated or successfully validated at
// §     the origin server.  Age values are calculated as specified in
// §     Section 4.2.3.
// §
// §       Age = delta-seconds
// §
// §     Although it is defined as a singleton header field, a cache
// §     encountering a message with a list-based Age field value SHOULD use
// §     the first member of the field value, discarding subsequent ones.
// §
// §     If the field value (after discarding additional members, as per
// §     above) is invalid (e.g., it contains something other than a non-
// §     negative integer), a cache SHOULD ignore the field.
// §
// §     The presence of an Age header field implies that the response was not
// §     generated or validated by the origin server for this request.

// Age returns the value of the Age header, and whether a valid one was present.
func Age(header http.Header) (time.Duration, bool) {
	secondsStr := header.Get("Age")
	if i := strings.IndexByte(secondsStr, ','); i != -1 {
		secondsStr = secondsStr[:i]
	}
	secondsStr = strings.TrimSpace(secondsStr)
	if secondsStr == "" || !isDigit(secondsStr[0]) {
		return 0, false
	}
	return deltaSeconds(secondsStr), true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
