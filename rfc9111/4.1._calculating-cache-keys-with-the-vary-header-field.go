package rfc9111

import (
	"net/http"
	"strings"
)

// §  4.1.  Calculating Cache Keys with the Vary Header Field
// §
// §     When a cache receives a request that can be satisfied by a stored
// §     response and that stored response contains a Vary header field
// §     (Section 12.5.5 of [HTTP]), the cache MUST NOT use that stored
// §     response without revalidation unless all the presented request header
// §     fields nominated by that Vary field value match those fields in the
// §     original request (i.e., the request that caused the cached response
// §     to be stored).

// VaryFields returns the lowercased, deduplicated field names nominated by
// the Vary header of a response, and whether it contains "*".
//
// §     A stored response with a Vary header field value containing a member
// §     "*" always fails to match.
func VaryFields(header http.Header) (fields []string, wildcard bool) {
	seen := make(map[string]bool)
	for _, name := range ListValues(header, "Vary") {
		name = strings.ToLower(name)
		if name == "*" {
			wildcard = true
			continue
		}
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	return fields, wildcard
}

// SelectedFields returns the request header values nominated by vary, in
// the form "name: value". Absent fields are left out.
//
// §     The header fields from two requests are defined to match if and only
// §     if those in the first request can be transformed to those in the
// §     second request by applying any of the following:
// §
// §     *  adding or removing whitespace, where allowed in the header field's
// §        syntax
// §
// §     *  combining multiple header field lines with the same field name
// §        (see Section 5.2 of [HTTP])
// §
// §     [...]
// §
// §     If (after any normalization that might take place) a header field is
// §     absent from a request, it can only match another request if it is
// §     also absent there.
func SelectedFields(req http.Header, vary []string) []string {
	var selected []string
	for _, name := range vary {
		if fieldAbsent(req, name) {
			continue
		}
		values := ListValues(req, name)
		selected = append(selected, strings.ToLower(name)+": "+strings.Join(values, ", "))
	}
	return selected
}

// ListValues splits all lines of a list-based field into trimmed members.
func ListValues(header http.Header, name string) []string {
	var members []string
	for _, line := range header.Values(name) {
		for _, member := range strings.Split(line, ",") {
			if member = strings.TrimSpace(member); member != "" {
				members = append(members, member)
			}
		}
	}
	return members
}

func fieldAbsent(header http.Header, name string) bool {
	return len(header.Values(name)) == 0
}
