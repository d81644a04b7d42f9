package rfc9111

import (
	"strings"
	"time"
)

// §  4.2.4.  Serving Stale Responses
// §
// §     A "stale" response is one that either has explicit expiry information
// §     or is allowed to have heuristic expiry calculated, but is not fresh
// §     according to the calculations in Section 4.2.
// §
// §     A cache MUST NOT generate a stale response if it is prohibited by an
// §     explicit in-protocol directive (e.g., by a no-cache response
// §     directive, a must-revalidate response directive, or an applicable
// §     s-maxage or proxy-revalidate response directive; see Section 5.2.2).
// §
// §     A cache MUST NOT generate a stale response unless it is disconnected
// §     or doing so is explicitly permitted by the client or origin server
// §     (e.g., by the max-stale request directive in Section 5.2.1, extension
// §     directives such as those defined in [RFC5861], [...]).

// StalePolicy is what the origin allows a shared cache to do once a
// response turns stale.
type StalePolicy struct {
	// RFC 5861 extension directives
	WhileRevalidate time.Duration
	IfError         time.Duration
	// set when no-cache, must-revalidate, proxy-revalidate or s-maxage
	// forbid serving stale
	Forbidden bool
}

func (c CacheControl) StalePolicy() StalePolicy {
	var p StalePolicy
	p.WhileRevalidate, _ = c.getDeltaSeconds("stale-while-revalidate")
	p.IfError, _ = c.getDeltaSeconds("stale-if-error")
	_, sMaxAge := c.SMaxAge()
	p.Forbidden = c.NoCache() || c.HasDirective("must-revalidate") || c.HasDirective("proxy-revalidate") || sMaxAge
	return p
}

// String renders the policy the way it would appear in Cache-Control.
func (p StalePolicy) String() string {
	if p.Forbidden {
		return "never serve stale"
	}
	if p.WhileRevalidate == 0 && p.IfError == 0 {
		return "not permitted"
	}
	var parts []string
	if p.WhileRevalidate > 0 {
		parts = append(parts, "stale-while-revalidate="+toDeltaSeconds(p.WhileRevalidate))
	}
	if p.IfError > 0 {
		parts = append(parts, "stale-if-error="+toDeltaSeconds(p.IfError))
	}
	return strings.Join(parts, ", ")
}
