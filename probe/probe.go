// Package probe talks to the site under investigation: plain fetches with
// first-byte timing, the double-hit cache probe, DNS and the WordPress REST API.
package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Timing of a single request. TTFB is measured from the moment the request
// is written until the first response byte arrives.
type Timing struct {
	TTFB  time.Duration `json:"-"`
	Total time.Duration `json:"-"`
}

// MarshalJSON reports durations in milliseconds.
func (t Timing) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TTFB  int64 `json:"ttfb"`
		Total int64 `json:"total"`
	}{t.TTFB.Milliseconds(), t.Total.Milliseconds()})
}

// UnmarshalJSON reads the millisecond form written by MarshalJSON.
func (t *Timing) UnmarshalJSON(data []byte) error {
	var ms struct {
		TTFB  int64 `json:"ttfb"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	t.TTFB = time.Duration(ms.TTFB) * time.Millisecond
	t.Total = time.Duration(ms.Total) * time.Millisecond
	return nil
}

// FetchResult is what a single GET returned.
type FetchResult struct {
	URL        string      `json:"url"`
	StatusCode int         `json:"statusCode"`
	Header     http.Header `json:"headers"`
	// Body is capped, see Config.MaxBodySize.
	Body      []byte    `json:"-"`
	BodySize  int       `json:"bodySize"`
	Truncated bool      `json:"truncated,omitempty"`
	Timing    Timing    `json:"timing"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// HitPair holds two consecutive requests for the same resource.
type HitPair struct {
	First  *FetchResult `json:"firstRequest"`
	Second *FetchResult `json:"secondRequest"`
}

// CacheProbe is the outcome of the double-hit probe.
type CacheProbe struct {
	DoubleHit HitPair       `json:"doubleHit"`
	Delay     time.Duration `json:"-"`
}

// Fetcher is implemented by HTTPClient.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, header http.Header) (*FetchResult, error)
}
