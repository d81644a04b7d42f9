package investigator

import (
	"context"
	"net/http"

	"github.com/always-cache/cache-investigator/analyzer"
	"github.com/always-cache/cache-investigator/probe"
)

// Fetcher issues a single GET. Implemented by probe.HTTPClient.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, header http.Header) (*probe.FetchResult, error)
}

// CacheProber runs the double-hit probe. Implemented by probe.DoubleHitProber.
type CacheProber interface {
	Probe(ctx context.Context, rawURL string) (*probe.CacheProbe, error)
}

// Resolver is implemented by probe.DNS.
type Resolver interface {
	Lookup(ctx context.Context, rawURL string) (*probe.DNSResult, error)
}

// WordPressProber is implemented by probe.WordPress.
type WordPressProber interface {
	SiteHealth(ctx context.Context, rawURL string) (*probe.WordPressInfo, error)
}

// Analyzer is implemented by analyzer.Analyzer.
type Analyzer interface {
	Analyze(page *probe.FetchResult, cacheProbe *probe.CacheProbe) *analyzer.Analysis
}
