package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent   = "cache-investigator/1.0 (+https://github.com/always-cache/cache-investigator)"
	DefaultMaxBodySize = 2 << 20
)

type Config struct {
	// User-Agent sent unless the caller sets one.
	UserAgent string
	// Outbound requests per second. Zero or less means unlimited.
	RequestsPerSecond float64
	// Bytes of body kept per response.
	MaxBodySize int64
	// Skip TLS verification, for staging sites with self-signed certificates.
	Insecure bool
	// Transport to use. http.DefaultTransport if nil.
	Transport http.RoundTripper
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

// HTTPClient fetches pages without following redirects, so that the
// headers of the exact URL asked for are reported.
type HTTPClient struct {
	client    http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
	log       zerolog.Logger
}

func NewHTTPClient(config Config) *HTTPClient {
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	c := &HTTPClient{
		userAgent: config.UserAgent,
		maxBody:   config.MaxBodySize,
		log:       logger.With().Str("component", "probe").Logger(),
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.maxBody <= 0 {
		c.maxBody = DefaultMaxBodySize
	}
	if config.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	transport := config.Transport
	if transport == nil && config.Insecure {
		transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	c.client = http.Client{
		Transport: transport,
		// do not follow redirects
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return c
}

// Fetch issues a GET for rawURL with the given extra headers.
// Deadlines are taken from ctx.
func (c *HTTPClient) Fetch(ctx context.Context, rawURL string, header http.Header) (*FetchResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var wroteRequest, firstByte time.Time
	trace := &httptrace.ClientTrace{
		WroteRequest: func(httptrace.WroteRequestInfo) {
			wroteRequest = time.Now()
		},
		GotFirstResponseByte: func() {
			firstByte = time.Now()
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	start := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	total := time.Since(start)

	result := &FetchResult{
		URL:        rawURL,
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Timing:     Timing{Total: total},
		FetchedAt:  start,
	}
	if int64(len(body)) > c.maxBody {
		body = body[:c.maxBody]
		result.Truncated = true
	}
	result.Body = body
	result.BodySize = len(body)
	if !firstByte.IsZero() {
		from := wroteRequest
		if from.IsZero() {
			from = start
		}
		result.Timing.TTFB = firstByte.Sub(from)
	}

	c.log.Trace().
		Str("url", rawURL).
		Int("status", res.StatusCode).
		Dur("ttfb", result.Timing.TTFB).
		Int("bytes", result.BodySize).
		Msg("Fetched")
	return result, nil
}
