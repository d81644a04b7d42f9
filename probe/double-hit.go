package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultDelay between the two requests of the double-hit probe.
const DefaultDelay = 500 * time.Millisecond

// DoubleHitProber requests the same URL twice. A cache that stored the
// first response should serve the second one, faster and marked as a hit.
type DoubleHitProber struct {
	Fetcher Fetcher
	Delay   time.Duration
}

func NewDoubleHitProber(fetcher Fetcher) *DoubleHitProber {
	return &DoubleHitProber{Fetcher: fetcher, Delay: DefaultDelay}
}

func (p *DoubleHitProber) Probe(ctx context.Context, rawURL string) (*CacheProbe, error) {
	pair, err := Twice(ctx, p.Fetcher, rawURL, nil, p.Delay)
	if err != nil {
		return nil, err
	}
	return &CacheProbe{DoubleHit: pair, Delay: p.Delay}, nil
}

// Twice fetches rawURL two times, delay apart, with the same headers.
func Twice(ctx context.Context, fetcher Fetcher, rawURL string, header http.Header, delay time.Duration) (HitPair, error) {
	first, err := fetcher.Fetch(ctx, rawURL, header)
	if err != nil {
		return HitPair{}, fmt.Errorf("first request: %w", err)
	}
	if err := Sleep(ctx, delay); err != nil {
		return HitPair{}, err
	}
	second, err := fetcher.Fetch(ctx, rawURL, header)
	if err != nil {
		return HitPair{}, fmt.Errorf("second request: %w", err)
	}
	return HitPair{First: first, Second: second}, nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
