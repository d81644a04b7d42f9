package probe

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

type DNSResult struct {
	Hostname    string   `json:"hostname"`
	Addresses   []string `json:"addresses"`
	CNAMEs      []string `json:"cnames"`
	Nameservers []string `json:"nameservers"`
	Detected    string   `json:"detected,omitempty"`
}

// NameResolver is the subset of *net.Resolver used for lookups.
type NameResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// DNS resolves the target hostname and guesses the edge provider
// from its CNAME chain and nameservers.
type DNS struct {
	Resolver NameResolver
}

func NewDNS() *DNS {
	return &DNS{Resolver: net.DefaultResolver}
}

var dnsProviders = []struct {
	name     string
	suffixes []string
}{
	{"Cloudflare", []string{".cdn.cloudflare.net", ".ns.cloudflare.com"}},
	{"CloudFront", []string{".cloudfront.net"}},
	{"Fastly", []string{".fastly.net", ".fastlylb.net"}},
	{"Akamai", []string{".akamaiedge.net", ".edgekey.net", ".edgesuite.net", ".akamai.net"}},
	{"Sucuri", []string{".sucuri.net", ".sucuridns.com"}},
	{"Kinsta", []string{".kinsta.cloud", ".kinstacdn.com"}},
	{"WP Engine", []string{".wpengine.com", ".wpenginepowered.com"}},
	{"SiteGround", []string{".sgvps.net", ".siteground.net"}},
	{"Vercel", []string{".vercel-dns.com", ".vercel.app"}},
	{"Netlify", []string{".netlify.app", ".netlify.com"}},
}

func (d *DNS) Lookup(ctx context.Context, rawURL string) (*DNSResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("no hostname in %q", rawURL)
	}

	result := &DNSResult{Hostname: host}
	result.Addresses, err = d.Resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", host, err)
	}
	if cname, err := d.Resolver.LookupCNAME(ctx, host); err == nil {
		cname = strings.TrimSuffix(cname, ".")
		if cname != "" && !strings.EqualFold(cname, host) {
			result.CNAMEs = append(result.CNAMEs, cname)
		}
	}
	// nameservers live on the zone apex, walk up until one answers
	for name := host; strings.Count(name, ".") >= 1; {
		if nss, err := d.Resolver.LookupNS(ctx, name); err == nil && len(nss) > 0 {
			for _, ns := range nss {
				result.Nameservers = append(result.Nameservers, strings.TrimSuffix(ns.Host, "."))
			}
			break
		}
		_, parent, _ := strings.Cut(name, ".")
		name = parent
	}
	result.Detected = detectProvider(append(append([]string{}, result.CNAMEs...), result.Nameservers...))
	return result, nil
}

func detectProvider(names []string) string {
	for _, provider := range dnsProviders {
		for _, name := range names {
			name = "." + strings.ToLower(name)
			for _, suffix := range provider.suffixes {
				if strings.HasSuffix(name, suffix) {
					return provider.name
				}
			}
		}
	}
	return ""
}
