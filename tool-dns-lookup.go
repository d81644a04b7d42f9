package investigator

import "context"

var dnsLookupTool = typedTool[urlInput]{
	name: "dns_lookup",
	description: "Resolve the hostname of a URL: addresses, CNAME chain and nameservers, " +
		"plus the CDN or host they point to when recognizable.",
	inputSchema: urlInputSchema,
	handler:     dnsLookup,
}

func dnsLookup(ctx context.Context, inv *Investigator, s *Session, in urlInput) (string, error) {
	ctx, cancel := inv.callContext(ctx)
	defer cancel()
	res, err := inv.config.Resolver.Lookup(ctx, in.URL)
	if err != nil {
		return "", err
	}
	return toJSON(res)
}
