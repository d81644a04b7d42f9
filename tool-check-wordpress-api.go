package investigator

import "context"

var checkWordPressAPITool = typedTool[urlInput]{
	name: "check_wordpress_api",
	description: "Inspect the WordPress REST API of the site: version, site name, registered " +
		"namespaces, plugins exposing REST routes and the page cache site health test when public.",
	inputSchema: urlInputSchema,
	handler:     checkWordPressAPI,
}

func checkWordPressAPI(ctx context.Context, inv *Investigator, s *Session, in urlInput) (string, error) {
	ctx, cancel := inv.callContext(ctx)
	defer cancel()
	info, err := inv.config.WordPress.SiteHealth(ctx, in.URL)
	if err != nil {
		return "", err
	}
	return toJSON(info)
}
