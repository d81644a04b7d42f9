package analyzer

const (
	KindPageCache    = "page-cache"
	KindOptimization = "optimization"
)

// A rule matches when any header contains its substring (an empty
// substring only requires presence) or any marker is found in the page.
type rule struct {
	name    string
	kind    string
	headers map[string]string
	markers []string
}

var pluginRules = []rule{
	{
		name:    "WP Rocket",
		kind:    KindPageCache,
		headers: map[string]string{"x-rocket-nginx-bypass": ""},
		markers: []string{"this website is like a rocket", "/wp-content/cache/wp-rocket/", "/wp-content/plugins/wp-rocket/"},
	},
	{
		name:    "W3 Total Cache",
		kind:    KindPageCache,
		headers: map[string]string{"x-powered-by": "w3 total cache"},
		markers: []string{"performance optimized by w3 total cache", "/wp-content/plugins/w3-total-cache/"},
	},
	{
		name:    "WP Super Cache",
		kind:    KindPageCache,
		headers: map[string]string{"wp-super-cache": ""},
		markers: []string{"cached page generated by wp-super-cache", "/wp-content/plugins/wp-super-cache/"},
	},
	{
		name:    "LiteSpeed Cache",
		kind:    KindPageCache,
		headers: map[string]string{"x-litespeed-cache": "", "x-litespeed-cache-control": ""},
		markers: []string{"page optimized by litespeed cache", "/wp-content/plugins/litespeed-cache/", "/wp-content/litespeed/"},
	},
	{
		name:    "WP Fastest Cache",
		kind:    KindPageCache,
		markers: []string{"wp fastest cache file was created", "/wp-content/plugins/wp-fastest-cache/"},
	},
	{
		name:    "Cache Enabler",
		kind:    KindPageCache,
		headers: map[string]string{"x-cache-handler": "cache-enabler"},
		markers: []string{"cache enabler by keycdn", "/wp-content/plugins/cache-enabler/"},
	},
	{
		name:    "Comet Cache",
		kind:    KindPageCache,
		markers: []string{"comet cache is serving this page", "/wp-content/plugins/comet-cache/"},
	},
	{
		name:    "Breeze",
		kind:    KindPageCache,
		markers: []string{"cache served by breeze", "/wp-content/plugins/breeze/"},
	},
	{
		name:    "SG Optimizer",
		kind:    KindPageCache,
		headers: map[string]string{"x-optimized-by": "sg optimizer"},
		markers: []string{"/wp-content/plugins/sg-cachepress/", "/wp-content/plugins/speed-optimizer/"},
	},
	{
		name:    "Hummingbird",
		kind:    KindPageCache,
		headers: map[string]string{"hummingbird-cache": ""},
		markers: []string{"hummingbird cache file was created", "/wp-content/plugins/hummingbird-performance/", "/wp-content/plugins/wp-hummingbird/"},
	},
	{
		name:    "Autoptimize",
		kind:    KindOptimization,
		markers: []string{"/wp-content/cache/autoptimize/", "/wp-content/plugins/autoptimize/"},
	},
}

var cdnRules = []rule{
	{name: "Cloudflare", headers: map[string]string{"cf-ray": "", "cf-cache-status": "", "server": "cloudflare"}},
	{name: "CloudFront", headers: map[string]string{"x-amz-cf-id": "", "x-amz-cf-pop": "", "via": "cloudfront"}},
	{name: "Fastly", headers: map[string]string{"x-fastly-request-id": "", "fastly-debug-digest": "", "x-served-by": "cache-"}},
	{name: "Akamai", headers: map[string]string{"x-akamai-transformed": "", "akamai-grn": "", "server": "akamaighost"}},
	{name: "Sucuri", headers: map[string]string{"x-sucuri-id": "", "x-sucuri-cache": "", "server": "sucuri"}},
	{name: "KeyCDN", headers: map[string]string{"server": "keycdn", "x-edge-location": ""}},
	{name: "BunnyCDN", headers: map[string]string{"cdn-pullzone": "", "cdn-requestid": "", "server": "bunnycdn"}},
	{name: "Varnish", headers: map[string]string{"x-varnish": "", "via": "varnish"}},
}

// Hosts listed with a server-level page cache.
var hostingRules = []struct {
	rule
	serverCache bool
}{
	{rule{name: "Kinsta", headers: map[string]string{"x-kinsta-cache": "", "ki-cache-type": ""}}, true},
	{rule{name: "WP Engine", headers: map[string]string{"x-wpe-cached": "", "wpe-backend": "", "x-powered-by": "wp engine"}}, true},
	{rule{name: "SiteGround", headers: map[string]string{"x-proxy-cache-info": "", "x-sg-cache": ""}, markers: []string{"/wp-content/plugins/sg-cachepress/"}}, true},
	{rule{name: "Cloudways", headers: map[string]string{"x-cloudways-cache": "", "server": "cloudways"}}, false},
	{rule{name: "Pantheon", headers: map[string]string{"x-pantheon-styx-hostname": "", "x-styx-req-id": ""}}, true},
	{rule{name: "Flywheel", headers: map[string]string{"x-fw-hash": "", "x-fw-serve": "", "x-fw-server": ""}}, true},
	{rule{name: "LiteSpeed", headers: map[string]string{"server": "litespeed"}}, false},
}

var wordPressMarkers = []string{"/wp-content/", "/wp-includes/", "api.w.org", "wp-json"}
