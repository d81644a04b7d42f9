package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
)

func TestSiteHealthReadsRESTIndex(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/wp-json/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"My Blog","description":"Just another site","namespaces":["oembed/1.0","litespeed/v1","wp/v2","acme-forms/v2","wp-site-health/v1"]}`))
	})
	r.Get("/wp-json/wp-site-health/v1/tests/page-cache", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta name="generator" content="WordPress 6.5.2"></head></html>`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	info, err := NewWordPress(NewHTTPClient(Config{})).SiteHealth(context.Background(), srv.URL+"/some/page")
	if err != nil {
		t.Fatal(err)
	}
	want := &WordPressInfo{
		IsWordPress: true,
		Version:     "6.5.2",
		Name:        "My Blog",
		Description: "Just another site",
		Namespaces:  []string{"oembed/1.0", "litespeed/v1", "wp/v2", "acme-forms/v2", "wp-site-health/v1"},
		RESTPlugins: []string{"LiteSpeed Cache", "acme-forms"},
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestSiteHealthNotWordPress(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	info, err := NewWordPress(NewHTTPClient(Config{})).SiteHealth(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if info.IsWordPress || info.Error == "" {
		t.Fatalf("Info is %+v", info)
	}
}

func TestGeneratorVersion(t *testing.T) {
	if v := GeneratorVersion([]byte(`<meta content="WordPress 6.4" name="Generator" />`)); v != "6.4" {
		t.Fatalf("Version is %q", v)
	}
	if v := GeneratorVersion([]byte(`<meta name="generator" content="Hugo 0.120">`)); v != "" {
		t.Fatalf("Version is %q", v)
	}
}
