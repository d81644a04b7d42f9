package cachehit

import (
	"net/http"
	"testing"
)

func TestIsHitMap(t *testing.T) {
	tests := []struct {
		header map[string]string
		want   bool
	}{
		{map[string]string{"x-cache": "HIT from varnish"}, true},
		{map[string]string{"x-cache": "MISS"}, false},
		{map[string]string{"cf-cache-status": "cached"}, true},
		{map[string]string{"CF-Cache-Status": "HIT"}, true},
		{map[string]string{"x-cache": "not cached"}, false},
		{map[string]string{"x-served-by": "hit"}, false},
		{map[string]string{}, false},
	}
	for _, test := range tests {
		if got := IsHitMap(test.header); got != test.want {
			t.Errorf("%v: got %v, want %v", test.header, got, test.want)
		}
	}
}

func TestIsHitHeader(t *testing.T) {
	header := make(http.Header)
	if IsHit(header) {
		t.Fatal("Empty header is a hit")
	}
	header.Set("X-Cache", "MISS")
	header.Add("X-Cache", "HIT")
	if !IsHit(header) {
		t.Fatal("Second value should count")
	}
	header = make(http.Header)
	header.Set("X-LiteSpeed-Cache", "hit,private")
	if !IsHit(header) {
		t.Fatal("LiteSpeed hit not detected")
	}
}

func TestRelevant(t *testing.T) {
	header := make(http.Header)
	header.Set("X-Cache", "HIT")
	header.Set("Age", "12")
	header.Set("Content-Type", "text/html")
	relevant := Relevant(header)
	if len(relevant) != 2 || relevant["x-cache"] != "HIT" || relevant["age"] != "12" {
		t.Fatalf("Relevant is %v", relevant)
	}
}

func TestLookup(t *testing.T) {
	header := make(http.Header)
	header.Set("X-Cache", "MISS")
	header.Set("CF-Cache-Status", "HIT")
	if name, value, hit := Lookup(header); !hit || name != "cf-cache-status" || value != "HIT" {
		t.Fatalf("Lookup is %s %s %v", name, value, hit)
	}
	header.Set("CF-Cache-Status", "DYNAMIC")
	if name, value, hit := Lookup(header); hit || name != "x-cache" || value != "MISS" {
		t.Fatalf("Lookup is %s %s %v", name, value, hit)
	}
}
