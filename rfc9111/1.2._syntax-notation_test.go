package rfc9111

import (
	"net/http"
	"testing"
	"time"
)

func TestToDeltaSeconds(t *testing.T) {
	fiveSeconds := 5 * time.Second
	if s := toDeltaSeconds(fiveSeconds); s != "5" {
		t.Fatalf("Delta seconds is %s", s)
	}
}

func TestDeltaSecondsOverflow(t *testing.T) {
	if d := deltaSeconds("99999999999999999999999"); d != time.Second*(1<<31) {
		t.Fatalf("Overflow is %v", d)
	}
	if d := deltaSeconds("nope"); d != 0 {
		t.Fatalf("Invalid is %v", d)
	}
}

func TestHttpDateRFC850(t *testing.T) {
	_, err := HttpDate("Thursday, 18-Aug-50 02:01:18 GMT")
	if err != nil {
		t.Fatalf("Error parsing date %+v", err)
	}
}

func TestHttpDateTZCase(t *testing.T) {
	date, err := HttpDate("Thu, 18 Aug 2050 02:01:18 gMT")
	if err != nil {
		t.Fatalf("Error parsing date %+v", err)
	}
	if date.Year() != 2050 || date.Hour() != 2 {
		t.Fatalf("Parsed %v", date)
	}
}

func TestHttpDateGarbage(t *testing.T) {
	if _, err := HttpDate("0"); err == nil {
		t.Fatal("Expected error")
	}
}

func TestInitialAge(t *testing.T) {
	requested := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	received := requested.Add(2 * time.Second)

	// Age plus the response delay
	header := http.Header{"Age": {"60"}, "Date": {"Mon, 01 Jan 2024 00:00:00 GMT"}}
	if age := InitialAge(header, requested, received); age != 62*time.Second {
		t.Fatalf("Age is %s", age)
	}
	// apparent age wins when the Date is older than Age claims
	header = http.Header{"Age": {"10"}, "Date": {"Sun, 31 Dec 2023 23:58:00 GMT"}}
	if age := InitialAge(header, requested, received); age != 122*time.Second {
		t.Fatalf("Age is %s", age)
	}
	if age := CurrentAge(header, requested, received, received.Add(time.Minute)); age != 182*time.Second {
		t.Fatalf("Current age is %s", age)
	}
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !IsFresh(http.Header{"Cache-Control": {"max-age=60"}, "Age": {"30"}}, now, now) {
		t.Error("max-age=60 with Age 30 should be fresh")
	}
	if IsFresh(http.Header{"Cache-Control": {"max-age=60"}, "Age": {"60"}}, now, now) {
		t.Error("max-age=60 with Age 60 should be stale")
	}
}

func TestHeuristicFreshness(t *testing.T) {
	header := http.Header{
		"Date":          {"Thu, 11 Jan 2024 00:00:00 GMT"},
		"Last-Modified": {"Mon, 01 Jan 2024 00:00:00 GMT"},
	}
	f := FreshnessLifetime(header, time.Now())
	if f.Source != "heuristic" || f.Explicit || f.Lifetime != 24*time.Hour {
		t.Fatalf("Freshness is %+v", f)
	}
	if f.String() != "heuristic=86400s" {
		t.Fatalf("String is %s", f.String())
	}
}
