package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestLookupUsesFirstRecognizedService(t *testing.T) {
	ipAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"country":"Germany","countryCode":"DE","regionName":"Berlin","city":"Berlin","timezone":"Europe/Berlin"}`))
	}))
	defer ipAPI.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("fallback service was called even though the first one answered")
	}))
	defer fallback.Close()

	locator := New(func(cfg *Config) {
		cfg.Services = []Service{
			{Name: "ip-api", Prefix: ipAPI.URL + "/"},
			{Name: "ipapi.co", Prefix: fallback.URL + "/"},
		}
	})

	location := locator.Lookup(context.Background(), "1.2.3.4")
	if location.Country != "Germany" || location.CountryCode != "DE" {
		t.Fatalf("Lookup returned %+v, want Germany/DE", location)
	}
	if location.Region != "Berlin" || location.City != "Berlin" || location.Timezone != "Europe/Berlin" {
		t.Fatalf("Lookup returned %+v, want Berlin fields", location)
	}
}

func TestLookupFallsThroughUnrecognizedPayloads(t *testing.T) {
	unrecognized := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer unrecognized.Close()

	recognized := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"country_name":"France","country_code":"FR","region":"IDF","city":"Paris","timezone":"Europe/Paris"}`))
	}))
	defer recognized.Close()

	locator := New(func(cfg *Config) {
		cfg.Services = []Service{
			{Name: "ip-api", Prefix: unrecognized.URL + "/"},
			{Name: "ipapi.co", Prefix: recognized.URL + "/"},
		}
	})

	location := locator.Lookup(context.Background(), "5.6.7.8")
	if location.Country != "France" || location.CountryCode != "FR" {
		t.Fatalf("Lookup returned %+v, want France/FR", location)
	}
}

func TestLookupDefaultsWhenNobodyAnswers(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	locator := New(func(cfg *Config) {
		cfg.Services = []Service{{Name: "ip-api", Prefix: down.URL + "/"}}
	})

	location := locator.Lookup(context.Background(), "9.9.9.9")
	want := UnknownLocation()
	if location != want {
		t.Fatalf("Lookup returned %+v, want all-unknown defaults", location)
	}
}

func TestLookupCachesPerAddress(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"country":"Japan","countryCode":"JP"}`))
	}))
	defer server.Close()

	locator := New(func(cfg *Config) {
		cfg.Services = []Service{{Name: "ip-api", Prefix: server.URL + "/"}}
	})

	for range 3 {
		locator.Lookup(context.Background(), "8.8.8.8")
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("remote service was called %d times, want 1", got)
	}
}

func TestLookupSingleStopsAfterFirstService(t *testing.T) {
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer first.Close()

	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("second service was called during a single-provider lookup")
	}))
	defer second.Close()

	locator := New(func(cfg *Config) {
		cfg.Services = []Service{
			{Name: "ip-api", Prefix: first.URL + "/"},
			{Name: "ipapi.co", Prefix: second.URL + "/"},
		}
	})

	location := locator.LookupSingle(context.Background(), "4.4.4.4")
	if location != UnknownLocation() {
		t.Fatalf("LookupSingle returned %+v, want defaults", location)
	}
}

func TestParseRemotePayloadIpinfoCodeOnly(t *testing.T) {
	location, ok := parseRemotePayload("ipinfo", `{"country":"US","region":"California","city":"Mountain View","timezone":"America/Los_Angeles"}`)
	if !ok {
		t.Fatal("parseRemotePayload rejected a valid ipinfo payload")
	}
	if location.Country != "Unknown" {
		t.Fatalf("ipinfo Country = %q, want Unknown (code-only provider)", location.Country)
	}
	if location.CountryCode != "US" || location.City != "Mountain View" {
		t.Fatalf("parseRemotePayload returned %+v", location)
	}
}
