package geo

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
	"github.com/ysmood/gson"
)

// Location is what a geolocation provider could tell us about an address.
// Fields a provider does not know keep their Unknown defaults.
type Location struct {
	Country     string
	CountryCode string
	Region      string
	City        string
	Timezone    string
}

func UnknownLocation() Location {
	return Location{
		Country:     "Unknown",
		CountryCode: "XX",
		Region:      "Unknown",
		City:        "Unknown",
		Timezone:    "Unknown",
	}
}

// Service is a remote geolocation endpoint. A %s in Prefix marks where the
// address goes; without one the address is appended. Name selects the
// response dialect.
type Service struct {
	Name   string
	Prefix string
}

func (s Service) url(address string) string {
	if strings.Contains(s.Prefix, "%s") {
		return fmt.Sprintf(s.Prefix, address)
	}
	return s.Prefix + address
}

func DefaultServices() []Service {
	return []Service{
		{Name: "ip-api", Prefix: "http://ip-api.com/json/"},
		{Name: "ipapi.co", Prefix: "https://ipapi.co/%s/json/"},
		{Name: "ipinfo", Prefix: "https://ipinfo.io/"},
	}
}

type Config struct {
	HTTPClient  *http.Client
	MaxMindPath string
	Services    []Service
}

type Option func(*Config)

type Locator struct {
	client   *http.Client
	reader   *geoip2.Reader
	services []Service

	mu    sync.RWMutex
	cache map[string]Location
}

// New builds a locator. A local MaxMind database is consulted first when
// configured; remote services are tried in order after it.
func New(opts ...Option) *Locator {
	cfg := Config{
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Services:   DefaultServices(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	locator := &Locator{
		client:   cfg.HTTPClient,
		services: cfg.Services,
		cache:    make(map[string]Location),
	}

	if cfg.MaxMindPath != "" {
		reader, err := geoip2.Open(cfg.MaxMindPath)
		if err != nil {
			log.Warn("Geolocation database unavailable, falling back to remote services", "path", cfg.MaxMindPath, "error", err)
		} else {
			locator.reader = reader
		}
	}

	return locator
}

func (l *Locator) Close() error {
	if l.reader == nil {
		return nil
	}
	return l.reader.Close()
}

// Lookup resolves an address through the full provider chain. It never
// fails; addresses nobody recognizes come back with Unknown fields.
func (l *Locator) Lookup(ctx context.Context, address string) Location {
	return l.lookup(ctx, address, len(l.services))
}

// LookupSingle consults only the local database and the first remote
// service. Cheap harvest tiers use this to keep lookup volume down.
func (l *Locator) LookupSingle(ctx context.Context, address string) Location {
	return l.lookup(ctx, address, 1)
}

func (l *Locator) lookup(ctx context.Context, address string, maxServices int) Location {
	if address == "" {
		return UnknownLocation()
	}

	if cached, ok := l.cached(address); ok {
		return cached
	}

	location, found := l.lookupMaxMind(address)
	if !found {
		location = UnknownLocation()
		for idx, service := range l.services {
			if idx >= maxServices {
				break
			}
			resolved, ok := l.lookupRemote(ctx, service, address)
			if ok {
				location = resolved
				break
			}
		}
	}

	l.store(address, location)
	return location
}

func (l *Locator) cached(address string) (Location, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	location, ok := l.cache[address]
	return location, ok
}

func (l *Locator) store(address string, location Location) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[address] = location
}

func (l *Locator) lookupMaxMind(address string) (Location, bool) {
	if l.reader == nil {
		return Location{}, false
	}

	parsed := net.ParseIP(address)
	if parsed == nil {
		return Location{}, false
	}

	record, err := l.reader.City(parsed)
	if err != nil || record == nil || record.Country.IsoCode == "" {
		return Location{}, false
	}

	location := UnknownLocation()
	if name := record.Country.Names["en"]; name != "" {
		location.Country = name
	}
	location.CountryCode = record.Country.IsoCode
	if len(record.Subdivisions) > 0 {
		if name := record.Subdivisions[0].Names["en"]; name != "" {
			location.Region = name
		}
	}
	if name := record.City.Names["en"]; name != "" {
		location.City = name
	}
	if tz := record.Location.TimeZone; tz != "" {
		location.Timezone = tz
	}

	return location, true
}

func (l *Locator) lookupRemote(ctx context.Context, service Service, address string) (Location, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, service.url(address), nil)
	if err != nil {
		return Location{}, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return Location{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Location{}, false
	}

	return parseRemotePayload(service.Name, string(body))
}

func parseRemotePayload(name, payload string) (Location, bool) {
	obj := gson.NewFrom(payload)
	location := UnknownLocation()

	switch name {
	case "ip-api":
		if obj.Get("country").Nil() || obj.Get("countryCode").Nil() {
			return Location{}, false
		}
		location.Country = obj.Get("country").Str()
		location.CountryCode = obj.Get("countryCode").Str()
		if !obj.Get("regionName").Nil() {
			location.Region = obj.Get("regionName").Str()
		}
		if !obj.Get("city").Nil() {
			location.City = obj.Get("city").Str()
		}
		if !obj.Get("timezone").Nil() {
			location.Timezone = obj.Get("timezone").Str()
		}
		return location, true

	case "ipapi.co":
		if obj.Get("country_name").Nil() {
			return Location{}, false
		}
		location.Country = obj.Get("country_name").Str()
		if !obj.Get("country_code").Nil() {
			location.CountryCode = obj.Get("country_code").Str()
		}
		if !obj.Get("region").Nil() {
			location.Region = obj.Get("region").Str()
		}
		if !obj.Get("city").Nil() {
			location.City = obj.Get("city").Str()
		}
		if !obj.Get("timezone").Nil() {
			location.Timezone = obj.Get("timezone").Str()
		}
		return location, true

	case "ipinfo":
		// ipinfo reports the country as a bare ISO code.
		if obj.Get("country").Nil() {
			return Location{}, false
		}
		location.CountryCode = obj.Get("country").Str()
		if !obj.Get("region").Nil() {
			location.Region = obj.Get("region").Str()
		}
		if !obj.Get("city").Nil() {
			location.City = obj.Get("city").Str()
		}
		if !obj.Get("timezone").Nil() {
			location.Timezone = obj.Get("timezone").Str()
		}
		return location, true

	default:
		return Location{}, false
	}
}
