package fetcher

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ysmood/gson"

	"github.com/woedy/ProxyHome/internal/config"
	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/support"
)

var (
	webshareListURL = "https://proxy.webshare.io/api/v2/proxy/list/"

	oxylabsEndpoints = []string{
		"pr.oxylabs.io:10000",
		"pr.oxylabs.io:10001",
		"pr.oxylabs.io:10002",
		"pr.oxylabs.io:10003",
		"pr.oxylabs.io:10004",
	}

	brightDataEndpoints = []string{
		"zproxy.lum-superproxy.io:22225",
		"zproxy.lum-superproxy.io:22226",
		"zproxy.lum-superproxy.io:22227",
	}

	iproyalFreeListURL = "https://iproyal.com/free-proxy-list/"
)

// premiumSources assembles the tier 1 source list from whatever credentials
// the caller passed in. Services without credentials are skipped with a log
// line. The iproyal free list needs no credentials and always runs.
func premiumSources(creds config.PremiumCredentials) []Source {
	var sources []Source

	if creds.HasWebshare() {
		sources = append(sources, Source{Name: "webshare", Fetch: func(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
			return fetchWebshare(ctx, f, creds.WebshareAPIKey)
		}})
	} else {
		log.Info("Webshare API key not configured, skipping")
	}

	if creds.HasOxylabs() {
		sources = append(sources, Source{Name: "oxylabs", Fetch: func(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
			return fetchOxylabs(ctx, f, creds.OxylabsUsername, creds.OxylabsPassword)
		}})
	} else {
		log.Info("Oxylabs credentials not configured, skipping")
	}

	if creds.HasBrightData() {
		sources = append(sources, Source{Name: "brightdata", Fetch: func(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
			return fetchBrightData(ctx, f, creds.BrightDataUsername, creds.BrightDataPassword, creds.BrightDataZone)
		}})
	} else {
		log.Info("Bright Data credentials not configured, skipping")
	}

	sources = append(sources, Source{Name: "iproyal", Fetch: fetchIPRoyalFree})
	return sources
}

// fetchWebshare lists the account's proxies through the Webshare API. Every
// entry serves both http and socks5, so each yields two candidates.
func fetchWebshare(ctx context.Context, f *Fetcher, apiKey string) ([]domain.Candidate, error) {
	headers := map[string]string{
		"Authorization": "Token " + apiKey,
		"Content-Type":  "application/json",
	}
	body, err := f.client.FetchAPI(ctx, webshareListURL, headers)
	if err != nil {
		return nil, fmt.Errorf("webshare proxy list: %w", err)
	}

	var out []domain.Candidate
	for _, item := range gson.NewFrom(body).Get("results").Arr() {
		address := jsonField(item, "proxy_address")
		portJSON := item.Get("port")
		if address == "" || portJSON.Nil() {
			continue
		}
		port, ok := intPort(portJSON.Int())
		if !ok {
			continue
		}

		location := f.locate(ctx, address)
		username := jsonField(item, "username")
		password := jsonField(item, "password")

		for _, protocol := range []string{support.ProtocolHTTP, support.ProtocolSOCKS5} {
			candidate := newCandidate(endpoint{Address: address, Port: port}, protocol, domain.TierPremium, "webshare", location)
			candidate.Username = username
			candidate.Password = password
			candidate.Premium = true
			out = append(out, candidate)
		}
	}
	return out, nil
}

// fetchOxylabs expands the static datacenter gateway endpoints. There is no
// list API; the account credentials apply to every endpoint.
func fetchOxylabs(ctx context.Context, f *Fetcher, username, password string) ([]domain.Candidate, error) {
	var out []domain.Candidate
	for _, gateway := range oxylabsEndpoints {
		host, portRaw, err := net.SplitHostPort(gateway)
		if err != nil {
			continue
		}
		port, ok := parsePort(portRaw)
		if !ok {
			continue
		}

		location := f.locate(ctx, host)
		for _, protocol := range []string{support.ProtocolHTTP, support.ProtocolSOCKS5} {
			candidate := newCandidate(endpoint{Address: host, Port: port}, protocol, domain.TierPremium, "oxylabs", location)
			candidate.Username = username
			candidate.Password = password
			candidate.Premium = true
			out = append(out, candidate)
		}
	}
	return out, nil
}

// fetchBrightData expands the superproxy endpoints with zone-scoped session
// usernames, one fresh session per endpoint.
func fetchBrightData(ctx context.Context, f *Fetcher, username, password, zone string) ([]domain.Candidate, error) {
	var out []domain.Candidate
	for i, gateway := range brightDataEndpoints {
		host, portRaw, err := net.SplitHostPort(gateway)
		if err != nil {
			continue
		}
		port, ok := parsePort(portRaw)
		if !ok {
			continue
		}

		sessionID := fmt.Sprintf("session-%d-%d", time.Now().Unix(), i)
		authUsername := fmt.Sprintf("%s-session-%s-zone-%s", username, sessionID, zone)

		location := f.locate(ctx, host)
		for _, protocol := range []string{support.ProtocolHTTP, support.ProtocolSOCKS5} {
			candidate := newCandidate(endpoint{Address: host, Port: port}, protocol, domain.TierPremium, "brightdata", location)
			candidate.Username = authUsername
			candidate.Password = password
			candidate.Premium = true
			out = append(out, candidate)
		}
	}
	return out, nil
}

// fetchIPRoyalFree scrapes the iproyal free list. The endpoints take http
// and socks4 and carry no credentials, so they stay unflagged even though
// the source runs in the premium tier.
func fetchIPRoyalFree(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	html, err := f.client.FetchPage(ctx, iproyalFreeListURL)
	if err != nil {
		return nil, fmt.Errorf("iproyal free list: %w", err)
	}

	var out []domain.Candidate
	for _, ep := range extractEndpoints(html, 10) {
		location := f.locate(ctx, ep.Address)
		for _, protocol := range []string{support.ProtocolHTTP, support.ProtocolSOCKS4} {
			out = append(out, newCandidate(ep, protocol, domain.TierPremium, "iproyal", location))
		}
	}
	return out, nil
}
