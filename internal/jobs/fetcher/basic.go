package fetcher

import (
	"context"
	"fmt"

	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/support"
)

var (
	advancedNameURLs = []string{
		"https://advanced.name/freeproxy",
		"https://advanced.name/freeproxy?type=socks4",
		"https://advanced.name/freeproxy?type=socks5",
	}

	oneProxyURL = "https://oneproxy.pro/free-proxy/"

	proxyEliteURLs = []string{
		"https://proxyelite.info/free-proxy-list/",
		"https://proxyelite.info/free-proxy-list/?type=http",
		"https://proxyelite.info/free-proxy-list/?type=socks4",
	}

	proxyVerityURL = "https://proxyverity.com/"

	we1TownURL = "https://we1.town/en/free-proxy-list"

	fallbackGitHubURLs = []string{
		"https://raw.githubusercontent.com/Zaeem20/FREE_PROXIES_LIST/master/http.txt",
		"https://raw.githubusercontent.com/Zaeem20/FREE_PROXIES_LIST/master/socks4.txt",
		"https://raw.githubusercontent.com/hookzof/socks5_list/master/proxy.txt",
		"https://raw.githubusercontent.com/jetkai/proxy-list/main/online-proxies/txt/proxies-http.txt",
		"https://raw.githubusercontent.com/jetkai/proxy-list/main/online-proxies/txt/proxies-socks4.txt",
		"https://raw.githubusercontent.com/jetkai/proxy-list/main/online-proxies/txt/proxies-socks5.txt",
	}

	proxyScrapeURLs = []string{
		"https://api.proxyscrape.com/v2/?request=get&protocol=http&timeout=10000&country=all&ssl=all&anonymity=all",
		"https://api.proxyscrape.com/v2/?request=get&protocol=socks4&timeout=5000&country=all",
		"https://api.proxyscrape.com/v2/?request=get&protocol=socks5&timeout=5000&country=all",
	}
)

func basicSources() []Source {
	return []Source{
		{Name: "advanced.name", Fetch: fetchAdvancedName},
		{Name: "oneproxy.pro", Fetch: fetchOneProxy},
		{Name: "proxyelite.info", Fetch: fetchProxyElite},
		{Name: "proxyverity", Fetch: fetchProxyVerity},
		{Name: "we1.town", Fetch: fetchWe1Town},
		{Name: "github-fallback", Fetch: fetchFallbackGitHub},
		{Name: "proxyscrape-api", Fetch: fetchProxyScrape},
	}
}

func fetchAdvancedName(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	var out []domain.Candidate
	var lastErr error
	for _, pageURL := range advancedNameURLs {
		html, err := f.client.FetchPage(ctx, pageURL)
		if err != nil {
			lastErr = fmt.Errorf("advanced.name page %s: %w", pageURL, err)
			continue
		}

		protocol := protocolFromURL(pageURL)
		for _, ep := range extractEndpoints(html, 30) {
			location := f.locateBasic(ctx, ep.Address)
			out = append(out, newCandidate(ep, protocol, domain.TierBasic, "advanced.name", location))
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func fetchOneProxy(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	html, err := f.client.FetchPage(ctx, oneProxyURL)
	if err != nil {
		return nil, fmt.Errorf("oneproxy list: %w", err)
	}

	var out []domain.Candidate
	for _, ep := range extractEndpoints(html, 40) {
		location := f.locateBasic(ctx, ep.Address)
		out = append(out, newCandidate(ep, support.ProtocolHTTP, domain.TierBasic, "oneproxy.pro", location))
	}
	return out, nil
}

func fetchProxyElite(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	var out []domain.Candidate
	var lastErr error
	for _, pageURL := range proxyEliteURLs {
		html, err := f.client.FetchPage(ctx, pageURL)
		if err != nil {
			lastErr = fmt.Errorf("proxyelite page %s: %w", pageURL, err)
			continue
		}

		protocol := protocolFromURL(pageURL)
		for _, ep := range extractEndpoints(html, 25) {
			location := f.locateBasic(ctx, ep.Address)
			out = append(out, newCandidate(ep, protocol, domain.TierBasic, "proxyelite.info", location))
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func fetchProxyVerity(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	html, err := f.client.FetchPage(ctx, proxyVerityURL)
	if err != nil {
		return nil, fmt.Errorf("proxyverity list: %w", err)
	}

	var out []domain.Candidate
	for _, ep := range extractEndpoints(html, 35) {
		location := f.locateBasic(ctx, ep.Address)
		out = append(out, newCandidate(ep, support.ProtocolHTTP, domain.TierBasic, "proxyverity", location))
	}
	return out, nil
}

func fetchWe1Town(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	html, err := f.client.FetchPage(ctx, we1TownURL)
	if err != nil {
		return nil, fmt.Errorf("we1.town list: %w", err)
	}

	var out []domain.Candidate
	for _, ep := range extractEndpoints(html, 35) {
		location := f.locateBasic(ctx, ep.Address)
		out = append(out, newCandidate(ep, support.ProtocolHTTP, domain.TierBasic, "we1.town", location))
	}
	return out, nil
}

func fetchFallbackGitHub(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	var out []domain.Candidate
	var lastErr error
	for _, listURL := range fallbackGitHubURLs {
		text, err := f.client.FetchAPI(ctx, listURL, nil)
		if err != nil {
			lastErr = fmt.Errorf("github fallback list %s: %w", listURL, err)
			continue
		}

		protocol := protocolFromURL(listURL)
		for _, ep := range extractLines(text, 15) {
			location := f.locateBasic(ctx, ep.Address)
			out = append(out, newCandidate(ep, protocol, domain.TierBasic, "github-fallback", location))
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func fetchProxyScrape(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	var out []domain.Candidate
	var lastErr error
	for _, listURL := range proxyScrapeURLs {
		text, err := f.client.FetchAPI(ctx, listURL, nil)
		if err != nil {
			lastErr = fmt.Errorf("proxyscrape list %s: %w", listURL, err)
			continue
		}

		protocol := protocolFromURL(listURL)
		for _, ep := range extractLines(text, 20) {
			location := f.locateBasic(ctx, ep.Address)
			out = append(out, newCandidate(ep, protocol, domain.TierBasic, "proxyscrape-api", location))
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
