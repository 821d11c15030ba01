package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ysmood/gson"

	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/geo"
	"github.com/woedy/ProxyHome/internal/support"
)

type protocolTarget struct {
	protocol string
	url      string
}

type githubRepo struct {
	name string
	urls []string
}

var (
	spysOneHTTPURL  = "https://spys.one/en/free-proxy-list/"
	spysOneSocksURL = "https://spys.one/en/socks-proxy-list/"

	hidemyNameURLs = []string{
		"https://hidemy.name/en/proxy-list/?type=h#list",
		"https://hidemy.name/en/proxy-list/?type=s#list",
	}

	geonodeListURL = "https://proxylist.geonode.com/api/proxy-list?limit=50&page=1&sort_by=lastChecked&sort_type=desc"

	proxyListsURLs = []string{
		"http://www.proxylists.net/http_highanon.txt",
		"http://www.proxylists.net/http.txt",
	}

	// socks-proxy.net lists both socks versions on the one page.
	freeProxyListTargets = []protocolTarget{
		{support.ProtocolHTTP, "https://free-proxy-list.net/"},
		{support.ProtocolSOCKS4, "https://www.socks-proxy.net/"},
		{support.ProtocolSOCKS5, "https://www.socks-proxy.net/"},
	}

	proxyNovaURL = "https://www.proxynova.com/proxy-server-list/"

	pubProxyURL = "http://pubproxy.com/api/proxy?limit=20&format=json&type=%s"

	iproyalPublicListURL = "https://iproyal.com/free-proxy-list/"

	githubRepos = []githubRepo{
		{"proxifly/free-proxy-list", []string{
			"https://raw.githubusercontent.com/proxifly/free-proxy-list/main/proxies/http.txt",
			"https://raw.githubusercontent.com/proxifly/free-proxy-list/main/proxies/socks4.txt",
			"https://raw.githubusercontent.com/proxifly/free-proxy-list/main/proxies/socks5.txt",
		}},
		{"TheSpeedX/PROXY-List", []string{
			"https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt",
			"https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/socks4.txt",
			"https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/socks5.txt",
		}},
		{"clarketm/proxy-list", []string{
			"https://raw.githubusercontent.com/clarketm/proxy-list/master/proxy-list-raw.txt",
		}},
		{"a2u/free-proxy-list", []string{
			"https://raw.githubusercontent.com/a2u/free-proxy-list/master/free-proxy-list.txt",
		}},
		{"monosans/proxy-list", []string{
			"https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/http.txt",
			"https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/socks4.txt",
			"https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/socks5.txt",
		}},
		{"TheSpeedX/SOCKS-List", []string{
			"https://raw.githubusercontent.com/TheSpeedX/SOCKS-List/master/socks4.txt",
			"https://raw.githubusercontent.com/TheSpeedX/SOCKS-List/master/socks5.txt",
		}},
		{"hookzof/socks5_list", []string{
			"https://raw.githubusercontent.com/hookzof/socks5_list/master/proxy.txt",
		}},
		{"gfpcom/free-proxy-list", []string{
			"https://raw.githubusercontent.com/gfpcom/free-proxy-list/main/proxies.txt",
		}},
	}
)

func publicSources() []Source {
	return []Source{
		{Name: "spys.one", Fetch: fetchSpysOne},
		{Name: "hidemy.name", Fetch: fetchHidemyName},
		{Name: "geonode", Fetch: fetchGeonode},
		{Name: "proxylists.net", Fetch: fetchProxyLists},
		{Name: "free-proxy-list.net", Fetch: fetchFreeProxyList},
		{Name: "proxynova", Fetch: fetchProxyNova},
		{Name: "pubproxy.com", Fetch: fetchPubProxy},
		{Name: "iproyal.com", Fetch: fetchIPRoyalPublic},
		{Name: "github", Fetch: fetchGitHubLists},
	}
}

// fetchSpysOne scrapes the protocol-specific listing pages. Rows on the
// socks page do not say which version they speak, so each endpoint is
// emitted as both socks4 and socks5 and the validator sorts it out.
func fetchSpysOne(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	pages := []struct {
		url       string
		protocols []string
	}{
		{spysOneHTTPURL, []string{support.ProtocolHTTP}},
		{spysOneSocksURL, []string{support.ProtocolSOCKS4, support.ProtocolSOCKS5}},
	}

	var out []domain.Candidate
	var lastErr error
	for _, page := range pages {
		html, err := f.client.FetchPage(ctx, page.url)
		if err != nil {
			lastErr = fmt.Errorf("spys.one page %s: %w", page.url, err)
			continue
		}
		for _, ep := range extractEndpoints(html, 50) {
			location := f.locate(ctx, ep.Address)
			for _, protocol := range page.protocols {
				out = append(out, newCandidate(ep, protocol, domain.TierPublic, "spys.one", location))
			}
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func fetchHidemyName(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	var out []domain.Candidate
	var lastErr error
	for _, pageURL := range hidemyNameURLs {
		html, err := f.client.FetchPage(ctx, pageURL)
		if err != nil {
			lastErr = fmt.Errorf("hidemy.name page %s: %w", pageURL, err)
			continue
		}

		protocol := support.ProtocolHTTP
		if strings.Contains(pageURL, "type=s") {
			protocol = support.ProtocolSOCKS4
		}

		for _, ep := range matchedEndpoints(hidemyRowPattern, html, 25) {
			location := f.locate(ctx, ep.Address)
			out = append(out, newCandidate(ep, protocol, domain.TierPublic, "hidemy.name", location))
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// fetchGeonode reads the geonode JSON API. Entries advertise the protocols
// they support; one candidate is emitted per advertised protocol.
func fetchGeonode(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	body, err := f.client.FetchAPI(ctx, geonodeListURL, nil)
	if err != nil {
		return nil, fmt.Errorf("geonode list: %w", err)
	}

	var out []domain.Candidate
	for _, item := range gson.NewFrom(body).Get("data").Arr() {
		address := jsonField(item, "ip")
		port, ok := parsePort(jsonField(item, "port"))
		if address == "" || !ok {
			continue
		}

		protocols := []string{support.ProtocolHTTP}
		if listed := item.Get("protocols").Arr(); len(listed) > 0 {
			protocols = protocols[:0]
			for _, entry := range listed {
				protocol, known := support.NormalizeProxyProtocol(entry.Str())
				if !known {
					continue
				}
				protocols = append(protocols, protocol)
			}
		}
		if len(protocols) == 0 {
			continue
		}

		location := f.locate(ctx, address)
		for _, protocol := range protocols {
			out = append(out, newCandidate(endpoint{Address: address, Port: port}, protocol, domain.TierPublic, "geonode", location))
		}
	}
	return out, nil
}

func fetchProxyLists(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	var out []domain.Candidate
	var lastErr error
	for _, listURL := range proxyListsURLs {
		text, err := f.client.FetchAPI(ctx, listURL, nil)
		if err != nil {
			lastErr = fmt.Errorf("proxylists list %s: %w", listURL, err)
			continue
		}
		for _, ep := range extractLines(text, 30) {
			location := f.locate(ctx, ep.Address)
			out = append(out, newCandidate(ep, support.ProtocolHTTP, domain.TierPublic, "proxylists.net", location))
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// fetchFreeProxyList scrapes the free-proxy-list.net family of table pages.
// The source name is the page host, so the socks page counts separately in
// per-source stats.
func fetchFreeProxyList(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	var out []domain.Candidate
	var lastErr error
	for _, target := range freeProxyListTargets {
		html, err := f.client.FetchPage(ctx, target.url)
		if err != nil {
			lastErr = fmt.Errorf("proxy table %s: %w", target.url, err)
			continue
		}

		sourceName := target.url
		if parsed, err := url.Parse(target.url); err == nil {
			sourceName = parsed.Host
		}

		for _, ep := range extractProxyTable(html, 40) {
			location := f.locate(ctx, ep.Address)
			out = append(out, newCandidate(ep, target.protocol, domain.TierPublic, sourceName, location))
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// fetchProxyNova extracts from the proxynova listing. The page embeds
// addresses in script fragments, so the generic pattern over the raw HTML is
// the reliable route, and no geolocation is recorded for this source.
func fetchProxyNova(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	html, err := f.client.FetchPage(ctx, proxyNovaURL)
	if err != nil {
		return nil, fmt.Errorf("proxynova list: %w", err)
	}

	var out []domain.Candidate
	for _, ep := range extractEndpoints(html, 50) {
		out = append(out, newCandidate(ep, support.ProtocolHTTP, domain.TierPublic, "proxynova", geo.Location{}))
	}
	return out, nil
}

// fetchPubProxy queries the pubproxy API once per protocol. The API reports
// country fields itself, so only those are kept.
func fetchPubProxy(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	var out []domain.Candidate
	var lastErr error
	for _, protocol := range support.KnownProxyProtocols() {
		body, err := f.client.FetchAPI(ctx, fmt.Sprintf(pubProxyURL, protocol), nil)
		if err != nil {
			lastErr = fmt.Errorf("pubproxy %s list: %w", protocol, err)
			continue
		}

		for _, item := range gson.NewFrom(body).Get("data").Arr() {
			address := jsonField(item, "ip")
			port, ok := parsePort(jsonField(item, "port"))
			if address == "" || !ok {
				continue
			}

			full := f.locate(ctx, address)
			location := geo.Location{Country: full.Country, CountryCode: full.CountryCode}
			out = append(out, newCandidate(endpoint{Address: address, Port: port}, protocol, domain.TierPublic, "pubproxy.com", location))
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// fetchIPRoyalPublic reads the iproyal free list with the row pattern for
// its div layout. The list mixes protocols without labeling them; entries
// are taken as http and only the country is recorded.
func fetchIPRoyalPublic(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	html, err := f.client.FetchPage(ctx, iproyalPublicListURL)
	if err != nil {
		return nil, fmt.Errorf("iproyal list: %w", err)
	}

	var out []domain.Candidate
	for _, ep := range matchedEndpoints(iproyalRowPattern, html, 30) {
		full := f.locate(ctx, ep.Address)
		out = append(out, newCandidate(ep, support.ProtocolHTTP, domain.TierPublic, "iproyal.com", geo.Location{Country: full.Country}))
	}
	return out, nil
}

// fetchGitHubLists walks the curated raw list files. The advertised protocol
// comes from the file URL and the source name carries the repo owner.
func fetchGitHubLists(ctx context.Context, f *Fetcher) ([]domain.Candidate, error) {
	var out []domain.Candidate
	var lastErr error
	for _, repo := range githubRepos {
		owner, _, _ := strings.Cut(repo.name, "/")
		for _, listURL := range repo.urls {
			text, err := f.client.FetchAPI(ctx, listURL, nil)
			if err != nil {
				lastErr = fmt.Errorf("github list %s: %w", listURL, err)
				continue
			}

			protocol := protocolFromURL(listURL)
			for _, ep := range extractLines(text, 20) {
				location := f.locate(ctx, ep.Address)
				out = append(out, newCandidate(ep, protocol, domain.TierPublic, "github-"+owner, location))
			}
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
