package fetcher

import (
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ysmood/gson"

	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/geo"
	"github.com/woedy/ProxyHome/internal/support"
)

var (
	// addressPortPattern matches bare address:port pairs in page text.
	addressPortPattern = regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}):(\d+)`)

	// hidemyRowPattern matches hidemy.name's table markup, where the port
	// sits in the cell right after the address.
	hidemyRowPattern = regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})</td><td>(\d+)`)

	// iproyalRowPattern matches iproyal's div-based list layout.
	iproyalRowPattern = regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})</div>\s*<div[^>]*>\s*(\d+)</div>`)
)

type endpoint struct {
	Address string
	Port    uint16
}

// extractEndpoints pulls address:port pairs out of unstructured text. Only
// the first limit matches are considered; matches with an invalid address
// or port are dropped.
func extractEndpoints(text string, limit int) []endpoint {
	return matchedEndpoints(addressPortPattern, text, limit)
}

func matchedEndpoints(pattern *regexp.Regexp, text string, limit int) []endpoint {
	matches := pattern.FindAllStringSubmatch(text, -1)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]endpoint, 0, len(matches))
	for _, match := range matches {
		ep, ok := makeEndpoint(match[1], match[2])
		if !ok {
			continue
		}
		out = append(out, ep)
	}
	return out
}

// extractLines reads address:port pairs from a plain text list, one per
// line. Only the first limit lines are considered.
func extractLines(text string, limit int) []endpoint {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > limit {
		lines = lines[:limit]
	}

	out := make([]endpoint, 0, len(lines))
	for _, line := range lines {
		host, portRaw, err := net.SplitHostPort(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		ep, ok := makeEndpoint(host, portRaw)
		if !ok {
			continue
		}
		out = append(out, ep)
	}
	return out
}

// extractProxyTable reads the first two columns of a standard proxy table
// (the free-proxy-list.net family) as address and port.
func extractProxyTable(html string, limit int) []endpoint {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	out := make([]endpoint, 0, limit)
	doc.Find("table tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}
		ep, ok := makeEndpoint(strings.TrimSpace(cells.Eq(0).Text()), strings.TrimSpace(cells.Eq(1).Text()))
		if !ok {
			return true
		}
		out = append(out, ep)
		return len(out) < limit
	})
	return out
}

func makeEndpoint(address, rawPort string) (endpoint, bool) {
	if !validIPv4(address) {
		return endpoint{}, false
	}
	port, ok := parsePort(rawPort)
	if !ok {
		return endpoint{}, false
	}
	return endpoint{Address: address, Port: port}, true
}

// validIPv4 rejects regex matches whose octets overflow, like 999.1.1.1.
func validIPv4(address string) bool {
	ip := net.ParseIP(address)
	return ip != nil && ip.To4() != nil
}

func parsePort(raw string) (uint16, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 16)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint16(value), true
}

func intPort(value int) (uint16, bool) {
	if value <= 0 || value > 65535 {
		return 0, false
	}
	return uint16(value), true
}

// jsonField reads a string field from a loose JSON object, empty when the
// key is absent.
func jsonField(item gson.JSON, key string) string {
	field := item.Get(key)
	if field.Nil() {
		return ""
	}
	return field.Str()
}

func newCandidate(ep endpoint, protocol string, tier uint8, source string, location geo.Location) domain.Candidate {
	return domain.Candidate{
		Address:     ep.Address,
		Port:        ep.Port,
		Protocol:    protocol,
		Tier:        tier,
		Source:      source,
		Country:     location.Country,
		CountryCode: location.CountryCode,
		Region:      location.Region,
		City:        location.City,
		Timezone:    location.Timezone,
	}
}

// protocolFromURL derives the proxy protocol a list file advertises from its
// URL, the convention raw GitHub lists and the proxyscrape API follow.
func protocolFromURL(rawURL string) string {
	switch {
	case strings.Contains(rawURL, "socks4"):
		return support.ProtocolSOCKS4
	case strings.Contains(rawURL, "socks5"):
		return support.ProtocolSOCKS5
	default:
		return support.ProtocolHTTP
	}
}
