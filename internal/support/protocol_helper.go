package support

import "strings"

const (
	ProtocolHTTP   = "http"
	ProtocolSOCKS4 = "socks4"
	ProtocolSOCKS5 = "socks5"
)

var proxyProtocolSet = map[string]struct{}{
	ProtocolHTTP:   {},
	ProtocolSOCKS4: {},
	ProtocolSOCKS5: {},
}

// NormalizeProxyProtocol lowercases and trims a protocol label reported by a
// source. Sources that list "https" mean an HTTP proxy that can CONNECT, so
// it folds into http. Unknown labels are rejected.
func NormalizeProxyProtocol(value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "https" {
		value = ProtocolHTTP
	}
	if _, ok := proxyProtocolSet[value]; ok {
		return value, true
	}
	return "", false
}

func KnownProxyProtocols() []string {
	return []string{ProtocolHTTP, ProtocolSOCKS4, ProtocolSOCKS5}
}
