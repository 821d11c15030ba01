package fetcher

import (
	"testing"

	"github.com/woedy/ProxyHome/internal/support"
)

func TestExtractEndpoints(t *testing.T) {
	text := `
		<td>1.2.3.4:8080</td> noise 5.6.7.8:3128
		999.1.1.1:8080 bad octet
		9.9.9.9:0 bad port
		10.0.0.1:70000 port overflow
		10.0.0.2:1080
	`

	endpoints := extractEndpoints(text, 50)
	want := []endpoint{
		{"1.2.3.4", 8080},
		{"5.6.7.8", 3128},
		{"10.0.0.2", 1080},
	}
	if len(endpoints) != len(want) {
		t.Fatalf("extracted %d endpoints, want %d: %v", len(endpoints), len(want), endpoints)
	}
	for i, ep := range want {
		if endpoints[i] != ep {
			t.Fatalf("endpoint[%d] = %v, want %v", i, endpoints[i], ep)
		}
	}
}

func TestExtractEndpointsCapsScannedMatches(t *testing.T) {
	// The cap bounds how many matches are considered, not how many survive
	// filtering, so an invalid match inside the window still costs a slot.
	text := "999.1.1.1:8080 1.1.1.1:80 2.2.2.2:80"

	endpoints := extractEndpoints(text, 2)
	if len(endpoints) != 1 || endpoints[0].Address != "1.1.1.1" {
		t.Fatalf("extracted %v, want only 1.1.1.1:80", endpoints)
	}
}

func TestExtractLines(t *testing.T) {
	text := "1.1.1.1:80\nnot a proxy\n2.2.2.2:8080  \n3.3.3.3:1080:extra\n"

	endpoints := extractLines(text, 10)
	if len(endpoints) != 2 {
		t.Fatalf("extracted %d endpoints, want 2: %v", len(endpoints), endpoints)
	}
	if endpoints[0] != (endpoint{"1.1.1.1", 80}) || endpoints[1] != (endpoint{"2.2.2.2", 8080}) {
		t.Fatalf("unexpected endpoints: %v", endpoints)
	}
}

func TestExtractProxyTable(t *testing.T) {
	html := `<html><body><table>
		<thead><tr><th>IP Address</th><th>Port</th></tr></thead>
		<tbody>
			<tr><td> 1.2.3.4 </td><td>8080</td><td>US</td></tr>
			<tr><td>not-an-ip</td><td>80</td></tr>
			<tr><td>5.6.7.8</td><td>3128</td></tr>
			<tr><td>9.9.9.9</td><td>1080</td></tr>
		</tbody>
	</table></body></html>`

	endpoints := extractProxyTable(html, 2)
	if len(endpoints) != 2 {
		t.Fatalf("extracted %d endpoints, want 2: %v", len(endpoints), endpoints)
	}
	if endpoints[0] != (endpoint{"1.2.3.4", 8080}) || endpoints[1] != (endpoint{"5.6.7.8", 3128}) {
		t.Fatalf("unexpected endpoints: %v", endpoints)
	}
}

func TestMatchedEndpointsHidemyPattern(t *testing.T) {
	html := `<tr><td>1.2.3.4</td><td>8080</td><td>DE</td></tr><tr><td>5.6.7.8</td><td>1080</td></tr>`

	endpoints := matchedEndpoints(hidemyRowPattern, html, 25)
	if len(endpoints) != 2 {
		t.Fatalf("extracted %d endpoints, want 2: %v", len(endpoints), endpoints)
	}
	if endpoints[0] != (endpoint{"1.2.3.4", 8080}) {
		t.Fatalf("unexpected first endpoint: %v", endpoints[0])
	}
}

func TestProtocolFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://raw.githubusercontent.com/x/y/socks4.txt", support.ProtocolSOCKS4},
		{"https://raw.githubusercontent.com/x/y/socks5.txt", support.ProtocolSOCKS5},
		{"https://raw.githubusercontent.com/x/y/http.txt", support.ProtocolHTTP},
		{"https://example.com/proxies.txt", support.ProtocolHTTP},
	}
	for _, tc := range cases {
		if got := protocolFromURL(tc.url); got != tc.want {
			t.Fatalf("protocolFromURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestParsePort(t *testing.T) {
	cases := []struct {
		raw  string
		want uint16
		ok   bool
	}{
		{"8080", 8080, true},
		{" 80 ", 80, true},
		{"0", 0, false},
		{"65536", 0, false},
		{"-1", 0, false},
		{"http", 0, false},
	}
	for _, tc := range cases {
		got, ok := parsePort(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parsePort(%q) = (%d, %v), want (%d, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
