package fetcher

import (
	"testing"

	"github.com/woedy/ProxyHome/internal/domain"
)

func TestDedupeFirstSeenWins(t *testing.T) {
	candidates := []domain.Candidate{
		{Address: "1.1.1.1", Port: 80, Protocol: "http", Source: "spys.one", Country: "Germany"},
		{Address: "2.2.2.2", Port: 1080, Protocol: "socks5", Source: "spys.one"},
		{Address: "1.1.1.1", Port: 80, Protocol: "http", Source: "geonode", Country: "France"},
		{Address: "3.3.3.3", Port: 3128, Protocol: "http", Source: "geonode"},
		{Address: "2.2.2.2", Port: 1080, Protocol: "socks5", Source: "github-a2u"},
	}

	unique := Dedupe(candidates)
	if len(unique) != 3 {
		t.Fatalf("Dedupe kept %d candidates, want 3: %v", len(unique), unique)
	}

	if unique[0].Source != "spys.one" || unique[0].Country != "Germany" {
		t.Fatalf("first duplicate lost its metadata: %+v", unique[0])
	}
	if unique[1].Address != "2.2.2.2" || unique[1].Source != "spys.one" {
		t.Fatalf("order not preserved: %+v", unique[1])
	}
	if unique[2].Address != "3.3.3.3" {
		t.Fatalf("order not preserved: %+v", unique[2])
	}
}

func TestDedupeTreatsProtocolAsIdentity(t *testing.T) {
	candidates := []domain.Candidate{
		{Address: "1.1.1.1", Port: 1080, Protocol: "socks4", Source: "spys.one"},
		{Address: "1.1.1.1", Port: 1080, Protocol: "socks5", Source: "spys.one"},
	}

	unique := Dedupe(candidates)
	if len(unique) != 2 {
		t.Fatalf("Dedupe collapsed distinct protocols: %v", unique)
	}
}

func TestDedupeEmptyInput(t *testing.T) {
	if got := Dedupe(nil); len(got) != 0 {
		t.Fatalf("Dedupe(nil) = %v, want empty", got)
	}
}
