package database

import (
	"testing"

	"github.com/woedy/ProxyHome/internal/domain"
)

func TestResolveSourceIDsReusesExistingRows(t *testing.T) {
	setupProxyHomeTestDB(t)

	batch := []domain.Candidate{
		{Address: "1.1.1.1", Port: 8080, Protocol: "http", Tier: domain.TierPublic, Source: "geonode"},
		{Address: "1.1.1.2", Port: 8080, Protocol: "http", Tier: domain.TierPublic, Source: "geonode"},
		{Address: "1.1.1.3", Port: 1080, Protocol: "socks5", Tier: domain.TierPublic, Source: " spys.one "},
	}

	first, err := ResolveSourceIDs(batch)
	if err != nil {
		t.Fatalf("ResolveSourceIDs returned error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("resolved %d sources, want 2", len(first))
	}
	if first["geonode"] == 0 || first["spys.one"] == 0 {
		t.Fatalf("missing source ids: %v", first)
	}

	second, err := ResolveSourceIDs(batch)
	if err != nil {
		t.Fatalf("second ResolveSourceIDs returned error: %v", err)
	}
	if second["geonode"] != first["geonode"] || second["spys.one"] != first["spys.one"] {
		t.Fatalf("source ids changed between calls: %v then %v", first, second)
	}

	var count int64
	if err := DB.Model(&domain.Source{}).Count(&count).Error; err != nil {
		t.Fatalf("count sources: %v", err)
	}
	if count != 2 {
		t.Fatalf("source table holds %d rows, want 2", count)
	}
}

func TestResolveSourceIDsSkipsBlankNames(t *testing.T) {
	setupProxyHomeTestDB(t)

	ids, err := ResolveSourceIDs([]domain.Candidate{
		{Address: "1.1.1.1", Port: 8080, Protocol: "http", Tier: domain.TierBasic, Source: ""},
		{Address: "1.1.1.2", Port: 8080, Protocol: "http", Tier: domain.TierBasic, Source: "   "},
	})
	if err != nil {
		t.Fatalf("ResolveSourceIDs returned error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("resolved %d sources from blank names, want 0", len(ids))
	}
}

func TestCountProxiesBySource(t *testing.T) {
	setupProxyHomeTestDB(t)

	candidates := []domain.Candidate{
		publicCandidate("10.0.0.1", 3128, "http"),
		publicCandidate("10.0.0.2", 3128, "http"),
		{Address: "10.0.0.3", Port: 1080, Protocol: "socks5", Tier: domain.TierBasic, Source: "proxyscrape-api"},
	}
	if _, err := StoreFetchedProxies(candidates); err != nil {
		t.Fatalf("StoreFetchedProxies returned error: %v", err)
	}

	counts, err := CountProxiesBySource()
	if err != nil {
		t.Fatalf("CountProxiesBySource returned error: %v", err)
	}
	if counts["free-proxy-list"] != 2 {
		t.Fatalf("free-proxy-list count = %d, want 2", counts["free-proxy-list"])
	}
	if counts["proxyscrape-api"] != 1 {
		t.Fatalf("proxyscrape-api count = %d, want 1", counts["proxyscrape-api"])
	}

	sources, err := ListSources()
	if err != nil {
		t.Fatalf("ListSources returned error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("ListSources returned %d rows, want 2", len(sources))
	}
}
