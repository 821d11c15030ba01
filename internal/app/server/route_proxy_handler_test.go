package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/woedy/ProxyHome/internal/api/dto"
	"github.com/woedy/ProxyHome/internal/database"
	"github.com/woedy/ProxyHome/internal/domain"
)

func seedProxyRows(t *testing.T) (domain.Proxy, domain.Proxy) {
	t.Helper()

	rows := []domain.Proxy{
		{Address: "9.1.1.1", Port: 8080, ProtocolID: domain.ProtocolHTTPID, Tier: domain.TierPublic, IsWorking: true, CountryCode: "DE", ResponseTime: floatPtr(0.5)},
		{Address: "9.1.1.2", Port: 1080, ProtocolID: domain.ProtocolSOCKS5ID, Tier: domain.TierBasic, CountryCode: "FR"},
	}
	if err := database.DB.Create(&rows).Error; err != nil {
		t.Fatalf("seed proxies: %v", err)
	}
	return rows[0], rows[1]
}

func TestListProxiesEndpointFilters(t *testing.T) {
	s, _ := setupServerTest(t)
	seedProxyRows(t)

	rec := doRequest(t, s, http.MethodGet, "/api/proxies?working=true&protocol=http", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var page dto.ProxyPage
	decodeJSON(t, rec, &page)
	if page.Total != 1 || len(page.Proxies) != 1 {
		t.Fatalf("filter matched %d of %d proxies, want exactly 1", len(page.Proxies), page.Total)
	}
	if page.Proxies[0].Address != "9.1.1.1" {
		t.Fatalf("matched %s, want 9.1.1.1", page.Proxies[0].Address)
	}
	if page.Page != 1 || page.PageSize != 100 {
		t.Fatalf("page envelope %d/%d, want defaults 1/100", page.Page, page.PageSize)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/proxies?tier=9", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad tier returned %d, want 400", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/proxies?protocol=carrier-pigeon", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad protocol returned %d, want 400", rec.Code)
	}
}

func TestGetProxyEndpoint(t *testing.T) {
	s, _ := setupServerTest(t)
	working, _ := seedProxyRows(t)

	rec := doRequest(t, s, http.MethodGet, fmt.Sprintf("/api/proxies/%d", working.ID), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var info dto.ProxyInfo
	decodeJSON(t, rec, &info)
	if info.Address != "9.1.1.1" || info.Protocol != "http" {
		t.Fatalf("proxy = %+v, want 9.1.1.1 over http", info)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/proxies/424242", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id returned %d, want 404", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/proxies/abc", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id returned %d, want 400", rec.Code)
	}
}

func TestProxyStatsEndpoint(t *testing.T) {
	s, _ := setupServerTest(t)
	seedProxyRows(t)

	rec := doRequest(t, s, http.MethodGet, "/api/proxies/stats", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats dto.ProxyStats
	decodeJSON(t, rec, &stats)
	if stats.Total != 2 || stats.Working != 1 {
		t.Fatalf("stats = %d total / %d working, want 2/1", stats.Total, stats.Working)
	}
}

func TestExportProxiesEndpoint(t *testing.T) {
	s, _ := setupServerTest(t)
	seedProxyRows(t)

	rec := doRequest(t, s, http.MethodGet, "/api/proxies/export", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Fatalf("Content-Type = %q", got)
	}
	if rec.Body.String() != "9.1.1.1:8080\n" {
		t.Fatalf("txt export = %q, want only the working proxy", rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/proxies/export?format=json&working=false", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var infos []dto.ProxyInfo
	decodeJSON(t, rec, &infos)
	if len(infos) != 2 {
		t.Fatalf("json export returned %d proxies, want both", len(infos))
	}

	rec = doRequest(t, s, http.MethodGet, "/api/proxies/export?format=xml", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad format returned %d, want 400", rec.Code)
	}
}

func TestProxyTestsEndpoint(t *testing.T) {
	s, _ := setupServerTest(t)
	working, _ := seedProxyRows(t)

	proxyID := working.ID
	audits := []domain.ProxyTest{
		{ProxyID: &proxyID, Endpoint: "9.1.1.1:8080", Success: true, EgressIP: "9.1.1.1", ResponseTime: floatPtr(0.5)},
	}
	if err := database.RecordProxyTests(audits); err != nil {
		t.Fatalf("seed audits: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, fmt.Sprintf("/api/proxies/%d/tests", working.ID), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		Tests []dto.ProxyTestInfo `json:"tests"`
	}
	decodeJSON(t, rec, &payload)
	if len(payload.Tests) != 1 {
		t.Fatalf("listed %d tests, want 1", len(payload.Tests))
	}
	if payload.Tests[0].Endpoint != "9.1.1.1:8080" || !payload.Tests[0].Success {
		t.Fatalf("test row = %+v", payload.Tests[0])
	}

	rec = doRequest(t, s, http.MethodGet, "/api/proxies/424242/tests", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown proxy returned %d, want 404", rec.Code)
	}
}
