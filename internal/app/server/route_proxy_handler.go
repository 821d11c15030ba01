package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/woedy/ProxyHome/internal/api/dto"
	"github.com/woedy/ProxyHome/internal/database"
	"github.com/woedy/ProxyHome/internal/domain"
)

func listProxies(w http.ResponseWriter, r *http.Request) {
	filters, err := proxyFiltersFromQuery(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	proxies, total, dbErr := database.ListProxies(filters)
	if dbErr != nil {
		writeError(w, "Failed to load proxies", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProxyPage{
		Proxies:  dto.ProxyInfosFrom(proxies),
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	})
}

func getProxy(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimSpace(r.PathValue("id"))
	if rawID == "" {
		writeError(w, "Missing proxy id", http.StatusBadRequest)
		return
	}

	id, convErr := strconv.ParseUint(rawID, 10, 64)
	if convErr != nil {
		writeError(w, "Invalid proxy id", http.StatusBadRequest)
		return
	}

	proxy, err := database.GetProxyByID(id)
	if err != nil {
		if errors.Is(err, database.ErrProxyNotFound) {
			writeError(w, "Proxy not found", http.StatusNotFound)
			return
		}
		writeError(w, "Failed to load proxy", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProxyInfoFrom(proxy))
}

func listProxyTests(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimSpace(r.PathValue("id"))
	if rawID == "" {
		writeError(w, "Missing proxy id", http.StatusBadRequest)
		return
	}

	id, convErr := strconv.ParseUint(rawID, 10, 64)
	if convErr != nil {
		writeError(w, "Invalid proxy id", http.StatusBadRequest)
		return
	}

	if _, err := database.GetProxyByID(id); err != nil {
		if errors.Is(err, database.ErrProxyNotFound) {
			writeError(w, "Proxy not found", http.StatusNotFound)
			return
		}
		writeError(w, "Failed to load proxy", http.StatusInternalServerError)
		return
	}

	tests, err := database.ListProxyTests(id, queryInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		writeError(w, "Failed to load proxy tests", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tests": dto.ProxyTestInfosFrom(tests)})
}

func proxyStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := database.GetProxyStats()
	if err != nil {
		writeError(w, "Failed to load proxy stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func exportProxies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	format := strings.ToLower(strings.TrimSpace(query.Get("format")))
	if format == "" {
		format = "txt"
	}
	if format != "txt" && format != "json" {
		writeError(w, "format must be txt or json", http.StatusBadRequest)
		return
	}

	workingOnly := true
	if raw := query.Get("working"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, "working must be true or false", http.StatusBadRequest)
			return
		}
		workingOnly = parsed
	}

	proxies, err := database.RankedProxies(queryInt(query.Get("limit"), 0), workingOnly)
	if err != nil {
		writeError(w, "Failed to export proxies", http.StatusInternalServerError)
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, dto.ProxyInfosFrom(proxies))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, proxy := range proxies {
		fmt.Fprintf(w, "%s:%d\n", proxy.Address, proxy.Port)
	}
}

func proxyFiltersFromQuery(r *http.Request) (dto.ProxyListFilters, error) {
	query := r.URL.Query()

	filters := dto.ProxyListFilters{
		Protocol:    strings.ToLower(strings.TrimSpace(query.Get("protocol"))),
		CountryCode: strings.ToUpper(strings.TrimSpace(query.Get("country"))),
	}
	if filters.Protocol != "" {
		if _, ok := domain.ProtocolIDFor(filters.Protocol); !ok {
			return filters, errors.New("protocol must be http, socks4 or socks5")
		}
	}

	if raw := query.Get("tier"); raw != "" {
		tier, err := strconv.ParseUint(raw, 10, 8)
		if err != nil || tier < uint64(domain.TierPremium) || tier > uint64(domain.TierBasic) {
			return filters, errors.New("tier must be 1, 2 or 3")
		}
		filters.Tier = uint8(tier)
	}

	if raw := query.Get("working"); raw != "" {
		working, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, errors.New("working must be true or false")
		}
		filters.Working = &working
	}

	if raw := query.Get("premium"); raw != "" {
		premium, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, errors.New("premium must be true or false")
		}
		filters.Premium = &premium
	}

	filters.Page = queryInt(query.Get("page"), 1)
	filters.PageSize = queryInt(query.Get("page_size"), 100)
	if filters.PageSize > 500 {
		filters.PageSize = 500
	}
	return filters, nil
}

// queryInt parses an optional positive integer query value.
func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
