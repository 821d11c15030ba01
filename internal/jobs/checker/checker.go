package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ysmood/gson"

	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/metrics"
	"github.com/woedy/ProxyHome/internal/support"
)

// maxProbeBody bounds how much of the liveness response is read. The check
// endpoints answer with a short JSON document.
const maxProbeBody = 64 << 10

var errUnrecognizableBody = errors.New("unrecognizable response body")

// CheckCandidate probes one candidate through the liveness endpoint. A probe
// succeeds only when the endpoint answers with a success status and a body
// naming the caller's apparent IP. Latency covers the full exchange including
// the body read.
func CheckCandidate(ctx context.Context, candidate domain.Candidate, checkURL string, timeout time.Duration) domain.ProbeResult {
	result := probe(ctx, candidate, checkURL, timeout)
	if result.Success {
		metrics.ProbesTotal.WithLabelValues("working").Inc()
		if result.ResponseTime != nil {
			metrics.ProbeSeconds.Observe(*result.ResponseTime)
		}
	} else {
		metrics.ProbesTotal.WithLabelValues("failed").Inc()
	}
	return result
}

func probe(ctx context.Context, candidate domain.Candidate, checkURL string, timeout time.Duration) domain.ProbeResult {
	result := domain.ProbeResult{
		Candidate: candidate,
		CheckedAt: time.Now().UTC(),
	}

	transport, err := support.CreateTransport(candidate, timeout)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	elapsed := time.Since(start).Seconds()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = fmt.Sprintf("check endpoint returned status %d", resp.StatusCode)
		return result
	}

	egress, err := parseEgressIP(body)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.ResponseTime = &elapsed
	result.EgressIP = egress
	return result
}

// parseEgressIP pulls the caller's apparent IP out of the liveness response.
// httpbin-style endpoints answer {"origin": "1.2.3.4"}, others use "ip". The
// origin field may list forwarding hops comma separated, the first one wins.
func parseEgressIP(body []byte) (string, error) {
	payload := gson.NewFrom(string(body))
	for _, key := range []string{"origin", "ip"} {
		field := payload.Get(key)
		if field.Nil() {
			continue
		}
		value, _, _ := strings.Cut(field.Str(), ",")
		value = strings.TrimSpace(value)
		if value != "" {
			return value, nil
		}
	}
	return "", errUnrecognizableBody
}
