package fetcher

import "github.com/woedy/ProxyHome/internal/domain"

// Dedupe collapses candidates that share an (address, port, protocol)
// identity. The first occurrence wins every metadata conflict and the
// survivors keep first-seen order.
func Dedupe(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		key := candidate.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out
}
