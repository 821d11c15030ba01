package checker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/woedy/ProxyHome/internal/domain"
)

// ValidateCandidates probes every candidate through a bounded worker pool and
// returns one result per candidate, in input order. Probe failures are data
// rather than errors; they come back with Success false and the cause set.
func ValidateCandidates(ctx context.Context, candidates []domain.Candidate, checkURL string, timeout time.Duration, maxWorkers int) []domain.ProbeResult {
	if len(candidates) == 0 {
		return nil
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	results := make([]domain.ProbeResult, len(candidates))

	var g errgroup.Group
	g.SetLimit(maxWorkers)
	for i, candidate := range candidates {
		g.Go(func() error {
			results[i] = CheckCandidate(ctx, candidate, checkURL, timeout)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
