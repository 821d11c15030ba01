package runner

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/woedy/ProxyHome/internal/database"
	"github.com/woedy/ProxyHome/internal/domain"
)

// RevalidateStaleProxies re-probes working proxies whose last check is older
// than the freshness threshold. The selection runs in fixed-size chunks that
// proceed independently, so one slow chunk does not hold up the rest. Returns
// how many proxies were scheduled for re-probing.
func (r *Runner) RevalidateStaleProxies(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.settings.RevalidateAfter)
	stale, err := database.GetProxiesForRevalidation(cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	chunkSize := r.settings.RevalidateChunk
	if chunkSize <= 0 {
		chunkSize = 50
	}

	log.Info("Revalidating stale proxies", "count", len(stale), "chunk_size", chunkSize)

	var g errgroup.Group
	for start := 0; start < len(stale); start += chunkSize {
		end := start + chunkSize
		if end > len(stale) {
			end = len(stale)
		}
		chunk := stale[start:end]
		g.Go(func() error {
			if err := r.recheckChunk(ctx, chunk); err != nil {
				log.Error("Proxy recheck chunk failed", "size", len(chunk), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return len(stale), nil
}

// recheckChunk probes one chunk with the public tier budget and folds the
// outcomes back into the stored rows.
func (r *Runner) recheckChunk(ctx context.Context, proxies []domain.Proxy) error {
	candidates := make([]domain.Candidate, len(proxies))
	for i, proxy := range proxies {
		candidates[i] = proxy.AsCandidate()
	}

	tierCfg := r.settings.TierSettings(domain.TierPublic)
	results := r.validateCandidates(ctx, candidates, r.settings.CheckURL, tierCfg.Timeout, tierCfg.MaxWorkers)
	if err := ctx.Err(); err != nil {
		return err
	}
	return database.ApplyRecheckResults(proxies, results, nil)
}
