package fetcher

import (
	"context"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/woedy/ProxyHome/internal/config"
	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/geo"
)

// Source is one upstream proxy list. Fetch returns every candidate the
// source currently advertises; an error means the source yielded nothing
// this run.
type Source struct {
	Name  string
	Fetch func(ctx context.Context, f *Fetcher) ([]domain.Candidate, error)
}

// TierResult is what one harvest tier produced.
type TierResult struct {
	Candidates        []domain.Candidate
	SourcesTried      int
	SourcesSuccessful int
}

// Fetcher runs the sources of a tier and enriches their candidates with
// geolocation. Construct one per tier run so the client carries that tier's
// timeout.
type Fetcher struct {
	client  *Client
	locator *geo.Locator
}

func New(client *Client, locator *geo.Locator) *Fetcher {
	if client == nil {
		client = NewClient()
	}
	return &Fetcher{client: client, locator: locator}
}

// FetchTier runs every source of the tier concurrently. A failing source is
// logged and contributes nothing; the combined result keeps source order, so
// downstream deduplication resolves metadata conflicts in favor of the
// earlier source. The only error FetchTier itself reports is a cancelled
// context.
func (f *Fetcher) FetchTier(ctx context.Context, tier uint8, creds config.PremiumCredentials) (TierResult, error) {
	return f.fetchSources(ctx, f.tierSources(tier, creds), tier)
}

func (f *Fetcher) fetchSources(ctx context.Context, sources []Source, tier uint8) (TierResult, error) {
	batches := make([][]domain.Candidate, len(sources))
	succeeded := make([]bool, len(sources))

	var g errgroup.Group
	for i, source := range sources {
		g.Go(func() error {
			candidates, err := source.Fetch(ctx, f)
			if err != nil {
				log.Warn("Source fetch failed", "source", source.Name, "tier", tier, "error", err)
				return nil
			}
			batches[i] = candidates
			succeeded[i] = true
			log.Debug("Source fetch finished", "source", source.Name, "tier", tier, "proxies", len(candidates))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return TierResult{}, err
	}

	result := TierResult{SourcesTried: len(sources)}
	for i, batch := range batches {
		if succeeded[i] {
			result.SourcesSuccessful++
		}
		result.Candidates = append(result.Candidates, batch...)
	}
	return result, nil
}

func (f *Fetcher) tierSources(tier uint8, creds config.PremiumCredentials) []Source {
	switch tier {
	case domain.TierPremium:
		return premiumSources(creds)
	case domain.TierPublic:
		return publicSources()
	default:
		return basicSources()
	}
}

// locate resolves geolocation through the full provider chain.
func (f *Fetcher) locate(ctx context.Context, address string) geo.Location {
	if f.locator == nil {
		return geo.Location{}
	}
	return f.locator.Lookup(ctx, address)
}

// locateBasic uses the single fast provider and records no timezone, which
// is all the basic tier keeps.
func (f *Fetcher) locateBasic(ctx context.Context, address string) geo.Location {
	if f.locator == nil {
		return geo.Location{}
	}
	location := f.locator.LookupSingle(ctx, address)
	location.Timezone = ""
	return location
}
