package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/woedy/ProxyHome/internal/config"
	"github.com/woedy/ProxyHome/internal/database"
	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/events"
	"github.com/woedy/ProxyHome/internal/geo"
	"github.com/woedy/ProxyHome/internal/jobs/checker"
	"github.com/woedy/ProxyHome/internal/jobs/fetcher"
	"github.com/woedy/ProxyHome/internal/metrics"
)

// Runner drives fetch jobs end to end: harvest the requested tiers,
// deduplicate, optionally validate, and persist. Once a job is running it
// reports progress and failures solely through the job record and its log.
type Runner struct {
	settings config.Settings

	fetchTier          func(ctx context.Context, tier uint8, timeout time.Duration, creds config.PremiumCredentials) (fetcher.TierResult, error)
	validateCandidates func(ctx context.Context, candidates []domain.Candidate, checkURL string, timeout time.Duration, maxWorkers int) []domain.ProbeResult
}

func New(settings config.Settings) *Runner {
	locator := geo.New(func(cfg *geo.Config) {
		cfg.MaxMindPath = settings.GeoIPDatabase
	})

	return &Runner{
		settings: settings,
		fetchTier: func(ctx context.Context, tier uint8, timeout time.Duration, creds config.PremiumCredentials) (fetcher.TierResult, error) {
			client := fetcher.NewClient(func(cfg *fetcher.ClientConfig) {
				cfg.Timeout = timeout
				cfg.RespectRobots = settings.RespectRobots
				cfg.BrowserFetch = settings.BrowserFetch
			})
			return fetcher.New(client, locator).FetchTier(ctx, tier, creds)
		},
		validateCandidates: checker.ValidateCandidates,
	}
}

// EnqueueFetchJob creates the job record and starts the run in the
// background. The returned job is still pending; callers poll it by id.
// The record snapshots the widest probe budget among the tiers it covers.
func (r *Runner) EnqueueFetchJob(ctx context.Context, jobType string, validate bool) (domain.FetchJob, error) {
	var timeout time.Duration
	var maxWorkers int
	for _, tier := range domain.TiersForJobType(jobType) {
		budget := r.settings.TierSettings(tier)
		if budget.Timeout > timeout {
			timeout = budget.Timeout
		}
		if budget.MaxWorkers > maxWorkers {
			maxWorkers = budget.MaxWorkers
		}
	}

	job, err := database.CreateFetchJob(jobType, validate, timeout, maxWorkers)
	if err != nil {
		return domain.FetchJob{}, err
	}

	go func() {
		_ = r.RunFetchJob(ctx, job.ID)
	}()

	return job, nil
}

// RunFetchJob executes one job to a terminal state. Tier failures are
// isolated: they append a log line and reduce totals, and only an error
// outside every tier boundary fails the job. A cancelled context leaves the
// job running for the abandoned-job sweep to fail later.
func (r *Runner) RunFetchJob(ctx context.Context, jobID uint64) error {
	job, err := database.GetFetchJob(jobID)
	if err != nil {
		return err
	}
	if err := database.MarkJobRunning(jobID); err != nil {
		return err
	}
	events.PublishJobUpdate(ctx, jobID, domain.JobStatusRunning, "")

	if err := r.run(ctx, job); err != nil {
		if ctx.Err() != nil {
			log.Warn("Fetch job abandoned", "job_id", jobID, "error", err)
			return err
		}
		log.Error("Fetch job failed", "job_id", jobID, "job_type", job.JobType, "error", err)
		if failErr := database.FailFetchJob(jobID, err.Error()); failErr != nil {
			log.Error("Could not mark fetch job failed", "job_id", jobID, "error", failErr)
		}
		events.PublishJobUpdate(ctx, jobID, domain.JobStatusFailed, err.Error())
		metrics.JobsTotal.WithLabelValues(job.JobType, domain.JobStatusFailed).Inc()
		return err
	}

	events.PublishJobUpdate(ctx, jobID, domain.JobStatusCompleted, "")
	metrics.JobsTotal.WithLabelValues(job.JobType, domain.JobStatusCompleted).Inc()
	return nil
}

func (r *Runner) run(ctx context.Context, job domain.FetchJob) error {
	r.logJob(ctx, job.ID, "info", fmt.Sprintf("Starting %s proxy fetch", job.JobType))

	counts := database.JobCounts{}
	var harvested []domain.Candidate

	for _, tier := range domain.TiersForJobType(job.JobType) {
		if err := ctx.Err(); err != nil {
			return err
		}

		label := domain.TierLabel(tier)
		result, err := r.fetchTier(ctx, tier, r.settings.TierSettings(tier).Timeout, r.settings.Premium)
		if err != nil {
			r.logJob(ctx, job.ID, "error", fmt.Sprintf("%s fetch failed: %v", label, err))
			continue
		}

		counts.SourcesTried += result.SourcesTried
		counts.SourcesSuccessful += result.SourcesSuccessful
		harvested = append(harvested, result.Candidates...)
		metrics.ProxiesFetched.WithLabelValues(strings.ToLower(label)).Add(float64(len(result.Candidates)))
		r.logJob(ctx, job.ID, "info", fmt.Sprintf("Found %d %s proxies", len(result.Candidates), strings.ToLower(label)))
	}

	unique := fetcher.Dedupe(harvested)
	counts.ProxiesFound = len(unique)

	var saved int
	if job.Validate && len(unique) > 0 {
		r.logJob(ctx, job.ID, "info", "Validating proxies...")
		results := r.validateByTier(ctx, unique)
		if err := ctx.Err(); err != nil {
			return err
		}

		stored, err := database.StoreValidatedProxies(results, &job.ID)
		if err != nil {
			return err
		}
		saved = stored
		counts.ProxiesWorking = stored
	} else {
		stored, err := database.StoreFetchedProxies(unique)
		if err != nil {
			return err
		}
		saved = stored
	}
	r.logJob(ctx, job.ID, "info", fmt.Sprintf("Saved %d proxies to database", saved))

	return database.CompleteFetchJob(job.ID, counts)
}

// logJob appends one job log line and mirrors it to the event channel.
func (r *Runner) logJob(ctx context.Context, jobID uint64, level, message string) {
	database.AppendJobLog(jobID, level, message)
	events.PublishJobUpdate(ctx, jobID, "", message)
}

// validateByTier probes deduplicated candidates with the probe budget of the
// tier each one was harvested from.
func (r *Runner) validateByTier(ctx context.Context, candidates []domain.Candidate) []domain.ProbeResult {
	var results []domain.ProbeResult
	for _, tier := range []uint8{domain.TierPremium, domain.TierPublic, domain.TierBasic} {
		var batch []domain.Candidate
		for _, candidate := range candidates {
			if candidate.Tier == tier {
				batch = append(batch, candidate)
			}
		}
		if len(batch) == 0 {
			continue
		}

		tierCfg := r.settings.TierSettings(tier)
		results = append(results, r.validateCandidates(ctx, batch, r.settings.CheckURL, tierCfg.Timeout, tierCfg.MaxWorkers)...)
	}
	return results
}
