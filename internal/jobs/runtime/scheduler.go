package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/woedy/ProxyHome/internal/config"
	"github.com/woedy/ProxyHome/internal/database"
	"github.com/woedy/ProxyHome/internal/domain"
)

const (
	schedulerLockPrefix = "proxyhome:lock:"

	abandonedSweepEvery = 15 * time.Minute
	retentionSweepEvery = 24 * time.Hour
)

// JobRunner is the slice of the job runner the scheduler drives.
type JobRunner interface {
	EnqueueFetchJob(ctx context.Context, jobType string, validate bool) (domain.FetchJob, error)
	RevalidateStaleProxies(ctx context.Context) (int, error)
}

// Scheduler drives the recurring maintenance work: periodic harvest jobs,
// stale-proxy revalidation, the retention sweep and the abandoned-job sweep.
// When redis is available each tick takes a short-lived lock so only one
// instance runs it per interval.
type Scheduler struct {
	settings config.Settings
	runner   JobRunner
	redis    *redis.Client
	cron     *cron.Cron
}

// NewScheduler wires a scheduler against the given runner. redisClient may
// be nil; without it every tick runs unconditionally.
func NewScheduler(settings config.Settings, jobRunner JobRunner, redisClient *redis.Client) *Scheduler {
	return &Scheduler{
		settings: settings,
		runner:   jobRunner,
		redis:    redisClient,
		cron:     cron.New(),
	}
}

// Start registers the recurring entries and launches the cron loop. An entry
// with a non-positive interval is skipped, which disables that schedule. The
// context bounds every tick; cancel it before calling Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	entries := []struct {
		name  string
		every time.Duration
		work  func(context.Context) error
	}{
		{"fetch-public", s.settings.FetchPublicEvery, s.fetchTick(domain.JobTypePublic)},
		{"fetch-basic", s.settings.FetchBasicEvery, s.fetchTick(domain.JobTypeBasic)},
		{"revalidate", s.settings.RevalidateEvery, s.revalidateTick},
		{"retention", retentionSweepEvery, s.retentionTick},
		{"abandoned-jobs", abandonedSweepEvery, s.abandonedTick},
	}

	for _, entry := range entries {
		if entry.every <= 0 {
			log.Warn("Schedule disabled", "name", entry.name)
			continue
		}
		_, err := s.cron.AddFunc("@every "+entry.every.String(), func() {
			s.runTick(ctx, entry.name, entry.every, entry.work)
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", entry.name, err)
		}
		log.Info("Schedule registered", "name", entry.name, "every", entry.every)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop. Ticks already running finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runTick(ctx context.Context, name string, every time.Duration, work func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	if !s.acquireTickLock(ctx, name, every) {
		log.Debug("Schedule tick skipped, another instance holds the lock", "name", name)
		return
	}
	if err := work(ctx); err != nil {
		log.Error("Scheduled task failed", "name", name, "error", err)
	}
}

// acquireTickLock claims the named tick for one full interval. The lock is
// never released early; it expires on its own, so whichever instance fires
// first in an interval wins it. A redis error fails open.
func (s *Scheduler) acquireTickLock(ctx context.Context, name string, ttl time.Duration) bool {
	if s.redis == nil {
		return true
	}
	acquired, err := s.redis.SetNX(ctx, schedulerLockPrefix+name, instanceID, ttl).Result()
	if err != nil {
		log.Error("Failed to take schedule lock, running anyway", "name", name, "error", err)
		return true
	}
	return acquired
}

func (s *Scheduler) fetchTick(jobType string) func(context.Context) error {
	return func(ctx context.Context) error {
		job, err := s.runner.EnqueueFetchJob(ctx, jobType, true)
		if err != nil {
			return err
		}
		log.Info("Scheduled fetch job enqueued", "type", jobType, "job_id", job.ID)
		return nil
	}
}

func (s *Scheduler) revalidateTick(ctx context.Context) error {
	_, err := s.runner.RevalidateStaleProxies(ctx)
	return err
}

func (s *Scheduler) retentionTick(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.settings.RetentionAge)
	deleted, err := database.DeleteStaleProxies(cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Info("Removed dead proxies past retention", "count", deleted)
	}

	purged, err := database.PurgeProxyTests(cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		log.Info("Purged probe audits past retention", "count", purged)
	}
	return nil
}

func (s *Scheduler) abandonedTick(ctx context.Context) error {
	failed, err := database.FailAbandonedJobs(s.settings.JobDeadline)
	if err != nil {
		return err
	}
	if failed > 0 {
		log.Warn("Marked abandoned fetch jobs failed", "count", failed)
	}
	return nil
}
