package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/woedy/ProxyHome/internal/domain"
)

var (
	ErrJobNotFound    = errors.New("fetch job not found")
	ErrJobTerminal    = errors.New("fetch job already finished")
	ErrJobNotPending  = errors.New("fetch job is not pending")
	ErrJobNotRunning  = errors.New("fetch job is not running")
	ErrJobTypeInvalid = errors.New("unknown fetch job type")
)

// JobCounts is everything a finished job reports about its run.
type JobCounts struct {
	ProxiesFound      int
	ProxiesWorking    int
	SourcesTried      int
	SourcesSuccessful int
}

// CreateFetchJob stores a pending job together with the probe budget it was
// created under.
func CreateFetchJob(jobType string, validate bool, timeout time.Duration, maxWorkers int) (domain.FetchJob, error) {
	if DB == nil {
		return domain.FetchJob{}, fmt.Errorf("create job: database connection was not initialised")
	}
	if !domain.ValidJobType(jobType) {
		return domain.FetchJob{}, ErrJobTypeInvalid
	}

	job := domain.FetchJob{
		JobType:        jobType,
		Status:         domain.JobStatusPending,
		Validate:       validate,
		TimeoutSeconds: int(timeout / time.Second),
		MaxWorkers:     maxWorkers,
	}
	if err := DB.Create(&job).Error; err != nil {
		return domain.FetchJob{}, err
	}
	return job, nil
}

func GetFetchJob(id uint64) (domain.FetchJob, error) {
	if DB == nil {
		return domain.FetchJob{}, fmt.Errorf("get job: database connection was not initialised")
	}

	var job domain.FetchJob
	err := DB.First(&job, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.FetchJob{}, ErrJobNotFound
	}
	if err != nil {
		return domain.FetchJob{}, err
	}
	return job, nil
}

// ListFetchJobs returns the newest jobs first, optionally narrowed to one
// status. An empty status means all of them.
func ListFetchJobs(status string, limit int) ([]domain.FetchJob, error) {
	if DB == nil {
		return nil, fmt.Errorf("list jobs: database connection was not initialised")
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := DB.Order("created_at DESC, id DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var jobs []domain.FetchJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkJobRunning moves a pending job to running. Any other starting state is
// rejected so a job is only ever picked up once.
func MarkJobRunning(id uint64) error {
	if DB == nil {
		return fmt.Errorf("start job: database connection was not initialised")
	}

	now := time.Now().UTC()
	result := DB.Model(&domain.FetchJob{}).
		Where("id = ? AND status = ?", id, domain.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusRunning,
			"started_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return jobTransitionError(id, ErrJobNotPending)
	}
	return nil
}

// CompleteFetchJob finalizes a running job with its counters. Terminal jobs
// are immutable; completing anything but a running job fails.
func CompleteFetchJob(id uint64, counts JobCounts) error {
	if DB == nil {
		return fmt.Errorf("complete job: database connection was not initialised")
	}

	now := time.Now().UTC()
	result := DB.Model(&domain.FetchJob{}).
		Where("id = ? AND status = ?", id, domain.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":             domain.JobStatusCompleted,
			"proxies_found":      counts.ProxiesFound,
			"proxies_working":    counts.ProxiesWorking,
			"sources_tried":      counts.SourcesTried,
			"sources_successful": counts.SourcesSuccessful,
			"completed_at":       now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return jobTransitionError(id, ErrJobNotRunning)
	}
	return nil
}

// FailFetchJob marks a pending or running job as failed with a cause.
func FailFetchJob(id uint64, cause string) error {
	if DB == nil {
		return fmt.Errorf("fail job: database connection was not initialised")
	}

	now := time.Now().UTC()
	result := DB.Model(&domain.FetchJob{}).
		Where("id = ? AND status IN ?", id, []string{domain.JobStatusPending, domain.JobStatusRunning}).
		Updates(map[string]interface{}{
			"status":       domain.JobStatusFailed,
			"error":        cause,
			"completed_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return jobTransitionError(id, ErrJobNotRunning)
	}
	return nil
}

func jobTransitionError(id uint64, fallback error) error {
	var job domain.FetchJob
	err := DB.First(&job, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrJobNotFound
	}
	if err != nil {
		return err
	}
	if job.Terminal() {
		return ErrJobTerminal
	}
	return fallback
}

// AppendJobLog records one progress line for a job. Logging must never sink
// a job, so failures only warn.
func AppendJobLog(jobID uint64, level, message string) {
	if DB == nil {
		return
	}

	entry := domain.JobLog{
		JobID:   jobID,
		Level:   level,
		Message: message,
	}
	if err := DB.Create(&entry).Error; err != nil {
		log.Warn("Failed to append job log", "job_id", jobID, "error", err)
	}
}

func GetJobLogs(jobID uint64, limit int) ([]domain.JobLog, error) {
	if DB == nil {
		return nil, fmt.Errorf("job logs: database connection was not initialised")
	}
	if limit < 1 || limit > 1000 {
		limit = 200
	}

	var logs []domain.JobLog
	err := DB.Where("job_id = ?", jobID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// FailAbandonedJobs force-fails running jobs whose runner disappeared: still
// marked running but started longer ago than the deadline allows.
func FailAbandonedJobs(deadline time.Duration) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("sweep jobs: database connection was not initialised")
	}

	cutoff := time.Now().UTC().Add(-deadline)
	result := DB.Model(&domain.FetchJob{}).
		Where("status = ? AND started_at IS NOT NULL AND started_at < ?", domain.JobStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":       domain.JobStatusFailed,
			"error":        "abandoned: exceeded job deadline",
			"completed_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
