package domain

import "time"

const (
	JobTypePremium = "premium"
	JobTypePublic  = "public"
	JobTypeBasic   = "basic"
	JobTypeUnified = "unified"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

type FetchJob struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	JobType  string `gorm:"not null;size:16;index"`
	Status   string `gorm:"not null;size:16;default:'pending';index"`
	Validate bool   `gorm:"not null;default:true"`

	// Probe budget snapshot taken at creation, so a job's constraints stay
	// readable after the configuration moves on.
	TimeoutSeconds int `gorm:"not null;default:0"`
	MaxWorkers     int `gorm:"not null;default:0"`

	ProxiesFound      int `gorm:"not null;default:0"`
	ProxiesWorking    int `gorm:"not null;default:0"`
	SourcesTried      int `gorm:"not null;default:0"`
	SourcesSuccessful int `gorm:"not null;default:0"`

	Error string `gorm:"type:text;default:''"`

	StartedAt   *time.Time
	CompletedAt *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (FetchJob) TableName() string {
	return "fetch_jobs"
}

// Terminal reports whether the job reached a final state. Terminal jobs are
// never mutated again.
func (j *FetchJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

func ValidJobType(jobType string) bool {
	switch jobType {
	case JobTypePremium, JobTypePublic, JobTypeBasic, JobTypeUnified:
		return true
	default:
		return false
	}
}

// TiersForJobType maps a job type to the harvest tiers it runs, in the order
// they run. Unknown types map to nothing.
func TiersForJobType(jobType string) []uint8 {
	switch jobType {
	case JobTypePremium:
		return []uint8{TierPremium}
	case JobTypePublic:
		return []uint8{TierPublic}
	case JobTypeBasic:
		return []uint8{TierBasic}
	case JobTypeUnified:
		return []uint8{TierPremium, TierPublic, TierBasic}
	default:
		return nil
	}
}

// TierLabel names a tier the way job logs refer to it.
func TierLabel(tier uint8) string {
	switch tier {
	case TierPremium:
		return "Premium"
	case TierPublic:
		return "Public"
	case TierBasic:
		return "Basic"
	default:
		return "Unknown"
	}
}
