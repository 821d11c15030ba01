package domain

import "time"

type JobLog struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	JobID   uint64 `gorm:"not null;index"`
	Level   string `gorm:"not null;size:8;default:'info'"`
	Message string `gorm:"not null;type:text"`

	// Relationships
	Job FetchJob `gorm:"foreignKey:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (JobLog) TableName() string {
	return "job_logs"
}
