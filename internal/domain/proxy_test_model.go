package domain

import "time"

// ProxyTest is an append-only audit row recording a single probe. ProxyID is
// nil for probes of candidates that never became stored proxies; Endpoint
// still identifies what was dialed.
type ProxyTest struct {
	ID           uint64   `gorm:"primaryKey;autoIncrement"`
	ProxyID      *uint64  `gorm:"index"`
	JobID        *uint64  `gorm:"index"`
	Endpoint     string   `gorm:"not null;size:300"`
	Success      bool     `gorm:"not null;index"`
	ResponseTime *float64 `gorm:"type:numeric(10,4)"`
	EgressIP     string   `gorm:"size:64;default:''"`
	Error        string   `gorm:"type:text;default:''"`

	// Relationships
	Proxy *Proxy    `gorm:"foreignKey:ProxyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Job   *FetchJob `gorm:"foreignKey:JobID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (ProxyTest) TableName() string {
	return "proxy_tests"
}
