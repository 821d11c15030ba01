package domain

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/woedy/ProxyHome/internal/security"

	"gorm.io/gorm"
)

type Proxy struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Address    string `gorm:"not null;size:255;uniqueIndex:idx_proxy_identity,priority:1"`
	Port       uint16 `gorm:"not null;uniqueIndex:idx_proxy_identity,priority:2"`
	ProtocolID int    `gorm:"not null;uniqueIndex:idx_proxy_identity,priority:3"`
	Tier       uint8  `gorm:"not null;default:3;index"`
	Premium    bool   `gorm:"not null;default:false"`
	SourceID   *uint  `gorm:"index"`

	Username          string `gorm:"size:120;default:''"`
	Password          string `gorm:"-" json:"-"`
	PasswordEncrypted string `gorm:"column:password;default:''"`

	Country     string `gorm:"size:120;default:'Unknown'"`
	CountryCode string `gorm:"size:8;default:'XX'"`
	Region      string `gorm:"size:120;default:'Unknown'"`
	City        string `gorm:"size:120;default:'Unknown'"`
	Timezone    string `gorm:"size:64;default:'Unknown'"`

	IsWorking    bool     `gorm:"not null;default:false;index:idx_proxy_working_checked,priority:1"`
	ResponseTime *float64 `gorm:"type:numeric(10,4)"`
	SuccessCount uint     `gorm:"not null;default:0"`
	FailureCount uint     `gorm:"not null;default:0"`

	LastChecked *time.Time `gorm:"index:idx_proxy_working_checked,priority:2"`

	// Relationships
	Protocol Protocol `gorm:"foreignKey:ProtocolID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	Source   *Source  `gorm:"foreignKey:SourceID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Proxy) TableName() string {
	return "proxies"
}

func (p *Proxy) BeforeSave(_ *gorm.DB) error {
	if strings.TrimSpace(p.Country) == "" {
		p.Country = "Unknown"
	}
	if strings.TrimSpace(p.CountryCode) == "" {
		p.CountryCode = "XX"
	}
	if strings.TrimSpace(p.Region) == "" {
		p.Region = "Unknown"
	}
	if strings.TrimSpace(p.City) == "" {
		p.City = "Unknown"
	}
	if strings.TrimSpace(p.Timezone) == "" {
		p.Timezone = "Unknown"
	}

	if p.Password != "" {
		encrypted, err := security.EncryptProxySecret(p.Password)
		if err != nil {
			return err
		}
		p.PasswordEncrypted = encrypted
	} else {
		p.PasswordEncrypted = ""
	}
	return nil
}

func (p *Proxy) AfterFind(_ *gorm.DB) error {
	if p.PasswordEncrypted == "" {
		p.Password = ""
		return nil
	}

	password, _, err := security.DecryptProxySecret(p.PasswordEncrypted)
	if err != nil {
		return err
	}
	p.Password = password
	return nil
}

func (p *Proxy) GetFullProxy() string {
	return net.JoinHostPort(p.Address, strconv.Itoa(int(p.Port)))
}

func (p *Proxy) HasAuth() bool {
	return p.Username != "" || p.Password != ""
}

func (p *Proxy) ProtocolName() string {
	return ProtocolNameFor(p.ProtocolID)
}

// SuccessRate reports the all-time share of successful probes as a
// percentage. A proxy that has never been probed rates zero.
func (p *Proxy) SuccessRate() float64 {
	total := p.SuccessCount + p.FailureCount
	if total == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(total) * 100
}

// AsCandidate converts a stored record back into probe input, used when
// working proxies are rechecked.
func (p *Proxy) AsCandidate() Candidate {
	return Candidate{
		Address:     p.Address,
		Port:        p.Port,
		Protocol:    p.ProtocolName(),
		Username:    p.Username,
		Password:    p.Password,
		Tier:        p.Tier,
		Premium:     p.Premium,
		Country:     p.Country,
		CountryCode: p.CountryCode,
		Region:      p.Region,
		City:        p.City,
		Timezone:    p.Timezone,
	}
}
