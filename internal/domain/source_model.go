package domain

import "time"

type Source struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Name     string `gorm:"not null;size:120;uniqueIndex"`
	Tier     uint8  `gorm:"not null;default:3;index"`
	URL      string `gorm:"size:500;default:''"`
	IsActive bool   `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Source) TableName() string {
	return "sources"
}
