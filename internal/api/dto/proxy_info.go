package dto

import "time"

type ProxyInfo struct {
	Id           uint64     `json:"id"`
	Address      string     `json:"address"`
	Port         uint16     `json:"port"`
	Protocol     string     `json:"protocol"`
	Tier         uint8      `json:"tier"`
	Premium      bool       `json:"premium"`
	Country      string     `json:"country"`
	CountryCode  string     `json:"country_code"`
	Region       string     `json:"region"`
	City         string     `json:"city"`
	Timezone     string     `json:"timezone"`
	IsWorking    bool       `json:"is_working"`
	ResponseTime *float64   `json:"response_time,omitempty"`
	SuccessRate  float64    `json:"success_rate"`
	SuccessCount uint       `json:"success_count"`
	FailureCount uint       `json:"failure_count"`
	LastChecked  *time.Time `json:"last_checked,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ProxyPage struct {
	Proxies  []ProxyInfo `json:"proxies"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}
