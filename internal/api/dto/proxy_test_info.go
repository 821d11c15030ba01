package dto

import "time"

type ProxyTestInfo struct {
	Id           uint64    `json:"id"`
	Endpoint     string    `json:"endpoint"`
	Success      bool      `json:"success"`
	ResponseTime *float64  `json:"response_time,omitempty"`
	EgressIP     string    `json:"egress_ip,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
