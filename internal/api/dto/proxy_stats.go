package dto

type ProxyStats struct {
	Total           int64            `json:"total"`
	Working         int64            `json:"working"`
	ByTier          map[string]int64 `json:"by_tier"`
	ByProtocol      map[string]int64 `json:"by_protocol"`
	AvgResponseTime *float64         `json:"avg_response_time,omitempty"`
}
