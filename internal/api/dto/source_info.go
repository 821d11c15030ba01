package dto

type SourceInfo struct {
	Id       uint   `json:"id"`
	Name     string `json:"name"`
	Tier     uint8  `json:"tier"`
	URL      string `json:"url,omitempty"`
	IsActive bool   `json:"is_active"`
	Proxies  int64  `json:"proxies"`
}
