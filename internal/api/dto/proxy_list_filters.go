package dto

type ProxyListFilters struct {
	Tier        uint8  `json:"tier,omitempty"`
	Protocol    string `json:"protocol,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Working     *bool  `json:"working,omitempty"`
	Premium     *bool  `json:"premium,omitempty"`
	Page        int    `json:"page,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}
