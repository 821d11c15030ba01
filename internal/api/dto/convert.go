package dto

import "github.com/woedy/ProxyHome/internal/domain"

// ProxyInfoFrom flattens a stored proxy into its API shape.
func ProxyInfoFrom(proxy domain.Proxy) ProxyInfo {
	return ProxyInfo{
		Id:           proxy.ID,
		Address:      proxy.Address,
		Port:         proxy.Port,
		Protocol:     proxy.ProtocolName(),
		Tier:         proxy.Tier,
		Premium:      proxy.Premium,
		Country:      proxy.Country,
		CountryCode:  proxy.CountryCode,
		Region:       proxy.Region,
		City:         proxy.City,
		Timezone:     proxy.Timezone,
		IsWorking:    proxy.IsWorking,
		ResponseTime: proxy.ResponseTime,
		SuccessRate:  proxy.SuccessRate(),
		SuccessCount: proxy.SuccessCount,
		FailureCount: proxy.FailureCount,
		LastChecked:  proxy.LastChecked,
		CreatedAt:    proxy.CreatedAt,
	}
}

func ProxyInfosFrom(proxies []domain.Proxy) []ProxyInfo {
	infos := make([]ProxyInfo, 0, len(proxies))
	for idx := range proxies {
		infos = append(infos, ProxyInfoFrom(proxies[idx]))
	}
	return infos
}

func FetchJobInfoFrom(job domain.FetchJob) FetchJobInfo {
	return FetchJobInfo{
		Id:                job.ID,
		JobType:           job.JobType,
		Status:            job.Status,
		Validate:          job.Validate,
		TimeoutSeconds:    job.TimeoutSeconds,
		MaxWorkers:        job.MaxWorkers,
		ProxiesFound:      job.ProxiesFound,
		ProxiesWorking:    job.ProxiesWorking,
		SourcesTried:      job.SourcesTried,
		SourcesSuccessful: job.SourcesSuccessful,
		Error:             job.Error,
		StartedAt:         job.StartedAt,
		CompletedAt:       job.CompletedAt,
		CreatedAt:         job.CreatedAt,
	}
}

func FetchJobInfosFrom(jobs []domain.FetchJob) []FetchJobInfo {
	infos := make([]FetchJobInfo, 0, len(jobs))
	for idx := range jobs {
		infos = append(infos, FetchJobInfoFrom(jobs[idx]))
	}
	return infos
}

func JobLogLinesFrom(logs []domain.JobLog) []JobLogLine {
	lines := make([]JobLogLine, 0, len(logs))
	for _, entry := range logs {
		lines = append(lines, JobLogLine{
			Level:     entry.Level,
			Message:   entry.Message,
			CreatedAt: entry.CreatedAt,
		})
	}
	return lines
}

func ProxyTestInfosFrom(tests []domain.ProxyTest) []ProxyTestInfo {
	infos := make([]ProxyTestInfo, 0, len(tests))
	for _, test := range tests {
		infos = append(infos, ProxyTestInfo{
			Id:           test.ID,
			Endpoint:     test.Endpoint,
			Success:      test.Success,
			ResponseTime: test.ResponseTime,
			EgressIP:     test.EgressIP,
			Error:        test.Error,
			CreatedAt:    test.CreatedAt,
		})
	}
	return infos
}

// SourceInfosFrom pairs sources with the number of proxies each contributed.
func SourceInfosFrom(sources []domain.Source, proxyCounts map[string]int64) []SourceInfo {
	infos := make([]SourceInfo, 0, len(sources))
	for _, source := range sources {
		infos = append(infos, SourceInfo{
			Id:       source.ID,
			Name:     source.Name,
			Tier:     source.Tier,
			URL:      source.URL,
			IsActive: source.IsActive,
			Proxies:  proxyCounts[source.Name],
		})
	}
	return infos
}
