package dto

import "time"

type FetchJobRequest struct {
	JobType  string `json:"job_type"`
	Validate *bool  `json:"validate,omitempty"`
}

type FetchJobInfo struct {
	Id                uint64     `json:"id"`
	JobType           string     `json:"job_type"`
	Status            string     `json:"status"`
	Validate          bool       `json:"validate"`
	TimeoutSeconds    int        `json:"timeout_seconds"`
	MaxWorkers        int        `json:"max_workers"`
	ProxiesFound      int        `json:"proxies_found"`
	ProxiesWorking    int        `json:"proxies_working"`
	SourcesTried      int        `json:"sources_tried"`
	SourcesSuccessful int        `json:"sources_successful"`
	Error             string     `json:"error,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type JobLogLine struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type RevalidationResult struct {
	Revalidated int `json:"revalidated"`
}
