package domain

import "time"

// ProbeResult is the outcome of dialing a single candidate through the check
// endpoint. ResponseTime is in seconds and only set on success.
type ProbeResult struct {
	Candidate    Candidate
	Success      bool
	ResponseTime *float64
	EgressIP     string
	Error        string
	CheckedAt    time.Time
}
