package model

import "time"

// ProbeResult is the outcome of a single site liveness probe. HTTPStatus and
// TimeMs are nil when no response was received.
type ProbeResult struct {
	Status     SiteStatus `json:"status"`
	HTTPStatus *int       `json:"httpStatus"`
	TimeMs     *int       `json:"timeMs"`
}

// UnknownProbeResult is returned for network failures, timeouts, and aborts.
func UnknownProbeResult() ProbeResult {
	return ProbeResult{Status: SiteStatusUnknown}
}

// ProbeHistoryEntry is a persisted probe outcome. It never carries secrets.
type ProbeHistoryEntry struct {
	ID        int64
	Site      string
	Result    ProbeResult
	CheckedAt time.Time
}
