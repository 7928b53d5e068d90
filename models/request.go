package models

import "time"

const (
	// DefaultTimeoutMs bounds each navigation attempt and each selector wait.
	DefaultTimeoutMs = 15000
)

// ScrapeRequest is the payload for POST /scrape.
type ScrapeRequest struct {
	// URL is the target page. Validated by the scraper, not by binding, so
	// that a missing or malformed URL always yields the same message.
	URL string `json:"url"`

	// WaitAfterLoad is a fixed settle delay in milliseconds applied after
	// navigation completes. Default: 0.
	WaitAfterLoad int `json:"wait_after_load" binding:"min=0"`

	// Timeout in milliseconds for each navigation attempt and for the
	// selector wait. Default: 15000.
	Timeout int `json:"timeout" binding:"min=0"`

	// Headers are sent with every request the page issues.
	Headers map[string]string `json:"headers,omitempty"`

	// CheckSelector must match an element before the page is considered ready.
	CheckSelector string `json:"check_selector,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = DefaultTimeoutMs
	}
}

// TimeoutDuration returns Timeout as a time.Duration.
func (r *ScrapeRequest) TimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Millisecond
}

// WaitAfterLoadDuration returns WaitAfterLoad as a time.Duration.
func (r *ScrapeRequest) WaitAfterLoadDuration() time.Duration {
	return time.Duration(r.WaitAfterLoad) * time.Millisecond
}
