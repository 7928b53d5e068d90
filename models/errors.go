package models

import (
	"errors"
	"fmt"
)

// Error codes used in logs and internal error handling.
const (
	ErrCodeInvalidURL        = "INVALID_URL"
	ErrCodeLaunch            = "LAUNCH_FAILED"
	ErrCodeNavigationTimeout = "NAVIGATION_TIMEOUT"
	ErrCodeSelectorNotFound  = "SELECTOR_NOT_FOUND"
	ErrCodeNavigation        = "NAVIGATION_FAILED"
	ErrCodeScrapeFailed      = "SCRAPE_FAILED"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// User-visible messages. Internal error detail is never exposed.
const (
	MsgInvalidURL   = "URL is invalid or missing"
	MsgFetchFailed  = "An error occurred while fetching the page."
	MsgRateLimited  = "Rate limit exceeded, please slow down."
	MsgUnauthorized = "Missing or invalid API key."
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost ScrapeError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether any ScrapeError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var se *ScrapeError
		if !errors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Err
	}
	return false
}
