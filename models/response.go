package models

// ScrapeResponse is the 200 response for POST /scrape.
type ScrapeResponse struct {
	// Content is the rendered document, or the raw body for JSON and
	// plain-text responses.
	Content string `json:"content"`

	// PageStatusCode is null when the navigation produced no response.
	PageStatusCode *int `json:"pageStatusCode"`

	// ContentType is null when the response declared none.
	ContentType *string `json:"contentType"`

	// PageError is present only when the status code is not 200.
	PageError string `json:"pageError,omitempty"`
}

// ErrorResponse is the body of every non-200 response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
