package handler

import "time"

// ErrorResponse is the body of every rejection.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// NewErrorResponse creates an error body stamped with the current UTC time.
func NewErrorResponse(code, detail string) *ErrorResponse {
	return &ErrorResponse{
		Detail:    detail,
		Code:      code,
		Timestamp: timeNow().UTC().Format(time.RFC3339),
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Status    string `json:"status"`
	State     string `json:"state"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

// timeNow is a hook for testing.
var timeNow = time.Now
