package models

// Response status constants
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrorDetail carries the human-readable part of an error envelope
type ErrorDetail struct {
	Message string `json:"message"`
}

// ErrorResponse is the {"error":{"message":...}} envelope shared by the backend and our own JSON endpoints
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Metadata represents generic metadata
type Metadata map[string]interface{}
