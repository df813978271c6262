package models

// ModelError is the body of every failed REST response.
type ModelError struct {
	// A human readable description of the error state
	Description string `json:"description,omitempty"`

	// The kind of error: bad_request, not_found, conflict or internal
	InternalCode string `json:"internalCode,omitempty"`
}
