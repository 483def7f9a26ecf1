package constants

import "errors"

// Configuration errors.
var (
	ErrServiceNameRequired  = errors.New("service name is required")
	ErrNoEndpointForService = errors.New("could not determine endpoint for service")
)

// Validation errors.
var (
	ErrInvalidOutputFormat = errors.New("invalid output format")
	ErrPasswordRequired    = errors.New("password is required for basic auth")
)
