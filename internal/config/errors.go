package config

import "errors"

var (
	// ErrMissingAPIKey is returned by Validate when no API key is configured.
	ErrMissingAPIKey = errors.New("api_key is required")
	// ErrInvalidStartDate is returned by Validate for a start_date that is not RFC 3339.
	ErrInvalidStartDate = errors.New("start_date must be an RFC 3339 timestamp")
	// ErrInvalidBaseURL is returned by Validate for a base_url that is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("base_url must be an absolute http(s) URL")
	// ErrUnsupportedFormat is returned by Load for a config file extension it cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported config file format")
)
