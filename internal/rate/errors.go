package rate

import "errors"

var (
	// ErrRateLimited is an exported constant or variable used by the authentication engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnknownClass is an exported constant or variable used by the authentication engine.
	ErrUnknownClass = errors.New("unknown rate limit class")
)
