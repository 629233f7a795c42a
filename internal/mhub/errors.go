package mhub

import "errors"

// Errors returned by the device client, normalizer and coordinator.
// Use errors.Is() to check for them.
var (
	// ErrUnreachable wraps transport failures: timeouts, refused connections
	// and DNS errors.
	ErrUnreachable = errors.New("mhub: device unreachable")

	// ErrHTTPStatus is returned when the device answers with a non-2xx status.
	ErrHTTPStatus = errors.New("mhub: unexpected HTTP status")

	// ErrEmptyResponse is returned by a refresh cycle when either data
	// request produced no usable document.
	ErrEmptyResponse = errors.New("mhub: empty response from device")

	// ErrMalformed is returned when a field holds the wrong container type.
	ErrMalformed = errors.New("mhub: malformed payload")

	// ErrDerivation is returned when capability derivation fails. The
	// previous capabilities stay in effect.
	ErrDerivation = errors.New("mhub: capability derivation failed")

	// ErrDispatcherClosed is the result of a command dispatched after Close.
	ErrDispatcherClosed = errors.New("mhub: dispatcher closed")
)
