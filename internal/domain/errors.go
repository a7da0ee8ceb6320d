package domain

import "github.com/pkg/errors"

var (
	// ErrUpstream network or non-success response from a source API.
	ErrUpstream = errors.New("upstream failure")
	// ErrPersistence I/O or decode failure of the durable history store.
	ErrPersistence = errors.New("persistence failure")
	// ErrValidation invalid timeframe or symbol input.
	ErrValidation = errors.New("validation failure")
)
