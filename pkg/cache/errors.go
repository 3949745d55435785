package cache

import "errors"

var (
	// ErrTooSmall indicates a store candidate did not meet min_tokens_threshold.
	ErrTooSmall = errors.New("content too small for cache admission")

	// ErrMiss indicates a fingerprint is absent or expired.
	ErrMiss = errors.New("cache miss")
)
