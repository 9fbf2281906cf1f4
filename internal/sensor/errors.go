package sensor

import "codeberg.org/mutker/waysensor/internal/errors"

const (
	ErrUnavailable      = errors.ErrUnavailable
	ErrInvalidThreshold = errors.ErrInvalidThreshold
	ErrInvalidFormat    = errors.ErrInvalidFormat
)
