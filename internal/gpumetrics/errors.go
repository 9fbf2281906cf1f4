package gpumetrics

import "codeberg.org/mutker/waysensor/internal/errors"

const (
	// Every decode failure is a parse error with a reason attached.
	ErrParse = errors.ErrParse
)

func parseError(format string, args ...any) error {
	return errors.New().Reasonf(ErrParse, format, args...)
}
