package reader

import "codeberg.org/mutker/waysensor/internal/errors"

const (
	ErrIO = errors.ErrIO

	ErrMmapUnsupported = errors.ErrorCode("reader_mmap_unsupported")
)
