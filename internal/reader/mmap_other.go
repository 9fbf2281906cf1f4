//go:build !darwin && !linux

package reader

import "codeberg.org/mutker/waysensor/internal/errors"

type mapping struct {
	path string
	data []byte
}

func mapFile(string) (*mapping, error) {
	return nil, errors.New().New(ErrMmapUnsupported)
}

func (*mapping) close() error {
	return nil
}
