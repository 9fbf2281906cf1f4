//go:build darwin || linux

package reader

import (
	"fmt"

	"codeberg.org/mutker/waysensor/internal/errors"
	"codeberg.org/mutker/waysensor/internal/gpumetrics"
	"golang.org/x/sys/unix"
)

type mapping struct {
	path string
	fd   int
	data []byte
}

func mapFile(path string) (*mapping, error) {
	errFactory := errors.New()

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errFactory.Wrap(ErrIO, fmt.Errorf("opening %s: %w", path, err))
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, errFactory.Wrap(ErrIO, fmt.Errorf("stating %s: %w", path, err))
	}

	size := min(int(stat.Size), gpumetrics.MaxStructureSize)
	if size <= 0 {
		unix.Close(fd)
		return nil, errFactory.WithData(ErrIO, fmt.Sprintf("cannot map %s: file is empty", path))
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, errFactory.Wrap(ErrIO, fmt.Errorf("memory-mapping %s: %w", path, err))
	}

	return &mapping{path: path, fd: fd, data: data}, nil
}

func (m *mapping) close() error {
	var firstErr error
	if err := unix.Munmap(m.data); err != nil {
		firstErr = fmt.Errorf("unmapping %s: %w", m.path, err)
	}
	if err := unix.Close(m.fd); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing %s: %w", m.path, err)
	}
	m.data = nil

	return firstErr
}
