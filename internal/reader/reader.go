// Package reader reads gpu_metrics files through a pluggable caching policy.
package reader

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"codeberg.org/mutker/waysensor/internal/errors"
	"codeberg.org/mutker/waysensor/internal/gpumetrics"
)

// Source returns the raw bytes of a metrics file.
type Source func(path string) ([]byte, error)

// Option configures a Reader.
type Option func(*Reader)

// WithSource replaces the file read used by the None, Basic and Aggressive strategies.
func WithSource(src Source) Option {
	return func(r *Reader) {
		r.source = src
	}
}

// WithClock replaces time.Now for cache age checks.
func WithClock(now func() time.Time) Option {
	return func(r *Reader) {
		r.now = now
	}
}

type entry struct {
	metrics   gpumetrics.Metrics
	timestamp time.Time
	readCount uint64
}

// Stats describes the cached entry of a Reader.
type Stats struct {
	Cached    bool
	Age       time.Duration
	ReadCount uint64
}

// Reader owns the single cache slot and, for MemoryMapped, the mapping of
// one sensor. It is not safe for concurrent use.
type Reader struct {
	strategy Strategy
	source   Source
	now      func() time.Time

	entry   *entry
	mapping *mapping
	reads   uint64
}

// New creates a Reader with the given strategy.
func New(strategy Strategy, opts ...Option) *Reader {
	r := &Reader{
		strategy: strategy,
		source:   readDirect,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Strategy returns the active caching policy.
func (r *Reader) Strategy() Strategy {
	return r.strategy
}

// Read returns the metrics at path according to the strategy. A failed
// refresh leaves any cached entry in place.
func (r *Reader) Read(path string) (gpumetrics.Metrics, error) {
	switch {
	case r.strategy.Kind == KindMemoryMapped:
		return r.readMapped(path)
	case r.strategy.caches():
		if m, ok := r.cached(); ok {
			return m, nil
		}

		m, err := r.readFresh(path)
		if err != nil {
			return nil, err
		}

		r.entry = &entry{
			metrics:   m,
			timestamp: r.now(),
			readCount: r.reads,
		}

		return m, nil
	default:
		return r.readFresh(path)
	}
}

func (r *Reader) cached() (gpumetrics.Metrics, bool) {
	if r.entry == nil {
		return nil, false
	}

	if r.now().Sub(r.entry.timestamp) >= r.strategy.MaxAge {
		return nil, false
	}

	return r.entry.metrics, true
}

func (r *Reader) readFresh(path string) (gpumetrics.Metrics, error) {
	data, err := r.source(path)
	if err != nil {
		return nil, errors.New().Wrap(ErrIO, err)
	}

	m, err := gpumetrics.Decode(data)
	if err != nil {
		return nil, err
	}
	r.reads++

	return m, nil
}

func (r *Reader) readMapped(path string) (gpumetrics.Metrics, error) {
	if r.mapping != nil && r.mapping.path != path {
		r.unmap()
	}

	if r.mapping == nil {
		mp, err := mapFile(path)
		if err != nil {
			return nil, err
		}
		r.mapping = mp
	}

	m, err := decodeMapped(r.mapping.data)
	if err != nil {
		return nil, err
	}
	r.reads++

	return m, nil
}

// decodeMapped turns a fault on the mapped pages into an error.
func decodeMapped(data []byte) (m gpumetrics.Metrics, err error) {
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if rec := recover(); rec != nil {
			err = errors.New().WithData(ErrIO, fmt.Sprintf("fault reading mapped metrics: %v", rec))
		}
	}()

	return gpumetrics.Decode(data)
}

// Invalidate drops the cached entry and any mapping. The next read starts fresh.
func (r *Reader) Invalidate() {
	r.entry = nil
	r.unmap()
}

// Stats reports on the cached entry.
func (r *Reader) Stats() Stats {
	if r.entry == nil {
		return Stats{ReadCount: r.reads}
	}

	return Stats{
		Cached:    true,
		Age:       r.now().Sub(r.entry.timestamp),
		ReadCount: r.entry.readCount,
	}
}

// Close releases the mapping, if any.
func (r *Reader) Close() error {
	if r.mapping == nil {
		return nil
	}

	err := r.mapping.close()
	r.mapping = nil

	return err
}

func (r *Reader) unmap() {
	if r.mapping == nil {
		return
	}

	_ = r.mapping.close()
	r.mapping = nil
}

func readDirect(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, gpumetrics.MaxStructureSize))
}
