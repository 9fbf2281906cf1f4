package reader

import (
	"encoding/binary"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/waysensor/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// v1Blob returns a 96-byte v1.0 blob with the edge temperature set.
func v1Blob(edge uint16) []byte {
	b := make([]byte, 96)
	binary.LittleEndian.PutUint16(b[0:2], 96)
	b[2], b[3] = 1, 0
	binary.LittleEndian.PutUint16(b[12:14], edge)

	return b
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type countingSource struct {
	calls int
	data  []byte
	err   error
}

func (s *countingSource) read(string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	return s.data, nil
}

func newTestReader(strategy Strategy) (*Reader, *countingSource, *fakeClock) {
	src := &countingSource{data: v1Blob(60)}
	clock := &fakeClock{t: time.Unix(1700000000, 0)}

	return New(strategy, WithSource(src.read), WithClock(clock.now)), src, clock
}

func TestBasicCacheServesWithinMaxAge(t *testing.T) {
	r, src, clock := newTestReader(Basic(500 * time.Millisecond))

	first, err := r.Read("gpu_metrics")
	require.NoError(t, err)

	clock.advance(499 * time.Millisecond)
	second, err := r.Read("gpu_metrics")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls)

	clock.advance(time.Millisecond)
	src.data = v1Blob(61)
	third, err := r.Read("gpu_metrics")
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls)
	temp, _ := third.GetTemperature()
	assert.Equal(t, uint16(61), temp)
}

func TestNoneAlwaysReads(t *testing.T) {
	r, src, _ := newTestReader(None())

	for i := 0; i < 3; i++ {
		_, err := r.Read("gpu_metrics")
		require.NoError(t, err)
	}

	assert.Equal(t, 3, src.calls)
	assert.False(t, r.Stats().Cached)
	assert.Equal(t, uint64(3), r.Stats().ReadCount)
}

func TestAggressiveIgnoresChangeThreshold(t *testing.T) {
	r, src, clock := newTestReader(Aggressive(time.Second, 5.0))

	_, err := r.Read("gpu_metrics")
	require.NoError(t, err)

	// A large change in the source does not invalidate the entry early.
	src.data = v1Blob(95)
	clock.advance(900 * time.Millisecond)
	m, err := r.Read("gpu_metrics")
	require.NoError(t, err)

	temp, _ := m.GetTemperature()
	assert.Equal(t, uint16(60), temp)
	assert.Equal(t, 1, src.calls)

	clock.advance(100 * time.Millisecond)
	m, err = r.Read("gpu_metrics")
	require.NoError(t, err)

	temp, _ = m.GetTemperature()
	assert.Equal(t, uint16(95), temp)
	assert.Equal(t, 2, src.calls)
}

func TestFailedRefreshKeepsEntry(t *testing.T) {
	r, src, clock := newTestReader(Basic(500 * time.Millisecond))

	_, err := r.Read("gpu_metrics")
	require.NoError(t, err)

	clock.advance(time.Second)
	src.err = fs.ErrPermission

	_, err = r.Read("gpu_metrics")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrIO))
	assert.ErrorIs(t, err, fs.ErrPermission)

	stats := r.Stats()
	assert.True(t, stats.Cached)
	assert.Equal(t, time.Second, stats.Age)
	assert.Equal(t, uint64(1), stats.ReadCount)
}

func TestParseErrorsPassThrough(t *testing.T) {
	r, src, _ := newTestReader(None())
	src.data = []byte{96, 0, 7, 0, 1, 2, 3}

	_, err := r.Read("gpu_metrics")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrParse))
	assert.Contains(t, err.Error(), "unsupported format version v7.0")
}

func TestInvalidateForcesRead(t *testing.T) {
	r, src, _ := newTestReader(Default())

	_, err := r.Read("gpu_metrics")
	require.NoError(t, err)
	r.Invalidate()
	assert.False(t, r.Stats().Cached)

	_, err = r.Read("gpu_metrics")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, uint64(2), r.Stats().ReadCount)
}

func TestReadDirect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpu_metrics")
	require.NoError(t, os.WriteFile(path, v1Blob(48), 0o644))

	r := New(None())
	m, err := r.Read(path)
	require.NoError(t, err)

	temp, label := m.GetTemperature()
	assert.Equal(t, uint16(48), temp)
	assert.Equal(t, "Edge", label)

	_, err = r.Read(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrIO))
	assert.True(t, stderrors.Is(err, fs.ErrNotExist))
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		maxAge  time.Duration
		want    Strategy
		wantErr bool
	}{
		{name: "none", want: None()},
		{name: "", want: Basic(500 * time.Millisecond)},
		{name: "basic", maxAge: time.Second, want: Basic(time.Second)},
		{name: "Aggressive", maxAge: 2 * time.Second, want: Aggressive(2*time.Second, 5)},
		{name: "mmap", want: MemoryMapped()},
		{name: "memory-mapped", want: MemoryMapped()},
		{name: "lru", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.name, tt.maxAge, 5)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "none", None().String())
	assert.Equal(t, "basic(500ms)", Default().String())
	assert.Equal(t, "aggressive(1s, 5)", Aggressive(time.Second, 5).String())
	assert.Equal(t, "mmap", MemoryMapped().String())
}
