package gpumetrics

import (
	"encoding/binary"
	"fmt"
	"testing"

	"codeberg.org/mutker/waysensor/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blob []byte

func newBlob(size int, format, content uint8) blob {
	b := make(blob, size)
	binary.LittleEndian.PutUint16(b[0:2], uint16(size))
	b[2] = format
	b[3] = content

	return b
}

func (b blob) put16(off int, v uint16) blob {
	binary.LittleEndian.PutUint16(b[HeaderSize+off:], v)
	return b
}

func (b blob) put64(off int, v uint64) blob {
	binary.LittleEndian.PutUint64(b[HeaderSize+off:], v)
	return b
}

func requireParseError(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrParse), "expected parse error, got %v", err)
	assert.Contains(t, err.Error(), contains)
	assert.Equal(t, err.Error(), errors.Reason(err), "decode errors carry a reason only")
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    Header
		wantErr string
	}{
		{name: "valid", data: []byte{96, 0, 1, 0}, want: Header{96, 1, 0}},
		{name: "maximum size", data: []byte{0x00, 0x04, 2, 1}, want: Header{1024, 2, 1}},
		{name: "short", data: []byte{96, 0, 1}, wantErr: "insufficient data for header"},
		{name: "empty", data: nil, wantErr: "insufficient data for header"},
		{name: "zero size", data: []byte{0, 0, 1, 0}, wantErr: "invalid structure size 0"},
		{name: "oversized", data: []byte{0x01, 0x04, 1, 0}, wantErr: "invalid structure size 1025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHeader(tt.data)
			if tt.wantErr != "" {
				requireParseError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h)
		})
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, size := range []uint16{1, 4, 96, 512, 1024} {
		for _, format := range []uint8{0, 1, 2, 255} {
			for _, content := range []uint8{0, 3, 255} {
				data := make([]byte, HeaderSize)
				binary.LittleEndian.PutUint16(data, size)
				data[2], data[3] = format, content

				h, err := ParseHeader(data)
				require.NoError(t, err)
				assert.Equal(t, Header{size, format, content}, h)
			}
		}
	}
}

func TestHeaderSupport(t *testing.T) {
	tests := []struct {
		format, content uint8
		supported       bool
		expectedSize    int
	}{
		{1, 0, true, 96},
		{1, 1, true, 100},
		{1, 2, true, 104},
		{1, 3, true, 108},
		{1, 4, false, 0},
		{2, 0, true, 120},
		{2, 1, true, 124},
		{2, 2, false, 0},
		{0, 0, false, 0},
		{3, 0, false, 0},
	}

	for _, tt := range tests {
		h := Header{StructureSize: 96, FormatRevision: tt.format, ContentRevision: tt.content}
		t.Run(h.Version(), func(t *testing.T) {
			assert.Equal(t, fmt.Sprintf("v%d.%d", tt.format, tt.content), h.Version())
			assert.Equal(t, tt.supported, h.IsSupported())
			assert.Equal(t, tt.expectedSize, h.ExpectedSize())
		})
	}
}

func TestDecodeHeaderOnly(t *testing.T) {
	headers := [][]byte{
		{96, 0, 1, 0},
		{120, 0, 2, 1},
		{0, 0, 1, 0},
		{0xff, 0xff, 9, 9},
		{4, 0, 1, 3},
	}

	for _, data := range headers {
		t.Run(fmt.Sprintf("%v", data), func(t *testing.T) {
			_, err := Decode(data)
			requireParseError(t, err, "insufficient data")
		})
	}
}

func TestDecodeInvalidStructureSize(t *testing.T) {
	zero := make([]byte, 100)
	zero[2] = 1

	oversized := make([]byte, 1100)
	binary.LittleEndian.PutUint16(oversized, 1100)
	oversized[2] = 1

	_, err := Decode(zero)
	requireParseError(t, err, "invalid structure size 0")

	_, err = Decode(oversized)
	requireParseError(t, err, "invalid structure size 1100")
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	for _, v := range [][2]uint8{{1, 4}, {2, 2}, {3, 0}, {0, 0}, {0, 1}} {
		t.Run(fmt.Sprintf("v%d.%d", v[0], v[1]), func(t *testing.T) {
			_, err := Decode(newBlob(200, v[0], v[1]))
			requireParseError(t, err, fmt.Sprintf("unsupported format version v%d.%d", v[0], v[1]))
		})
	}
}

func TestDispatchUnsupportedSkipsLayoutParser(t *testing.T) {
	// An empty body would fail any layout parser with "insufficient data".
	_, err := Dispatch(Header{StructureSize: 96, FormatRevision: 3, ContentRevision: 0}, nil)
	requireParseError(t, err, "unsupported format version v3.0")
	assert.NotContains(t, err.Error(), "insufficient")
}

func TestDecodeInsufficientBody(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr string
	}{
		{name: "v1 truncated read", data: newBlob(96, 1, 0)[:50], wantErr: "insufficient data for v1.x: got 46 bytes, need 92"},
		{name: "v2 truncated read", data: newBlob(120, 2, 0)[:100], wantErr: "insufficient data for v2.x: got 96 bytes, need 116"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			requireParseError(t, err, tt.wantErr)
		})
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	// A v1.3 header that only claims the v1.1 size; the rest is padding.
	data := newBlob(100, 1, 3).put16(v1CurrentSocketPower, 77)
	data = append(data, make([]byte, 40)...)
	binary.LittleEndian.PutUint16(data[HeaderSize+v1CurrentSocketPower+4:], 0xffff)

	m, err := Decode(data)
	require.NoError(t, err)

	v1, ok := m.(V1)
	require.True(t, ok)
	assert.NotNil(t, v1.GfxVoltage)
	assert.NotNil(t, v1.MemVoltage)
	assert.Nil(t, v1.CurrentSocketPower)
	assert.Nil(t, v1.VcnActivity)
}

func TestDecodeStructureSizeCapsBody(t *testing.T) {
	// structure_size says 80 bytes even though 96 were read.
	data := newBlob(96, 1, 0)
	binary.LittleEndian.PutUint16(data, 80)

	_, err := Decode(data)
	requireParseError(t, err, "insufficient data for v1.x: got 76 bytes")
}

func TestDecodeV1EdgeTemperature(t *testing.T) {
	data := newBlob(96, 1, 0)
	data[12], data[13] = 60, 0

	m, err := Decode(data)
	require.NoError(t, err)

	temp, label := m.GetTemperature()
	assert.Equal(t, uint16(60), temp)
	assert.Equal(t, "Edge", label)
	assert.Equal(t, Header{96, 1, 0}, m.GetHeader())
}
