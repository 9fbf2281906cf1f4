package gpumetrics

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the length of the common gpu_metrics header.
	HeaderSize = 4

	// MaxStructureSize bounds structure_size against corrupt snapshots.
	MaxStructureSize = 1024
)

// Header is the common prefix of every gpu_metrics blob.
type Header struct {
	StructureSize   uint16
	FormatRevision  uint8
	ContentRevision uint8
}

// ParseHeader decodes and validates the first four bytes of a blob.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, parseError("insufficient data for header: got %d bytes, need %d", len(data), HeaderSize)
	}

	h := Header{
		StructureSize:   binary.LittleEndian.Uint16(data[0:2]),
		FormatRevision:  data[2],
		ContentRevision: data[3],
	}

	if h.StructureSize == 0 || h.StructureSize > MaxStructureSize {
		return Header{}, parseError("invalid structure size %d (must be 1..%d)", h.StructureSize, MaxStructureSize)
	}

	return h, nil
}

// Version renders the header revision as "v<format>.<content>".
func (h Header) Version() string {
	return fmt.Sprintf("v%d.%d", h.FormatRevision, h.ContentRevision)
}

// IsSupported reports whether a layout parser exists for this revision pair.
func (h Header) IsSupported() bool {
	switch h.FormatRevision {
	case 1:
		return h.ContentRevision <= 3
	case 2:
		return h.ContentRevision <= 1
	default:
		return false
	}
}

// ExpectedSize returns the full blob size, header included, that a driver
// emits for this revision, or 0 for unsupported revisions.
func (h Header) ExpectedSize() int {
	if !h.IsSupported() {
		return 0
	}

	switch h.FormatRevision {
	case 1:
		return v1ExpectedSizes[h.ContentRevision]
	default:
		return v2ExpectedSizes[h.ContentRevision]
	}
}

// Sizes reported by the amdgpu driver for each content revision.
var (
	v1ExpectedSizes = [...]int{96, 100, 104, 108}
	v2ExpectedSizes = [...]int{120, 124}
)
