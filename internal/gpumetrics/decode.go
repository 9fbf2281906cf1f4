package gpumetrics

import "encoding/binary"

// Decode parses a complete gpu_metrics blob. Bytes past the header's
// structure_size are ignored.
func Decode(data []byte) (Metrics, error) {
	if len(data) == HeaderSize {
		return nil, parseError("insufficient data: blob holds a header but no metrics body")
	}

	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	end := min(int(h.StructureSize), len(data))
	if end < HeaderSize {
		end = HeaderSize
	}

	return Dispatch(h, data[HeaderSize:end])
}

// Dispatch selects the layout parser for h and decodes body, the bytes that
// follow the header. Unknown revision pairs are rejected.
func Dispatch(h Header, body []byte) (Metrics, error) {
	if !h.IsSupported() {
		return nil, parseError("unsupported format version %s", h.Version())
	}

	switch h.FormatRevision {
	case 1:
		return parseV1(h, body)
	default:
		return parseV2(h, body)
	}
}

func insufficient(family string, got, need int) error {
	return parseError("insufficient data for %s: got %d bytes, need %d", family, got, need)
}

func u16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

func u64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

func u16p(b []byte, off int) *uint16 {
	v := u16(b, off)
	return &v
}

func u64p(b []byte, off int) *uint64 {
	v := u64(b, off)
	return &v
}

// clone16 copies an optional field so callers cannot write through to a
// shared decode result.
func clone16(p *uint16) *uint16 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func u16s(dst []uint16, b []byte, off int) {
	for i := range dst {
		dst[i] = u16(b, off+2*i)
	}
}
