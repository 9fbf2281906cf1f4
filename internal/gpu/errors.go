package gpu

import "codeberg.org/mutker/waysensor/internal/errors"

const (
	// Discovery Errors
	ErrUnavailable = errors.ErrUnavailable

	// Device Information Errors
	ErrDeviceInfoFailed = errors.ErrorCode("gpu_device_info_failed")
	ErrVRAMReadFailed   = errors.ErrorCode("gpu_vram_read_failed")
)
