package gpu

// AMDVendorID is the PCI vendor id the amdgpu driver binds to.
const AMDVendorID = "0x1002"

// Card is a DRM card exposing a gpu_metrics file.
type Card struct {
	// Name is the DRM entry name, e.g. "card1".
	Name string
	// DevicePath is the resolved sysfs device directory.
	DevicePath string
	// MetricsPath points at the device's gpu_metrics file.
	MetricsPath string
}

// DeviceInfo describes the GPU behind a metrics file.
type DeviceInfo struct {
	CardName          string
	DeviceID          string
	VendorID          string
	SubsystemDeviceID string
	DriverVersion     string
	PCISlot           string
	MemorySize        uint64
	SupportedFeatures []string
}

// VRAMUsage is the framebuffer memory state in bytes.
type VRAMUsage struct {
	Used  uint64
	Total uint64
}

// Percent returns the used share of VRAM, or 0 when the total is unknown.
func (u VRAMUsage) Percent() float64 {
	if u.Total == 0 {
		return 0
	}

	return float64(u.Used) / float64(u.Total) * 100
}

// Domain types for smoothed readings
type (
	Temperature float64
	Power       float64
)
