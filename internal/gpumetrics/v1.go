package gpumetrics

import "fmt"

// Body offsets of the v1 family, relative to the end of the header.
const (
	v1SystemClockCounter = 0
	v1TemperatureEdge    = 8
	v1TemperatureHotspot = 10
	v1TemperatureMem     = 12
	v1TemperatureVRGFX   = 14
	v1TemperatureVRSOC   = 16
	v1TemperatureVRMem   = 18
	v1AverageGfxActivity = 20
	v1AverageUmcActivity = 22
	v1AverageMmActivity  = 24
	v1AverageSocketPower = 26
	v1EnergyAccumulator  = 28
	v1AverageClocks      = 36
	v1CurrentClocks      = 50
	v1ThrottleStatus     = 64
	v1CurrentFanSpeed    = 72
	v1PcieLinkWidth      = 74
	v1PcieLinkSpeed      = 76

	// content revision 1
	v1GfxVoltage = 78
	v1SocVoltage = 80
	v1Rev1End    = 82

	// content revision 2
	v1MemVoltage          = 82
	v1IndepThrottleStatus = 84
	v1Rev2End             = 92

	// content revision 3
	v1CurrentSocketPower = 92
	v1VcnActivity        = 94
	v1Rev3End            = 102

	v1BaseSize = 92
)

// ClocksV1 holds the seven clock domains of the v1 layout in MHz.
type ClocksV1 struct {
	Gfx   uint16
	Soc   uint16
	Uclk  uint16
	Vclk0 uint16
	Dclk0 uint16
	Vclk1 uint16
	Dclk1 uint16
}

// V1 is a decoded gpu_metrics v1.0 through v1.3 blob (discrete GPUs).
type V1 struct {
	Header Header

	SystemClockCounter uint64

	TemperatureEdge    uint16
	TemperatureHotspot uint16
	TemperatureMem     uint16
	TemperatureVRGFX   uint16
	TemperatureVRSOC   uint16
	TemperatureVRMem   uint16

	AverageGfxActivity uint16
	AverageUmcActivity uint16
	AverageMmActivity  uint16

	AverageSocketPower uint16
	EnergyAccumulator  uint64

	AverageClocks ClocksV1
	CurrentClocks ClocksV1

	ThrottleStatus  uint64
	CurrentFanSpeed uint16
	PcieLinkWidth   uint16
	PcieLinkSpeed   uint16

	// Optional fields below are nil when the revision or size does not
	// carry them. Copies of a V1 share the pointed-to values, which are
	// never written after decode; accessors hand out their own copies.
	GfxVoltage *uint16
	SocVoltage *uint16

	MemVoltage          *uint16
	IndepThrottleStatus *uint64

	CurrentSocketPower *uint16
	VcnActivity        *[4]uint16
}

func readClocksV1(b []byte, off int) ClocksV1 {
	var c [7]uint16
	u16s(c[:], b, off)

	return ClocksV1{
		Gfx:   c[0],
		Soc:   c[1],
		Uclk:  c[2],
		Vclk0: c[3],
		Dclk0: c[4],
		Vclk1: c[5],
		Dclk1: c[6],
	}
}

func parseV1(h Header, b []byte) (Metrics, error) {
	if len(b) < v1BaseSize {
		return nil, insufficient("v1.x", len(b), v1BaseSize)
	}

	m := V1{
		Header:             h,
		SystemClockCounter: u64(b, v1SystemClockCounter),
		TemperatureEdge:    u16(b, v1TemperatureEdge),
		TemperatureHotspot: u16(b, v1TemperatureHotspot),
		TemperatureMem:     u16(b, v1TemperatureMem),
		TemperatureVRGFX:   u16(b, v1TemperatureVRGFX),
		TemperatureVRSOC:   u16(b, v1TemperatureVRSOC),
		TemperatureVRMem:   u16(b, v1TemperatureVRMem),
		AverageGfxActivity: u16(b, v1AverageGfxActivity),
		AverageUmcActivity: u16(b, v1AverageUmcActivity),
		AverageMmActivity:  u16(b, v1AverageMmActivity),
		AverageSocketPower: u16(b, v1AverageSocketPower),
		EnergyAccumulator:  u64(b, v1EnergyAccumulator),
		AverageClocks:      readClocksV1(b, v1AverageClocks),
		CurrentClocks:      readClocksV1(b, v1CurrentClocks),
		ThrottleStatus:     u64(b, v1ThrottleStatus),
		CurrentFanSpeed:    u16(b, v1CurrentFanSpeed),
		PcieLinkWidth:      u16(b, v1PcieLinkWidth),
		PcieLinkSpeed:      u16(b, v1PcieLinkSpeed),
	}

	rev := h.ContentRevision

	if rev >= 1 && len(b) >= v1Rev1End {
		m.GfxVoltage = u16p(b, v1GfxVoltage)
		m.SocVoltage = u16p(b, v1SocVoltage)
	}

	if rev >= 2 && len(b) >= v1Rev2End {
		m.MemVoltage = u16p(b, v1MemVoltage)
		m.IndepThrottleStatus = u64p(b, v1IndepThrottleStatus)
	}

	if rev >= 3 && len(b) >= v1Rev3End {
		m.CurrentSocketPower = u16p(b, v1CurrentSocketPower)

		var vcn [4]uint16
		u16s(vcn[:], b, v1VcnActivity)
		m.VcnActivity = &vcn
	}

	return m, nil
}

func (m V1) GetHeader() Header {
	return m.Header
}

func (m V1) GetTemperature() (uint16, string) {
	return m.TemperatureEdge, "Edge"
}

func (m V1) GetAllTemperatures() []Reading {
	return []Reading{
		{"Edge", m.TemperatureEdge},
		{"Hotspot", m.TemperatureHotspot},
		{"Memory", m.TemperatureMem},
		{"VR GFX", m.TemperatureVRGFX},
		{"VR SOC", m.TemperatureVRSOC},
		{"VR Mem", m.TemperatureVRMem},
	}
}

// GetPower prefers the instantaneous socket power when the revision has it.
func (m V1) GetPower() uint16 {
	if m.CurrentSocketPower != nil {
		return *m.CurrentSocketPower
	}

	return m.AverageSocketPower
}

func (m V1) GetPowerBreakdown() map[string]uint16 {
	breakdown := map[string]uint16{"Socket": m.AverageSocketPower}
	if m.CurrentSocketPower != nil {
		breakdown["Current Socket"] = *m.CurrentSocketPower
	}

	return breakdown
}

func (m V1) GetActivity() uint16 {
	return m.AverageGfxActivity
}

func (m V1) GetActivityBreakdown() map[string]uint16 {
	breakdown := map[string]uint16{
		"GFX": m.AverageGfxActivity,
		"UMC": m.AverageUmcActivity,
		"MM":  m.AverageMmActivity,
	}

	if m.VcnActivity != nil {
		for i, v := range m.VcnActivity {
			breakdown[fmt.Sprintf("VCN%d", i)] = v
		}
	}

	return breakdown
}

func (m V1) GetFrequency() uint16 {
	return m.CurrentClocks.Gfx
}

func (m V1) GetAllFrequencies() map[string]uint16 {
	cur, avg := m.CurrentClocks, m.AverageClocks

	return map[string]uint16{
		"GFX Current":   cur.Gfx,
		"GFX Average":   avg.Gfx,
		"SOC Current":   cur.Soc,
		"SOC Average":   avg.Soc,
		"UCLK Current":  cur.Uclk,
		"UCLK Average":  avg.Uclk,
		"VCLK0 Current": cur.Vclk0,
		"VCLK0 Average": avg.Vclk0,
		"DCLK0 Current": cur.Dclk0,
		"DCLK0 Average": avg.Dclk0,
		"VCLK1 Current": cur.Vclk1,
		"VCLK1 Average": avg.Vclk1,
		"DCLK1 Current": cur.Dclk1,
		"DCLK1 Average": avg.Dclk1,
	}
}

func (m V1) GetThrottleStatus() uint64 {
	return m.ThrottleStatus
}

// GetFanSpeed reports percent. Drivers that export a raw PWM duty (0..255)
// instead of a percentage are rescaled.
func (m V1) GetFanSpeed() (uint16, bool) {
	speed := m.CurrentFanSpeed
	if speed > 100 {
		speed = uint16(float64(speed) / 255 * 100)
	}

	return speed, m.CurrentFanSpeed > 0
}

func (m V1) GetMemoryInfo() (MemoryInfo, bool) {
	freq := m.CurrentClocks.Uclk
	util := m.AverageUmcActivity

	return MemoryInfo{
		Frequency:   &freq,
		Utilization: &util,
	}, true
}

func (m V1) GetVoltageInfo() (VoltageInfo, bool) {
	v := VoltageInfo{
		Core:   clone16(m.GfxVoltage),
		SOC:    clone16(m.SocVoltage),
		Memory: clone16(m.MemVoltage),
	}

	return v, v.any()
}

func (m V1) GetSystemClockCounter() uint64 {
	return m.SystemClockCounter
}
