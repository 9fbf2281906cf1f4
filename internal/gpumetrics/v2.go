package gpumetrics

import "fmt"

// Body offsets of the v2 family (APUs), relative to the end of the header.
const (
	v2SystemClockCounter = 0
	v2TemperatureGfx     = 8
	v2TemperatureSoc     = 10
	v2TemperatureCore    = 12
	v2TemperatureL3      = 28
	v2AverageGfxActivity = 32
	v2AverageMmActivity  = 34
	v2AverageSocketPower = 36
	v2AverageCPUPower    = 38
	v2AverageSocPower    = 40
	v2AverageGfxPower    = 42
	v2AverageCorePower   = 44
	v2AverageClocks      = 60
	v2CurrentClocks      = 72
	v2CurrentCoreClk     = 84
	v2CurrentL3Clk       = 100
	v2ThrottleStatus     = 104
	v2FanPwm             = 112

	// content revision 1
	v2VoltageSoc = 114
	v2VoltageGfx = 116
	v2VoltageMem = 118
	v2Rev1End    = 120

	v2BaseSize = 116

	v2CoreCount = 8
	v2L3Count   = 2
)

// ClocksV2 holds the six shared clock domains of the v2 layout in MHz.
type ClocksV2 struct {
	Gfx  uint16
	Soc  uint16
	Uclk uint16
	Fclk uint16
	Vclk uint16
	Dclk uint16
}

// V2 is a decoded gpu_metrics v2.0 or v2.1 blob.
type V2 struct {
	Header Header

	SystemClockCounter uint64

	TemperatureGfx  uint16
	TemperatureSoc  uint16
	TemperatureCore [v2CoreCount]uint16
	TemperatureL3   [v2L3Count]uint16

	AverageGfxActivity uint16
	AverageMmActivity  uint16

	AverageSocketPower uint16
	AverageCPUPower    uint16
	AverageSocPower    uint16
	AverageGfxPower    uint16
	AverageCorePower   [v2CoreCount]uint16

	AverageClocks  ClocksV2
	CurrentClocks  ClocksV2
	CurrentCoreClk [v2CoreCount]uint16
	CurrentL3Clk   [v2L3Count]uint16

	ThrottleStatus uint64
	FanPwm         uint16

	// Present from content revision 1. Shared between copies and never
	// written after decode.
	VoltageSoc *uint16
	VoltageGfx *uint16
	VoltageMem *uint16
}

func readClocksV2(b []byte, off int) ClocksV2 {
	var c [6]uint16
	u16s(c[:], b, off)

	return ClocksV2{
		Gfx:  c[0],
		Soc:  c[1],
		Uclk: c[2],
		Fclk: c[3],
		Vclk: c[4],
		Dclk: c[5],
	}
}

func parseV2(h Header, b []byte) (Metrics, error) {
	if len(b) < v2BaseSize {
		return nil, insufficient("v2.x", len(b), v2BaseSize)
	}

	m := V2{
		Header:             h,
		SystemClockCounter: u64(b, v2SystemClockCounter),
		TemperatureGfx:     u16(b, v2TemperatureGfx),
		TemperatureSoc:     u16(b, v2TemperatureSoc),
		AverageGfxActivity: u16(b, v2AverageGfxActivity),
		AverageMmActivity:  u16(b, v2AverageMmActivity),
		AverageSocketPower: u16(b, v2AverageSocketPower),
		AverageCPUPower:    u16(b, v2AverageCPUPower),
		AverageSocPower:    u16(b, v2AverageSocPower),
		AverageGfxPower:    u16(b, v2AverageGfxPower),
		AverageClocks:      readClocksV2(b, v2AverageClocks),
		CurrentClocks:      readClocksV2(b, v2CurrentClocks),
		ThrottleStatus:     u64(b, v2ThrottleStatus),
		FanPwm:             u16(b, v2FanPwm),
	}

	u16s(m.TemperatureCore[:], b, v2TemperatureCore)
	u16s(m.TemperatureL3[:], b, v2TemperatureL3)
	u16s(m.AverageCorePower[:], b, v2AverageCorePower)
	u16s(m.CurrentCoreClk[:], b, v2CurrentCoreClk)
	u16s(m.CurrentL3Clk[:], b, v2CurrentL3Clk)

	if h.ContentRevision >= 1 && len(b) >= v2Rev1End {
		m.VoltageSoc = u16p(b, v2VoltageSoc)
		m.VoltageGfx = u16p(b, v2VoltageGfx)
		m.VoltageMem = u16p(b, v2VoltageMem)
	}

	return m, nil
}

func (m V2) GetHeader() Header {
	return m.Header
}

func (m V2) GetTemperature() (uint16, string) {
	return m.TemperatureGfx, "GFX"
}

func (m V2) GetAllTemperatures() []Reading {
	temps := make([]Reading, 0, 2+v2CoreCount+v2L3Count)
	temps = append(temps, Reading{"GFX", m.TemperatureGfx}, Reading{"SOC", m.TemperatureSoc})

	for i, t := range m.TemperatureCore {
		temps = append(temps, Reading{fmt.Sprintf("Core%d", i), t})
	}
	for i, t := range m.TemperatureL3 {
		temps = append(temps, Reading{fmt.Sprintf("L3_%d", i), t})
	}

	return temps
}

func (m V2) GetPower() uint16 {
	return m.AverageSocketPower
}

func (m V2) GetPowerBreakdown() map[string]uint16 {
	breakdown := map[string]uint16{
		"Socket": m.AverageSocketPower,
		"CPU":    m.AverageCPUPower,
		"SOC":    m.AverageSocPower,
		"GFX":    m.AverageGfxPower,
	}

	for i, p := range m.AverageCorePower {
		breakdown[fmt.Sprintf("Core%d", i)] = p
	}

	return breakdown
}

func (m V2) GetActivity() uint16 {
	return m.AverageGfxActivity
}

func (m V2) GetActivityBreakdown() map[string]uint16 {
	return map[string]uint16{
		"GFX": m.AverageGfxActivity,
		"MM":  m.AverageMmActivity,
	}
}

func (m V2) GetFrequency() uint16 {
	return m.CurrentClocks.Gfx
}

func (m V2) GetAllFrequencies() map[string]uint16 {
	cur, avg := m.CurrentClocks, m.AverageClocks

	freqs := map[string]uint16{
		"GFX Current":  cur.Gfx,
		"GFX Average":  avg.Gfx,
		"SOC Current":  cur.Soc,
		"SOC Average":  avg.Soc,
		"UCLK Current": cur.Uclk,
		"UCLK Average": avg.Uclk,
		"FCLK Current": cur.Fclk,
		"FCLK Average": avg.Fclk,
		"VCLK Current": cur.Vclk,
		"VCLK Average": avg.Vclk,
		"DCLK Current": cur.Dclk,
		"DCLK Average": avg.Dclk,
	}

	for i, f := range m.CurrentCoreClk {
		freqs[fmt.Sprintf("Core%d_CLK", i)] = f
	}
	for i, f := range m.CurrentL3Clk {
		freqs[fmt.Sprintf("L3_%d_CLK", i)] = f
	}

	return freqs
}

func (m V2) GetThrottleStatus() uint64 {
	return m.ThrottleStatus
}

// GetFanSpeed converts the PWM duty (0..255) to percent.
func (m V2) GetFanSpeed() (uint16, bool) {
	return uint16(float64(m.FanPwm) / 255 * 100), m.FanPwm > 0
}

func (m V2) GetMemoryInfo() (MemoryInfo, bool) {
	freq := m.CurrentClocks.Uclk

	return MemoryInfo{Frequency: &freq}, true
}

func (m V2) GetVoltageInfo() (VoltageInfo, bool) {
	v := VoltageInfo{
		Core:   clone16(m.VoltageGfx),
		SOC:    clone16(m.VoltageSoc),
		Memory: clone16(m.VoltageMem),
	}

	return v, v.any()
}

func (m V2) GetSystemClockCounter() uint64 {
	return m.SystemClockCounter
}
