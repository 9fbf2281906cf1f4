package gpumetrics

import "strings"

// ThrottleStatus is the throttler status word reported by the SMU.
type ThrottleStatus uint64

// ThrottleFlag names one bit of the status word.
type ThrottleFlag struct {
	Name string
	Bit  uint
}

// ThrottleFlags lists every named bit in ascending bit order.
var ThrottleFlags = []ThrottleFlag{
	{"PROCHOT_CPU", 0},
	{"PROCHOT_GFX", 1},
	{"PPT0", 16},
	{"PPT1", 17},
	{"PPT2", 18},
	{"PPT3", 19},
	{"SPL", 20},
	{"FPPT", 21},
	{"SPPT", 22},
	{"SPPT_APU", 23},
	{"THM_CORE", 32},
	{"THM_GFX", 33},
	{"THM_SOC", 34},
}

const (
	thermalMask = ThrottleStatus(0b111) << 32
	powerMask   = ThrottleStatus(0xff) << 16
)

// IsThrottling reports whether any bit is set, named or not.
func (s ThrottleStatus) IsThrottling() bool {
	return s != 0
}

// ActiveFlags returns the names of the set bits that have a name.
func (s ThrottleStatus) ActiveFlags() []string {
	var active []string
	for _, f := range ThrottleFlags {
		if s&(1<<f.Bit) != 0 {
			active = append(active, f.Name)
		}
	}

	return active
}

// Severity is the fraction of named flags that are set. Unnamed bits do not
// count, so a throttling status can still have a severity of 0.
func (s ThrottleStatus) Severity() float64 {
	return float64(len(s.ActiveFlags())) / float64(len(ThrottleFlags))
}

// IsThermalThrottling reports whether any THM_* bit is set.
func (s ThrottleStatus) IsThermalThrottling() bool {
	return s&thermalMask != 0
}

// IsPowerThrottling reports whether any PPT*, SPL, FPPT or SPPT* bit is set.
func (s ThrottleStatus) IsPowerThrottling() bool {
	return s&powerMask != 0
}

func (s ThrottleStatus) String() string {
	if s == 0 {
		return "none"
	}

	active := s.ActiveFlags()
	if len(active) == 0 {
		return "unknown"
	}

	return strings.Join(active, ",")
}
