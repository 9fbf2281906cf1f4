// Package gpu finds AMD GPUs in sysfs and reads their descriptive attributes.
package gpu

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/waysensor/internal/errors"
	"codeberg.org/mutker/waysensor/internal/logger"
)

const metricsFile = "gpu_metrics"

var sysfsRoot = "/sys"

// features are the optional amdgpu attributes reported in DeviceInfo.
var features = []string{
	"gpu_metrics",
	"gpu_busy_percent",
	"mem_busy_percent",
	"mem_info_vram_total",
	"mem_info_vram_used",
	"pp_dpm_sclk",
	"pp_dpm_mclk",
	"power_dpm_force_performance_level",
	"hwmon",
}

// FindAll returns every AMD card with a gpu_metrics file, ordered by name.
func FindAll() ([]Card, error) {
	errFactory := errors.New()
	drm := filepath.Join(sysfsRoot, "class", "drm")

	entries, err := os.ReadDir(drm)
	if err != nil {
		return nil, errFactory.Wrap(ErrUnavailable, err).WithMessage("DRM subsystem not available")
	}

	var cards []Card
	for _, entry := range entries {
		name := entry.Name()
		// Connector entries such as card0-eDP-1 are not devices.
		if !strings.HasPrefix(name, "card") || strings.Contains(name, "-") {
			continue
		}

		device := filepath.Join(drm, name, "device")
		vendor, err := readString(filepath.Join(device, "vendor"))
		if err != nil || vendor != AMDVendorID {
			continue
		}

		metrics := filepath.Join(device, metricsFile)
		if _, err := os.Stat(metrics); err != nil {
			logger.Debug().Str("card", name).Msg("AMD card without gpu_metrics, skipping")
			continue
		}

		cards = append(cards, Card{
			Name:        name,
			DevicePath:  device,
			MetricsPath: metrics,
		})
	}

	sort.Slice(cards, func(i, j int) bool {
		return cardIndex(cards[i].Name) < cardIndex(cards[j].Name)
	})

	return cards, nil
}

// FindPrimary returns the lowest-numbered AMD card with a gpu_metrics file.
func FindPrimary() (Card, error) {
	cards, err := FindAll()
	if err != nil {
		return Card{}, err
	}

	if len(cards) == 0 {
		return Card{}, errors.New().WithMessage(ErrUnavailable, "no compatible AMD GPU found")
	}

	logger.Debug().
		Str("card", cards[0].Name).
		Str("path", cards[0].MetricsPath).
		Int("candidates", len(cards)).
		Msg("Detected AMD GPU")

	return cards[0], nil
}

// ReadDeviceInfo describes the device that owns metricsPath. Attributes
// that cannot be read are left empty.
func ReadDeviceInfo(metricsPath string) (DeviceInfo, error) {
	device := filepath.Dir(metricsPath)
	if _, err := os.Stat(device); err != nil {
		return DeviceInfo{}, errors.New().Wrap(ErrDeviceInfoFailed, err)
	}

	info := DeviceInfo{
		CardName: cardName(device),
		DeviceID: readStringOr(filepath.Join(device, "device"), "unknown"),
		VendorID: readStringOr(filepath.Join(device, "vendor"), "unknown"),

		SubsystemDeviceID: readStringOr(filepath.Join(device, "subsystem_device"), ""),
		DriverVersion:     driverVersion(device),
		PCISlot:           ueventValue(filepath.Join(device, "uevent"), "PCI_SLOT_NAME"),
	}

	if total, err := readUint(filepath.Join(device, "mem_info_vram_total")); err == nil {
		info.MemorySize = total
	}

	for _, f := range features {
		if _, err := os.Stat(filepath.Join(device, f)); err == nil {
			info.SupportedFeatures = append(info.SupportedFeatures, f)
		}
	}

	return info, nil
}

// ReadVRAMUsage reads the framebuffer usage of the device that owns metricsPath.
func ReadVRAMUsage(metricsPath string) (VRAMUsage, error) {
	errFactory := errors.New()
	device := filepath.Dir(metricsPath)

	used, err := readUint(filepath.Join(device, "mem_info_vram_used"))
	if err != nil {
		return VRAMUsage{}, errFactory.Wrap(ErrVRAMReadFailed, err)
	}

	total, err := readUint(filepath.Join(device, "mem_info_vram_total"))
	if err != nil {
		return VRAMUsage{}, errFactory.Wrap(ErrVRAMReadFailed, err)
	}

	return VRAMUsage{Used: used, Total: total}, nil
}

// cardName prefers the DRM card the device is bound to, falling back to
// the device directory name.
func cardName(device string) string {
	matches, _ := filepath.Glob(filepath.Join(device, "drm", "card*"))
	for _, m := range matches {
		name := filepath.Base(m)
		if !strings.Contains(name, "-") {
			return name
		}
	}

	if parent := filepath.Base(filepath.Dir(device)); strings.HasPrefix(parent, "card") {
		return parent
	}

	return filepath.Base(device)
}

func driverVersion(device string) string {
	if v, err := readString(filepath.Join(device, "driver", "module", "version")); err == nil {
		return v
	}

	if target, err := os.Readlink(filepath.Join(device, "driver")); err == nil {
		return filepath.Base(target)
	}

	return ""
}

func cardIndex(name string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "card"))
	if err != nil {
		return int(^uint(0) >> 1)
	}

	return n
}

func readString(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

func readStringOr(path, fallback string) string {
	s, err := readString(path)
	if err != nil || s == "" {
		return fallback
	}

	return s
}

func readUint(path string) (uint64, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}

	return strconv.ParseUint(s, 10, 64)
}

func ueventValue(path, key string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		k, v, ok := strings.Cut(scanner.Text(), "=")
		if ok && k == key {
			return v
		}
	}

	return ""
}
