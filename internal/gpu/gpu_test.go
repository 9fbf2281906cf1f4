package gpu

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/waysensor/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestSysfsRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	oldRoot := sysfsRoot
	sysfsRoot = root
	t.Cleanup(func() {
		sysfsRoot = oldRoot
	})

	return root
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func addCard(t *testing.T, root, name, vendor string, withMetrics bool) string {
	t.Helper()

	device := filepath.Join(root, "class", "drm", name, "device")
	writeTestFile(t, filepath.Join(device, "vendor"), vendor+"\n")
	if withMetrics {
		writeTestFile(t, filepath.Join(device, "gpu_metrics"), "\x60\x00\x01\x00")
	}

	return device
}

func TestFindPrimaryPicksLowestAMDCard(t *testing.T) {
	root := setTestSysfsRoot(t)

	addCard(t, root, "card0", "0x8086", true)
	addCard(t, root, "card2", AMDVendorID, true)
	amd := addCard(t, root, "card1", AMDVendorID, true)
	addCard(t, root, "card1-DP-1", AMDVendorID, true)

	card, err := FindPrimary()
	require.NoError(t, err)

	assert.Equal(t, "card1", card.Name)
	assert.Equal(t, amd, card.DevicePath)
	assert.Equal(t, filepath.Join(amd, "gpu_metrics"), card.MetricsPath)

	cards, err := FindAll()
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "card2", cards[1].Name)
}

func TestFindPrimarySkipsCardsWithoutMetrics(t *testing.T) {
	root := setTestSysfsRoot(t)
	addCard(t, root, "card0", AMDVendorID, false)

	_, err := FindPrimary()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrUnavailable))
	assert.Contains(t, err.Error(), "no compatible AMD GPU found")
}

func TestFindAllWithoutDRM(t *testing.T) {
	setTestSysfsRoot(t)

	_, err := FindAll()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrUnavailable))
}

func TestReadDeviceInfo(t *testing.T) {
	root := setTestSysfsRoot(t)
	device := addCard(t, root, "card1", AMDVendorID, true)

	writeTestFile(t, filepath.Join(device, "device"), "0x744c\n")
	writeTestFile(t, filepath.Join(device, "subsystem_device"), "0x5310\n")
	writeTestFile(t, filepath.Join(device, "driver", "module", "version"), "6.8.0\n")
	writeTestFile(t, filepath.Join(device, "uevent"), "DRIVER=amdgpu\nPCI_SLOT_NAME=0000:03:00.0\n")
	writeTestFile(t, filepath.Join(device, "mem_info_vram_total"), "25753026560\n")
	writeTestFile(t, filepath.Join(device, "gpu_busy_percent"), "3\n")

	info, err := ReadDeviceInfo(filepath.Join(device, "gpu_metrics"))
	require.NoError(t, err)

	assert.Equal(t, "card1", info.CardName)
	assert.Equal(t, "0x744c", info.DeviceID)
	assert.Equal(t, AMDVendorID, info.VendorID)
	assert.Equal(t, "0x5310", info.SubsystemDeviceID)
	assert.Equal(t, "6.8.0", info.DriverVersion)
	assert.Equal(t, "0000:03:00.0", info.PCISlot)
	assert.Equal(t, uint64(25753026560), info.MemorySize)
	assert.Equal(t, []string{"gpu_metrics", "gpu_busy_percent", "mem_info_vram_total"}, info.SupportedFeatures)
}

func TestReadDeviceInfoMissingAttributes(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "gpu_metrics"), "")

	info, err := ReadDeviceInfo(filepath.Join(dir, "gpu_metrics"))
	require.NoError(t, err)

	assert.Equal(t, "unknown", info.DeviceID)
	assert.Equal(t, "unknown", info.VendorID)
	assert.Empty(t, info.DriverVersion)
	assert.Zero(t, info.MemorySize)

	_, err = ReadDeviceInfo(filepath.Join(dir, "missing", "gpu_metrics"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrDeviceInfoFailed))
}

func TestReadVRAMUsage(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "mem_info_vram_used"), "1073741824\n")
	writeTestFile(t, filepath.Join(dir, "mem_info_vram_total"), "4294967296\n")

	usage, err := ReadVRAMUsage(filepath.Join(dir, "gpu_metrics"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1073741824), usage.Used)
	assert.InDelta(t, 25.0, usage.Percent(), 0.001)

	assert.Zero(t, VRAMUsage{Used: 5}.Percent())

	_, err = ReadVRAMUsage(filepath.Join(t.TempDir(), "gpu_metrics"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrVRAMReadFailed))
}

func TestSmoother(t *testing.T) {
	s := NewSmoother()

	assert.Equal(t, Temperature(50), s.UpdateTemperatureHistory(50))
	assert.Equal(t, Temperature(55), s.UpdateTemperatureHistory(60))

	for _, v := range []Temperature{60, 60, 60, 60} {
		s.UpdateTemperatureHistory(v)
	}
	// The first reading has left the window.
	assert.Equal(t, Temperature(60), s.UpdateTemperatureHistory(60))
	assert.Equal(t, temperatureWindowSize, s.Samples())

	assert.Equal(t, Power(100), s.UpdatePowerHistory(100))
	assert.Equal(t, Power(150), s.UpdatePowerHistory(200))

	s.Reset()
	assert.Zero(t, s.Samples())
	assert.Equal(t, Power(10), s.UpdatePowerHistory(10))
}
