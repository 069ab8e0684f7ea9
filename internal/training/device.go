package training

import (
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/klauspost/cpuid/v2"
)

const (
	cpuBatch   = 8
	maxWorkers = 8
)

// Device is the hardware training will run on.
type Device struct {
	GPU   bool
	Name  string
	Cores int
}

// DetectDevice looks for an NVIDIA graphics card and falls back to the CPU.
// forceCPU skips the GPU probe.
func DetectDevice(forceCPU bool) Device {
	cpu := Device{Name: strings.TrimSpace(cpuid.CPU.BrandName), Cores: cpuid.CPU.LogicalCores}
	if forceCPU {
		return cpu
	}

	gpu, err := ghw.GPU()
	if err != nil {
		return cpu
	}
	for _, card := range gpu.GraphicsCards {
		if card.DeviceInfo == nil || card.DeviceInfo.Vendor == nil {
			continue
		}
		if !strings.Contains(strings.ToLower(card.DeviceInfo.Vendor.Name), "nvidia") {
			continue
		}
		name := card.DeviceInfo.Vendor.Name
		if card.DeviceInfo.Product != nil {
			name = card.DeviceInfo.Product.Name
		}
		return Device{GPU: true, Name: name, Cores: cpu.Cores}
	}
	return cpu
}

// ApplyDevice selects the trainer device unless one was configured
// explicitly. CPU training gets a smaller batch and a worker count bounded
// by the logical cores.
func (c *Config) ApplyDevice(d Device) {
	if c.Device != "" && c.Device != DeviceAuto {
		return
	}

	if d.GPU {
		c.Device = "0"
		return
	}

	c.Device = "cpu"
	c.Batch = cpuBatch
	if d.Cores > 0 {
		c.Workers = min(d.Cores, maxWorkers)
	}
}
