package compute

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// FindComputeQueueFamily returns the index of a queue family that supports
// compute. Dedicated compute families (no graphics bit) are preferred.
func FindComputeQueueFamily(families []*core1_0.QueueFamilyProperties) (int, error) {
	fallback := -1
	for idx, family := range families {
		if family == nil || family.QueueCount < 1 {
			continue
		}
		if (family.QueueFlags & core1_0.QueueCompute) == 0 {
			continue
		}
		if (family.QueueFlags & core1_0.QueueGraphics) == 0 {
			return idx, nil
		}
		if fallback < 0 {
			fallback = idx
		}
	}

	if fallback < 0 {
		return -1, errors.New("could not find a queue family with compute capability")
	}
	return fallback, nil
}

// FindMemoryType returns the first memory type allowed by typeBits that has
// all of flags.
func FindMemoryType(props *core1_0.PhysicalDeviceMemoryProperties, typeBits uint32, flags core1_0.MemoryPropertyFlags) (int, error) {
	if props != nil {
		for typeIndex, memType := range props.MemoryTypes {
			typeBit := uint32(1) << uint(typeIndex)
			if (typeBits&typeBit) != 0 && (memType.PropertyFlags&flags) == flags {
				return typeIndex, nil
			}
		}
	}

	return 0, errors.Newf("could not find a memory type matching type request %x with flags %s", typeBits, flags)
}

func (i *Info) MemoryTypeFromProperties(typeBits uint32, flags core1_0.MemoryPropertyFlags) (int, error) {
	return FindMemoryType(i.MemoryProperties, typeBits, flags)
}

// DeviceSummary describes one physical device for listing.
type DeviceSummary struct {
	Index                int
	Name                 string
	Type                 string
	APIVersion           string
	MaxPushConstantsSize int
	// ComputeQueueFamily is -1 when the device cannot run the kernel.
	ComputeQueueFamily int
}

func (d DeviceSummary) String() string {
	family := "none"
	if d.ComputeQueueFamily >= 0 {
		family = fmt.Sprintf("%d", d.ComputeQueueFamily)
	}
	return fmt.Sprintf("%d: %s (%s, Vulkan %s) push constants: %d bytes, compute queue family: %s",
		d.Index, d.Name, d.Type, d.APIVersion, d.MaxPushConstantsSize, family)
}

// ListDevices describes every physical device visible to the instance.
func (i *Info) ListDevices() ([]DeviceSummary, error) {
	gpus, _, err := i.InstanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "enumerating physical devices")
	}

	var summaries []DeviceSummary
	for idx, gpu := range gpus {
		props, err := i.InstanceDriver.GetPhysicalDeviceProperties(gpu)
		if err != nil {
			return nil, errors.Wrapf(err, "reading properties of device %d", idx)
		}

		family, err := FindComputeQueueFamily(i.InstanceDriver.GetPhysicalDeviceQueueFamilyProperties(gpu))
		if err != nil {
			family = -1
		}

		summaries = append(summaries, DeviceSummary{
			Index:                idx,
			Name:                 props.DriverName,
			Type:                 fmt.Sprint(props.DriverType),
			APIVersion:           fmt.Sprint(props.APIVersion),
			MaxPushConstantsSize: int(props.Limits.MaxPushConstantsSize),
			ComputeQueueFamily:   family,
		})
	}

	return summaries, nil
}
