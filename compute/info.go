package compute

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
)

// Info holds every Vulkan object used by a single compute dispatch. Methods
// are meant to be called in the order they are declared, and Destroy
// releases whatever was created, so a partially initialized Info can always
// be cleaned up.
type Info struct {
	Log logrus.FieldLogger

	GlobalDriver   core1_0.GlobalDriver
	InstanceDriver core1_0.CoreInstanceDriver
	DeviceDriver   core1_0.CoreDeviceDriver

	EnableValidation       bool
	InstanceLayerNames     []string
	InstanceExtensionNames []string
	Portability            bool
	DeviceExtensionNames   []string

	DebugDriver    ext_debug_utils.ExtensionDriver
	DebugMessenger ext_debug_utils.DebugUtilsMessenger

	Gpus             []core1_0.PhysicalDevice
	Gpu              core1_0.PhysicalDevice
	GpuProps         *core1_0.PhysicalDeviceProperties
	QueueProps       []*core1_0.QueueFamilyProperties
	MemoryProperties *core1_0.PhysicalDeviceMemoryProperties

	ComputeQueueFamilyIndex int
	ComputeQueue            core1_0.Queue

	CmdPool core1_0.CommandPool
	Cmd     core1_0.CommandBuffer
	Fence   core1_0.Fence

	StorageData struct {
		Buf        core1_0.Buffer
		Mem        core1_0.DeviceMemory
		BufferInfo core1_0.DescriptorBufferInfo
		Elements   int
		Size       int
	}

	DescLayout     []core1_0.DescriptorSetLayout
	PipelineLayout core1_0.PipelineLayout
	DescPool       core1_0.DescriptorPool
	DescSet        []core1_0.DescriptorSet

	Shader        core1_0.ShaderModule
	PipelineCache core1_0.PipelineCache
	Pipeline      core1_0.Pipeline
}

func (i *Info) log() logrus.FieldLogger {
	if i.Log == nil {
		i.Log = logrus.StandardLogger()
	}
	return i.Log
}

// InitGlobalDriver loads the system Vulkan loader.
func (i *Info) InitGlobalDriver() error {
	if i.GlobalDriver != nil {
		return nil
	}

	var err error
	i.GlobalDriver, err = core.CreateSystemDriver()
	if err != nil {
		return errors.Wrap(err, "loading vulkan")
	}
	return nil
}

// InitInstanceExtensionNames decides which layers and instance extensions to
// enable. Validation is dropped with a warning when the layer is missing.
func (i *Info) InitInstanceExtensionNames() error {
	extensions, _, err := i.GlobalDriver.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "enumerating instance extensions")
	}

	if i.EnableValidation {
		layers, _, err := i.GlobalDriver.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "enumerating instance layers")
		}

		_, hasLayer := layers[ValidationLayer]
		_, hasDebugUtils := extensions[ext_debug_utils.ExtensionName]
		if hasLayer && hasDebugUtils {
			i.InstanceLayerNames = append(i.InstanceLayerNames, ValidationLayer)
			i.InstanceExtensionNames = append(i.InstanceExtensionNames, ext_debug_utils.ExtensionName)
		} else {
			i.log().Warnf("validation requested but %s is not available- install LunarG Vulkan SDK", ValidationLayer)
			i.EnableValidation = false
		}
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		i.InstanceExtensionNames = append(i.InstanceExtensionNames, khr_portability_enumeration.ExtensionName)
		i.Portability = true
	}

	return nil
}

func (i *Info) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityInfo,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    i.logDebug,
	}
}

func (i *Info) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	entry := i.log().WithField("type", msgType.String())

	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		entry.Error(data.Message)
	case severity&ext_debug_utils.SeverityWarning != 0:
		entry.Warn(data.Message)
	case severity&ext_debug_utils.SeverityInfo != 0:
		entry.Debug(data.Message)
	default:
		entry.Trace(data.Message)
	}

	return false
}

func (i *Info) InitInstance(appShortName string) error {
	options := core1_0.InstanceCreateInfo{
		ApplicationName:       appShortName,
		ApplicationVersion:    common.CreateVersion(0, 0, 1),
		EngineName:            appShortName,
		EngineVersion:         common.CreateVersion(0, 0, 1),
		APIVersion:            APIVersion,
		EnabledExtensionNames: i.InstanceExtensionNames,
		EnabledLayerNames:     i.InstanceLayerNames,
	}
	if i.Portability {
		options.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}
	if i.EnableValidation {
		options.Next = i.debugMessengerOptions()
	}

	instance, _, err := i.GlobalDriver.CreateInstance(nil, options)
	if err != nil {
		return errors.Wrap(err, "creating instance")
	}

	i.InstanceDriver, err = i.GlobalDriver.BuildInstanceDriver(instance)
	if err != nil {
		return errors.Wrap(err, "loading instance driver")
	}
	return nil
}

// InitDebugMessenger routes validation messages into the logger.
func (i *Info) InitDebugMessenger() error {
	if !i.EnableValidation {
		return nil
	}

	var err error
	i.DebugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(i.InstanceDriver)
	i.DebugMessenger, _, err = i.DebugDriver.CreateDebugUtilsMessenger(nil, i.debugMessengerOptions())
	if err != nil {
		return errors.Wrap(err, "creating debug messenger")
	}
	return nil
}

// InitEnumerateDevice picks the physical device at index, or the first
// device exposing a compute queue when index is negative.
func (i *Info) InitEnumerateDevice(index int) error {
	var err error
	i.Gpus, _, err = i.InstanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerating physical devices")
	}
	if len(i.Gpus) == 0 {
		return errors.New("no vulkan physical devices found")
	}

	if index >= len(i.Gpus) {
		return errors.Newf("device index %d out of range: %d devices available", index, len(i.Gpus))
	}

	i.ComputeQueueFamilyIndex = -1
	if index >= 0 {
		i.Gpu = i.Gpus[index]
		i.QueueProps = i.InstanceDriver.GetPhysicalDeviceQueueFamilyProperties(i.Gpu)
		i.ComputeQueueFamilyIndex, err = FindComputeQueueFamily(i.QueueProps)
		if err != nil {
			return errors.Wrapf(err, "physical device %d", index)
		}
	} else {
		for _, gpu := range i.Gpus {
			queueProps := i.InstanceDriver.GetPhysicalDeviceQueueFamilyProperties(gpu)
			family, err := FindComputeQueueFamily(queueProps)
			if err != nil {
				continue
			}
			i.Gpu = gpu
			i.QueueProps = queueProps
			i.ComputeQueueFamilyIndex = family
			break
		}
		if i.ComputeQueueFamilyIndex < 0 {
			return errors.New("failed to find a GPU with a compute queue")
		}
	}

	i.MemoryProperties = i.InstanceDriver.GetPhysicalDeviceMemoryProperties(i.Gpu)
	i.GpuProps, err = i.InstanceDriver.GetPhysicalDeviceProperties(i.Gpu)
	if err != nil {
		return errors.Wrap(err, "reading physical device properties")
	}

	i.log().WithFields(logrus.Fields{
		"device":       i.GpuProps.DriverName,
		"type":         i.GpuProps.DriverType,
		"api":          i.GpuProps.APIVersion,
		"queue_family": i.ComputeQueueFamilyIndex,
	}).Info("selected physical device")

	return nil
}

// InitDeviceExtensionNames enables VK_KHR_portability_subset where the
// implementation exposes it; portability implementations must have it enabled.
func (i *Info) InitDeviceExtensionNames() error {
	extensions, _, err := i.InstanceDriver.EnumerateDeviceExtensionProperties(i.Gpu)
	if err != nil {
		return errors.Wrap(err, "enumerating device extensions")
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		i.DeviceExtensionNames = append(i.DeviceExtensionNames, khr_portability_subset.ExtensionName)
	}
	return nil
}

func (i *Info) InitDevice() error {
	device, _, err := i.InstanceDriver.CreateDevice(i.Gpu, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: i.ComputeQueueFamilyIndex,
				QueuePriorities:  []float32{0.5},
			},
		},
		EnabledExtensionNames: i.DeviceExtensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "creating logical device")
	}

	i.DeviceDriver, err = i.InstanceDriver.BuildDeviceDriver(device)
	if err != nil {
		return errors.Wrap(err, "loading device driver")
	}
	return nil
}

func (i *Info) InitDeviceQueue() error {
	i.ComputeQueue = i.DeviceDriver.GetQueue(i.ComputeQueueFamilyIndex, 0)
	return nil
}

// MaxPushConstantsSize reports the selected device's push constant limit.
func (i *Info) MaxPushConstantsSize() int {
	return int(i.GpuProps.Limits.MaxPushConstantsSize)
}

// MaxWorkGroupCountX reports how many workgroups a single dispatch may use.
func (i *Info) MaxWorkGroupCountX() int {
	return int(i.GpuProps.Limits.MaxComputeWorkGroupCount[0])
}
