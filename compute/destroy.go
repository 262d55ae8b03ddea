package compute

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
)

// Destroy releases every object the Info created, in reverse creation order.
// Objects that were never created are skipped.
func (i *Info) Destroy() error {
	var err error
	if i.DeviceDriver != nil {
		err = i.DestroyDevice()
	}
	i.DestroyInstance()
	return err
}

// DestroyDevice waits for the device to go idle, then tears down everything
// owned by it. A failed wait is returned after the teardown has finished.
func (i *Info) DestroyDevice() error {
	_, err := i.DeviceDriver.DeviceWaitIdle()
	if err != nil {
		err = errors.Wrap(err, "waiting for device idle")
		i.log().WithError(err).Warn("destroying device objects anyway")
	}

	if i.Fence.Initialized() {
		i.DeviceDriver.DestroyFence(i.Fence, nil)
		i.Fence = core1_0.Fence{}
	}
	i.DestroyPipeline()
	i.DestroyShader()
	i.DestroyDescriptorPool()
	i.DestroyDescriptorAndPipelineLayouts()
	i.DestroyStorageBuffer()
	i.DestroyCommandBuffer()
	i.DestroyCommandPool()

	i.DeviceDriver.DestroyDevice(nil)
	i.DeviceDriver = nil
	return err
}

func (i *Info) DestroyPipeline() {
	if i.Pipeline.Initialized() {
		i.DeviceDriver.DestroyPipeline(i.Pipeline, nil)
		i.Pipeline = core1_0.Pipeline{}
	}
	if i.PipelineCache.Initialized() {
		i.DeviceDriver.DestroyPipelineCache(i.PipelineCache, nil)
		i.PipelineCache = core1_0.PipelineCache{}
	}
}

func (i *Info) DestroyShader() {
	if i.Shader.Initialized() {
		i.DeviceDriver.DestroyShaderModule(i.Shader, nil)
		i.Shader = core1_0.ShaderModule{}
	}
}

// DestroyDescriptorPool frees the pool and the set allocated from it.
func (i *Info) DestroyDescriptorPool() {
	if i.DescPool.Initialized() {
		i.DeviceDriver.DestroyDescriptorPool(i.DescPool, nil)
		i.DescPool = core1_0.DescriptorPool{}
	}
	i.DescSet = nil
}

func (i *Info) DestroyDescriptorAndPipelineLayouts() {
	for _, layout := range i.DescLayout {
		i.DeviceDriver.DestroyDescriptorSetLayout(layout, nil)
	}
	i.DescLayout = nil

	if i.PipelineLayout.Initialized() {
		i.DeviceDriver.DestroyPipelineLayout(i.PipelineLayout, nil)
		i.PipelineLayout = core1_0.PipelineLayout{}
	}
}

func (i *Info) DestroyStorageBuffer() {
	if i.StorageData.Buf.Initialized() {
		i.DeviceDriver.DestroyBuffer(i.StorageData.Buf, nil)
		i.StorageData.Buf = core1_0.Buffer{}
	}
	if i.StorageData.Mem.Initialized() {
		i.DeviceDriver.FreeMemory(i.StorageData.Mem, nil)
		i.StorageData.Mem = core1_0.DeviceMemory{}
	}
}

func (i *Info) DestroyCommandBuffer() {
	if i.Cmd.Initialized() {
		i.DeviceDriver.FreeCommandBuffers(i.Cmd)
		i.Cmd = core1_0.CommandBuffer{}
	}
}

func (i *Info) DestroyCommandPool() {
	if i.CmdPool.Initialized() {
		i.DeviceDriver.DestroyCommandPool(i.CmdPool, nil)
		i.CmdPool = core1_0.CommandPool{}
	}
}

func (i *Info) DestroyInstance() {
	if i.InstanceDriver == nil {
		return
	}

	if i.DebugDriver != nil && i.DebugMessenger.Initialized() {
		i.DebugDriver.DestroyDebugUtilsMessenger(i.DebugMessenger, nil)
		i.DebugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}
	i.InstanceDriver.DestroyInstance(nil)
	i.InstanceDriver = nil
}
