package compute

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/compute/kernel"
)

// InitDescriptorAndPipelineLayouts declares one storage buffer at the kernel's
// binding and the push constant range the dispatch will fill.
func (i *Info) InitDescriptorAndPipelineLayouts(pushRange core1_0.PushConstantRange) error {
	layout, _, err := i.DeviceDriver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         kernel.StorageBinding,
				DescriptorType:  core1_0.DescriptorTypeStorageBuffer,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageCompute,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "creating descriptor set layout")
	}
	i.DescLayout = []core1_0.DescriptorSetLayout{layout}

	i.PipelineLayout, _, err = i.DeviceDriver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts:         i.DescLayout,
		PushConstantRanges: []core1_0.PushConstantRange{pushRange},
	})
	if err != nil {
		return errors.Wrap(err, "creating pipeline layout")
	}
	return nil
}

func (i *Info) InitDescriptorPool() error {
	var err error
	i.DescPool, _, err = i.DeviceDriver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: NumDescriptorSets,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeStorageBuffer,
				DescriptorCount: 1,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "creating descriptor pool")
	}
	return nil
}

// InitDescriptorSet allocates the single set and points it at the storage
// buffer, which must already exist.
func (i *Info) InitDescriptorSet() error {
	var err error
	i.DescSet, _, err = i.DeviceDriver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: i.DescPool,
		SetLayouts:     i.DescLayout,
	})
	if err != nil {
		return errors.Wrap(err, "allocating descriptor set")
	}

	err = i.DeviceDriver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:          i.DescSet[0],
			DstBinding:      kernel.StorageBinding,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeStorageBuffer,

			BufferInfo: []core1_0.DescriptorBufferInfo{i.StorageData.BufferInfo},
		},
	}, nil)
	if err != nil {
		return errors.Wrap(err, "writing descriptor set")
	}
	return nil
}

func (i *Info) InitShader(code []uint32) error {
	var err error
	i.Shader, _, err = i.DeviceDriver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	if err != nil {
		return errors.Wrap(err, "creating shader module")
	}
	return nil
}

func (i *Info) InitPipelineCache() error {
	var err error
	i.PipelineCache, _, err = i.DeviceDriver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{})
	if err != nil {
		return errors.Wrap(err, "creating pipeline cache")
	}
	return nil
}

func (i *Info) InitPipeline() error {
	pipelines, _, err := i.DeviceDriver.CreateComputePipelines(&i.PipelineCache, nil,
		core1_0.ComputePipelineCreateInfo{
			Stage: core1_0.PipelineShaderStageCreateInfo{
				Stage:  core1_0.StageCompute,
				Module: i.Shader,
				Name:   kernel.EntryPoint,
			},
			Layout:            i.PipelineLayout,
			BasePipelineIndex: -1,
		},
	)
	if err != nil {
		return errors.Wrap(err, "creating compute pipeline")
	}
	i.Pipeline = pipelines[0]
	return nil
}
