package compute

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func (i *Info) InitCommandPool() error {
	var err error
	i.CmdPool, _, err = i.DeviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: i.ComputeQueueFamilyIndex,
	})
	if err != nil {
		return errors.Wrap(err, "creating command pool")
	}
	return nil
}

func (i *Info) InitCommandBuffer() error {
	buffers, _, err := i.DeviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        i.CmdPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return errors.Wrap(err, "allocating command buffer")
	}
	i.Cmd = buffers[0]
	return nil
}

func (i *Info) ExecuteBeginCommandBuffer() error {
	_, err := i.DeviceDriver.BeginCommandBuffer(i.Cmd, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return errors.Wrap(err, "beginning command buffer")
}

func (i *Info) ExecuteEndCommandBuffer() error {
	_, err := i.DeviceDriver.EndCommandBuffer(i.Cmd)
	return errors.Wrap(err, "ending command buffer")
}

// RecordDispatch records the pipeline bind, the push constant upload and a
// dispatch of groupCount workgroups, followed by a barrier that makes the
// shader writes visible to host reads.
func (i *Info) RecordDispatch(pushBytes []byte, groupCount int) error {
	if groupCount < 1 {
		return errors.Newf("dispatch needs at least one workgroup, got %d", groupCount)
	}
	if limit := i.MaxWorkGroupCountX(); groupCount > limit {
		return errors.Newf("dispatch of %d workgroups exceeds device limit %d", groupCount, limit)
	}

	i.DeviceDriver.CmdBindPipeline(i.Cmd, core1_0.PipelineBindPointCompute, i.Pipeline)
	i.DeviceDriver.CmdBindDescriptorSets(i.Cmd, core1_0.PipelineBindPointCompute, i.PipelineLayout, 0, i.DescSet, nil)
	i.DeviceDriver.CmdPushConstants(i.Cmd, i.PipelineLayout, core1_0.StageCompute, 0, pushBytes)
	i.DeviceDriver.CmdDispatch(i.Cmd, groupCount, 1, 1)

	err := i.DeviceDriver.CmdPipelineBarrier(i.Cmd,
		core1_0.PipelineStageComputeShader,
		core1_0.PipelineStageHost,
		0,
		[]core1_0.MemoryBarrier{
			{
				SrcAccessMask: core1_0.AccessShaderWrite,
				DstAccessMask: core1_0.AccessHostRead,
			},
		}, nil, nil)
	if err != nil {
		return errors.Wrap(err, "recording host read barrier")
	}
	return nil
}

func (i *Info) InitFence() error {
	var err error
	i.Fence, _, err = i.DeviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{})
	if err != nil {
		return errors.Wrap(err, "creating fence")
	}
	return nil
}

// ExecuteQueueCmdBuf submits the recorded command buffer; Fence signals when
// the queue has finished it.
func (i *Info) ExecuteQueueCmdBuf() error {
	_, err := i.DeviceDriver.QueueSubmit(i.ComputeQueue, &i.Fence, core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{i.Cmd},
	})
	if err != nil {
		return errors.Wrap(err, "submitting command buffer")
	}
	return nil
}

// WaitForFence polls Fence in FenceTimeout slices until it signals or ctx is
// done.
func (i *Info) WaitForFence(ctx context.Context) error {
	for {
		res, err := i.DeviceDriver.WaitForFences(true, FenceTimeout, i.Fence)
		if err != nil {
			return errors.Wrap(err, "waiting for fence")
		}
		if res != core1_0.VKTimeout {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "waiting for fence")
		}
		i.log().WithField("timeout", FenceTimeout).Trace("fence not signaled yet")
	}
}
