// Package workflow runs the push constant compute demo end to end: it picks a
// device, uploads 0..N-1 into a storage buffer, dispatches the kernel once
// with the configured push constants and checks every element on the host.
package workflow

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/loov/hrtime"
	"github.com/sirupsen/logrus"

	"github.com/vkngwrapper/compute/compute"
	"github.com/vkngwrapper/compute/config"
	"github.com/vkngwrapper/compute/kernel"
	"github.com/vkngwrapper/compute/pushconst"
	"github.com/vkngwrapper/compute/verify"
)

const AppShortName = "push_constants"

type Result struct {
	RunID    uuid.UUID
	Device   string
	Elements int
	Runs     int
	// GPUDuration covers submission through fence signal, summed over runs.
	GPUDuration time.Duration
	Report      *verify.Report
}

// Run executes cfg.Runs dispatches. The first run is checked against the
// host reference; later runs must reproduce the first run exactly.
// A non-nil Result is returned alongside a verification error so callers can
// report what was read back.
func Run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:    uuid.New(),
		Elements: cfg.Kernel.Elements,
		Runs:     cfg.Runs,
	}
	log = log.WithField("run", result.RunID.String())

	data := pushconst.New(cfg.Push.Multiple, cfg.Push.Addend, cfg.Push.Enable)
	code, err := kernel.Load(cfg.Kernel.SPIRVPath)
	if err != nil {
		return nil, err
	}

	input := verify.Sequence(cfg.Kernel.Elements)
	want, err := verify.Expected(ctx, input, data, cfg.Verify.Workers)
	if err != nil {
		return nil, err
	}

	var first []uint32
	for run := 1; run <= cfg.Runs; run++ {
		d := &dispatch{
			cfg:   cfg,
			log:   log.WithField("pass", run),
			code:  code,
			data:  data,
			input: input,
		}
		got, err := d.execute(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "run %d", run)
		}
		result.Device = d.device
		result.GPUDuration += d.elapsed

		if first == nil {
			first = got
			result.Report, err = verify.Compare(ctx, got, want, cfg.Verify.Workers, cfg.Verify.MaxReported)
			if err != nil {
				return nil, err
			}
			if err := result.Report.Err(); err != nil {
				return result, err
			}
			continue
		}

		repeat, err := verify.Compare(ctx, got, first, cfg.Verify.Workers, cfg.Verify.MaxReported)
		if err != nil {
			return nil, err
		}
		if err := repeat.Err(); err != nil {
			return result, errors.Wrapf(err, "run %d differs from run 1", run)
		}
	}

	log.WithFields(logrus.Fields{
		"device":   result.Device,
		"elements": result.Elements,
		"runs":     result.Runs,
		"gpu_time": result.GPUDuration,
	}).Info("verified compute output")

	return result, nil
}

type dispatch struct {
	cfg   *config.Config
	log   logrus.FieldLogger
	code  []uint32
	data  pushconst.Data
	input []uint32

	device  string
	elapsed time.Duration
}

func (d *dispatch) execute(ctx context.Context) (output []uint32, err error) {
	info := &compute.Info{
		Log:              d.log,
		EnableValidation: d.cfg.Device.Validation,
	}
	defer func() {
		if destroyErr := info.Destroy(); destroyErr != nil {
			d.log.WithError(destroyErr).Error("releasing vulkan objects")
			if err == nil {
				err = destroyErr
			}
		}
	}()

	pushBytes, err := d.data.Encode()
	if err != nil {
		return nil, err
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"load vulkan", info.InitGlobalDriver},
		{"select instance extensions", info.InitInstanceExtensionNames},
		{"create instance", func() error { return info.InitInstance(AppShortName) }},
		{"create debug messenger", info.InitDebugMessenger},
		{"select physical device", func() error { return info.InitEnumerateDevice(d.cfg.Device.Index) }},
		{"check push constant limit", func() error { return d.data.Validate(info.MaxPushConstantsSize()) }},
		{"select device extensions", info.InitDeviceExtensionNames},
		{"create device", info.InitDevice},
		{"get compute queue", info.InitDeviceQueue},
		{"create command pool", info.InitCommandPool},
		{"allocate command buffer", info.InitCommandBuffer},
		{"create storage buffer", func() error { return info.InitStorageBuffer(d.input) }},
		{"create layouts", func() error { return info.InitDescriptorAndPipelineLayouts(pushconst.Range()) }},
		{"create descriptor pool", info.InitDescriptorPool},
		{"bind storage buffer", info.InitDescriptorSet},
		{"create shader module", func() error { return info.InitShader(d.code) }},
		{"create pipeline cache", info.InitPipelineCache},
		{"create pipeline", info.InitPipeline},
		{"begin command buffer", info.ExecuteBeginCommandBuffer},
		{"record dispatch", func() error {
			return info.RecordDispatch(pushBytes, kernel.GroupCount(len(d.input), kernel.WorkgroupSize))
		}},
		{"end command buffer", info.ExecuteEndCommandBuffer},
		{"create fence", info.InitFence},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d.log.Debug(step.name)
		if err := step.fn(); err != nil {
			return nil, errors.Wrap(err, step.name)
		}
	}
	d.device = info.GpuProps.DriverName

	start := hrtime.Now()
	if err := info.ExecuteQueueCmdBuf(); err != nil {
		return nil, err
	}
	if err := info.WaitForFence(ctx); err != nil {
		return nil, err
	}
	d.elapsed = hrtime.Since(start)
	d.log.WithField("gpu_time", d.elapsed).Debug("dispatch complete")

	return info.ReadStorageBuffer()
}

// Devices lists the physical devices visible to the Vulkan loader.
func Devices(cfg *config.Config, log logrus.FieldLogger) (devices []compute.DeviceSummary, err error) {
	info := &compute.Info{
		Log:              log,
		EnableValidation: cfg.Device.Validation,
	}
	defer func() {
		if destroyErr := info.Destroy(); destroyErr != nil && err == nil {
			err = destroyErr
		}
	}()

	if err := info.InitGlobalDriver(); err != nil {
		return nil, err
	}
	if err := info.InitInstanceExtensionNames(); err != nil {
		return nil, err
	}
	if err := info.InitInstance(AppShortName); err != nil {
		return nil, err
	}
	return info.ListDevices()
}
