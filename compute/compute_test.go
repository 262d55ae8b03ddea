package compute

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestFindComputeQueueFamily(t *testing.T) {
	tests := []struct {
		name     string
		families []*core1_0.QueueFamilyProperties
		want     int
		wantErr  bool
	}{
		{
			name: "dedicated compute preferred",
			families: []*core1_0.QueueFamilyProperties{
				{QueueFlags: core1_0.QueueGraphics | core1_0.QueueCompute | core1_0.QueueTransfer, QueueCount: 16},
				{QueueFlags: core1_0.QueueTransfer, QueueCount: 2},
				{QueueFlags: core1_0.QueueCompute | core1_0.QueueTransfer, QueueCount: 8},
			},
			want: 2,
		},
		{
			name: "graphics family fallback",
			families: []*core1_0.QueueFamilyProperties{
				{QueueFlags: core1_0.QueueTransfer, QueueCount: 1},
				{QueueFlags: core1_0.QueueGraphics | core1_0.QueueCompute, QueueCount: 1},
			},
			want: 1,
		},
		{
			name: "empty family skipped",
			families: []*core1_0.QueueFamilyProperties{
				{QueueFlags: core1_0.QueueCompute, QueueCount: 0},
				{QueueFlags: core1_0.QueueGraphics | core1_0.QueueCompute, QueueCount: 1},
			},
			want: 1,
		},
		{
			name: "no compute",
			families: []*core1_0.QueueFamilyProperties{
				{QueueFlags: core1_0.QueueGraphics, QueueCount: 1},
			},
			wantErr: true,
		},
		{
			name:    "no families",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindComputeQueueFamily(tt.families)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got family %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Got family %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFindMemoryType(t *testing.T) {
	props := &core1_0.PhysicalDeviceMemoryProperties{
		MemoryTypes: []core1_0.MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
		},
	}

	idx, err := FindMemoryType(props, 0xF, StorageMemoryFlags)
	if err != nil {
		t.Fatalf("FindMemoryType failed: %v", err)
	}
	if idx != 2 {
		t.Errorf("Expected type 2, got %d", idx)
	}

	idx, err = FindMemoryType(props, 1<<3, StorageMemoryFlags)
	if err != nil {
		t.Fatalf("FindMemoryType failed: %v", err)
	}
	if idx != 3 {
		t.Errorf("Expected type 3 when only it is allowed, got %d", idx)
	}

	if _, err := FindMemoryType(props, 1<<0|1<<1, StorageMemoryFlags); err == nil {
		t.Error("Expected error when no allowed type is host coherent")
	}
	if _, err := FindMemoryType(nil, 0xF, StorageMemoryFlags); err == nil {
		t.Error("Expected error without memory properties")
	}
}

func TestDeviceSummaryString(t *testing.T) {
	s := DeviceSummary{
		Index:                1,
		Name:                 "Test GPU",
		Type:                 "Discrete",
		APIVersion:           "1.3.0",
		MaxPushConstantsSize: 256,
		ComputeQueueFamily:   -1,
	}.String()

	for _, want := range []string{"1: Test GPU", "256 bytes", "compute queue family: none"} {
		if !strings.Contains(s, want) {
			t.Errorf("%q does not contain %q", s, want)
		}
	}
}

func TestListDevices(t *testing.T) {
	info := &Info{Log: logrus.New()}
	if err := info.InitGlobalDriver(); err != nil {
		t.Skipf("Vulkan unavailable: %v", err)
	}
	if err := info.InitInstanceExtensionNames(); err != nil {
		t.Skipf("Vulkan unavailable: %v", err)
	}
	if err := info.InitInstance("compute_test"); err != nil {
		t.Skipf("Vulkan unavailable: %v", err)
	}
	defer info.Destroy()

	devices, err := info.ListDevices()
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	for n, d := range devices {
		if d.Index != n {
			t.Errorf("Device %d reported index %d", n, d.Index)
		}
	}
}
