package compute

import (
	"time"

	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

const (
	// FenceTimeout bounds a single WaitForFences call; callers keep polling
	// until the fence signals.
	FenceTimeout      = 100 * time.Millisecond
	NumDescriptorSets = 1

	ValidationLayer = "VK_LAYER_KHRONOS_validation"

	APIVersion = common.Vulkan1_1

	StorageMemoryFlags = core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent
)
