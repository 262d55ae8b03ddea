// Package kernel provides the SPIR-V code of the push-constant compute kernel,
// either compiled from the embedded WGSL source or loaded from a .spv file.
package kernel

import (
	"embed"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/naga"
)

//go:embed shaders
var fileSystem embed.FS

const (
	// EntryPoint is the name of the kernel's compute entry point.
	EntryPoint = "main"
	// WorkgroupSize matches @workgroup_size in the kernel source.
	WorkgroupSize = 64
	// StorageBinding is the binding of the data buffer in descriptor set 0.
	StorageBinding = 0

	SPIRVMagic = 0x07230203

	sourcePath = "shaders/push_constants.wgsl"
)

// Source returns the WGSL source of the kernel.
func Source() (string, error) {
	b, err := fileSystem.ReadFile(sourcePath)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", sourcePath)
	}
	return string(b), nil
}

// Compile compiles the embedded WGSL kernel to SPIR-V words.
func Compile() ([]uint32, error) {
	source, err := Source()
	if err != nil {
		return nil, err
	}

	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, errors.Wrap(err, "compiling push constant kernel")
	}

	return BytesToBytecode(spirvBytes)
}

// LoadSPIRV reads a precompiled SPIR-V module from disk.
func LoadSPIRV(path string) ([]uint32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading spir-v module %s", path)
	}

	code, err := BytesToBytecode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return code, nil
}

// Load returns the module at spirvPath, or compiles the embedded source when
// the path is empty.
func Load(spirvPath string) ([]uint32, error) {
	if spirvPath != "" {
		return LoadSPIRV(spirvPath)
	}
	return Compile()
}

// BytesToBytecode converts a little-endian SPIR-V byte stream into words.
func BytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("spir-v length %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	if byteCode[0] != SPIRVMagic {
		return nil, errors.Newf("bad spir-v magic 0x%08x", byteCode[0])
	}

	return byteCode, nil
}

// GroupCount is the number of workgroups needed to cover n invocations.
func GroupCount(n, workgroupSize int) int {
	if n <= 0 || workgroupSize <= 0 {
		return 0
	}
	return (n + workgroupSize - 1) / workgroupSize
}
