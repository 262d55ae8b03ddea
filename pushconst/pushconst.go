// Package pushconst describes the push-constant block read by the compute
// kernel and provides a host-side reference of what the kernel does with it.
package pushconst

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// AddendLimit is the exclusive upper bound on the addend: the kernel's u32(f32)
// conversion is undefined at and above 2^32.
const AddendLimit = 1 << 32

// Size is the encoded size of Data in bytes. It mirrors the kernel's block:
// an i32 at offset 0, an f32 at offset 4 and a u32 at offset 8.
const Size = 12

// Data matches the kernel's PushConstants block field for field.
type Data struct {
	Multiple int32
	Addend   float32
	// Enable is a 32-bit boolean, since shader booleans are not host-shareable.
	Enable uint32
}

// Default is the payload the sample submits: multiply by one, add one.
func Default() Data {
	return New(1, 1, true)
}

func New(multiple int32, addend float32, enable bool) Data {
	d := Data{
		Multiple: multiple,
		Addend:   addend,
	}
	if enable {
		d.Enable = 1
	}
	return d
}

func (d Data) Enabled() bool {
	return d.Enable != 0
}

// Encode writes the block in the device byte order.
func (d Data) Encode() ([]byte, error) {
	writer := bytes.NewBuffer(make([]byte, 0, Size))
	err := binary.Write(writer, common.ByteOrder, d)
	if err != nil {
		return nil, errors.Wrap(err, "encoding push constants")
	}
	return writer.Bytes(), nil
}

// Validate checks the payload against the device's push constant limit and
// rejects addends whose float-to-uint conversion is undefined on the GPU.
func (d Data) Validate(maxPushConstantsSize int) error {
	if Size > maxPushConstantsSize {
		return errors.Newf("push constants need %d bytes, device allows %d", Size, maxPushConstantsSize)
	}

	addend := float64(d.Addend)
	if math.IsNaN(addend) || math.IsInf(addend, 0) {
		return errors.Newf("addend %v is not finite", d.Addend)
	}
	if addend < 0 {
		return errors.Newf("addend %v is negative", d.Addend)
	}
	if addend >= AddendLimit {
		return errors.Newf("addend %v does not fit in a u32", d.Addend)
	}

	return nil
}

// Range is the push constant range declared in the pipeline layout.
func Range() core1_0.PushConstantRange {
	return core1_0.PushConstantRange{
		StageFlags: core1_0.StageCompute,
		Offset:     0,
		Size:       Size,
	}
}

// Apply computes what the kernel writes for a single input value.
// Arithmetic wraps modulo 2^32 like the shader's u32 math.
func (d Data) Apply(v uint32) uint32 {
	if !d.Enabled() {
		return v
	}
	return v*uint32(d.Multiple) + d.addendBits()
}

// Transform applies the kernel to every element of src, writing into dst.
func (d Data) Transform(dst, src []uint32) {
	if !d.Enabled() {
		copy(dst, src)
		return
	}

	multiple := uint32(d.Multiple)
	addend := d.addendBits()
	for i, v := range src {
		dst[i] = v*multiple + addend
	}
}

// addendBits converts the addend the way WGSL's u32(f32) does: truncate
// toward zero and saturate to the u32 range.
func (d Data) addendBits() uint32 {
	a := float64(d.Addend)
	switch {
	case math.IsNaN(a) || a <= 0:
		return 0
	case a >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(a)
}
