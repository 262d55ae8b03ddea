package compute

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// InitStorageBuffer creates a host-visible storage buffer and uploads values.
// The buffer length is fixed for the lifetime of the Info.
func (i *Info) InitStorageBuffer(values []uint32) error {
	if len(values) == 0 {
		return errors.New("storage buffer needs at least one element")
	}

	size := binary.Size(values)

	buf, _, err := i.DeviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       core1_0.BufferUsageStorageBuffer,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return errors.Wrap(err, "creating storage buffer")
	}
	i.StorageData.Buf = buf

	memReqs := i.DeviceDriver.GetBufferMemoryRequirements(buf)

	memoryTypeIndex, err := i.MemoryTypeFromProperties(memReqs.MemoryTypeBits, StorageMemoryFlags)
	if err != nil {
		return err
	}

	i.StorageData.Mem, _, err = i.DeviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return errors.Wrap(err, "allocating storage memory")
	}

	_, err = i.DeviceDriver.BindBufferMemory(buf, i.StorageData.Mem, 0)
	if err != nil {
		return errors.Wrap(err, "binding storage memory")
	}

	i.StorageData.Elements = len(values)
	i.StorageData.Size = size
	i.StorageData.BufferInfo = core1_0.DescriptorBufferInfo{
		Buffer: buf,
		Offset: 0,
		Range:  size,
	}

	return i.WriteStorageBuffer(values)
}

// WriteStorageBuffer overwrites the buffer contents from the host.
func (i *Info) WriteStorageBuffer(values []uint32) error {
	if len(values) != i.StorageData.Elements {
		return errors.Newf("storage buffer holds %d elements, got %d", i.StorageData.Elements, len(values))
	}

	memoryPtr, _, err := i.DeviceDriver.MapMemory(i.StorageData.Mem, 0, i.StorageData.Size, 0)
	if err != nil {
		return errors.Wrap(err, "mapping storage memory")
	}
	defer i.DeviceDriver.UnmapMemory(i.StorageData.Mem)

	writer := bytes.NewBuffer(make([]byte, 0, i.StorageData.Size))
	err = binary.Write(writer, common.ByteOrder, values)
	if err != nil {
		return errors.Wrap(err, "encoding storage data")
	}

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), i.StorageData.Size)
	copy(dataBuffer, writer.Bytes())
	return nil
}

// ReadStorageBuffer copies the buffer contents back to the host.
func (i *Info) ReadStorageBuffer() ([]uint32, error) {
	memoryPtr, _, err := i.DeviceDriver.MapMemory(i.StorageData.Mem, 0, i.StorageData.Size, 0)
	if err != nil {
		return nil, errors.Wrap(err, "mapping storage memory")
	}
	defer i.DeviceDriver.UnmapMemory(i.StorageData.Mem)

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), i.StorageData.Size)
	values := make([]uint32, i.StorageData.Elements)
	err = binary.Read(bytes.NewReader(dataBuffer), common.ByteOrder, values)
	if err != nil {
		return nil, errors.Wrap(err, "decoding storage data")
	}
	return values, nil
}
