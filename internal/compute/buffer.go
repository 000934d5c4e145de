package compute

import (
	"unsafe"

	"k8s.io/klog/v2"

	"github.com/born-ml/poolcore/internal/tensor"
)

// Buffer is a growable memory arena bound to one device and data type.
//
// Init reallocates only when the request does not fit the current block, so a
// sequence of non-increasing requests reuses the same memory. Contents are
// undefined after a reallocation.
type Buffer struct {
	alloc Allocator

	deviceType       tensor.DeviceType
	dataType         tensor.DataType
	size             int
	memory           unsafe.Pointer
	numReallocations int
}

// NewBuffer creates an empty buffer that draws memory from alloc.
func NewBuffer(alloc Allocator) *Buffer {
	return &Buffer{alloc: alloc}
}

// Init ensures at least size bytes of dataType memory on device.
func (b *Buffer) Init(device tensor.DeviceType, dataType tensor.DataType, size int) error {
	if b.deviceType == device && b.dataType == dataType && b.size >= size {
		return nil
	}

	b.Clear()
	if size == 0 {
		b.deviceType = device
		b.dataType = dataType
		return nil
	}
	memory, err := b.alloc.Alloc(device, size)
	if err != nil {
		return err
	}

	b.deviceType = device
	b.dataType = dataType
	b.size = size
	b.memory = memory
	b.numReallocations++

	klog.V(4).Infof("buffer: allocated %d bytes of %s on %s (reallocation %d)",
		size, dataType, device, b.numReallocations)
	return nil
}

// Memory returns the current block, or nil if none is allocated.
func (b *Buffer) Memory() unsafe.Pointer { return b.memory }

// Size returns the capacity of the current block in bytes.
func (b *Buffer) Size() int { return b.size }

// DeviceType returns the device of the current block.
func (b *Buffer) DeviceType() tensor.DeviceType { return b.deviceType }

// DataType returns the data type of the current block.
func (b *Buffer) DataType() tensor.DataType { return b.dataType }

// NumReallocations counts how many times Init had to allocate.
func (b *Buffer) NumReallocations() int { return b.numReallocations }

// Clear releases the block. Calling it on an empty buffer does nothing.
func (b *Buffer) Clear() {
	if b.memory != nil {
		b.alloc.Free(b.deviceType, b.memory)
	}
	b.memory = nil
	b.size = 0
}

// InvalidateGPU forgets a GPU block without freeing it, for use when the device
// that owned it is already gone. CPU buffers are left alone.
func (b *Buffer) InvalidateGPU() {
	if b.deviceType != tensor.GPU {
		return
	}
	b.memory = nil
	b.Clear()
}
