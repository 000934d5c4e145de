// Package compute owns the memory and error state shared by the pooling operators:
// growable device buffers, the device capability helper and the Context that ties
// them together.
package compute

import (
	"fmt"
	"unsafe"

	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

// Device is the execution backend for one device type.
//
// Pointers returned by Alloc are opaque outside the device: host memory for the
// CPU device, a buffer handle for a GPU device.
type Device interface {
	Type() tensor.DeviceType
	Alloc(size int) (unsafe.Pointer, error)
	Free(ptr unsafe.Pointer)
	Write(dst unsafe.Pointer, src []byte) error
	Read(src unsafe.Pointer, size int) ([]byte, error)
}

// Allocator hands out device memory to a Buffer.
type Allocator interface {
	Alloc(device tensor.DeviceType, size int) (unsafe.Pointer, error)
	Free(device tensor.DeviceType, ptr unsafe.Pointer)
}

// HostDevice is the CPU device. Memory comes from the Go heap and is reclaimed
// by the garbage collector once nothing points at it.
type HostDevice struct{}

// Type returns tensor.CPU.
func (HostDevice) Type() tensor.DeviceType { return tensor.CPU }

// Alloc allocates size bytes of zeroed host memory.
func (HostDevice) Alloc(size int) (ptr unsafe.Pointer, err error) {
	if size <= 0 {
		return nil, status.New(status.IllegalArgument, "cannot allocate %d bytes", size)
	}
	// make panics instead of failing when size is out of range.
	defer func() {
		if r := recover(); r != nil {
			ptr = nil
			err = status.New(status.OutOfMemory, "allocating %d bytes: %v", size, r)
		}
	}()
	block := make([]byte, size)
	return unsafe.Pointer(&block[0]), nil
}

// Free is a no-op: dropping the last pointer releases host memory.
func (HostDevice) Free(unsafe.Pointer) {}

// Write copies src to the start of dst.
func (HostDevice) Write(dst unsafe.Pointer, src []byte) error {
	if dst == nil {
		return status.New(status.IllegalArgument, "write to null memory")
	}
	copy(unsafe.Slice((*byte)(dst), len(src)), src)
	return nil
}

// Read copies size bytes from src.
func (HostDevice) Read(src unsafe.Pointer, size int) ([]byte, error) {
	if src == nil {
		return nil, status.New(status.IllegalArgument, "read from null memory")
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(src), size))
	return out, nil
}

// String implements fmt.Stringer.
func (HostDevice) String() string {
	return fmt.Sprintf("host (%s)", tensor.CPU)
}
