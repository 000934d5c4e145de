package tensor

import (
	"unsafe"
)

// Tensor is a typed, device-located view over memory owned by someone else.
//
// A Tensor never allocates or frees. The memory pointer refers to host memory
// for CPU tensors and to a device buffer handle for GPU tensors.
type Tensor struct {
	shape      Shape
	dataType   DataType
	deviceType DeviceType
	memory     unsafe.Pointer
	memorySize int
}

// NewTensor creates a view of memorySize bytes at memory.
func NewTensor(shape Shape, dataType DataType, deviceType DeviceType, memory unsafe.Pointer, memorySize int) Tensor {
	return Tensor{
		shape:      shape,
		dataType:   dataType,
		deviceType: deviceType,
		memory:     memory,
		memorySize: memorySize,
	}
}

// FromFloat32s creates a CPU view over data. The slice stays owned by the caller.
func FromFloat32s(shape Shape, data []float32) Tensor {
	return fromSlice(shape, data)
}

// FromFloat64s creates a CPU view over data. The slice stays owned by the caller.
func FromFloat64s(shape Shape, data []float64) Tensor {
	return fromSlice(shape, data)
}

// FromBytes creates a CPU char view over data. The slice stays owned by the caller.
func FromBytes(shape Shape, data []byte) Tensor {
	if len(data) == 0 {
		return NewTensor(shape, Char, CPU, nil, 0)
	}
	return NewTensor(shape, Char, CPU, unsafe.Pointer(&data[0]), len(data))
}

func fromSlice[T DType](shape Shape, data []T) Tensor {
	dt := DataTypeOf[T]()
	if len(data) == 0 {
		return NewTensor(shape, dt, CPU, nil, 0)
	}
	//nolint:gosec // pointer to the first element keeps the whole backing array alive
	return NewTensor(shape, dt, CPU, unsafe.Pointer(&data[0]), len(data)*dt.Size())
}

// Shape returns the tensor's shape.
func (t Tensor) Shape() Shape { return t.shape }

// DataType returns the tensor's data type.
func (t Tensor) DataType() DataType { return t.dataType }

// DeviceType returns the device the memory lives on.
func (t Tensor) DeviceType() DeviceType { return t.deviceType }

// Memory returns the raw memory pointer.
func (t Tensor) Memory() unsafe.Pointer { return t.memory }

// MemorySize returns the size of the viewed memory in bytes.
func (t Tensor) MemorySize() int { return t.memorySize }

// SetMemory points the view at different memory.
func (t *Tensor) SetMemory(memory unsafe.Pointer, memorySize int) {
	t.memory = memory
	t.memorySize = memorySize
}

// SetShape replaces the view's shape.
func (t *Tensor) SetShape(shape Shape) { t.shape = shape }

// IsNull reports whether the view has no memory.
func (t Tensor) IsNull() bool { return t.memory == nil }

// IsValid reports whether the view has memory.
func (t Tensor) IsValid() bool { return t.memory != nil }

// IsEmpty reports whether the view's shape has no elements.
func (t Tensor) IsEmpty() bool { return t.shape.IsEmpty() }

// NumElements returns the number of elements of the view's shape.
func (t Tensor) NumElements() int { return t.shape.NumElements() }

// ByteSize returns the number of bytes the shape needs.
func (t Tensor) ByteSize() int { return t.shape.NumElements() * t.dataType.Size() }

// AreCompatible reports whether two tensors can take part in the same
// operation: either is null or empty, or both share device and data type.
// Shapes are not compared.
func AreCompatible(a, b Tensor) bool {
	if a.IsEmpty() || a.IsNull() || b.IsEmpty() || b.IsNull() {
		return true
	}
	return a.deviceType == b.deviceType && a.dataType == b.dataType
}
