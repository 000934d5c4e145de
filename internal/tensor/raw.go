package tensor

import (
	"fmt"
	"unsafe"
)

// Float32s interprets CPU memory as []float32 of NumElements length.
// Panics if the data type is not Float or the view is on the GPU.
func (t Tensor) Float32s() []float32 {
	t.mustHost(Float)
	if t.memory == nil {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, length checked by mustHost
	return unsafe.Slice((*float32)(t.memory), t.NumElements())
}

// Float64s interprets CPU memory as []float64 of NumElements length.
// Panics if the data type is not Double or the view is on the GPU.
func (t Tensor) Float64s() []float64 {
	t.mustHost(Double)
	if t.memory == nil {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, length checked by mustHost
	return unsafe.Slice((*float64)(t.memory), t.NumElements())
}

// Bytes interprets CPU memory as []byte of NumElements length.
func (t Tensor) Bytes() []byte {
	t.mustHost(Char)
	if t.memory == nil {
		return nil
	}
	return unsafe.Slice((*byte)(t.memory), t.NumElements())
}

// Data returns the CPU view as a typed slice. T must match the data type.
func Data[T DType](t Tensor) []T {
	t.mustHost(DataTypeOf[T]())
	if t.memory == nil {
		return nil
	}
	return unsafe.Slice((*T)(t.memory), t.NumElements())
}

func (t Tensor) mustHost(dt DataType) {
	if t.deviceType != CPU {
		panic(fmt.Sprintf("tensor is on %s, not CPU", t.deviceType))
	}
	if t.dataType != dt {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", t.dataType, dt))
	}
	if t.memory != nil && t.memorySize < t.ByteSize() {
		panic(fmt.Sprintf("tensor %v needs %d bytes, view holds %d", t.shape, t.ByteSize(), t.memorySize))
	}
}
