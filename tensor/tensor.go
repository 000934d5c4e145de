// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"unsafe"

	"github.com/born-ml/poolcore/internal/tensor"
)

// MaxDimensions is the largest number of extents a Shape can hold.
const MaxDimensions = tensor.MaxDimensions

// DType is a constraint for the floating-point element types.
type DType = tensor.DType

// DataType is the element type tag of a Tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Char   DataType = tensor.Char
	Float  DataType = tensor.Float
	Double DataType = tensor.Double
)

// DeviceType is the device tag of a Tensor.
type DeviceType = tensor.DeviceType

// Device constants.
const (
	CPU DeviceType = tensor.CPU
	GPU DeviceType = tensor.GPU
)

// Shape is a sequence of up to MaxDimensions extents.
type Shape = tensor.Shape

// Tensor is a typed, device-located view over memory it does not own.
type Tensor = tensor.Tensor

// NewShape creates a shape from its extents.
//
// Example:
//
//	s := tensor.NewShape(28, 28, 3, 64) // 28x28 images, 3 channels, batch of 64
func NewShape(dims ...int) Shape {
	return tensor.NewShape(dims...)
}

// ShapeHWDN creates a 4D shape from height, width, depth and batch size.
func ShapeHWDN(height, width, depth, size int) Shape {
	return tensor.ShapeHWDN(height, width, depth, size)
}

// NewTensor creates a view over memorySize bytes at memory.
// For GPU tensors, memory is whatever the GPU device's Alloc returned.
func NewTensor(shape Shape, dataType DataType, deviceType DeviceType, memory unsafe.Pointer, memorySize int) Tensor {
	return tensor.NewTensor(shape, dataType, deviceType, memory, memorySize)
}

// FromFloat32s creates a CPU Float view over data.
func FromFloat32s(shape Shape, data []float32) Tensor {
	return tensor.FromFloat32s(shape, data)
}

// FromFloat64s creates a CPU Double view over data.
func FromFloat64s(shape Shape, data []float64) Tensor {
	return tensor.FromFloat64s(shape, data)
}

// FromBytes creates a CPU Char view over data.
func FromBytes(shape Shape, data []byte) Tensor {
	return tensor.FromBytes(shape, data)
}

// Data returns the elements of a CPU tensor as a slice sharing its memory.
// Panics if T does not match the tensor's data type.
func Data[T DType](t Tensor) []T {
	return tensor.Data[T](t)
}

// AreCompatible reports whether a and b share device and data type.
// Null or empty tensors are compatible with anything.
func AreCompatible(a, b Tensor) bool {
	return tensor.AreCompatible(a, b)
}
