// Package cpu implements the native CPU pooling kernels.
package cpu

import (
	"github.com/born-ml/poolcore/internal/pooling/window"
	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

// CPUBackend runs pooling on host memory.
type CPUBackend struct {
	device tensor.DeviceType
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the device type the backend runs on.
func (cpu *CPUBackend) Device() tensor.DeviceType {
	return cpu.device
}

// PoolForward writes every element of output.
func (cpu *CPUBackend) PoolForward(output, input tensor.Tensor, g window.Geometry) error {
	switch input.DataType() {
	case tensor.Float:
		Forward(output.Float32s(), input.Float32s(), g)
	case tensor.Double:
		Forward(output.Float64s(), input.Float64s(), g)
	default:
		return status.New(status.Unsupported, "cpu pooling: data type %s", input.DataType())
	}
	return nil
}

// PoolBackward adds the input gradient into derInput.
//
// For max pooling, indices must hold one entry per output element; it is used
// as scratch for the winning input positions.
func (cpu *CPUBackend) PoolBackward(derInput, input, derOutput tensor.Tensor, g window.Geometry, indices []int32) error {
	switch input.DataType() {
	case tensor.Float:
		backward(derInput.Float32s(), input.Float32s(), derOutput.Float32s(), g, indices)
	case tensor.Double:
		backward(derInput.Float64s(), input.Float64s(), derOutput.Float64s(), g, indices)
	default:
		return status.New(status.Unsupported, "cpu pooling backward: data type %s", input.DataType())
	}
	return nil
}

func backward[T tensor.DType](derInput, input, derOutput []T, g window.Geometry, indices []int32) {
	if g.Method == window.Max {
		MaxIndices(indices, input, g)
		MaxBackward(derInput, derOutput, indices)
		return
	}
	AverageBackward(derInput, derOutput, g)
}
