// Package primitives is the accelerated pooling library. It runs the CPU kernels
// plane by plane on a bounded set of goroutines. Requests it cannot serve fail
// with status.Unsupported so callers fall back to the native path.
package primitives

import (
	"github.com/born-ml/poolcore/internal/backend/cpu"
	"github.com/born-ml/poolcore/internal/parallel"
	"github.com/born-ml/poolcore/internal/pooling/window"
	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

// Library runs pooling planes concurrently.
type Library struct {
	cfg parallel.Config
}

// New creates a library using up to workers goroutines (0 means one per CPU)
// and handing at least minPlanes planes to each.
func New(workers, minPlanes int) *Library {
	cfg := parallel.DefaultConfig()
	if workers > 0 {
		cfg.NumWorkers = workers
		cfg.Enabled = workers > 1
	}
	if minPlanes > 0 {
		cfg.MinChunkSize = minPlanes
	}
	return &Library{cfg: cfg}
}

// Available reports whether the library can run on this machine.
func (l *Library) Available() bool {
	return l.cfg.Enabled
}

// PoolingForward pools input into output.
func (l *Library) PoolingForward(output, input tensor.Tensor, g window.Geometry) error {
	if err := l.supports(input); err != nil {
		return err
	}
	switch input.DataType() {
	case tensor.Float:
		return forward(output.Float32s(), input.Float32s(), g, l.cfg)
	default:
		return forward(output.Float64s(), input.Float64s(), g, l.cfg)
	}
}

// PoolingBackward adds the input gradient into derInput.
func (l *Library) PoolingBackward(derInput, input, derOutput tensor.Tensor, g window.Geometry) error {
	if err := l.supports(input); err != nil {
		return err
	}
	switch input.DataType() {
	case tensor.Float:
		return backward(derInput.Float32s(), input.Float32s(), derOutput.Float32s(), g, l.cfg)
	default:
		return backward(derInput.Float64s(), input.Float64s(), derOutput.Float64s(), g, l.cfg)
	}
}

func (l *Library) supports(input tensor.Tensor) error {
	if !l.cfg.Enabled {
		return status.New(status.Unsupported, "primitives: parallel execution disabled")
	}
	if input.DeviceType() != tensor.CPU {
		return status.New(status.Unsupported, "primitives: device %s", input.DeviceType())
	}
	if input.DataType() != tensor.Float && input.DataType() != tensor.Double {
		return status.New(status.Unsupported, "primitives: data type %s", input.DataType())
	}
	return nil
}

func forward[T tensor.DType](output, input []T, g window.Geometry, cfg parallel.Config) error {
	inSize, outSize := g.InputPlaneSize(), g.OutputPlaneSize()
	return parallel.For(g.Planes, func(k int) error {
		cpu.ForwardPlane(output[k*outSize:(k+1)*outSize], input[k*inSize:(k+1)*inSize], g)
		return nil
	}, cfg)
}

func backward[T tensor.DType](derInput, input, derOutput []T, g window.Geometry, cfg parallel.Config) error {
	inSize, outSize := g.InputPlaneSize(), g.OutputPlaneSize()
	return parallel.For(g.Planes, func(k int) error {
		cpu.BackwardPlane(
			derInput[k*inSize:(k+1)*inSize],
			input[k*inSize:(k+1)*inSize],
			derOutput[k*outSize:(k+1)*outSize],
			g,
		)
		return nil
	}, cfg)
}
