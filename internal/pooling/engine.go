package pooling

import (
	"math"
	"unsafe"

	"github.com/born-ml/poolcore/internal/backend/cpu"
	"github.com/born-ml/poolcore/internal/compute"
	"github.com/born-ml/poolcore/internal/pooling/window"
	"github.com/born-ml/poolcore/internal/primitives"
	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

// Engine runs validated pooling requests.
//
// Forward writes every element of output. Backward adds into derInput.
// An engine that cannot serve a request returns status.Unsupported.
type Engine interface {
	Name() string
	Forward(output, input tensor.Tensor, g window.Geometry) error
	Backward(derInput, input, derOutput tensor.Tensor, g window.Geometry) error
}

// gpuPooler is implemented by GPU devices that carry pooling kernels.
type gpuPooler interface {
	PoolForward(output, input tensor.Tensor, g window.Geometry) error
	PoolBackward(derInput, input, derOutput tensor.Tensor, g window.Geometry) error
}

// nativeEngine dispatches on the tensor device: host kernels for the CPU and
// the Context's GPU device otherwise.
type nativeEngine struct {
	ctx *compute.Context
	cpu *cpu.CPUBackend
}

func newNativeEngine(ctx *compute.Context) *nativeEngine {
	return &nativeEngine{ctx: ctx, cpu: cpu.New()}
}

func (e *nativeEngine) Name() string { return "native" }

func (e *nativeEngine) Forward(output, input tensor.Tensor, g window.Geometry) error {
	if input.DeviceType() == tensor.CPU {
		return e.cpu.PoolForward(output, input, g)
	}
	gpu, err := e.gpu()
	if err != nil {
		return err
	}
	return gpu.PoolForward(output, input, g)
}

func (e *nativeEngine) Backward(derInput, input, derOutput tensor.Tensor, g window.Geometry) error {
	if input.DeviceType() == tensor.CPU {
		var indices []int32
		if g.Method == window.Max {
			var err error
			if indices, err = e.indices(g); err != nil {
				return err
			}
		}
		return e.cpu.PoolBackward(derInput, input, derOutput, g, indices)
	}
	gpu, err := e.gpu()
	if err != nil {
		return err
	}
	return gpu.PoolBackward(derInput, input, derOutput, g)
}

// indices borrows the argmax scratch of max backward from the CPU workspace.
func (e *nativeEngine) indices(g window.Geometry) ([]int32, error) {
	n := g.OutputSize()
	if g.InputSize() > math.MaxInt32 {
		return nil, status.New(status.IllegalArgument, "input of %d elements exceeds the index range", g.InputSize())
	}
	ptr, err := e.ctx.Workspace(tensor.CPU, n*int(unsafe.Sizeof(int32(0))))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*int32)(ptr), n), nil
}

func (e *nativeEngine) gpu() (gpuPooler, error) {
	dev, err := e.ctx.DeviceHelper().GPU()
	if err != nil {
		return nil, err
	}
	p, ok := dev.(gpuPooler)
	if !ok {
		return nil, status.New(status.Unsupported, "GPU device %T has no pooling kernels", dev)
	}
	return p, nil
}

// primitivesEngine adapts the accelerated library.
type primitivesEngine struct {
	lib *primitives.Library
}

func (e primitivesEngine) Name() string { return "primitives" }

func (e primitivesEngine) Forward(output, input tensor.Tensor, g window.Geometry) error {
	return primitivesError(e.lib.PoolingForward(output, input, g))
}

func (e primitivesEngine) Backward(derInput, input, derOutput tensor.Tensor, g window.Geometry) error {
	return primitivesError(e.lib.PoolingBackward(derInput, input, derOutput, g))
}

// primitivesError tags failures the library did not classify.
func primitivesError(err error) error {
	if err == nil || status.CodeOf(err) != status.Unknown {
		return err
	}
	return status.New(status.PrimitivesFailure, "%v", err)
}
