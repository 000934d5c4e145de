// Package pooling implements the 2D max and average pooling operator.
//
// Tensors are height-fastest 4D views (H, W, C, N). Every call validates its
// operands before touching memory, so a rejected call has no side effects.
// Errors are recorded on the Context as well as returned.
package pooling

import (
	"k8s.io/klog/v2"

	"github.com/born-ml/poolcore/internal/compute"
	"github.com/born-ml/poolcore/internal/pooling/window"
	"github.com/born-ml/poolcore/internal/primitives"
	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

// Pooling is an immutable pooling operator bound to a Context.
// It is not safe for concurrent use with other operators sharing the Context.
type Pooling struct {
	ctx     *compute.Context
	params  window.Params
	native  Engine
	fast    Engine
	fastLib *primitives.Library
}

// New validates params and creates the operator.
func New(ctx *compute.Context, params window.Params) (*Pooling, error) {
	if err := params.Validate(); err != nil {
		return nil, ctx.PassError(err, "pooling")
	}
	cfg := ctx.Config()
	lib := primitives.New(cfg.Workers, cfg.MinPlanesPerWorker)
	return &Pooling{
		ctx:     ctx,
		params:  params,
		native:  newNativeEngine(ctx),
		fast:    primitivesEngine{lib: lib},
		fastLib: lib,
	}, nil
}

// Params returns the operator configuration.
func (p *Pooling) Params() window.Params { return p.params }

// PrimitivesAvailable reports whether the accelerated library can run and is
// enabled on the Context.
func (p *Pooling) PrimitivesAvailable() bool {
	return p.fastLib.Available() && p.ctx.DeviceHelper().PrimitivesEnabled()
}

// ForwardShape returns the output shape for an input shape.
func (p *Pooling) ForwardShape(input tensor.Shape) (tensor.Shape, error) {
	out, err := p.params.OutputShape(input)
	if err != nil {
		return tensor.Shape{}, p.ctx.PassError(err, "pooling forwardShape")
	}
	return out, nil
}

// Forward pools input into output, which must already have ForwardShape(input).
func (p *Pooling) Forward(output, input tensor.Tensor) error {
	g, err := p.check("pooling forward", input, output)
	if err != nil {
		return err
	}
	if err := p.expectShape("pooling forward: output", output, g.outShape); err != nil {
		return err
	}
	if g.OutputSize() == 0 {
		return nil
	}
	return p.dispatch("pooling forward", func(e Engine) error {
		return e.Forward(output, input, g.Geometry)
	})
}

// Backward adds into derInput the gradient with respect to input, given the
// gradient derOutput with respect to the forward output. Callers zero
// derInput first when they want the plain gradient.
func (p *Pooling) Backward(derInput, input, derOutput tensor.Tensor) error {
	g, err := p.check("pooling backward", input, derInput, derOutput)
	if err != nil {
		return err
	}
	if err := p.expectShape("pooling backward: derOutput", derOutput, g.outShape); err != nil {
		return err
	}
	if err := p.expectShape("pooling backward: derInput", derInput, input.Shape()); err != nil {
		return err
	}
	if g.OutputSize() == 0 {
		return nil
	}
	return p.dispatch("pooling backward", func(e Engine) error {
		return e.Backward(derInput, input, derOutput, g.Geometry)
	})
}

type boundGeometry struct {
	window.Geometry
	outShape tensor.Shape
}

// check validates what Forward and Backward have in common: device and data
// type agreement between non-empty views, a supported data type, views large enough for their shapes
// and a window that fits the input.
func (p *Pooling) check(op string, input tensor.Tensor, others ...tensor.Tensor) (boundGeometry, error) {
	for _, t := range others {
		if !tensor.AreCompatible(input, t) {
			return boundGeometry{}, p.ctx.SetError(status.IllegalArgument,
				op+": tensors differ in device or data type")
		}
	}
	switch input.DataType() {
	case tensor.Float, tensor.Double:
	default:
		return boundGeometry{}, p.ctx.SetError(status.Unsupported, op+": data type "+input.DataType().String())
	}

	for _, t := range append([]tensor.Tensor{input}, others...) {
		if t.NumElements() > 0 && (t.IsNull() || t.MemorySize() < t.ByteSize()) {
			return boundGeometry{}, p.ctx.SetError(status.IllegalArgument,
				op+": tensor memory smaller than its shape "+t.Shape().String())
		}
	}

	g, err := window.NewGeometry(p.params, input.Shape())
	if err != nil {
		return boundGeometry{}, p.ctx.PassError(err, op)
	}
	out, err := p.params.OutputShape(input.Shape())
	if err != nil {
		return boundGeometry{}, p.ctx.PassError(err, op)
	}
	return boundGeometry{Geometry: g, outShape: out}, nil
}

func (p *Pooling) expectShape(what string, t tensor.Tensor, want tensor.Shape) error {
	if t.Shape().Equal(want) {
		return nil
	}
	return p.ctx.SetError(status.IllegalArgument,
		what+" shape "+t.Shape().String()+" does not match "+want.String())
}

// dispatch tries the accelerated engine first when it is enabled and falls
// back to the native engine when it reports Unsupported.
func (p *Pooling) dispatch(op string, run func(Engine) error) error {
	if p.PrimitivesAvailable() {
		err := run(p.fast)
		if !status.Is(err, status.Unsupported) {
			return p.ctx.PassError(err, op)
		}
		klog.V(3).Infof("%s: %s engine declined: %v", op, p.fast.Name(), err)
	}
	return p.ctx.PassError(run(p.native), op)
}
