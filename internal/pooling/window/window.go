// Package window holds the pooling parameters and the window geometry shared by
// every pooling implementation.
package window

import (
	"fmt"

	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

// Method is the reduction applied to a window.
type Method int

// Pooling methods.
const (
	Max Method = iota
	Average
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case Max:
		return "max"
	case Average:
		return "avg"
	default:
		return "unknown"
	}
}

// ParseMethod converts "max" or "avg" to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "max":
		return Max, nil
	case "avg", "average":
		return Average, nil
	default:
		return 0, status.New(status.IllegalArgument, "unknown pooling method %q", s)
	}
}

// AreaMode selects the divisor of average pooling.
type AreaMode int

// Area modes.
const (
	// AreaWindow divides by PoolHeight*PoolWidth: padding adds zero to the sum
	// but counts towards the area.
	AreaWindow AreaMode = iota
	// AreaValid divides by the number of window cells inside the input.
	AreaValid
)

// String returns the area mode name.
func (a AreaMode) String() string {
	if a == AreaValid {
		return "valid"
	}
	return "window"
}

// ParseAreaMode converts "window" or "valid" to an AreaMode.
func ParseAreaMode(s string) (AreaMode, error) {
	switch s {
	case "window", "":
		return AreaWindow, nil
	case "valid":
		return AreaValid, nil
	default:
		return 0, status.New(status.IllegalArgument, "unknown area mode %q", s)
	}
}

// Params configures a pooling operator.
type Params struct {
	PoolHeight, PoolWidth int
	StrideY, StrideX      int
	PadTop, PadBottom     int
	PadLeft, PadRight     int
	Method                Method
	Area                  AreaMode
}

// Square returns parameters for a size×size window with equal stride and padding on all sides.
func Square(size, stride, pad int, method Method) Params {
	return Params{
		PoolHeight: size, PoolWidth: size,
		StrideY: stride, StrideX: stride,
		PadTop: pad, PadBottom: pad, PadLeft: pad, PadRight: pad,
		Method: method,
	}
}

// Validate checks the window, stride and padding constraints.
func (p Params) Validate() error {
	switch {
	case p.PoolHeight < 1 || p.PoolWidth < 1:
		return status.New(status.IllegalArgument, "pool size %dx%d must be positive", p.PoolHeight, p.PoolWidth)
	case p.StrideY < 1 || p.StrideX < 1:
		return status.New(status.IllegalArgument, "stride %dx%d must be positive", p.StrideY, p.StrideX)
	case p.PadTop < 0 || p.PadBottom < 0 || p.PadLeft < 0 || p.PadRight < 0:
		return status.New(status.IllegalArgument, "padding %s must be non-negative", p.padString())
	case p.PadTop >= p.PoolHeight || p.PadBottom >= p.PoolHeight:
		return status.New(status.IllegalArgument, "vertical padding %s must be smaller than pool height %d", p.padString(), p.PoolHeight)
	case p.PadLeft >= p.PoolWidth || p.PadRight >= p.PoolWidth:
		return status.New(status.IllegalArgument, "horizontal padding %s must be smaller than pool width %d", p.padString(), p.PoolWidth)
	case p.Method != Max && p.Method != Average:
		return status.New(status.IllegalArgument, "unknown pooling method %d", p.Method)
	case p.Area != AreaWindow && p.Area != AreaValid:
		return status.New(status.IllegalArgument, "unknown area mode %d", p.Area)
	}
	return nil
}

func (p Params) padString() string {
	return fmt.Sprintf("[%d %d %d %d]", p.PadTop, p.PadBottom, p.PadLeft, p.PadRight)
}

// String describes the parameters for log messages.
func (p Params) String() string {
	return fmt.Sprintf("%s pool %dx%d stride %dx%d pad %s", p.Method,
		p.PoolHeight, p.PoolWidth, p.StrideY, p.StrideX, p.padString())
}

// OutputShape computes the shape produced by pooling an input of the given shape.
// Inputs without dimensions or with a zero height or width are rejected: every
// window over them would hold padding only.
func (p Params) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	if input.NumDimensions() == 0 || input.Height() < 1 || input.Width() < 1 {
		return tensor.Shape{}, status.New(status.IllegalArgument,
			"input %s has no spatial cells to pool", input)
	}
	h := input.Height() + p.PadTop + p.PadBottom
	w := input.Width() + p.PadLeft + p.PadRight
	if h < p.PoolHeight || w < p.PoolWidth {
		return tensor.Shape{}, status.New(status.IllegalArgument,
			"padded input %dx%d is smaller than the pool %dx%d", h, w, p.PoolHeight, p.PoolWidth)
	}

	out := input
	out.Reshape(max(input.NumDimensions(), 4))
	out.SetHeight((h-p.PoolHeight)/p.StrideY + 1)
	out.SetWidth((w-p.PoolWidth)/p.StrideX + 1)
	return out, nil
}

// Geometry binds parameters to an input size.
//
// Inputs are stored height-fastest: element (y, x) of plane k sits at
// y + Height*(x + Width*k). Planes enumerate channels and then batch items.
type Geometry struct {
	Params
	Height, Width int
	Planes        int
	OutHeight     int
	OutWidth      int
}

// NewGeometry computes the geometry of pooling an input of the given shape.
func NewGeometry(p Params, input tensor.Shape) (Geometry, error) {
	out, err := p.OutputShape(input)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{
		Params:    p,
		Height:    input.Height(),
		Width:     input.Width(),
		Planes:    planes(input),
		OutHeight: out.Height(),
		OutWidth:  out.Width(),
	}, nil
}

// planes multiplies every extent past height and width.
func planes(s tensor.Shape) int {
	n := 1
	for k := 2; k < max(s.NumDimensions(), 4); k++ {
		n *= s.Dimension(k)
	}
	return n
}

// InputPlaneSize is the number of elements in one input plane.
func (g Geometry) InputPlaneSize() int { return g.Height * g.Width }

// OutputPlaneSize is the number of elements in one output plane.
func (g Geometry) OutputPlaneSize() int { return g.OutHeight * g.OutWidth }

// InputSize is the number of input elements.
func (g Geometry) InputSize() int { return g.InputPlaneSize() * g.Planes }

// OutputSize is the number of output elements.
func (g Geometry) OutputSize() int { return g.OutputPlaneSize() * g.Planes }

// Rows returns the input rows [y1, y2) covered by output row oy, clipped to the input.
func (g Geometry) Rows(oy int) (y1, y2 int) {
	y1 = oy*g.StrideY - g.PadTop
	y2 = min(y1+g.PoolHeight, g.Height)
	return max(y1, 0), y2
}

// Cols returns the input columns [x1, x2) covered by output column ox, clipped to the input.
func (g Geometry) Cols(ox int) (x1, x2 int) {
	x1 = ox*g.StrideX - g.PadLeft
	x2 = min(x1+g.PoolWidth, g.Width)
	return max(x1, 0), x2
}

// Divisor returns the average pooling denominator of the window at (oy, ox).
func (g Geometry) Divisor(oy, ox int) int {
	if g.Area == AreaValid {
		y1, y2 := g.Rows(oy)
		x1, x2 := g.Cols(ox)
		return (y2 - y1) * (x2 - x1)
	}
	return g.PoolHeight * g.PoolWidth
}

// OutputRows returns the output rows [oy1, oy2) whose windows contain input row y.
func (g Geometry) OutputRows(y int) (oy1, oy2 int) {
	return outputRange(y, g.PoolHeight, g.StrideY, g.PadTop, g.OutHeight)
}

// OutputCols returns the output columns [ox1, ox2) whose windows contain input column x.
func (g Geometry) OutputCols(x int) (ox1, ox2 int) {
	return outputRange(x, g.PoolWidth, g.StrideX, g.PadLeft, g.OutWidth)
}

// outputRange solves o*stride-pad <= i < o*stride-pad+pool for o in [0, n).
func outputRange(i, pool, stride, pad, n int) (lo, hi int) {
	v := i + pad - pool + 1
	if v > 0 {
		lo = tensor.DivideAndRoundUp(v, stride)
	}
	hi = min((i+pad)/stride+1, n)
	return lo, max(hi, lo)
}
