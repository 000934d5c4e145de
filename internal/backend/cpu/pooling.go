package cpu

import (
	"github.com/born-ml/poolcore/internal/pooling/window"
	"github.com/born-ml/poolcore/internal/tensor"
)

// Forward performs 2D max or average pooling over every plane.
//
// Planes are stored height-fastest, so element (y, x) of a plane is at
// y + H*x. Each output cell reduces the window
//
//	rows [oy*strideY - padTop, oy*strideY - padTop + poolHeight)
//	cols [ox*strideX - padLeft, ox*strideX - padLeft + poolWidth)
//
// clipped to the input. Padding never takes part in a max; for averages it
// adds zero and the divisor follows g.Area.
//
// Example (2x2 pool, stride=2, shown row by row):
//
//	Input: [[1,2,3,4],    Max: [[6,8],     Avg: [[3.5,5.5],
//	        [5,6,7,8],          [14,16]]         [11.5,13.5]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
func Forward[T tensor.DType](output, input []T, g window.Geometry) {
	inSize := g.InputPlaneSize()
	outSize := g.OutputPlaneSize()
	for k := 0; k < g.Planes; k++ {
		ForwardPlane(output[k*outSize:(k+1)*outSize], input[k*inSize:(k+1)*inSize], g)
	}
}

// ForwardPlane pools a single plane.
func ForwardPlane[T tensor.DType](output, input []T, g window.Geometry) {
	H := g.Height
	for ox := 0; ox < g.OutWidth; ox++ {
		x1, x2 := g.Cols(ox)
		for oy := 0; oy < g.OutHeight; oy++ {
			y1, y2 := g.Rows(oy)

			var v T
			if g.Method == window.Max {
				v = input[y1+H*x1]
				for x := x1; x < x2; x++ {
					// Pre-slice column: one bounds check per window column
					col := input[x*H+y1 : x*H+y2]
					for _, c := range col {
						if c > v {
							v = c
						}
					}
				}
			} else {
				var acc T
				for x := x1; x < x2; x++ {
					for _, c := range input[x*H+y1 : x*H+y2] {
						acc += c
					}
				}
				v = acc / T(g.Divisor(oy, ox))
			}
			output[oy+g.OutHeight*ox] = v
		}
	}
}

// argmaxPlane returns the plane-relative index of the window maximum at (oy, ox).
// Ties go to the lowest memory index.
func argmaxPlane[T tensor.DType](input []T, g window.Geometry, oy, ox int) int {
	H := g.Height
	y1, y2 := g.Rows(oy)
	x1, x2 := g.Cols(ox)

	best := y1 + H*x1
	v := input[best]
	for x := x1; x < x2; x++ {
		for y := y1; y < y2; y++ {
			if c := input[y+H*x]; c > v {
				v = c
				best = y + H*x
			}
		}
	}
	return best
}
