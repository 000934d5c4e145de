package cpu

import (
	"github.com/born-ml/poolcore/internal/pooling/window"
	"github.com/born-ml/poolcore/internal/tensor"
)

// MaxIndices records, for every output element, the input index that won the
// forward max. Indices are absolute positions in input.
func MaxIndices[T tensor.DType](indices []int32, input []T, g window.Geometry) {
	inSize := g.InputPlaneSize()

	outIdx := 0
	for k := 0; k < g.Planes; k++ {
		plane := input[k*inSize : (k+1)*inSize]
		for ox := 0; ox < g.OutWidth; ox++ {
			for oy := 0; oy < g.OutHeight; oy++ {
				//nolint:gosec // G115: geometry sizes are checked against MaxInt32 by the caller
				indices[outIdx] = int32(k*inSize + argmaxPlane(plane, g, oy, ox))
				outIdx++
			}
		}
	}
}

// MaxBackward routes gradients to max positions.
//   - Gradients flow only to the position that had the max value in forward pass
//   - For each output position, only ONE input position receives gradient
//
// derInput is accumulated into, not overwritten.
//
// Example (2x2 pool, stride=2):
//
//	Input:  [[1, 2],  Output: [4]  Input Grad: [[0, 0],
//	         [3, 4]]                             [0, grad]]
func MaxBackward[T tensor.DType](derInput, derOutput []T, indices []int32) {
	for i, g := range derOutput {
		derInput[indices[i]] += g
	}
}

// AverageBackward spreads each output gradient evenly over the valid cells of
// its window, scaled by the same divisor as the forward pass. derInput is
// accumulated into.
func AverageBackward[T tensor.DType](derInput, derOutput []T, g window.Geometry) {
	inSize := g.InputPlaneSize()
	outSize := g.OutputPlaneSize()
	for k := 0; k < g.Planes; k++ {
		BackwardPlane(derInput[k*inSize:(k+1)*inSize], nil, derOutput[k*outSize:(k+1)*outSize], g)
	}
}

// BackwardPlane adds the gradient of one plane into derInput.
// input is only read for max pooling, where the argmax is recomputed per window.
func BackwardPlane[T tensor.DType](derInput, input, derOutput []T, g window.Geometry) {
	H := g.Height
	for ox := 0; ox < g.OutWidth; ox++ {
		x1, x2 := g.Cols(ox)
		for oy := 0; oy < g.OutHeight; oy++ {
			grad := derOutput[oy+g.OutHeight*ox]

			if g.Method == window.Max {
				derInput[argmaxPlane(input, g, oy, ox)] += grad
				continue
			}

			y1, y2 := g.Rows(oy)
			share := grad / T(g.Divisor(oy, ox))
			for x := x1; x < x2; x++ {
				col := derInput[x*H+y1 : x*H+y2]
				for i := range col {
					col[i] += share
				}
			}
		}
	}
}
