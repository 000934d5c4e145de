package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/poolcore/internal/pooling/window"
	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

// plane converts a row-major literal into height-fastest storage.
func plane[T tensor.DType](rows [][]T) []T {
	h, w := len(rows), len(rows[0])
	out := make([]T, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y+h*x] = rows[y][x]
		}
	}
	return out
}

// rowMajor reads height-fastest storage back in row-major order.
func rowMajor[T tensor.DType](data []T, h, w int) []T {
	out := make([]T, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = data[y+h*x]
		}
	}
	return out
}

func sequential4x4() [][]float32 {
	return [][]float32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
		{13, 14, 15, 16},
	}
}

func geometry(t *testing.T, p window.Params, s tensor.Shape) window.Geometry {
	t.Helper()
	g, err := window.NewGeometry(p, s)
	require.NoError(t, err)
	return g
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

// TestForward_MaxLiteral tests basic max pooling correctness.
func TestForward_MaxLiteral(t *testing.T) {
	g := geometry(t, window.Square(2, 2, 0, window.Max), tensor.ShapeHWDN(4, 4, 1, 1))

	out := make([]float32, g.OutputSize())
	Forward(out, plane(sequential4x4()), g)

	assert.Equal(t, []float32{6, 8, 14, 16}, rowMajor(out, 2, 2))
}

func TestForward_AverageLiteral(t *testing.T) {
	g := geometry(t, window.Square(2, 2, 0, window.Average), tensor.ShapeHWDN(4, 4, 1, 1))

	out := make([]float32, g.OutputSize())
	Forward(out, plane(sequential4x4()), g)

	assert.InDeltaSlice(t, []float32{3.5, 5.5, 11.5, 13.5}, rowMajor(out, 2, 2), 1e-6)
}

// TestForward_WithStride tests max pooling with overlapping windows.
func TestForward_WithStride(t *testing.T) {
	rows := make([][]float64, 5)
	for y := range rows {
		rows[y] = make([]float64, 5)
		for x := range rows[y] {
			rows[y][x] = float64(y*5 + x + 1)
		}
	}
	g := geometry(t, window.Square(3, 1, 0, window.Max), tensor.ShapeHWDN(5, 5, 1, 1))
	require.Equal(t, 3, g.OutHeight)
	require.Equal(t, 3, g.OutWidth)

	out := make([]float64, g.OutputSize())
	Forward(out, plane(rows), g)

	assert.Equal(t, []float64{13, 14, 15, 18, 19, 20, 23, 24, 25}, rowMajor(out, 3, 3))
}

// TestForward_MultiChannel tests that planes are pooled independently.
func TestForward_MultiChannel(t *testing.T) {
	g := geometry(t, window.Square(2, 2, 0, window.Max), tensor.ShapeHWDN(4, 4, 3, 2))

	base := plane(sequential4x4())
	input := make([]float32, 0, g.InputSize())
	for k := 0; k < g.Planes; k++ {
		for _, v := range base {
			input = append(input, v+float32(100*k))
		}
	}

	out := make([]float32, g.OutputSize())
	Forward(out, input, g)

	for k := 0; k < g.Planes; k++ {
		off := float32(100 * k)
		got := rowMajor(out[k*4:(k+1)*4], 2, 2)
		assert.Equal(t, []float32{6 + off, 8 + off, 14 + off, 16 + off}, got, "plane %d", k)
	}
}

func TestForward_MaxIgnoresPadding(t *testing.T) {
	rows := [][]float32{
		{-5, -4, -3},
		{-2, -9, -8},
		{-7, -6, -1},
	}
	g := geometry(t, window.Square(2, 1, 1, window.Max), tensor.ShapeHWDN(3, 3, 1, 1))
	require.Equal(t, 4, g.OutHeight)

	out := make([]float32, g.OutputSize())
	Forward(out, plane(rows), g)

	for i, v := range out {
		assert.Less(t, v, float32(0), "output %d picked up padding", i)
	}
	got := rowMajor(out, 4, 4)
	assert.Equal(t, float32(-5), got[0], "corner window sees only the corner cell")
	assert.Equal(t, float32(-1), got[15])
}

func TestForward_AveragePaddingAreaModes(t *testing.T) {
	rows := [][]float64{{4, 8}, {12, 16}}
	p := window.Square(2, 1, 1, window.Average)

	g := geometry(t, p, tensor.ShapeHWDN(2, 2, 1, 1))
	out := make([]float64, g.OutputSize())
	Forward(out, plane(rows), g)
	assert.InDelta(t, 1.0, rowMajor(out, 3, 3)[0], 1e-12, "corner: 4/(2*2)")
	assert.InDelta(t, 10.0, rowMajor(out, 3, 3)[4], 1e-12)

	p.Area = window.AreaValid
	g = geometry(t, p, tensor.ShapeHWDN(2, 2, 1, 1))
	Forward(out, plane(rows), g)
	assert.InDelta(t, 4.0, rowMajor(out, 3, 3)[0], 1e-12, "corner: 4/1")
	assert.InDelta(t, 6.0, rowMajor(out, 3, 3)[1], 1e-12, "edge: (4+8)/2")
}

func TestMaxBackward_TieGoesToFirstInScanOrder(t *testing.T) {
	rows := [][]float32{
		{7, 7},
		{7, 1},
	}
	g := geometry(t, window.Square(2, 2, 0, window.Max), tensor.ShapeHWDN(2, 2, 1, 1))

	indices := make([]int32, g.OutputSize())
	MaxIndices(indices, plane(rows), g)
	assert.Equal(t, []int32{0}, indices)

	derInput := make([]float32, 4)
	MaxBackward(derInput, []float32{3}, indices)
	assert.Equal(t, []float32{3, 0, 0, 0}, rowMajor(derInput, 2, 2))
}

func TestMaxBackward_Accumulates(t *testing.T) {
	g := geometry(t, window.Square(2, 2, 0, window.Max), tensor.ShapeHWDN(4, 4, 1, 1))
	input := plane(sequential4x4())

	derInput := make([]float32, 16)
	for i := range derInput {
		derInput[i] = 1
	}
	indices := make([]int32, g.OutputSize())
	MaxIndices(indices, input, g)
	MaxBackward(derInput, plane([][]float32{{10, 20}, {30, 40}}), indices)

	assert.Equal(t, []float32{
		1, 1, 1, 1,
		1, 11, 1, 21,
		1, 1, 1, 1,
		1, 31, 1, 41,
	}, rowMajor(derInput, 4, 4))
}

func TestAverageBackward_Literal(t *testing.T) {
	g := geometry(t, window.Square(2, 2, 0, window.Average), tensor.ShapeHWDN(4, 4, 1, 1))

	derInput := make([]float64, 16)
	AverageBackward(derInput, plane([][]float64{{4, 8}, {12, 16}}), g)

	assert.Equal(t, []float64{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}, rowMajor(derInput, 4, 4))
}

// TestBackward_Adjoint checks <J·v, w> == <v, Jᵀ·w> for both methods.
func TestBackward_Adjoint(t *testing.T) {
	params := []window.Params{
		window.Square(3, 2, 1, window.Average),
		{PoolHeight: 3, PoolWidth: 2, StrideY: 1, StrideX: 2, PadTop: 2, PadBottom: 0, PadLeft: 1, PadRight: 1, Method: window.Average, Area: window.AreaValid},
		window.Square(3, 2, 1, window.Max),
		{PoolHeight: 2, PoolWidth: 3, StrideY: 1, StrideX: 1, PadTop: 1, PadBottom: 1, PadLeft: 0, PadRight: 2, Method: window.Max},
	}
	s := tensor.ShapeHWDN(6, 5, 2, 2)

	for _, p := range params {
		t.Run(p.String(), func(t *testing.T) {
			g := geometry(t, p, s)

			// Distinct values keep max pooling piecewise linear around input.
			input := make([]float64, g.InputSize())
			for i := range input {
				input[i] = math.Sin(float64(i)*1.7) * 10
			}
			w := make([]float64, g.OutputSize())
			for i := range w {
				w[i] = math.Cos(float64(i) * 0.3)
			}

			derInput := make([]float64, g.InputSize())
			indices := make([]int32, g.OutputSize())
			backward(derInput, input, w, g, indices)

			const eps = 1e-6
			for i := range input {
				plus := append([]float64(nil), input...)
				minus := append([]float64(nil), input...)
				plus[i] += eps
				minus[i] -= eps

				outPlus := make([]float64, g.OutputSize())
				outMinus := make([]float64, g.OutputSize())
				Forward(outPlus, plus, g)
				Forward(outMinus, minus, g)

				var numeric float64
				for j := range w {
					numeric += w[j] * (outPlus[j] - outMinus[j]) / (2 * eps)
				}
				assert.InDelta(t, numeric, derInput[i], 1e-6, "input %d", i)
			}
		})
	}
}

func TestBackwardPlane_MatchesIndexedMax(t *testing.T) {
	g := geometry(t, window.Square(3, 2, 1, window.Max), tensor.ShapeHWDN(5, 5, 1, 1))
	input := make([]float32, g.InputSize())
	for i := range input {
		input[i] = float32((i * 7) % 5)
	}
	derOutput := make([]float32, g.OutputSize())
	for i := range derOutput {
		derOutput[i] = float32(i + 1)
	}

	indexed := make([]float32, g.InputSize())
	indices := make([]int32, g.OutputSize())
	MaxIndices(indices, input, g)
	MaxBackward(indexed, derOutput, indices)

	direct := make([]float32, g.InputSize())
	BackwardPlane(direct, input, derOutput, g)

	assert.Equal(t, indexed, direct)
}

func TestCPUBackend_Dispatch(t *testing.T) {
	backend := New()
	s := tensor.ShapeHWDN(4, 4, 1, 1)
	g := geometry(t, window.Square(2, 2, 0, window.Max), s)

	in := tensor.FromFloat32s(s, plane(sequential4x4()))
	outData := make([]float32, 4)
	out := tensor.FromFloat32s(tensor.ShapeHWDN(2, 2, 1, 1), outData)
	require.NoError(t, backend.PoolForward(out, in, g))
	assert.Equal(t, []float32{6, 8, 14, 16}, rowMajor(outData, 2, 2))

	chars := tensor.FromBytes(s, make([]byte, 16))
	err := backend.PoolForward(tensor.FromBytes(tensor.ShapeHWDN(2, 2, 1, 1), make([]byte, 4)), chars, g)
	assert.Equal(t, status.Unsupported, status.CodeOf(err))
}
