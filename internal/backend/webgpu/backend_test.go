//go:build windows

package webgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/poolcore/internal/backend/cpu"
	"github.com/born-ml/poolcore/internal/pooling/window"
	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

func openOrSkip(t *testing.T) *Backend {
	t.Helper()
	backend, err := Open()
	if err != nil {
		t.Logf("WebGPU not available: %v", err)
		t.Skip("WebGPU not available on this system")
	}
	t.Cleanup(backend.Release)
	return backend
}

func TestIsAvailable(t *testing.T) {
	t.Logf("WebGPU available: %v", IsAvailable())
}

func TestOpen(t *testing.T) {
	backend := openOrSkip(t)
	assert.NotEmpty(t, backend.Name())
	assert.Equal(t, tensor.GPU, backend.Type())
}

func TestBackend_WriteRead(t *testing.T) {
	backend := openOrSkip(t)

	ptr, err := backend.Alloc(10)
	require.NoError(t, err)
	defer backend.Free(ptr)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	require.NoError(t, backend.Write(ptr, data))
	got, err := backend.Read(ptr, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	stats := backend.MemoryStats()
	assert.Equal(t, uint64(12), stats.AllocatedBytes)
	assert.Equal(t, int64(1), stats.ActiveBuffers)
}

func TestBackend_MemoryLimit(t *testing.T) {
	backend := openOrSkip(t)
	backend.SetMemoryLimit(64)

	ptr, err := backend.Alloc(48)
	require.NoError(t, err)

	_, err = backend.Alloc(32)
	assert.Equal(t, status.OutOfGPUMemory, status.CodeOf(err))

	backend.Free(ptr)
	ptr, err = backend.Alloc(32)
	require.NoError(t, err)
	backend.Free(ptr)
	assert.Equal(t, uint64(0), backend.MemoryStats().AllocatedBytes)

	_, err = backend.Alloc(0)
	assert.Equal(t, status.IllegalArgument, status.CodeOf(err))
}

func upload(t *testing.T, b *Backend, s tensor.Shape, data []float32) tensor.Tensor {
	t.Helper()
	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	ptr, err := b.Alloc(len(raw))
	require.NoError(t, err)
	t.Cleanup(func() { b.Free(ptr) })
	require.NoError(t, b.Write(ptr, raw))
	return tensor.NewTensor(s, tensor.Float, tensor.GPU, ptr, len(raw))
}

func download(t *testing.T, b *Backend, x tensor.Tensor) []float32 {
	t.Helper()
	raw, err := b.Read(x.Memory(), x.ByteSize())
	require.NoError(t, err)
	out := make([]float32, x.NumElements())
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out
}

func TestBackend_PoolingMatchesCPU(t *testing.T) {
	backend := openOrSkip(t)

	s := tensor.ShapeHWDN(9, 7, 3, 2)
	cases := []window.Params{
		window.Square(2, 2, 0, window.Max),
		window.Square(3, 2, 1, window.Max),
		{PoolHeight: 3, PoolWidth: 2, StrideY: 1, StrideX: 2, PadTop: 2, PadLeft: 1, PadRight: 1, Method: window.Average},
		{PoolHeight: 2, PoolWidth: 2, StrideY: 1, StrideX: 1, PadBottom: 1, PadRight: 1, Method: window.Average, Area: window.AreaValid},
	}
	for _, p := range cases {
		t.Run(p.String(), func(t *testing.T) {
			g, err := window.NewGeometry(p, s)
			require.NoError(t, err)
			outShape, err := p.OutputShape(s)
			require.NoError(t, err)

			input := make([]float32, g.InputSize())
			for i := range input {
				input[i] = float32(math.Sin(float64(i) * 0.37))
			}
			derOutput := make([]float32, g.OutputSize())
			for i := range derOutput {
				derOutput[i] = float32(i%7) - 3
			}

			want := make([]float32, g.OutputSize())
			cpu.Forward(want, input, g)
			wantGrad := make([]float32, g.InputSize())
			for i := range wantGrad {
				wantGrad[i] = 1
			}
			in, out := g.InputPlaneSize(), g.OutputPlaneSize()
			for k := 0; k < g.Planes; k++ {
				cpu.BackwardPlane(wantGrad[k*in:(k+1)*in], input[k*in:(k+1)*in], derOutput[k*out:(k+1)*out], g)
			}

			gpuIn := upload(t, backend, s, input)
			gpuOut := upload(t, backend, outShape, make([]float32, g.OutputSize()))
			require.NoError(t, backend.PoolForward(gpuOut, gpuIn, g))
			assert.InDeltaSlice(t, want, download(t, backend, gpuOut), 1e-5)

			ones := make([]float32, g.InputSize())
			for i := range ones {
				ones[i] = 1
			}
			gpuDerIn := upload(t, backend, s, ones)
			gpuDerOut := upload(t, backend, outShape, derOutput)
			require.NoError(t, backend.PoolBackward(gpuDerIn, gpuIn, gpuDerOut, g))
			assert.InDeltaSlice(t, wantGrad, download(t, backend, gpuDerIn), 1e-5)
		})
	}
}

func TestBackend_PoolingRejectsDouble(t *testing.T) {
	backend := openOrSkip(t)

	s := tensor.ShapeHWDN(2, 2, 1, 1)
	g, err := window.NewGeometry(window.Square(2, 1, 0, window.Max), s)
	require.NoError(t, err)
	ptr, err := backend.Alloc(32)
	require.NoError(t, err)
	defer backend.Free(ptr)

	x := tensor.NewTensor(s, tensor.Double, tensor.GPU, ptr, 32)
	assert.Equal(t, status.Unsupported, status.CodeOf(backend.PoolForward(x, x, g)))

	host := tensor.FromFloat32s(s, make([]float32, 4))
	assert.Equal(t, status.Unsupported, status.CodeOf(backend.PoolForward(host, host, g)))
}
