package compute

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

// fakeGPU is a GPU device backed by host memory.
type fakeGPU struct {
	HostDevice
	allocs   int
	frees    int
	released bool
	fullAt   int
}

func (g *fakeGPU) Type() tensor.DeviceType { return tensor.GPU }

func (g *fakeGPU) Alloc(size int) (unsafe.Pointer, error) {
	if g.fullAt > 0 && size >= g.fullAt {
		return nil, status.New(status.OutOfGPUMemory, "%d bytes", size)
	}
	g.allocs++
	return g.HostDevice.Alloc(size)
}

func (g *fakeGPU) Free(unsafe.Pointer) { g.frees++ }

func (g *fakeGPU) Release() { g.released = true }

func newGPUContext(gpu *fakeGPU) *Context {
	return NewContext(WithGPUOpener(func() (Device, error) { return gpu, nil }))
}

func TestContext_WorkspaceMonotonicity(t *testing.T) {
	ctx := NewContext()

	sizes := []int{1024, 1024, 512, 100, 1}
	for _, size := range sizes {
		mem, err := ctx.Workspace(tensor.CPU, size)
		require.NoError(t, err)
		require.NotNil(t, mem)
		assert.Equal(t, 1, ctx.WorkspaceReallocations(tensor.CPU), "size %d", size)
	}

	_, err := ctx.Workspace(tensor.CPU, 1025)
	require.NoError(t, err)
	assert.Equal(t, 2, ctx.WorkspaceReallocations(tensor.CPU))

	ctx.ClearWorkspace(tensor.CPU)
	_, err = ctx.Workspace(tensor.CPU, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, ctx.WorkspaceReallocations(tensor.CPU))
}

func TestContext_AllOnes(t *testing.T) {
	ctx := NewContext()

	mem, err := ctx.AllOnes(tensor.CPU, tensor.Float, 5)
	require.NoError(t, err)
	ones := unsafe.Slice((*float32)(mem), 5)
	assert.Equal(t, []float32{1, 1, 1, 1, 1}, ones)

	// Reused without refill: scribbling survives a smaller request.
	ones[0] = 7
	mem2, err := ctx.AllOnes(tensor.CPU, tensor.Float, 3)
	require.NoError(t, err)
	assert.Equal(t, mem, mem2)
	assert.Equal(t, float32(7), unsafe.Slice((*float32)(mem2), 3)[0])

	mem3, err := ctx.AllOnes(tensor.CPU, tensor.Double, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, unsafe.Slice((*float64)(mem3), 4))

	bytes, err := ctx.AllOnes(tensor.CPU, tensor.Char, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 1}, unsafe.Slice((*byte)(bytes), 3))

	ctx.ClearAllOnes(tensor.CPU)
	_, err = ctx.AllOnes(tensor.CPU, tensor.DataType(9), 3)
	assert.Equal(t, status.IllegalArgument, status.CodeOf(err))
}

func TestContext_ErrorState(t *testing.T) {
	ctx := NewContext()
	assert.Equal(t, status.Success, ctx.LastError())
	assert.Empty(t, ctx.LastErrorMessage())

	err := ctx.SetError(status.IllegalArgument, "pooling: stride is zero")
	assert.Equal(t, status.IllegalArgument, status.CodeOf(err))
	assert.Equal(t, status.IllegalArgument, ctx.LastError())
	assert.Equal(t, "pooling: stride is zero [illegal argument error]", ctx.LastErrorMessage())

	// Success neither records nor clears.
	assert.NoError(t, ctx.SetError(status.Success, "ignored"))
	assert.NoError(t, ctx.PassError(nil, "ignored"))
	assert.Equal(t, status.IllegalArgument, ctx.LastError())

	lower := status.New(status.OutOfMemory, "1024 bytes")
	passed := ctx.PassError(lower, "getWorkspace")
	assert.Equal(t, status.OutOfMemory, status.CodeOf(passed))
	assert.Equal(t, status.OutOfMemory, ctx.LastError())
	assert.Equal(t, "getWorkspace: out of memory error: 1024 bytes", ctx.LastErrorMessage())

	ctx.ResetLastError()
	assert.Equal(t, status.Success, ctx.LastError())
	assert.Empty(t, ctx.LastErrorMessage())
}

func TestContext_GPUBuffers(t *testing.T) {
	gpu := &fakeGPU{}
	ctx := newGPUContext(gpu)

	mem, err := ctx.AllOnes(tensor.GPU, tensor.Float, 4)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1, 1}, unsafe.Slice((*float32)(mem), 4))

	_, err = ctx.Workspace(tensor.GPU, 256)
	require.NoError(t, err)
	assert.Equal(t, 2, gpu.allocs)
	assert.True(t, ctx.DeviceHelper().IsGPUOpen())

	ctx.Clear()
	assert.Equal(t, 2, gpu.frees)
	assert.True(t, gpu.released)
	assert.False(t, ctx.DeviceHelper().IsGPUOpen())
}

func TestContext_GPUOutOfMemory(t *testing.T) {
	gpu := &fakeGPU{fullAt: 1 << 20}
	ctx := newGPUContext(gpu)

	mem, err := ctx.Workspace(tensor.GPU, 1<<20)
	assert.Nil(t, mem)
	assert.Equal(t, status.OutOfGPUMemory, status.CodeOf(err))
	assert.Equal(t, status.OutOfGPUMemory, ctx.LastError())
	assert.Contains(t, ctx.LastErrorMessage(), "getWorkspace")
}

func TestContext_InvalidateGPU(t *testing.T) {
	first := &fakeGPU{}
	second := &fakeGPU{}
	opened := 0
	ctx := NewContext(WithGPUOpener(func() (Device, error) {
		opened++
		if opened == 1 {
			return first, nil
		}
		return second, nil
	}))

	_, err := ctx.Workspace(tensor.GPU, 64)
	require.NoError(t, err)
	_, err = ctx.Workspace(tensor.CPU, 64)
	require.NoError(t, err)

	ctx.InvalidateGPU()
	assert.Equal(t, 0, first.frees, "memory of a lost device is not freed")
	assert.False(t, first.released)
	assert.Equal(t, 1, ctx.WorkspaceReallocations(tensor.CPU))

	_, err = ctx.Workspace(tensor.GPU, 64)
	require.NoError(t, err)
	assert.Equal(t, 2, opened)
	assert.Equal(t, 1, second.allocs)
}

func TestContext_NoGPU(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisableGPU = true
	ctx := NewContext(WithConfig(cfg))

	_, err := ctx.Workspace(tensor.GPU, 16)
	assert.Equal(t, status.Unsupported, status.CodeOf(err))
	assert.False(t, ctx.DeviceHelper().GPUAvailable())
}

func TestDeviceHelper_Primitives(t *testing.T) {
	ctx := NewContext()
	assert.True(t, ctx.DeviceHelper().PrimitivesEnabled())

	ctx.DeviceHelper().SetPrimitivesEnabled(false)
	assert.False(t, ctx.DeviceHelper().PrimitivesEnabled())

	cfg := DefaultConfig()
	cfg.EnablePrimitives = false
	assert.False(t, NewContext(WithConfig(cfg)).DeviceHelper().PrimitivesEnabled())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poolcore.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"enable_primitives": false, "workers": 3}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.EnablePrimitives)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, DefaultConfig().MinPlanesPerWorker, cfg.MinPlanesPerWorker)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"workers": -1}`), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
