//go:build !windows

// Package webgpu implements the GPU device and pooling kernels on WebGPU.
// The go-webgpu bindings load wgpu-native at runtime on Windows only; on other
// platforms every entry point reports status.Unsupported.
package webgpu

import (
	"runtime"
	"unsafe"

	"github.com/born-ml/poolcore/internal/pooling/window"
	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

// Backend is never opened on this platform.
type Backend struct{}

// Open always fails with status.Unsupported.
func Open() (*Backend, error) {
	return nil, unsupported()
}

// IsAvailable reports false.
func IsAvailable() bool { return false }

// Release does nothing.
func (*Backend) Release() {}

// Name returns the backend name.
func (*Backend) Name() string { return "WebGPU" }

// Type returns tensor.GPU.
func (*Backend) Type() tensor.DeviceType { return tensor.GPU }

// Alloc fails with status.Unsupported.
func (*Backend) Alloc(int) (unsafe.Pointer, error) { return nil, unsupported() }

// Free does nothing.
func (*Backend) Free(unsafe.Pointer) {}

// Write fails with status.Unsupported.
func (*Backend) Write(unsafe.Pointer, []byte) error { return unsupported() }

// Read fails with status.Unsupported.
func (*Backend) Read(unsafe.Pointer, int) ([]byte, error) { return nil, unsupported() }

// PoolForward fails with status.Unsupported.
func (*Backend) PoolForward(_, _ tensor.Tensor, _ window.Geometry) error { return unsupported() }

// PoolBackward fails with status.Unsupported.
func (*Backend) PoolBackward(_, _, _ tensor.Tensor, _ window.Geometry) error { return unsupported() }

func unsupported() error {
	return status.New(status.Unsupported, "webgpu: not available on %s", runtime.GOOS)
}
