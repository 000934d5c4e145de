//go:build windows

// Package webgpu implements the GPU device and pooling kernels on WebGPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
package webgpu

import (
	"fmt"
	"sync"
	"unsafe"

	"k8s.io/klog/v2"

	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Backend is an open WebGPU device. Device memory handed out by Alloc is a
// *wgpu.Buffer disguised as an unsafe.Pointer.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	adapterInfo *wgpu.AdapterInfo

	// Readback staging buffers
	staging *StagingPool

	// Memory tracking
	memoryStats struct {
		sizes               map[*wgpu.Buffer]uint64
		totalAllocatedBytes uint64
		peakMemoryBytes     uint64
		activeBuffers       int64
		limit               uint64
		mu                  sync.Mutex
	}
}

// Open opens the default high performance adapter.
// Returns status.Unsupported when no adapter or native library is present.
func Open() (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = status.New(status.Unsupported, "webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, status.New(status.Unsupported, "webgpu: no adapter: %v", adapterErr)
	}

	adapterInfo := adapter.GetInfo()

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, status.New(status.DeviceFailure, "webgpu: requesting device: %v", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, status.New(status.DeviceFailure, "webgpu: device has no queue")
	}

	b := &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: &adapterInfo,
		staging:     NewStagingPool(device),
	}
	b.memoryStats.sizes = make(map[*wgpu.Buffer]uint64)
	klog.V(2).Infof("webgpu: opened %s", b.Name())
	return b, nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// Release releases every buffer still allocated and all WebGPU objects.
// Must be called when the backend is no longer needed.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.staging != nil {
		b.staging.Clear()
		b.staging = nil
	}

	b.memoryStats.mu.Lock()
	for buf := range b.memoryStats.sizes {
		buf.Release()
	}
	b.memoryStats.sizes = nil
	b.memoryStats.totalAllocatedBytes = 0
	b.memoryStats.activeBuffers = 0
	b.memoryStats.mu.Unlock()

	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil

	for _, s := range b.shaders {
		s.Release()
	}
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	if b.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", b.adapterInfo.Name, b.adapterInfo.VendorName)
	}
	return "WebGPU"
}

// String implements fmt.Stringer.
func (b *Backend) String() string { return b.Name() }

// Type returns tensor.GPU.
func (b *Backend) Type() tensor.DeviceType {
	return tensor.GPU
}

// SetMemoryLimit caps the bytes Alloc may hand out. Zero means no cap.
func (b *Backend) SetMemoryLimit(bytes uint64) {
	b.memoryStats.mu.Lock()
	defer b.memoryStats.mu.Unlock()
	b.memoryStats.limit = bytes
}

// MemoryStats represents GPU memory usage statistics.
type MemoryStats struct {
	// Bytes currently allocated through Alloc
	AllocatedBytes uint64
	// Peak of AllocatedBytes
	PeakMemoryBytes uint64
	// Number of live buffers
	ActiveBuffers int64
	// Staging pool statistics
	StagingHits   uint64
	StagingMisses uint64
	StagingPooled int
}

// MemoryStats returns current GPU memory usage statistics.
func (b *Backend) MemoryStats() MemoryStats {
	b.memoryStats.mu.Lock()
	s := MemoryStats{
		AllocatedBytes:  b.memoryStats.totalAllocatedBytes,
		PeakMemoryBytes: b.memoryStats.peakMemoryBytes,
		ActiveBuffers:   b.memoryStats.activeBuffers,
	}
	b.memoryStats.mu.Unlock()

	if b.staging != nil {
		s.StagingHits, s.StagingMisses, s.StagingPooled = b.staging.Stats()
	}
	return s
}

// Alloc creates a storage buffer of at least size bytes.
func (b *Backend) Alloc(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, status.New(status.IllegalArgument, "webgpu: allocation size %d", size)
	}
	aligned := alignedSize(size)

	b.memoryStats.mu.Lock()
	defer b.memoryStats.mu.Unlock()
	if b.memoryStats.sizes == nil {
		return nil, status.New(status.DeviceFailure, "webgpu: backend released")
	}
	if limit := b.memoryStats.limit; limit > 0 && b.memoryStats.totalAllocatedBytes+aligned > limit {
		return nil, status.New(status.OutOfGPUMemory, "webgpu: %d bytes requested, %d of %d in use",
			aligned, b.memoryStats.totalAllocatedBytes, limit)
	}

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  aligned,
	})
	if buffer == nil {
		return nil, status.New(status.OutOfGPUMemory, "webgpu: creating %d byte buffer", aligned)
	}

	b.memoryStats.sizes[buffer] = aligned
	b.memoryStats.totalAllocatedBytes += aligned
	b.memoryStats.activeBuffers++
	if b.memoryStats.totalAllocatedBytes > b.memoryStats.peakMemoryBytes {
		b.memoryStats.peakMemoryBytes = b.memoryStats.totalAllocatedBytes
	}
	//nolint:gosec // G103: device memory is passed around as an opaque pointer
	return unsafe.Pointer(buffer), nil
}

// Free releases a buffer returned by Alloc. Unknown pointers are ignored.
func (b *Backend) Free(ptr unsafe.Pointer) {
	buffer := (*wgpu.Buffer)(ptr)
	if buffer == nil {
		return
	}

	b.memoryStats.mu.Lock()
	defer b.memoryStats.mu.Unlock()
	size, ok := b.memoryStats.sizes[buffer]
	if !ok {
		return
	}
	delete(b.memoryStats.sizes, buffer)
	b.memoryStats.totalAllocatedBytes -= size
	b.memoryStats.activeBuffers--
	buffer.Release()
}

// Write uploads src to the start of the buffer dst.
func (b *Backend) Write(dst unsafe.Pointer, src []byte) error {
	buffer := (*wgpu.Buffer)(dst)
	if buffer == nil {
		return status.New(status.IllegalArgument, "webgpu: write to nil buffer")
	}
	if len(src) == 0 {
		return nil
	}
	b.uploadTo(buffer, src)
	return nil
}

// Read downloads the first size bytes of the buffer src.
func (b *Backend) Read(src unsafe.Pointer, size int) ([]byte, error) {
	buffer := (*wgpu.Buffer)(src)
	if buffer == nil {
		return nil, status.New(status.IllegalArgument, "webgpu: read from nil buffer")
	}
	if size <= 0 {
		return nil, nil
	}
	data, err := b.readBuffer(buffer, alignedSize(size))
	if err != nil {
		return nil, status.New(status.DeviceFailure, "webgpu: %v", err)
	}
	return data[:size], nil
}

// alignedSize rounds n up to the 4 byte granularity of buffer copies.
func alignedSize(n int) uint64 {
	//nolint:gosec // G115: callers pass non-negative sizes
	return (uint64(n) + 3) &^ 3
}
