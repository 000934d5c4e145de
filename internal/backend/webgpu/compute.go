//go:build windows

package webgpu

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/go-webgpu/webgpu/wgpu"
)

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) (*wgpu.ShaderModule, error) {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader, nil
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)
	if err := created("shader "+name, shader); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()

	return shader, nil
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) (*wgpu.ComputePipeline, error) {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline, nil
	}
	b.mu.RUnlock()

	// Auto layout (nil layout)
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")
	if err := created("pipeline "+name, pipeline); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()

	return pipeline, nil
}

// uploadTo copies data into dst through a buffer mapped at creation.
func (b *Backend) uploadTo(dst *wgpu.Buffer, data []byte) {
	size := alignedSize(len(data))

	upload := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	defer upload.Release()

	mappedPtr := upload.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	n := copy(mappedSlice, data)
	clear(mappedSlice[n:])
	upload.Unmap()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(upload, 0, dst, 0, size)
	b.queue.Submit(encoder.Finish(nil))
}

// createUniformBuffer creates a uniform buffer with proper alignment.
// Uniform buffers require 16-byte alignment for struct fields.
func (b *Backend) createUniformBuffer(data []byte) (*wgpu.Buffer, uint64) {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	n := copy(mappedSlice, data)
	clear(mappedSlice[n:])
	buffer.Unmap()

	return buffer, alignedSize
}

// readBuffer reads data back from a GPU buffer to CPU memory.
// Uses a staging buffer since storage buffers can't be mapped directly.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingBuffer, capacity := b.staging.Acquire(size)

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		stagingBuffer.Release()
		return nil, errors.Wrap(err, "failed to map staging buffer")
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mappedSlice)
	stagingBuffer.Unmap()

	b.staging.Release(stagingBuffer, capacity)
	return result, nil
}

// binding is a storage buffer bound to a compute pass.
type binding struct {
	buffer *wgpu.Buffer
	size   uint64
}

// grid splits count threads into a 2D dispatch that respects the per-axis
// workgroup limit. rowPitch is the number of threads in one grid row.
func grid(count int) (groupsX, groupsY, rowPitch uint32) {
	//nolint:gosec // G115: count was checked against MaxUint32
	groups := (uint32(count) + workgroupSize - 1) / workgroupSize
	groupsX = min(groups, maxWorkgroupsPerDim)
	groupsY = (groups + groupsX - 1) / groupsX
	return groupsX, groupsY, groupsX * workgroupSize
}

// run binds buffers to slots 0..n-1 and params to slot n, then dispatches
// the named shader over a groupsX×groupsY grid. Failures inside the bindings
// come back as status.DeviceFailure.
func (b *Backend) run(name, code string, groupsX, groupsY uint32, params []byte, buffers ...binding) (err error) {
	defer recoverDeviceFailure(&err, name)

	shader, err := b.compileShader(name, code)
	if err != nil {
		return err
	}
	pipeline, err := b.getOrCreatePipeline(name, shader)
	if err != nil {
		return err
	}

	bufferParams, paramsSize := b.createUniformBuffer(params)
	if err := created("params buffer", bufferParams); err != nil {
		return err
	}
	defer bufferParams.Release()

	entries := make([]wgpu.BindGroupEntry, 0, len(buffers)+1)
	for i, bb := range buffers {
		//nolint:gosec // G115: binding slots are small
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), bb.buffer, 0, bb.size))
	}
	//nolint:gosec // G115: binding slots are small
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(buffers)), bufferParams, 0, paramsSize))

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, entries)
	if err := created("bind group", bindGroup); err != nil {
		return err
	}
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	if err := created("command encoder", encoder); err != nil {
		return err
	}
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(groupsX, groupsY, 1)
	computePass.End()

	b.queue.Submit(encoder.Finish(nil))
	return nil
}
