//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// maxPooledStaging bounds the number of idle staging buffers kept.
const maxPooledStaging = 16

// StagingPool reuses MapRead staging buffers between readbacks.
type StagingPool struct {
	device *wgpu.Device

	idle []stagingBuffer
	mu   sync.Mutex

	// Statistics
	hits   uint64
	misses uint64
}

type stagingBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

// NewStagingPool creates a staging pool for device.
func NewStagingPool(device *wgpu.Device) *StagingPool {
	return &StagingPool{device: device, idle: make([]stagingBuffer, 0, maxPooledStaging)}
}

// Acquire returns the smallest idle buffer holding at least size bytes, or a
// new one when none fits. The second result is the buffer capacity.
func (p *StagingPool) Acquire(size uint64) (*wgpu.Buffer, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := -1
	for i, sb := range p.idle {
		if sb.size >= size && (best < 0 || sb.size < p.idle[best].size) {
			best = i
		}
	}
	if best >= 0 {
		sb := p.idle[best]
		p.idle = append(p.idle[:best], p.idle[best+1:]...)
		p.hits++
		return sb.buffer, sb.size
	}

	p.misses++
	buffer := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	return buffer, size
}

// Release hands an unmapped buffer back. It is destroyed if the pool is full.
func (p *StagingPool) Release(buffer *wgpu.Buffer, size uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.idle) >= maxPooledStaging {
		buffer.Release()
		return
	}
	p.idle = append(p.idle, stagingBuffer{buffer: buffer, size: size})
}

// Clear releases all idle buffers.
func (p *StagingPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sb := range p.idle {
		sb.buffer.Release()
	}
	p.idle = p.idle[:0]
}

// Stats returns hit and miss counts and the number of idle buffers.
func (p *StagingPool) Stats() (hits, misses uint64, pooled int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses, len(p.idle)
}
