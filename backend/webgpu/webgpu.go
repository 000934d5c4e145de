// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU device used for GPU tensors.
//
// The device is loaded through wgpu-native at runtime. On platforms where the
// bindings are unavailable, Open fails with status.Unsupported and GPU tensors
// cannot be pooled.
//
// Example:
//
//	gpu, err := webgpu.Open()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Release()
//
//	ctx := compute.NewContext(compute.WithGPUOpener(func() (compute.Device, error) {
//	    return gpu, nil
//	}))
package webgpu

import (
	"github.com/born-ml/poolcore/compute"
	internalwebgpu "github.com/born-ml/poolcore/internal/backend/webgpu"
)

// Backend is an open WebGPU device.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements compute.Device.
var _ compute.Device = (*Backend)(nil)

// Open opens the default high performance adapter.
// Call Release() when done to free GPU resources.
func Open() (*Backend, error) {
	return internalwebgpu.Open()
}

// IsAvailable checks if WebGPU is available on the current system.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
