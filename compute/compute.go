// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package compute provides the Context that owns scratch memory, device
// handles and the last-error state shared by pooling operators.
//
// A Context is created by the caller and passed to every operator:
//
//	ctx := compute.NewContext()
//	defer ctx.Close()
//
//	op, err := pooling.New(ctx, pooling.Square(2, 2, 0, pooling.Max))
//
// A Context is not safe for concurrent use. Use one per goroutine.
package compute

import "github.com/born-ml/poolcore/internal/compute"

// Context owns workspace memory, the all-ones buffers and error state.
type Context = compute.Context

// Option configures a Context.
type Option = compute.Option

// Config holds the tunables of a Context.
type Config = compute.Config

// Device allocates and moves memory on one device type.
type Device = compute.Device

// HostDevice is the CPU Device.
type HostDevice = compute.HostDevice

// DeviceHelper tracks the GPU device and the accelerated primitive toggle.
type DeviceHelper = compute.DeviceHelper

// GPUOpener opens the GPU device.
type GPUOpener = compute.GPUOpener

// Allocator hands out device memory to a Buffer.
type Allocator = compute.Allocator

// Buffer is a growable, device-bound memory arena.
type Buffer = compute.Buffer

// NewContext creates a Context.
func NewContext(opts ...Option) *Context {
	return compute.NewContext(opts...)
}

// WithConfig sets the Context configuration.
func WithConfig(cfg Config) Option {
	return compute.WithConfig(cfg)
}

// WithGPUOpener replaces the function used to open the GPU device.
func WithGPUOpener(open GPUOpener) Option {
	return compute.WithGPUOpener(open)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return compute.DefaultConfig()
}

// LoadConfig reads a JSON configuration file.
func LoadConfig(path string) (Config, error) {
	return compute.LoadConfig(path)
}

// NewBuffer creates an empty buffer drawing memory from alloc.
func NewBuffer(alloc Allocator) *Buffer {
	return compute.NewBuffer(alloc)
}

// OpenWebGPU opens the WebGPU device.
func OpenWebGPU() (Device, error) {
	return compute.OpenWebGPU()
}
