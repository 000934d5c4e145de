// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go pooling kernels the native engine runs on
// host memory.
//
// # Overview
//
//   - Pure Go implementation (no CGO)
//   - Float32 and Float64 support
//   - Max pooling excludes padding; average pooling divides by the
//     configured area
//
// Most callers go through the pooling package, which validates operands and
// picks an engine. The backend is exported for callers that already hold a
// window geometry.
//
// # Basic Usage
//
//	backend := cpu.New()
//	err := backend.PoolForward(output, input, geometry)
package cpu
