// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor describes the memory the pooling core works on.
//
// # Overview
//
// A Tensor is a non-owning view: a Shape, a DataType, a DeviceType and a
// pointer to memory someone else allocated and frees. Shapes have up to
// MaxDimensions extents laid out height first, then width, channels and
// batch size. Data is stored height-fastest:
//
//	index(y, x, c, n) = y + H*(x + W*(c + C*n))
//
// Missing trailing dimensions count as 1, so a 3D shape [5 4 2] equals
// [5 4 2 1].
//
// # Basic Usage
//
//	import "github.com/born-ml/poolcore/tensor"
//
//	func main() {
//	    data := make([]float32, 4*4*3)
//	    x := tensor.FromFloat32s(tensor.NewShape(4, 4, 3), data)
//	    fmt.Println(x.Shape(), x.DataType(), x.DeviceType())
//	}
//
// # Supported Data Types
//
//   - Char: 8-bit, scratch memory only
//   - Float: float32, every device
//   - Double: float64, CPU only
package tensor
