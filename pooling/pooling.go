// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pooling provides 2D max and average pooling with forward and
// backward passes on CPU and GPU tensors.
//
// Example:
//
//	ctx := compute.NewContext()
//	defer ctx.Close()
//
//	op, err := pooling.New(ctx, pooling.Square(2, 2, 0, pooling.Max))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	in := tensor.FromFloat32s(tensor.NewShape(4, 4, 3, 8), data)
//	outShape, _ := op.ForwardShape(in.Shape())
//	out := tensor.FromFloat32s(outShape, make([]float32, outShape.NumElements()))
//	err = op.Forward(out, in)
package pooling

import (
	"github.com/born-ml/poolcore/compute"
	"github.com/born-ml/poolcore/internal/pooling"
	"github.com/born-ml/poolcore/internal/pooling/window"
)

// Pooling is an immutable pooling operator bound to a Context.
type Pooling = pooling.Pooling

// Engine runs validated pooling requests.
type Engine = pooling.Engine

// Params configures a pooling operator.
type Params = window.Params

// Method is the reduction applied to a window.
type Method = window.Method

// Pooling methods.
const (
	Max     Method = window.Max
	Average Method = window.Average
)

// AreaMode selects the divisor of average pooling.
type AreaMode = window.AreaMode

// Area modes.
const (
	// AreaWindow divides by PoolHeight*PoolWidth.
	AreaWindow AreaMode = window.AreaWindow
	// AreaValid divides by the number of window cells inside the input.
	AreaValid AreaMode = window.AreaValid
)

// New validates params and creates an operator bound to ctx.
func New(ctx *compute.Context, params Params) (*Pooling, error) {
	return pooling.New(ctx, params)
}

// Square returns parameters for a size×size window with equal stride and
// padding on all sides.
func Square(size, stride, pad int, method Method) Params {
	return window.Square(size, stride, pad, method)
}

// ParseMethod converts "max" or "avg" to a Method.
func ParseMethod(s string) (Method, error) {
	return window.ParseMethod(s)
}

// ParseAreaMode converts "window" or "valid" to an AreaMode.
func ParseAreaMode(s string) (AreaMode, error) {
	return window.ParseAreaMode(s)
}
