package tensor

import (
	"fmt"
	"strings"
)

// MaxDimensions is the largest number of dimensions a Shape can hold.
const MaxDimensions = 8

// Shape is the ordered sequence of dimension extents of a tensor.
//
// The first four dimensions are named height, width, depth (channels) and
// size (cardinality). Dimensions past NumDimensions read as 1. Shape is a
// value type and is safe to copy.
type Shape struct {
	dims [MaxDimensions]int
	n    int
}

// NewShape creates a shape from the given extents.
// It panics if more than MaxDimensions extents are given or any is negative.
func NewShape(dims ...int) Shape {
	var s Shape
	s.SetDimensions(dims...)
	return s
}

// ShapeHWDN creates a 4D shape from height, width, depth and size.
func ShapeHWDN(height, width, depth, size int) Shape {
	return NewShape(height, width, depth, size)
}

// Clear sets the shape to the empty shape with no dimensions.
func (s *Shape) Clear() {
	*s = Shape{}
}

// SetDimension sets extent k, growing the shape with unit extents if needed.
func (s *Shape) SetDimension(k, extent int) {
	if k < 0 || k >= MaxDimensions {
		panic(fmt.Sprintf("tensor: dimension index %d out of range [0,%d)", k, MaxDimensions))
	}
	if extent < 0 {
		panic(fmt.Sprintf("tensor: negative extent %d for dimension %d", extent, k))
	}
	for i := s.n; i < k; i++ {
		s.dims[i] = 1
	}
	if k+1 > s.n {
		s.n = k + 1
	}
	s.dims[k] = extent
}

// SetDimensions replaces all extents.
func (s *Shape) SetDimensions(dims ...int) {
	if len(dims) > MaxDimensions {
		panic(fmt.Sprintf("tensor: %d dimensions exceed the maximum of %d", len(dims), MaxDimensions))
	}
	s.Clear()
	for k, d := range dims {
		s.SetDimension(k, d)
	}
}

// SetHeight sets dimension 0.
func (s *Shape) SetHeight(x int) { s.SetDimension(0, x) }

// SetWidth sets dimension 1.
func (s *Shape) SetWidth(x int) { s.SetDimension(1, x) }

// SetDepth sets dimension 2 (number of channels).
func (s *Shape) SetDepth(x int) { s.SetDimension(2, x) }

// SetSize sets dimension 3 (cardinality).
func (s *Shape) SetSize(x int) { s.SetDimension(3, x) }

// Reshape squashes or stretches the shape to exactly n dimensions.
//
// Squashing multiplies the trailing extents into dimension n-1; stretching
// appends unit extents. Neither changes NumElements, except Reshape(0), which
// clears the shape.
func (s *Shape) Reshape(n int) {
	if n < 0 || n > MaxDimensions {
		panic(fmt.Sprintf("tensor: cannot reshape to %d dimensions", n))
	}
	switch {
	case n == s.n:
		return
	case n == 0:
		s.Clear()
		return
	case n > s.n:
		for k := s.n; k < n; k++ {
			s.dims[k] = 1
		}
	default:
		p := s.dims[n-1]
		for k := n; k < s.n; k++ {
			p *= s.dims[k]
			s.dims[k] = 0
		}
		s.dims[n-1] = p
	}
	s.n = n
}

// ReshapeAs makes s a copy of other.
func (s *Shape) ReshapeAs(other Shape) {
	*s = other
}

// Dimension returns extent k, or 1 if k is past the last dimension.
func (s Shape) Dimension(k int) int {
	if k < 0 || k >= s.n {
		return 1
	}
	return s.dims[k]
}

// Dimensions returns a copy of the populated extents.
func (s Shape) Dimensions() []int {
	return append([]int(nil), s.dims[:s.n]...)
}

// NumDimensions returns the number of populated dimensions.
func (s Shape) NumDimensions() int { return s.n }

// Height returns dimension 0.
func (s Shape) Height() int { return s.Dimension(0) }

// Width returns dimension 1.
func (s Shape) Width() int { return s.Dimension(1) }

// NumChannels returns dimension 2.
func (s Shape) NumChannels() int { return s.Dimension(2) }

// Depth is an alias of NumChannels.
func (s Shape) Depth() int { return s.Dimension(2) }

// Cardinality returns dimension 3.
func (s Shape) Cardinality() int { return s.Dimension(3) }

// NumElements returns the product of all extents.
// A shape without dimensions has no elements.
func (s Shape) NumElements() int {
	if s.n == 0 {
		return 0
	}
	n := 1
	for _, d := range s.dims[:s.n] {
		n *= d
	}
	return n
}

// IsEmpty reports whether the shape has no elements.
func (s Shape) IsEmpty() bool {
	return s.NumElements() == 0
}

// Equal compares two shapes dimension by dimension, treating missing
// trailing dimensions as 1.
func (s Shape) Equal(other Shape) bool {
	n := max(s.n, other.n)
	for k := 0; k < n; k++ {
		if s.Dimension(k) != other.Dimension(k) {
			return false
		}
	}
	return true
}

// String renders the shape as [h×w×c×n].
func (s Shape) String() string {
	parts := make([]string, s.n)
	for k := range parts {
		parts[k] = fmt.Sprint(s.dims[k])
	}
	return "[" + strings.Join(parts, "×") + "]"
}
