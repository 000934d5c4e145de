// Package tensor provides the shape and memory-view types of the pooling core.
package tensor

// DType is a constraint for the element types the numeric kernels are written for.
type DType interface {
	~float32 | ~float64
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Char DataType = iota
	Float
	Double
)

// Size returns the byte size of the data type, or 0 for an unknown type.
func (dt DataType) Size() int {
	switch dt {
	case Char:
		return 1
	case Float:
		return 4
	case Double:
		return 8
	default:
		return 0
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Char:
		return "char"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return "unknown"
	}
}

// DataTypeOf returns the DataType matching the Go element type T.
func DataTypeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float
	default:
		return Double
	}
}

// DeviceType is the kind of memory a tensor lives in.
type DeviceType int

// Supported device types.
const (
	CPU DeviceType = iota
	GPU
)

// NumDeviceTypes is the number of DeviceType values, for per-device tables.
const NumDeviceTypes = 2

// String returns a human-readable device name.
func (d DeviceType) String() string {
	switch d {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// DivideAndRoundUp returns the smallest integer q with q*b >= a, for a >= 0 and b > 0.
func DivideAndRoundUp(a, b int) int {
	return (a + b - 1) / b
}

// GCD returns the greatest common divisor g of the non-negative integers a and b
// together with Bezout coefficients u and v such that a*u + b*v = g.
func GCD(a, b int) (g, u, v int) {
	oldR, r := a, b
	oldU, u1 := 1, 0
	oldV, v1 := 0, 1
	for r != 0 {
		q := oldR / r
		oldR, r = r, oldR-q*r
		oldU, u1 = u1, oldU-q*u1
		oldV, v1 = v1, oldV-q*v1
	}
	return oldR, oldU, oldV
}
