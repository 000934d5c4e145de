//go:build windows

package webgpu

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/born-ml/poolcore/internal/pooling/window"
	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// PoolForward pools input into output. Both tensors must be float GPU views.
func (b *Backend) PoolForward(output, input tensor.Tensor, g window.Geometry) error {
	if err := checkOperands(output, input); err != nil {
		return err
	}
	count := g.OutputSize()
	if count == 0 {
		return nil
	}
	if uint64(count) > math.MaxUint32 || uint64(g.InputSize()) > math.MaxUint32 {
		return status.New(status.IllegalArgument, "webgpu: %d output cells exceed the 32 bit index range", count)
	}

	gx, gy, pitch := grid(count)
	return b.run("poolForward", poolForwardShader, gx, gy, poolUniform(g, count, pitch),
		bind(input), bind(output))
}

// PoolBackward adds the input gradient into derInput.
func (b *Backend) PoolBackward(derInput, input, derOutput tensor.Tensor, g window.Geometry) error {
	if err := checkOperands(derInput, input, derOutput); err != nil {
		return err
	}
	count := g.InputSize()
	if count == 0 || g.OutputSize() == 0 {
		return nil
	}
	if uint64(count) > math.MaxUint32 {
		return status.New(status.IllegalArgument, "webgpu: %d input cells exceed the 32 bit index range", count)
	}

	gx, gy, pitch := grid(count)
	return b.run("poolBackward", poolBackwardShader, gx, gy, poolUniform(g, count, pitch),
		bind(input), bind(derOutput), bind(derInput))
}

func checkOperands(ts ...tensor.Tensor) error {
	for _, t := range ts {
		if t.DeviceType() != tensor.GPU {
			return status.New(status.Unsupported, "webgpu: operand on %s", t.DeviceType())
		}
		if t.DataType() != tensor.Float {
			return status.New(status.Unsupported, "webgpu: %s pooling not implemented", t.DataType())
		}
		if t.IsNull() {
			return status.New(status.IllegalArgument, "webgpu: null operand")
		}
	}
	return nil
}

func bind(t tensor.Tensor) binding {
	return binding{buffer: (*wgpu.Buffer)(t.Memory()), size: alignedSize(t.ByteSize())}
}

// poolUniform encodes the Params struct of the pooling shaders.
func poolUniform(g window.Geometry, count int, rowPitch uint32) []byte {
	fields := []int{
		g.Height, g.Width, g.OutHeight, g.OutWidth,
		g.PoolHeight, g.PoolWidth, g.StrideY, g.StrideX,
		g.PadTop, g.PadLeft,
		int(g.Method), int(g.Area),
		count, int(rowPitch),
	}
	params := make([]byte, len(fields)*int(unsafe.Sizeof(uint32(0))))
	for i, v := range fields {
		//nolint:gosec // G115: geometry values are validated non-negative and below MaxUint32
		binary.LittleEndian.PutUint32(params[4*i:], uint32(v))
	}
	return params
}
