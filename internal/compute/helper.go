package compute

import (
	"k8s.io/klog/v2"

	"github.com/born-ml/poolcore/internal/backend/webgpu"
	"github.com/born-ml/poolcore/internal/status"
)

// GPUOpener opens the GPU device.
type GPUOpener func() (Device, error)

// OpenWebGPU opens the WebGPU device.
func OpenWebGPU() (Device, error) {
	b, err := webgpu.Open()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DeviceHelper tracks the GPU device and the accelerated primitive toggle.
//
// The GPU is opened on first use. A failed open is remembered until Invalidate
// so repeated requests do not probe the driver again.
type DeviceHelper struct {
	open    GPUOpener
	gpu     Device
	openErr error

	primitivesEnabled bool
}

func newDeviceHelper(open GPUOpener, primitivesEnabled bool) *DeviceHelper {
	return &DeviceHelper{open: open, primitivesEnabled: primitivesEnabled}
}

// GPU returns the GPU device, opening it if needed.
func (h *DeviceHelper) GPU() (Device, error) {
	if h.gpu != nil {
		return h.gpu, nil
	}
	if h.openErr != nil {
		return nil, h.openErr
	}
	if h.open == nil {
		h.openErr = status.New(status.Unsupported, "no GPU device configured")
		return nil, h.openErr
	}

	gpu, err := h.open()
	if err != nil {
		klog.Warningf("compute: GPU unavailable: %v", err)
		if status.CodeOf(err) == status.Unknown {
			err = status.New(status.Unsupported, "opening GPU: %v", err)
		}
		h.openErr = err
		return nil, err
	}
	h.gpu = gpu
	return gpu, nil
}

// GPUAvailable reports whether a GPU device can be opened.
func (h *DeviceHelper) GPUAvailable() bool {
	_, err := h.GPU()
	return err == nil
}

// IsGPUOpen reports whether the GPU device is currently open.
func (h *DeviceHelper) IsGPUOpen() bool {
	return h.gpu != nil
}

// PrimitivesEnabled reports whether the accelerated primitive library may be used.
func (h *DeviceHelper) PrimitivesEnabled() bool {
	return h.primitivesEnabled
}

// SetPrimitivesEnabled turns the accelerated primitive library on or off.
func (h *DeviceHelper) SetPrimitivesEnabled(enabled bool) {
	h.primitivesEnabled = enabled
}

// Invalidate forgets the GPU device without releasing it, so that the next GPU
// call opens a fresh one.
func (h *DeviceHelper) Invalidate() {
	h.gpu = nil
	h.openErr = nil
}

// Release releases the GPU device if one is open.
func (h *DeviceHelper) Release() {
	if r, ok := h.gpu.(interface{ Release() }); ok {
		r.Release()
	}
	h.gpu = nil
	h.openErr = nil
}
