package compute

import (
	"unsafe"

	"k8s.io/klog/v2"

	"github.com/born-ml/poolcore/internal/status"
	"github.com/born-ml/poolcore/internal/tensor"
)

// Context owns the scratch memory and error state shared by a sequence of
// operator calls.
//
// A Context is not safe for concurrent use: operators sharing one Context must
// be serialized by the caller. Use one Context per goroutine or device stream
// for parallelism.
type Context struct {
	cfg    Config
	host   HostDevice
	helper *DeviceHelper

	workspace [tensor.NumDeviceTypes]*Buffer
	allOnes   [tensor.NumDeviceTypes]*Buffer

	lastError        status.Code
	lastErrorMessage string
}

// Option configures a Context.
type Option func(*Context)

// WithConfig sets the Context configuration.
func WithConfig(cfg Config) Option {
	return func(c *Context) { c.cfg = cfg }
}

// WithGPUOpener replaces the function used to open the GPU device.
func WithGPUOpener(open GPUOpener) Option {
	return func(c *Context) { c.helper.open = open }
}

// NewContext creates a Context with empty buffers and no recorded error.
func NewContext(opts ...Option) *Context {
	c := &Context{
		cfg:    DefaultConfig(),
		helper: newDeviceHelper(OpenWebGPU, false),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.DisableGPU {
		c.helper.open = nil
	}
	c.helper.primitivesEnabled = c.cfg.EnablePrimitives

	alloc := contextAllocator{c}
	for d := range c.workspace {
		c.workspace[d] = NewBuffer(alloc)
		c.allOnes[d] = NewBuffer(alloc)
	}
	return c
}

// Config returns the Context configuration.
func (c *Context) Config() Config { return c.cfg }

// DeviceHelper returns the device capability helper.
func (c *Context) DeviceHelper() *DeviceHelper { return c.helper }

// Device returns the execution backend for device type d.
func (c *Context) Device(d tensor.DeviceType) (Device, error) {
	switch d {
	case tensor.CPU:
		return c.host, nil
	case tensor.GPU:
		return c.helper.GPU()
	default:
		return nil, status.New(status.IllegalArgument, "unknown device type %d", d)
	}
}

// Workspace returns at least size bytes of scratch memory on device.
// The contents are not preserved across unrelated operator calls.
func (c *Context) Workspace(device tensor.DeviceType, size int) (unsafe.Pointer, error) {
	if !validDevice(device) {
		return nil, c.SetError(status.IllegalArgument, "getWorkspace: unknown device")
	}
	buf := c.workspace[device]
	if err := buf.Init(device, tensor.Char, size); err != nil {
		return nil, c.PassError(err, "getWorkspace")
	}
	return buf.Memory(), nil
}

// WorkspaceReallocations returns how many times the workspace of device was reallocated.
func (c *Context) WorkspaceReallocations(device tensor.DeviceType) int {
	if !validDevice(device) {
		return 0
	}
	return c.workspace[device].NumReallocations()
}

// ClearWorkspace releases the workspace of device.
func (c *Context) ClearWorkspace(device tensor.DeviceType) {
	if validDevice(device) {
		c.workspace[device].Clear()
	}
}

// AllOnes returns a vector of at least size elements of dataType set to one.
// The vector is refilled only when its memory is reallocated.
func (c *Context) AllOnes(device tensor.DeviceType, dataType tensor.DataType, size int) (unsafe.Pointer, error) {
	if !validDevice(device) {
		return nil, c.SetError(status.IllegalArgument, "getAllOnes: unknown device")
	}
	elemSize := dataType.Size()
	if elemSize == 0 {
		return nil, c.SetError(status.IllegalArgument, "getAllOnes: unknown data type")
	}

	buf := c.allOnes[device]
	n := buf.NumReallocations()
	if err := buf.Init(device, dataType, size*elemSize); err != nil {
		return nil, c.PassError(err, "getAllOnes")
	}
	if n == buf.NumReallocations() {
		return buf.Memory(), nil
	}

	dev, err := c.Device(device)
	if err != nil {
		buf.Clear()
		return nil, c.PassError(err, "getAllOnes")
	}
	if err := dev.Write(buf.Memory(), onesBytes(dataType, size)); err != nil {
		buf.Clear()
		return nil, c.PassError(err, "getAllOnes")
	}
	return buf.Memory(), nil
}

// ClearAllOnes releases the all-ones vector of device.
func (c *Context) ClearAllOnes(device tensor.DeviceType) {
	if validDevice(device) {
		c.allOnes[device].Clear()
	}
}

// Clear releases all buffers and the GPU device and forgets the last error.
func (c *Context) Clear() {
	for d := range c.workspace {
		c.workspace[d].Clear()
		c.allOnes[d].Clear()
	}
	c.helper.Release()
	c.ResetLastError()
}

// Close is Clear; a closed Context can still be used and reallocates lazily.
func (c *Context) Close() {
	c.Clear()
}

// InvalidateGPU drops GPU memory and the GPU device without releasing them,
// for use after the device context was lost.
func (c *Context) InvalidateGPU() {
	for d := range c.workspace {
		c.workspace[d].InvalidateGPU()
		c.allOnes[d].InvalidateGPU()
	}
	c.helper.Invalidate()
}

// PassError records an error raised by a lower layer, prefixing its message
// with description, and returns it annotated. A nil err is returned unchanged
// and leaves the recorded error alone.
func (c *Context) PassError(err error, description string) error {
	if err == nil {
		return nil
	}
	err = status.Wrap(err, description)
	c.record(status.CodeOf(err), err.Error())
	return err
}

// SetError records a new error raised at this layer and returns it.
// Success returns nil and leaves the recorded error alone.
func (c *Context) SetError(code status.Code, description string) error {
	if code == status.Success {
		return nil
	}
	msg := status.Message(code)
	if description != "" {
		msg = description + " [" + msg + "]"
	}
	c.record(code, msg)
	return &status.Error{Code: code, Message: description}
}

func (c *Context) record(code status.Code, msg string) {
	c.lastError = code
	c.lastErrorMessage = msg
	klog.V(2).Infof("compute: error %d: %s", code, msg)
}

// ResetLastError clears the recorded error.
func (c *Context) ResetLastError() {
	c.lastError = status.Success
	c.lastErrorMessage = ""
}

// LastError returns the code of the most recent recorded error.
func (c *Context) LastError() status.Code { return c.lastError }

// LastErrorMessage returns the message of the most recent recorded error.
func (c *Context) LastErrorMessage() string { return c.lastErrorMessage }

// contextAllocator routes buffer allocations to the Context's devices.
type contextAllocator struct{ c *Context }

func (a contextAllocator) Alloc(device tensor.DeviceType, size int) (unsafe.Pointer, error) {
	dev, err := a.c.Device(device)
	if err != nil {
		return nil, err
	}
	return dev.Alloc(size)
}

func (a contextAllocator) Free(device tensor.DeviceType, ptr unsafe.Pointer) {
	dev, err := a.c.Device(device)
	if err != nil {
		return
	}
	dev.Free(ptr)
}

func validDevice(d tensor.DeviceType) bool {
	return d >= 0 && int(d) < tensor.NumDeviceTypes
}

func onesBytes(dataType tensor.DataType, n int) []byte {
	out := make([]byte, n*dataType.Size())
	switch dataType {
	case tensor.Char:
		for i := range out {
			out[i] = 1
		}
	case tensor.Float:
		ones := unsafe.Slice((*float32)(unsafe.Pointer(&out[0])), n)
		for i := range ones {
			ones[i] = 1
		}
	case tensor.Double:
		ones := unsafe.Slice((*float64)(unsafe.Pointer(&out[0])), n)
		for i := range ones {
			ones[i] = 1
		}
	}
	return out
}
