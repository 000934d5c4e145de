package webgpu

import "github.com/born-ml/poolcore/internal/status"

// created reports a wgpu constructor that handed back nil.
func created[T any](what string, p *T) error {
	if p == nil {
		return status.New(status.DeviceFailure, "webgpu: could not create %s", what)
	}
	return nil
}

// recoverDeviceFailure stores a panic raised inside the wgpu bindings into
// *err as status.DeviceFailure. It must be deferred directly.
func recoverDeviceFailure(err *error, op string) {
	if r := recover(); r != nil {
		*err = status.New(status.DeviceFailure, "webgpu: %s: %v", op, r)
	}
}
