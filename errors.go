// errors.go - the error taxonomy used across the scene-build and render
// roles, following VideoError's {Operation, Details, Err} shape.

package main

import (
	"errors"
	"fmt"
)

// Sentinel causes, wrapped by BuildError/GPUError below. Compare with
// errors.Is or, where the concrete type is needed, errors.As against
// *BuildError / *GPUError. No GPUError wraps ErrGpuResourceFailure: a
// device-side creation or allocation failure carries the underlying Vulkan
// error as its Err instead.
var (
	ErrEmptyScene          = errors.New("empty scene")
	ErrDegenerateGeometry  = errors.New("degenerate geometry")
	ErrMeshLoadFailure     = errors.New("mesh load failure")
	ErrGpuResourceFailure  = errors.New("gpu resource failure")
	ErrShaderLoadFailure   = errors.New("shader load failure")
)

// BuildError reports a failure from the scene-build role: BVH construction
// or mesh loading. Scene-builder, unlike the render role, never treats this
// as a reason to stop the program: a per-instance mesh load failure is
// logged and the instance skipped, and a failed build is logged by the
// build goroutine, which then delivers a nil package on the build-completion
// channel.
type BuildError struct {
	Operation string
	Details   string
	Err       error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("build %s failed: %s", e.Operation, e.Details)
}

func (e *BuildError) Unwrap() error { return e.Err }

// GPUError reports a failure from the render role. Per the error handling
// design, a GPUError is always fatal: the render loop logs it, clears its
// running flag, best-effort cleans up, and exits.
type GPUError struct {
	Operation string
	Details   string
	Err       error
}

func (e *GPUError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gpu %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("gpu %s failed: %s", e.Operation, e.Details)
}

func (e *GPUError) Unwrap() error { return e.Err }
