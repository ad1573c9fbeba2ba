// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrReleased is returned when a released handle or a closed manager
	// is used.
	ErrReleased = errors.New("gpu: resource released")

	// ErrDeviceInUse is returned by Manager.Claim when another owner
	// already holds the device.
	ErrDeviceInUse = errors.New("gpu: device already claimed")
)

// ResourceKind identifies the type of a GPU resource.
type ResourceKind uint8

const (
	KindShader ResourceKind = iota
	KindProgram
	KindBuffer
	KindTexture
	KindFramebuffer
	KindVertexArray
	KindUniform
)

// String returns the resource kind name.
func (k ResourceKind) String() string {
	switch k {
	case KindShader:
		return "shader"
	case KindProgram:
		return "program"
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	case KindFramebuffer:
		return "framebuffer"
	case KindVertexArray:
		return "vertex array"
	case KindUniform:
		return "uniform"
	default:
		return fmt.Sprintf("ResourceKind(%d)", k)
	}
}

// CompileError reports a shader that failed to compile.
// Log holds the compiler diagnostics.
type CompileError struct {
	Label string
	Stage ShaderStage
	Log   string
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gpu: compile %s shader %q: %s", e.Stage, e.Label, e.Log)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LinkError reports a program that failed to link.
type LinkError struct {
	Label string
	Log   string
	Err   error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("gpu: link program %q: %s", e.Label, e.Log)
}

func (e *LinkError) Unwrap() error { return e.Err }

// ResourceError reports a buffer, texture, framebuffer, vertex array or
// uniform that could not be created, updated or looked up.
type ResourceError struct {
	Kind  ResourceKind
	Label string
	Err   error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("gpu: %s %q: %v", e.Kind, e.Label, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

func resourceError(kind ResourceKind, label string, format string, args ...any) *ResourceError {
	return &ResourceError{Kind: kind, Label: label, Err: fmt.Errorf(format, args...)}
}
