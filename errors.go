// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import "errors"

// Device and recording errors.
var (
	// ErrNativeCallFailed is returned when a native creation, acquisition,
	// or submission call fails.
	ErrNativeCallFailed = errors.New("gpudev: native call failed")

	// ErrOutOfRange is returned when an upload or download range exceeds
	// the target buffer's declared size.
	ErrOutOfRange = errors.New("gpudev: range exceeds buffer size")

	// ErrInvalidArgument is returned when a caller-supplied argument is
	// malformed, such as an entry point containing a NUL byte.
	ErrInvalidArgument = errors.New("gpudev: invalid argument")

	// ErrMissingWindow is returned when an operation requires a swapchain
	// but the device was created without one.
	ErrMissingWindow = errors.New("gpudev: device has no swapchain")

	// ErrPassEnded is returned when recording into a pass that has ended.
	ErrPassEnded = errors.New("gpudev: pass has already ended")

	// ErrCommandBufferFinished is returned when operating on a command
	// buffer that was already submitted or cancelled.
	ErrCommandBufferFinished = errors.New("gpudev: command buffer already finished")

	// ErrNoPipeline is returned when a draw or dispatch is issued before a
	// pipeline has been bound.
	ErrNoPipeline = errors.New("gpudev: no pipeline bound")

	// ErrNilDevice is returned when constructing a Device without a HAL
	// device or queue.
	ErrNilDevice = errors.New("gpudev: hal device or queue is nil")
)
