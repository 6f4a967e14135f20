// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SwapchainFrame is one presentable texture handed out by a Swapchain.
// The texture and view stay owned by the swapchain; the device only
// borrows them for the lifetime of the acquiring command buffer.
type SwapchainFrame struct {
	Texture hal.Texture
	View    hal.TextureView
	Width   uint32
	Height  uint32
}

// Swapchain supplies presentable frames to the device. Implementations
// wrap a windowing surface; Acquire reports ok=false when no frame is
// available this cycle (for example a minimized window), which is not an
// error.
type Swapchain interface {
	// Acquire returns the next presentable frame. ok=false means skip
	// rendering this cycle.
	Acquire() (frame SwapchainFrame, ok bool)

	// Format returns the pixel format of the swapchain's textures.
	Format() gputypes.TextureFormat
}
