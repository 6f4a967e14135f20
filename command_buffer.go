// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// CommandBufferState tracks the lifecycle of a command buffer.
type CommandBufferState int

const (
	// CommandBufferStateRecording accepts passes and transfer commands.
	CommandBufferStateRecording CommandBufferState = iota
	// CommandBufferStateSubmitted means the buffer was handed to the queue.
	CommandBufferStateSubmitted
	// CommandBufferStateCancelled means recording was discarded.
	CommandBufferStateCancelled
)

// String returns the string representation of CommandBufferState.
func (s CommandBufferState) String() string {
	switch s {
	case CommandBufferStateRecording:
		return "Recording"
	case CommandBufferStateSubmitted:
		return "Submitted"
	case CommandBufferStateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// pass is the common surface of the three pass kinds, used by the
// command buffer to track the single open pass and to force-close it on
// cancellation.
type pass interface {
	abandon()
}

// CommandBuffer records GPU work against a Device. Acquire one with
// Device.AcquireCommandBuffer, record copy/render/compute passes on it,
// then Submit or Cancel exactly once. A command buffer counts toward the
// device's in-flight total from acquisition until it finishes either way.
//
// At most one pass may be open on a command buffer at a time; opening a
// second is a programming error and panics.
type CommandBuffer struct {
	dev     *Device
	encoder hal.CommandEncoder

	state             CommandBufferState
	openPass          pass
	swapchainAcquired bool

	// Per-recording transients: uniform buffers, bind groups, and texture
	// views created while recording, released when the buffer finishes.
	transientBuffers []hal.Buffer
	transientGroups  []hal.BindGroup
	transientViews   []hal.TextureView
}

// AcquireCommandBuffer starts recording a new command buffer and
// increments the device's in-flight counter.
func (d *Device) AcquireCommandBuffer() (*CommandBuffer, error) {
	encoder, err := d.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "gpudev-command-buffer",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create command encoder: %v", ErrNativeCallFailed, err)
	}
	if err := encoder.BeginEncoding("gpudev-command-buffer"); err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("%w: begin encoding: %v", ErrNativeCallFailed, err)
	}
	d.inFlight.Add(1)
	return &CommandBuffer{dev: d, encoder: encoder}, nil
}

// State returns the current lifecycle state.
func (cb *CommandBuffer) State() CommandBufferState { return cb.state }

func (cb *CommandBuffer) checkRecording() error {
	if cb.state != CommandBufferStateRecording {
		return fmt.Errorf("%w: command buffer is %s", ErrCommandBufferFinished, cb.state)
	}
	return nil
}

// beginPass registers p as the open pass. Overlapping passes fault
// before any native begin is issued.
func (cb *CommandBuffer) beginPass(p pass) {
	if cb.openPass != nil {
		panic("gpudev: a pass is already open on this command buffer")
	}
	cb.openPass = p
}

// endPass clears the open-pass slot when p ends.
func (cb *CommandBuffer) endPass(p pass) {
	if cb.openPass == p {
		cb.openPass = nil
	}
}

// AcquireSwapchainTexture acquires the swapchain texture for this
// command buffer and returns the sentinel handle and the frame extent.
// ok=false with a nil error means no frame is available this cycle.
// Must be called before any pass is opened, at most once per buffer.
func (cb *CommandBuffer) AcquireSwapchainTexture() (id TextureID, width, height uint32, ok bool, err error) {
	if err := cb.checkRecording(); err != nil {
		return 0, 0, 0, false, err
	}
	if cb.dev.sc == nil {
		return 0, 0, 0, false, ErrMissingWindow
	}
	if cb.swapchainAcquired {
		return 0, 0, 0, false, fmt.Errorf("%w: swapchain texture already acquired", ErrInvalidArgument)
	}
	if cb.openPass != nil {
		return 0, 0, 0, false, fmt.Errorf("%w: swapchain texture must be acquired before opening a pass", ErrInvalidArgument)
	}
	if cb.dev.frame.valid {
		return 0, 0, 0, false, fmt.Errorf("%w: another command buffer holds the swapchain texture", ErrInvalidArgument)
	}

	frame, got := cb.dev.sc.Acquire()
	if !got {
		return 0, 0, 0, false, nil
	}
	cb.swapchainAcquired = true
	cb.dev.frame = frameState{frame: frame, valid: true}
	return SwapchainTextureID, frame.Width, frame.Height, true, nil
}

// BlitTexture copies a region between textures outside any pass. The HAL
// exposes no filtered blit, so the regions must have equal extents and
// FlipVertically must be false. Panics if a pass is open.
func (cb *CommandBuffer) BlitTexture(info BlitInfo) error {
	if err := cb.checkRecording(); err != nil {
		return err
	}
	if cb.openPass != nil {
		panic("gpudev: blit with an open pass")
	}
	if info.FlipVertically {
		return fmt.Errorf("%w: flipped blit is not supported", ErrInvalidArgument)
	}
	if info.Source.Width != info.Destination.Width || info.Source.Height != info.Destination.Height {
		return fmt.Errorf("%w: scaled blit is not supported", ErrInvalidArgument)
	}
	if info.Source.Width == 0 || info.Source.Height == 0 {
		return fmt.Errorf("%w: blit extent is empty", ErrInvalidArgument)
	}

	src := cb.dev.resolveTexture(info.Source.Texture)
	dst := cb.dev.resolveTexture(info.Destination.Texture)

	cb.encoder.CopyTextureToTexture(src.tex, dst.tex, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{
			Texture:  src.tex,
			MipLevel: info.Source.MipLevel,
			Origin:   hal.Origin3D{X: info.Source.X, Y: info.Source.Y},
		},
		DstBase: hal.ImageCopyTexture{
			Texture:  dst.tex,
			MipLevel: info.Destination.MipLevel,
			Origin:   hal.Origin3D{X: info.Destination.X, Y: info.Destination.Y},
		},
		Size: hal.Extent3D{
			Width:              info.Source.Width,
			Height:             info.Source.Height,
			DepthOrArrayLayers: 1,
		},
	}})
	return nil
}

// Submit finishes recording and hands the buffer to the queue. The
// swapchain frame state clears and the in-flight counter decrements
// before the native submit is issued; at in-flight zero, superseded
// staging buffers are reclaimed. Submitting twice (or after Cancel)
// returns ErrCommandBufferFinished.
func (cb *CommandBuffer) Submit() error {
	if err := cb.checkRecording(); err != nil {
		return err
	}
	if cb.openPass != nil {
		panic("gpudev: submit with an open pass")
	}
	cb.state = CommandBufferStateSubmitted
	cb.dev.clearFrame()
	cb.dev.commandBufferDone()

	cmd, err := cb.encoder.EndEncoding()
	if err != nil {
		cb.releaseTransients()
		return fmt.Errorf("%w: end encoding: %v", ErrNativeCallFailed, err)
	}
	err = cb.dev.queue.Submit([]hal.CommandBuffer{cmd}, nil, 0)
	cmd.Destroy()
	cb.releaseTransients()
	if err != nil {
		return fmt.Errorf("%w: submit: %v", ErrNativeCallFailed, err)
	}
	return nil
}

// submitAndWait finishes recording, submits with a fence, and blocks
// until the GPU signals it or the device's download timeout elapses.
func (cb *CommandBuffer) submitAndWait() error {
	if err := cb.checkRecording(); err != nil {
		return err
	}
	if cb.openPass != nil {
		panic("gpudev: submit with an open pass")
	}
	cb.state = CommandBufferStateSubmitted
	cb.dev.clearFrame()
	cb.dev.commandBufferDone()

	cmd, err := cb.encoder.EndEncoding()
	if err != nil {
		cb.releaseTransients()
		return fmt.Errorf("%w: end encoding: %v", ErrNativeCallFailed, err)
	}

	fence, err := cb.dev.hal.CreateFence()
	if err != nil {
		cmd.Destroy()
		cb.releaseTransients()
		return fmt.Errorf("%w: create fence: %v", ErrNativeCallFailed, err)
	}
	defer cb.dev.hal.DestroyFence(fence)

	err = cb.dev.queue.Submit([]hal.CommandBuffer{cmd}, fence, 1)
	cmd.Destroy()
	cb.releaseTransients()
	if err != nil {
		return fmt.Errorf("%w: submit: %v", ErrNativeCallFailed, err)
	}

	signaled, err := cb.dev.hal.Wait(fence, 1, cb.dev.downloadTimeout)
	if err != nil {
		return fmt.Errorf("%w: fence wait: %v", ErrNativeCallFailed, err)
	}
	if !signaled {
		return fmt.Errorf("%w: fence wait timed out after %v", ErrNativeCallFailed, cb.dev.downloadTimeout)
	}
	return nil
}

// Cancel discards the recording without submitting. Any open pass is
// force-closed, the swapchain frame state clears, and the in-flight
// counter decrements exactly as on Submit. Cancel is idempotent and is a
// no-op after Submit, which makes it safe to defer as a drop guard:
//
//	cb, err := dev.AcquireCommandBuffer()
//	if err != nil { ... }
//	defer cb.Cancel()
func (cb *CommandBuffer) Cancel() {
	if cb.state != CommandBufferStateRecording {
		return
	}
	cb.state = CommandBufferStateCancelled
	if cb.openPass != nil {
		cb.openPass.abandon()
		cb.openPass = nil
	}
	cb.dev.clearFrame()
	cb.dev.commandBufferDone()
	cb.encoder.DiscardEncoding()
	cb.releaseTransients()
}

// releaseTransients destroys the bind groups, uniform buffers, and
// texture views created during recording.
func (cb *CommandBuffer) releaseTransients() {
	for _, bg := range cb.transientGroups {
		cb.dev.hal.DestroyBindGroup(bg)
	}
	cb.transientGroups = nil
	for _, buf := range cb.transientBuffers {
		cb.dev.hal.DestroyBuffer(buf)
	}
	cb.transientBuffers = nil
	for _, view := range cb.transientViews {
		cb.dev.hal.DestroyTextureView(view)
	}
	cb.transientViews = nil
}

// uniformSlotAlignment pads pushed uniform data so every transient
// buffer satisfies minimum binding size requirements.
const uniformSlotAlignment = 16

// createUniformBindGroup materializes one bind group of count uniform
// slots from the pushed blobs. Slots never pushed bind a small
// zero-filled buffer so the group always matches its layout.
func (cb *CommandBuffer) createUniformBindGroup(layout hal.BindGroupLayout, count uint32, blobs [][]byte, label string) (hal.BindGroup, error) {
	entries := make([]gputypes.BindGroupEntry, 0, count)
	for slot := uint32(0); slot < count; slot++ {
		var data []byte
		if int(slot) < len(blobs) {
			data = blobs[slot]
		}
		size := uint64(len(data))
		if size == 0 {
			size = uniformSlotAlignment
		}
		size = (size + uniformSlotAlignment - 1) &^ uint64(uniformSlotAlignment-1)

		buf, err := cb.dev.hal.CreateBuffer(&hal.BufferDescriptor{
			Label: label,
			Size:  size,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create uniform buffer: %v", ErrNativeCallFailed, err)
		}
		cb.transientBuffers = append(cb.transientBuffers, buf)

		padded := make([]byte, size)
		copy(padded, data)
		cb.dev.queue.WriteBuffer(buf, 0, padded)

		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  slot,
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: 0},
		})
	}

	bg, err := cb.dev.hal.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create uniform bind group: %v", ErrNativeCallFailed, err)
	}
	cb.transientGroups = append(cb.transientGroups, bg)
	return bg, nil
}

// createSamplerBindGroup materializes the fragment sampling group:
// binding 2i texture view, 2i+1 sampler.
func (cb *CommandBuffer) createSamplerBindGroup(layout hal.BindGroupLayout, bindings []TextureSamplerBinding, label string) (hal.BindGroup, error) {
	entries := make([]gputypes.BindGroupEntry, 0, len(bindings)*2)
	for i, b := range bindings {
		tex := cb.dev.resolveTexture(b.Texture)
		sampler := cb.dev.samplers.get(int32(b.Sampler))
		entries = append(entries,
			gputypes.BindGroupEntry{
				Binding: uint32(i) * 2, //nolint:gosec // binding count bounded by shader slots
				Resource: gputypes.TextureViewBinding{
					TextureView: tex.view.NativeHandle(),
				},
			},
			gputypes.BindGroupEntry{
				Binding: uint32(i)*2 + 1, //nolint:gosec // binding count bounded by shader slots
				Resource: gputypes.SamplerBinding{
					Sampler: sampler.NativeHandle(),
				},
			},
		)
	}

	bg, err := cb.dev.hal.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create sampler bind group: %v", ErrNativeCallFailed, err)
	}
	cb.transientGroups = append(cb.transientGroups, bg)
	return bg, nil
}

// storageTextureView returns a view of the texture's mip level for
// storage binding. Level 0 reuses the registry's default view; other
// levels get a transient single-level view.
func (cb *CommandBuffer) storageTextureView(binding StorageTextureReadWriteBinding) (hal.TextureView, error) {
	entry := cb.dev.resolveTexture(binding.Texture)
	if binding.MipLevel == 0 {
		return entry.view, nil
	}
	view, err := cb.dev.hal.CreateTextureView(entry.tex, &hal.TextureViewDescriptor{
		Label:         "gpudev-storage-mip",
		Format:        entry.format,
		Dimension:     gputypes.TextureViewDimension2D,
		BaseMipLevel:  binding.MipLevel,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create storage texture view: %v", ErrNativeCallFailed, err)
	}
	cb.transientViews = append(cb.transientViews, view)
	return view, nil
}

// createStorageBindGroup materializes the compute storage group:
// textures at bindings 0..len(texs)-1, buffers after.
func (cb *CommandBuffer) createStorageBindGroup(layout hal.BindGroupLayout, texs []StorageTextureReadWriteBinding, bufs []StorageBufferReadWriteBinding, label string) (hal.BindGroup, error) {
	entries := make([]gputypes.BindGroupEntry, 0, len(texs)+len(bufs))
	for i, t := range texs {
		view, err := cb.storageTextureView(t)
		if err != nil {
			return nil, err
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: uint32(i), //nolint:gosec // binding count bounded by shader slots
			Resource: gputypes.TextureViewBinding{
				TextureView: view.NativeHandle(),
			},
		})
	}
	for i, b := range bufs {
		entry := cb.dev.buffers.get(int32(b.Buffer))
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(len(texs) + i), //nolint:gosec // binding count bounded by shader slots
			Resource: gputypes.BufferBinding{Buffer: entry.buf.NativeHandle(), Offset: 0, Size: 0},
		})
	}

	bg, err := cb.dev.hal.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create storage bind group: %v", ErrNativeCallFailed, err)
	}
	cb.transientGroups = append(cb.transientGroups, bg)
	return bg, nil
}
