// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RenderPass records draw commands against color and depth/stencil
// attachments. Bind a graphics pipeline first; uniform data pushed per
// slot is materialized into transient buffers and bind groups at draw
// time, so pushes between draws take effect on the next draw.
type RenderPass struct {
	cb      *CommandBuffer
	encoder hal.RenderPassEncoder
	ended   bool

	pipeline    graphicsPipelineEntry
	hasPipeline bool

	samplersBound bool
	vertBlobs     [][]byte
	fragBlobs     [][]byte
	uniformsDirty bool
}

// BeginRenderPass opens a render pass over the given attachments. Color
// targets may reference the swapchain sentinel. Panics if another pass
// is already open on this command buffer.
func (cb *CommandBuffer) BeginRenderPass(label string, colors []ColorTargetInfo, depthStencil *DepthStencilTargetInfo) (*RenderPass, error) {
	if err := cb.checkRecording(); err != nil {
		return nil, err
	}
	if len(colors) == 0 {
		return nil, fmt.Errorf("%w: render pass needs at least one color target", ErrInvalidArgument)
	}

	attachments := make([]hal.RenderPassColorAttachment, len(colors))
	for i, c := range colors {
		tex := cb.dev.resolveTexture(c.Texture)
		attachments[i] = hal.RenderPassColorAttachment{
			View:       tex.view,
			LoadOp:     c.LoadOp,
			StoreOp:    c.StoreOp,
			ClearValue: c.ClearColor,
		}
	}

	var depth *hal.RenderPassDepthStencilAttachment
	if depthStencil != nil {
		tex := cb.dev.resolveTexture(depthStencil.Texture)
		depth = &hal.RenderPassDepthStencilAttachment{
			View:              tex.view,
			DepthLoadOp:       depthStencil.DepthLoadOp,
			DepthStoreOp:      depthStencil.DepthStoreOp,
			DepthClearValue:   depthStencil.DepthClear,
			StencilLoadOp:     depthStencil.StencilLoadOp,
			StencilStoreOp:    depthStencil.StencilStoreOp,
			StencilClearValue: depthStencil.StencilClear,
		}
	}

	p := &RenderPass{cb: cb}
	cb.beginPass(p)
	p.encoder = cb.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:                  label,
		ColorAttachments:       attachments,
		DepthStencilAttachment: depth,
	})
	return p, nil
}

func (p *RenderPass) checkOpen() error {
	if p.ended {
		return ErrPassEnded
	}
	return p.cb.checkRecording()
}

// BindGraphicsPipeline makes the pipeline current and resets the uniform
// slots to the shaders' declared counts. Pipelines without fragment
// samplers get their (empty) sampler group bound immediately; otherwise
// BindFragmentSamplers must run before the first draw.
func (p *RenderPass) BindGraphicsPipeline(id GraphicsPipelineID) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	entry := p.cb.dev.graphics.get(int32(id))
	p.encoder.SetPipeline(entry.pipeline)
	p.pipeline = entry
	p.hasPipeline = true
	p.vertBlobs = make([][]byte, entry.vertexUniforms)
	p.fragBlobs = make([][]byte, entry.fragUniforms)
	p.uniformsDirty = true
	p.samplersBound = false

	if entry.fragSamplers == 0 {
		bg, err := p.cb.createSamplerBindGroup(entry.samplerLayout, nil, "gpudev-samplers")
		if err != nil {
			return err
		}
		p.encoder.SetBindGroup(0, bg, nil)
		p.samplersBound = true
	}
	return nil
}

// BindFragmentSamplers binds texture/sampler pairs for fragment
// sampling. The binding count must match the fragment shader's declared
// sampler count.
func (p *RenderPass) BindFragmentSamplers(bindings []TextureSamplerBinding) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !p.hasPipeline {
		return ErrNoPipeline
	}
	if uint32(len(bindings)) != p.pipeline.fragSamplers {
		return fmt.Errorf("%w: %d sampler bindings for %d declared slots",
			ErrInvalidArgument, len(bindings), p.pipeline.fragSamplers)
	}
	bg, err := p.cb.createSamplerBindGroup(p.pipeline.samplerLayout, bindings, "gpudev-samplers")
	if err != nil {
		return err
	}
	p.encoder.SetBindGroup(0, bg, nil)
	p.samplersBound = true
	return nil
}

// BindVertexBuffer binds a vertex buffer to the given slot.
func (p *RenderPass) BindVertexBuffer(slot uint32, buffer BufferID, offset uint64) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	entry := p.cb.dev.buffers.get(int32(buffer))
	if offset > entry.size {
		return fmt.Errorf("%w: offset %d exceeds buffer size %d", ErrOutOfRange, offset, entry.size)
	}
	p.encoder.SetVertexBuffer(slot, entry.buf, offset)
	return nil
}

// BindIndexBuffer binds the index buffer for indexed draws.
func (p *RenderPass) BindIndexBuffer(buffer BufferID, format gputypes.IndexFormat, offset uint64) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	entry := p.cb.dev.buffers.get(int32(buffer))
	if offset > entry.size {
		return fmt.Errorf("%w: offset %d exceeds buffer size %d", ErrOutOfRange, offset, entry.size)
	}
	p.encoder.SetIndexBuffer(entry.buf, format, offset)
	return nil
}

// PushVertexUniformData stages uniform data for a vertex shader slot.
// The data is copied; it takes effect on the next draw.
func (p *RenderPass) PushVertexUniformData(slot uint32, data []byte) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !p.hasPipeline {
		return ErrNoPipeline
	}
	if slot >= p.pipeline.vertexUniforms {
		return fmt.Errorf("%w: vertex uniform slot %d of %d", ErrInvalidArgument, slot, p.pipeline.vertexUniforms)
	}
	p.vertBlobs[slot] = append([]byte(nil), data...)
	p.uniformsDirty = true
	return nil
}

// PushFragmentUniformData stages uniform data for a fragment shader
// slot. The data is copied; it takes effect on the next draw.
func (p *RenderPass) PushFragmentUniformData(slot uint32, data []byte) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !p.hasPipeline {
		return ErrNoPipeline
	}
	if slot >= p.pipeline.fragUniforms {
		return fmt.Errorf("%w: fragment uniform slot %d of %d", ErrInvalidArgument, slot, p.pipeline.fragUniforms)
	}
	p.fragBlobs[slot] = append([]byte(nil), data...)
	p.uniformsDirty = true
	return nil
}

// SetViewport sets the viewport transform.
func (p *RenderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	p.encoder.SetViewport(x, y, width, height, minDepth, maxDepth)
	return nil
}

// SetScissorRect sets the scissor rectangle.
func (p *RenderPass) SetScissorRect(x, y, width, height uint32) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	p.encoder.SetScissorRect(x, y, width, height)
	return nil
}

// flushUniforms materializes pushed uniform data into transient buffers
// and binds the uniform groups.
func (p *RenderPass) flushUniforms() error {
	if !p.uniformsDirty {
		return nil
	}
	vbg, err := p.cb.createUniformBindGroup(p.pipeline.vertexUniformLayout, p.pipeline.vertexUniforms, p.vertBlobs, "gpudev-vert-uniforms")
	if err != nil {
		return err
	}
	p.encoder.SetBindGroup(1, vbg, nil)

	fbg, err := p.cb.createUniformBindGroup(p.pipeline.fragmentUniformLayout, p.pipeline.fragUniforms, p.fragBlobs, "gpudev-frag-uniforms")
	if err != nil {
		return err
	}
	p.encoder.SetBindGroup(2, fbg, nil)

	p.uniformsDirty = false
	return nil
}

func (p *RenderPass) checkDraw() error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !p.hasPipeline {
		return ErrNoPipeline
	}
	if !p.samplersBound {
		return fmt.Errorf("%w: fragment samplers not bound", ErrInvalidArgument)
	}
	return p.flushUniforms()
}

// DrawPrimitives issues a non-indexed draw.
func (p *RenderPass) DrawPrimitives(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if err := p.checkDraw(); err != nil {
		return err
	}
	p.encoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

// DrawIndexedPrimitives issues an indexed draw using the bound index
// buffer.
func (p *RenderPass) DrawIndexedPrimitives(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	if err := p.checkDraw(); err != nil {
		return err
	}
	p.encoder.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

// End closes the pass. End is idempotent.
func (p *RenderPass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.encoder.End()
	p.cb.endPass(p)
}

// abandon marks the pass ended without touching the encoder; the
// command buffer discards the whole recording.
func (p *RenderPass) abandon() { p.ended = true }
