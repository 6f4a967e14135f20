// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// =============================================================================
// Mock Types for Testing
// =============================================================================

// mockHALDevice is a test double for hal.Device. Buffers and textures
// carry CPU backing stores so copy commands recorded on the mock encoder
// can execute at submit time and transfers round-trip.
type mockHALDevice struct {
	createBufferFunc  func(*hal.BufferDescriptor) (hal.Buffer, error)
	createTextureFunc func(*hal.TextureDescriptor) (hal.Texture, error)
	waitFunc          func(hal.Fence, uint64, time.Duration) (bool, error)
	beginEncodingErr  error

	encoders []*mockHALCommandEncoder

	// Track calls for verification
	buffersCreated    int32
	buffersDestroyed  int32
	texturesCreated   int32
	texturesDestroyed int32
	viewsCreated      int32
	viewsDestroyed    int32
	samplersCreated   int32
	samplersDestroyed int32
	shadersCreated    int32
	shadersDestroyed  int32
	layoutsCreated    int32
	layoutsDestroyed  int32
	groupsCreated     int32
	groupsDestroyed   int32
	pipelinesCreated  int32
	pipelinesDestroyed int32
	encodersCreated   int32
	fencesCreated     int32
}

func (d *mockHALDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	atomic.AddInt32(&d.buffersCreated, 1)
	if d.createBufferFunc != nil {
		return d.createBufferFunc(desc)
	}
	return &mockHALBuffer{
		label: desc.Label,
		size:  desc.Size,
		usage: desc.Usage,
		data:  make([]byte, desc.Size),
	}, nil
}

func (d *mockHALDevice) DestroyBuffer(buffer hal.Buffer) {
	atomic.AddInt32(&d.buffersDestroyed, 1)
	if mb, ok := buffer.(*mockHALBuffer); ok {
		mb.destroyed = true
	}
}

func (d *mockHALDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	atomic.AddInt32(&d.texturesCreated, 1)
	if d.createTextureFunc != nil {
		return d.createTextureFunc(desc)
	}
	return &mockHALTexture{
		width:  desc.Size.Width,
		height: desc.Size.Height,
		format: desc.Format,
		data:   make([]byte, int(desc.Size.Width)*int(desc.Size.Height)*4),
	}, nil
}

func (d *mockHALDevice) DestroyTexture(_ hal.Texture) {
	atomic.AddInt32(&d.texturesDestroyed, 1)
}

func (d *mockHALDevice) CreateTextureView(texture hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	atomic.AddInt32(&d.viewsCreated, 1)
	return &mockHALTextureView{texture: texture, label: desc.Label}, nil
}

func (d *mockHALDevice) DestroyTextureView(_ hal.TextureView) {
	atomic.AddInt32(&d.viewsDestroyed, 1)
}

func (d *mockHALDevice) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	atomic.AddInt32(&d.samplersCreated, 1)
	return &mockHALSampler{label: desc.Label}, nil
}

func (d *mockHALDevice) DestroySampler(_ hal.Sampler) {
	atomic.AddInt32(&d.samplersDestroyed, 1)
}

func (d *mockHALDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	atomic.AddInt32(&d.layoutsCreated, 1)
	return &mockHALBindGroupLayout{entries: len(desc.Entries)}, nil
}

func (d *mockHALDevice) DestroyBindGroupLayout(_ hal.BindGroupLayout) {
	atomic.AddInt32(&d.layoutsDestroyed, 1)
}

func (d *mockHALDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	atomic.AddInt32(&d.groupsCreated, 1)
	return &mockHALBindGroup{entries: len(desc.Entries)}, nil
}

func (d *mockHALDevice) DestroyBindGroup(_ hal.BindGroup) {
	atomic.AddInt32(&d.groupsDestroyed, 1)
}

func (d *mockHALDevice) CreatePipelineLayout(_ *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	return &mockHALPipelineLayout{}, nil
}
func (d *mockHALDevice) DestroyPipelineLayout(_ hal.PipelineLayout) {}

func (d *mockHALDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	atomic.AddInt32(&d.shadersCreated, 1)
	return &mockHALShaderModule{label: desc.Label}, nil
}

func (d *mockHALDevice) DestroyShaderModule(_ hal.ShaderModule) {
	atomic.AddInt32(&d.shadersDestroyed, 1)
}

func (d *mockHALDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	atomic.AddInt32(&d.pipelinesCreated, 1)
	return &mockHALRenderPipeline{label: desc.Label}, nil
}

func (d *mockHALDevice) DestroyRenderPipeline(_ hal.RenderPipeline) {
	atomic.AddInt32(&d.pipelinesDestroyed, 1)
}

func (d *mockHALDevice) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	atomic.AddInt32(&d.pipelinesCreated, 1)
	return &mockHALComputePipeline{label: desc.Label}, nil
}

func (d *mockHALDevice) DestroyComputePipeline(_ hal.ComputePipeline) {
	atomic.AddInt32(&d.pipelinesDestroyed, 1)
}

func (d *mockHALDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	atomic.AddInt32(&d.encodersCreated, 1)
	e := &mockHALCommandEncoder{label: desc.Label, beginErr: d.beginEncodingErr}
	d.encoders = append(d.encoders, e)
	return e, nil
}

func (d *mockHALDevice) CreateFence() (hal.Fence, error) {
	atomic.AddInt32(&d.fencesCreated, 1)
	return &mockHALFence{}, nil
}
func (d *mockHALDevice) DestroyFence(_ hal.Fence) {}

func (d *mockHALDevice) Wait(fence hal.Fence, value uint64, timeout time.Duration) (bool, error) {
	if d.waitFunc != nil {
		return d.waitFunc(fence, value, timeout)
	}
	return true, nil
}

func (d *mockHALDevice) Destroy() {}

// mockHALQueue is a test double for hal.Queue. WriteBuffer lands
// immediately in the buffer's backing store; Submit executes the copy
// commands recorded on the mock encoder.
type mockHALQueue struct {
	submitFunc func([]hal.CommandBuffer, hal.Fence, uint64) error

	writes  int32
	submits int32
}

func (q *mockHALQueue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) {
	atomic.AddInt32(&q.writes, 1)
	if mb, ok := buffer.(*mockHALBuffer); ok {
		copy(mb.data[offset:], data)
	}
}

func (q *mockHALQueue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) {
	atomic.AddInt32(&q.writes, 1)
	tex, ok := dst.Texture.(*mockHALTexture)
	if !ok {
		return
	}
	for y := uint32(0); y < size.Height; y++ {
		srcOff := layout.Offset + uint64(y)*uint64(layout.BytesPerRow)
		dstOff := (uint64(dst.Origin.Y+y)*uint64(tex.width) + uint64(dst.Origin.X)) * 4
		copy(tex.data[dstOff:dstOff+uint64(size.Width)*4], data[srcOff:])
	}
}

func (q *mockHALQueue) ReadBuffer(buffer hal.Buffer, offset uint64, dst []byte) error {
	if mb, ok := buffer.(*mockHALBuffer); ok {
		copy(dst, mb.data[offset:])
	}
	return nil
}

func (q *mockHALQueue) Submit(buffers []hal.CommandBuffer, fence hal.Fence, value uint64) error {
	atomic.AddInt32(&q.submits, 1)
	if q.submitFunc != nil {
		return q.submitFunc(buffers, fence, value)
	}
	for _, cb := range buffers {
		if mcb, ok := cb.(*mockHALCommandBuffer); ok {
			for _, op := range mcb.ops {
				op()
			}
		}
	}
	return nil
}

// mockHALBuffer is a test double for hal.Buffer with a CPU backing store.
type mockHALBuffer struct {
	label     string
	size      uint64
	usage     gputypes.BufferUsage
	data      []byte
	destroyed bool
}

func (b *mockHALBuffer) Destroy()              {}
func (b *mockHALBuffer) NativeHandle() uintptr { return 0 }

// mockHALTexture is a test double for hal.Texture backed by tightly
// packed 4-byte texels.
type mockHALTexture struct {
	width  uint32
	height uint32
	format gputypes.TextureFormat
	data   []byte
}

func (t *mockHALTexture) Destroy()              {}
func (t *mockHALTexture) NativeHandle() uintptr { return 0 }

// mockHALTextureView is a test double for hal.TextureView.
type mockHALTextureView struct {
	texture hal.Texture
	label   string
}

func (v *mockHALTextureView) Destroy()              {}
func (v *mockHALTextureView) NativeHandle() uintptr { return 0 }

type mockHALSampler struct{ label string }

func (s *mockHALSampler) Destroy()              {}
func (s *mockHALSampler) NativeHandle() uintptr { return 0 }

type mockHALBindGroupLayout struct{ entries int }

func (l *mockHALBindGroupLayout) Destroy()              {}
func (l *mockHALBindGroupLayout) NativeHandle() uintptr { return 0 }

type mockHALBindGroup struct{ entries int }

func (g *mockHALBindGroup) Destroy()              {}
func (g *mockHALBindGroup) NativeHandle() uintptr { return 0 }

type mockHALPipelineLayout struct{}

func (l *mockHALPipelineLayout) Destroy()              {}
func (l *mockHALPipelineLayout) NativeHandle() uintptr { return 0 }

type mockHALShaderModule struct{ label string }

func (m *mockHALShaderModule) Destroy()              {}
func (m *mockHALShaderModule) NativeHandle() uintptr { return 0 }

type mockHALRenderPipeline struct{ label string }

func (p *mockHALRenderPipeline) Destroy()              {}
func (p *mockHALRenderPipeline) NativeHandle() uintptr { return 0 }

type mockHALComputePipeline struct{ label string }

func (p *mockHALComputePipeline) Destroy()              {}
func (p *mockHALComputePipeline) NativeHandle() uintptr { return 0 }

type mockHALFence struct{}

func (f *mockHALFence) Destroy()              {}
func (f *mockHALFence) NativeHandle() uintptr { return 0 }

// mockHALCommandEncoder records copy commands as closures executed at
// submit time, mimicking deferred GPU execution.
type mockHALCommandEncoder struct {
	label     string
	beginErr  error
	began     bool
	ended     bool
	discarded bool

	ops []func()

	renderPasses  []*mockHALRenderPassEncoder
	computePasses []*mockHALComputePassEncoder
}

func (e *mockHALCommandEncoder) BeginEncoding(_ string) error {
	if e.beginErr != nil {
		return e.beginErr
	}
	e.began = true
	return nil
}

func (e *mockHALCommandEncoder) EndEncoding() (hal.CommandBuffer, error) {
	e.ended = true
	return &mockHALCommandBuffer{ops: e.ops}, nil
}

func (e *mockHALCommandEncoder) DiscardEncoding() {
	e.discarded = true
	e.ops = nil
}

func (e *mockHALCommandEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &mockHALRenderPassEncoder{label: desc.Label, colorCount: len(desc.ColorAttachments)}
	e.renderPasses = append(e.renderPasses, p)
	return p
}

func (e *mockHALCommandEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	p := &mockHALComputePassEncoder{label: desc.Label}
	e.computePasses = append(e.computePasses, p)
	return p
}

func (e *mockHALCommandEncoder) CopyBufferToBuffer(src, dst hal.Buffer, copies []hal.BufferCopy) {
	msrc, okSrc := src.(*mockHALBuffer)
	mdst, okDst := dst.(*mockHALBuffer)
	if !okSrc || !okDst {
		return
	}
	regions := append([]hal.BufferCopy(nil), copies...)
	e.ops = append(e.ops, func() {
		for _, c := range regions {
			copy(mdst.data[c.DstOffset:c.DstOffset+c.Size], msrc.data[c.SrcOffset:])
		}
	})
}

func (e *mockHALCommandEncoder) CopyBufferToTexture(src hal.Buffer, dst hal.Texture, copies []hal.BufferTextureCopy) {
	msrc, okSrc := src.(*mockHALBuffer)
	mdst, okDst := dst.(*mockHALTexture)
	if !okSrc || !okDst {
		return
	}
	regions := append([]hal.BufferTextureCopy(nil), copies...)
	e.ops = append(e.ops, func() {
		for _, c := range regions {
			for y := uint32(0); y < c.Size.Height; y++ {
				srcOff := c.BufferLayout.Offset + uint64(y)*uint64(c.BufferLayout.BytesPerRow)
				dstOff := (uint64(c.TextureBase.Origin.Y+y)*uint64(mdst.width) + uint64(c.TextureBase.Origin.X)) * 4
				copy(mdst.data[dstOff:dstOff+uint64(c.Size.Width)*4], msrc.data[srcOff:])
			}
		}
	})
}

func (e *mockHALCommandEncoder) CopyTextureToBuffer(src hal.Texture, dst hal.Buffer, copies []hal.BufferTextureCopy) {
	msrc, okSrc := src.(*mockHALTexture)
	mdst, okDst := dst.(*mockHALBuffer)
	if !okSrc || !okDst {
		return
	}
	regions := append([]hal.BufferTextureCopy(nil), copies...)
	e.ops = append(e.ops, func() {
		for _, c := range regions {
			for y := uint32(0); y < c.Size.Height; y++ {
				srcOff := (uint64(c.TextureBase.Origin.Y+y)*uint64(msrc.width) + uint64(c.TextureBase.Origin.X)) * 4
				dstOff := c.BufferLayout.Offset + uint64(y)*uint64(c.BufferLayout.BytesPerRow)
				copy(mdst.data[dstOff:dstOff+uint64(c.Size.Width)*4], msrc.data[srcOff:])
			}
		}
	})
}

func (e *mockHALCommandEncoder) CopyTextureToTexture(src, dst hal.Texture, copies []hal.TextureCopy) {
	msrc, okSrc := src.(*mockHALTexture)
	mdst, okDst := dst.(*mockHALTexture)
	if !okSrc || !okDst {
		return
	}
	regions := append([]hal.TextureCopy(nil), copies...)
	e.ops = append(e.ops, func() {
		for _, c := range regions {
			for y := uint32(0); y < c.Size.Height; y++ {
				srcOff := (uint64(c.SrcBase.Origin.Y+y)*uint64(msrc.width) + uint64(c.SrcBase.Origin.X)) * 4
				dstOff := (uint64(c.DstBase.Origin.Y+y)*uint64(mdst.width) + uint64(c.DstBase.Origin.X)) * 4
				copy(mdst.data[dstOff:dstOff+uint64(c.Size.Width)*4], msrc.data[srcOff:])
			}
		}
	})
}

func (e *mockHALCommandEncoder) TransitionTextures(_ []hal.TextureBarrier) {}

// mockHALCommandBuffer carries the recorded ops to Submit.
type mockHALCommandBuffer struct {
	ops []func()
}

func (c *mockHALCommandBuffer) Destroy() {}

// mockHALRenderPassEncoder records render commands for verification.
type mockHALRenderPassEncoder struct {
	label      string
	colorCount int

	pipelinesSet  int32
	bindGroupsSet map[uint32]int
	vertexBuffers int32
	indexBuffers  int32
	draws         int32
	indexedDraws  int32
	ended         bool
}

func (p *mockHALRenderPassEncoder) SetPipeline(_ hal.RenderPipeline) {
	atomic.AddInt32(&p.pipelinesSet, 1)
}

func (p *mockHALRenderPassEncoder) SetBindGroup(index uint32, _ hal.BindGroup, _ []uint32) {
	if p.bindGroupsSet == nil {
		p.bindGroupsSet = make(map[uint32]int)
	}
	p.bindGroupsSet[index]++
}

func (p *mockHALRenderPassEncoder) SetVertexBuffer(_ uint32, _ hal.Buffer, _ uint64) {
	atomic.AddInt32(&p.vertexBuffers, 1)
}

func (p *mockHALRenderPassEncoder) SetIndexBuffer(_ hal.Buffer, _ gputypes.IndexFormat, _ uint64) {
	atomic.AddInt32(&p.indexBuffers, 1)
}

func (p *mockHALRenderPassEncoder) SetViewport(_, _, _, _, _, _ float32) {}
func (p *mockHALRenderPassEncoder) SetScissorRect(_, _, _, _ uint32)     {}

func (p *mockHALRenderPassEncoder) Draw(_, _, _, _ uint32) {
	atomic.AddInt32(&p.draws, 1)
}

func (p *mockHALRenderPassEncoder) DrawIndexed(_, _, _ uint32, _ int32, _ uint32) {
	atomic.AddInt32(&p.indexedDraws, 1)
}

func (p *mockHALRenderPassEncoder) End() { p.ended = true }

// mockHALComputePassEncoder records dispatches for verification.
type mockHALComputePassEncoder struct {
	label string

	pipelinesSet  int32
	bindGroupsSet map[uint32]int
	dispatches    [][3]uint32
	ended         bool
}

func (p *mockHALComputePassEncoder) SetPipeline(_ hal.ComputePipeline) {
	atomic.AddInt32(&p.pipelinesSet, 1)
}

func (p *mockHALComputePassEncoder) SetBindGroup(index uint32, _ hal.BindGroup, _ []uint32) {
	if p.bindGroupsSet == nil {
		p.bindGroupsSet = make(map[uint32]int)
	}
	p.bindGroupsSet[index]++
}

func (p *mockHALComputePassEncoder) Dispatch(x, y, z uint32) {
	p.dispatches = append(p.dispatches, [3]uint32{x, y, z})
}

func (p *mockHALComputePassEncoder) End() { p.ended = true }

// mockSwapchain hands out a fixed-size frame.
type mockSwapchain struct {
	width    uint32
	height   uint32
	format   gputypes.TextureFormat
	noFrame  bool
	acquires int32
}

func (s *mockSwapchain) Acquire() (SwapchainFrame, bool) {
	atomic.AddInt32(&s.acquires, 1)
	if s.noFrame {
		return SwapchainFrame{}, false
	}
	tex := &mockHALTexture{
		width:  s.width,
		height: s.height,
		format: s.format,
		data:   make([]byte, int(s.width)*int(s.height)*4),
	}
	return SwapchainFrame{
		Texture: tex,
		View:    &mockHALTextureView{texture: tex},
		Width:   s.width,
		Height:  s.height,
	}, true
}

func (s *mockSwapchain) Format() gputypes.TextureFormat { return s.format }

// newTestDevice builds a Device over fresh mocks.
func newTestDevice(opts ...DeviceOption) (*Device, *mockHALDevice, *mockHALQueue) {
	mock := &mockHALDevice{}
	queue := &mockHALQueue{}
	dev, err := NewDevice(mock, queue, opts...)
	if err != nil {
		panic(err)
	}
	return dev, mock, queue
}
