// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// defaultDownloadTimeout bounds the fence wait in download operations.
const defaultDownloadTimeout = 5 * time.Second

// textureEntry is the registry record for a texture.
type textureEntry struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
	format gputypes.TextureFormat
}

// bufferEntry is the registry record for a buffer. size is the declared
// size used for transfer range checks.
type bufferEntry struct {
	buf  hal.Buffer
	size uint64
}

// shaderEntry is the registry record for a shader module, including the
// resource slot counts used to build pipeline bind group layouts.
type shaderEntry struct {
	module     hal.ShaderModule
	entryPoint string
	stage      ShaderStage

	samplers        uint32
	uniformBuffers  uint32
	storageBuffers  uint32
	storageTextures uint32
}

// graphicsPipelineEntry records a render pipeline together with the bind
// group layouts its bind/push operations target: group 0 fragment
// samplers, group 1 vertex uniforms, group 2 fragment uniforms.
type graphicsPipelineEntry struct {
	pipeline hal.RenderPipeline
	layout   hal.PipelineLayout

	samplerLayout         hal.BindGroupLayout
	vertexUniformLayout   hal.BindGroupLayout
	fragmentUniformLayout hal.BindGroupLayout

	fragSamplers   uint32
	vertexUniforms uint32
	fragUniforms   uint32
}

// computePipelineEntry records a compute pipeline and its layouts:
// group 0 read-write storage (textures first, then buffers), group 1
// uniforms, group 2 read-only texture/sampler pairs.
type computePipelineEntry struct {
	pipeline hal.ComputePipeline
	layout   hal.PipelineLayout

	storageLayout hal.BindGroupLayout
	uniformLayout hal.BindGroupLayout
	samplerLayout hal.BindGroupLayout

	storageTextures uint32
	storageBuffers  uint32
	uniforms        uint32
	samplers        uint32
}

// uploadStaging tracks the single reusable upload staging buffer. The
// capacity only grows; superseded buffers move to the pending-release
// list until no command buffers remain in flight.
type uploadStaging struct {
	buf      hal.Buffer
	capacity uint64
	used     uint64
}

// frameState holds the swapchain texture acquired by the currently
// recording command buffer. Cleared whenever that buffer finishes.
type frameState struct {
	frame SwapchainFrame
	valid bool
}

// Device owns the native GPU context and one registry per resource kind.
// Resources are created and destroyed through the Device and referenced
// by typed handles; command buffers acquired from the Device translate
// handles back to native objects while recording.
//
// A Device assumes a single recording thread (or external
// synchronization). The registries are protected by a fault-on-misuse
// borrow guard, not a lock.
type Device struct {
	hal   hal.Device
	queue hal.Queue

	sc              Swapchain
	downloadTimeout time.Duration

	textures  registryCell[textureEntry]
	buffers   registryCell[bufferEntry]
	samplers  registryCell[hal.Sampler]
	shaders   registryCell[shaderEntry]
	graphics  registryCell[graphicsPipelineEntry]
	computes  registryCell[computePipelineEntry]

	upload  uploadStaging
	pending []hal.Buffer

	inFlight atomic.Int32

	frame frameState
}

// DeviceOption configures a Device at construction.
type DeviceOption func(*Device)

// WithSwapchain attaches a swapchain provider. Without one,
// AcquireSwapchainTexture returns ErrMissingWindow.
func WithSwapchain(sc Swapchain) DeviceOption {
	return func(d *Device) { d.sc = sc }
}

// WithDownloadTimeout overrides the fence wait timeout used by download
// operations.
func WithDownloadTimeout(timeout time.Duration) DeviceOption {
	return func(d *Device) { d.downloadTimeout = timeout }
}

// NewDevice creates a Device over a HAL device and queue. Ownership of
// the HAL objects stays with the caller; Device.Destroy releases the
// resources created through the Device, not the HAL device itself.
func NewDevice(dev hal.Device, queue hal.Queue, opts ...DeviceOption) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, ErrNilDevice
	}
	d := &Device{
		hal:             dev,
		queue:           queue,
		downloadTimeout: defaultDownloadTimeout,
		textures:        newRegistryCell[textureEntry](),
		buffers:         newRegistryCell[bufferEntry](),
		samplers:        newRegistryCell[hal.Sampler](),
		shaders:         newRegistryCell[shaderEntry](),
		graphics:        newRegistryCell[graphicsPipelineEntry](),
		computes:        newRegistryCell[computePipelineEntry](),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// DeviceHandle is the gpucontext device provider interface, aliased for
// integration with hosts (e.g. gogpu.App) that share their GPU device.
type DeviceHandle = gpucontext.DeviceProvider

// NewDeviceFromProvider creates a Device from a gpucontext device
// provider. The provider must expose direct HAL access through
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func NewDeviceFromProvider(handle DeviceHandle, opts ...DeviceOption) (*Device, error) {
	hp, ok := handle.(interface {
		HalDevice() any
		HalQueue() any
	})
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL access", ErrInvalidArgument)
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrInvalidArgument)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrInvalidArgument)
	}
	return NewDevice(dev, queue, opts...)
}

// SwapchainFormat returns the pixel format of the attached swapchain.
func (d *Device) SwapchainFormat() (gputypes.TextureFormat, error) {
	if d.sc == nil {
		return gputypes.TextureFormatUndefined, ErrMissingWindow
	}
	return d.sc.Format(), nil
}

// InFlight returns the number of command buffers acquired but not yet
// submitted or cancelled.
func (d *Device) InFlight() int32 { return d.inFlight.Load() }

// === Textures ===

// CreateTexture creates a texture and its default view and returns the
// texture handle.
func (d *Device) CreateTexture(info TextureCreateInfo) (TextureID, error) {
	if info.Width == 0 || info.Height == 0 {
		return 0, fmt.Errorf("%w: texture dimensions must be positive", ErrInvalidArgument)
	}
	mips := info.MipLevelCount
	if mips == 0 {
		mips = 1
	}
	samples := info.SampleCount
	if samples == 0 {
		samples = 1
	}

	tex, err := d.hal.CreateTexture(&hal.TextureDescriptor{
		Label: info.Label,
		Size: hal.Extent3D{
			Width:              info.Width,
			Height:             info.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: mips,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        info.Format,
		Usage:         info.Usage,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: create texture: %v", ErrNativeCallFailed, err)
	}

	view, err := d.hal.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: info.Label,
	})
	if err != nil {
		d.hal.DestroyTexture(tex)
		return 0, fmt.Errorf("%w: create texture view: %v", ErrNativeCallFailed, err)
	}

	handle := d.textures.insert(textureEntry{
		tex:    tex,
		view:   view,
		width:  info.Width,
		height: info.Height,
		format: info.Format,
	})
	return TextureID(handle), nil
}

// DestroyTexture removes the texture from the registry and releases the
// native objects. Panics if the handle is stale or already destroyed.
// The caller must ensure no in-flight command buffer references it.
func (d *Device) DestroyTexture(id TextureID) {
	entry := d.textures.remove(int32(id))
	d.hal.DestroyTextureView(entry.view)
	d.hal.DestroyTexture(entry.tex)
}

// TextureSize returns the width and height of the texture.
func (d *Device) TextureSize(id TextureID) (uint32, uint32) {
	entry := d.resolveTexture(id)
	return entry.width, entry.height
}

// resolveTexture translates a handle to its registry entry. The
// swapchain sentinel resolves the per-device frame state and faults if
// no frame was acquired.
func (d *Device) resolveTexture(id TextureID) textureEntry {
	if id == SwapchainTextureID {
		if !d.frame.valid {
			panic("gpudev: swapchain texture not acquired")
		}
		f := d.frame.frame
		var format gputypes.TextureFormat
		if d.sc != nil {
			format = d.sc.Format()
		}
		return textureEntry{
			tex:    f.Texture,
			view:   f.View,
			width:  f.Width,
			height: f.Height,
			format: format,
		}
	}
	return d.textures.get(int32(id))
}

// === Buffers ===

// CreateBuffer creates a buffer and returns its handle. The declared
// size governs transfer range checks; the native allocation is rounded
// up to 4-byte copy alignment.
func (d *Device) CreateBuffer(info BufferCreateInfo) (BufferID, error) {
	if info.Size == 0 {
		return 0, fmt.Errorf("%w: buffer size must be positive", ErrInvalidArgument)
	}
	if info.Usage == 0 {
		return 0, fmt.Errorf("%w: buffer usage is empty", ErrInvalidArgument)
	}

	const copyBufferAlignment uint64 = 4
	alignedSize := (info.Size + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)

	buf, err := d.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: info.Label,
		Size:  alignedSize,
		Usage: info.Usage,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: create buffer: %v", ErrNativeCallFailed, err)
	}

	handle := d.buffers.insert(bufferEntry{buf: buf, size: info.Size})
	return BufferID(handle), nil
}

// DestroyBuffer removes the buffer from the registry and releases the
// native object. Panics if the handle is stale or already destroyed.
func (d *Device) DestroyBuffer(id BufferID) {
	entry := d.buffers.remove(int32(id))
	d.hal.DestroyBuffer(entry.buf)
}

// BufferSize returns the declared size of the buffer.
func (d *Device) BufferSize(id BufferID) uint64 {
	return d.buffers.get(int32(id)).size
}

// === Samplers ===

// CreateSampler creates a sampler and returns its handle.
func (d *Device) CreateSampler(info SamplerCreateInfo) (SamplerID, error) {
	sampler, err := d.hal.CreateSampler(&hal.SamplerDescriptor{
		Label:        info.Label,
		AddressModeU: info.AddressModeU,
		AddressModeV: info.AddressModeV,
		AddressModeW: info.AddressModeW,
		MagFilter:    info.MagFilter,
		MinFilter:    info.MinFilter,
		MipmapFilter: info.MipmapFilter,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: create sampler: %v", ErrNativeCallFailed, err)
	}
	return SamplerID(d.samplers.insert(sampler)), nil
}

// DestroySampler removes the sampler from the registry and releases the
// native object.
func (d *Device) DestroySampler(id SamplerID) {
	sampler := d.samplers.remove(int32(id))
	d.hal.DestroySampler(sampler)
}

// === Shaders ===

// DestroyShader removes the shader from the registry and releases the
// native module. Pipelines created from the shader are unaffected.
func (d *Device) DestroyShader(id ShaderID) {
	entry := d.shaders.remove(int32(id))
	d.hal.DestroyShaderModule(entry.module)
}

// === Graphics pipelines ===

// CreateGraphicsPipeline creates a render pipeline from vertex and
// fragment shader handles. Bind group layouts are derived from the
// shaders' declared resource counts: group 0 fragment samplers, group 1
// vertex uniforms, group 2 fragment uniforms.
func (d *Device) CreateGraphicsPipeline(info GraphicsPipelineCreateInfo) (GraphicsPipelineID, error) {
	vert := d.shaders.get(int32(info.VertexShader))
	frag := d.shaders.get(int32(info.FragmentShader))
	if vert.stage != ShaderStageVertex {
		return 0, fmt.Errorf("%w: vertex shader has stage %s", ErrInvalidArgument, vert.stage)
	}
	if frag.stage != ShaderStageFragment {
		return 0, fmt.Errorf("%w: fragment shader has stage %s", ErrInvalidArgument, frag.stage)
	}

	samplerLayout, err := d.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   info.Label + "_samplers",
		Entries: samplerGroupLayoutEntries(frag.samplers, gputypes.ShaderStageFragment),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: create sampler layout: %v", ErrNativeCallFailed, err)
	}
	vertexUniformLayout, err := d.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   info.Label + "_vert_uniforms",
		Entries: uniformGroupLayoutEntries(vert.uniformBuffers, gputypes.ShaderStageVertex),
	})
	if err != nil {
		d.hal.DestroyBindGroupLayout(samplerLayout)
		return 0, fmt.Errorf("%w: create vertex uniform layout: %v", ErrNativeCallFailed, err)
	}
	fragmentUniformLayout, err := d.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   info.Label + "_frag_uniforms",
		Entries: uniformGroupLayoutEntries(frag.uniformBuffers, gputypes.ShaderStageFragment),
	})
	if err != nil {
		d.hal.DestroyBindGroupLayout(samplerLayout)
		d.hal.DestroyBindGroupLayout(vertexUniformLayout)
		return 0, fmt.Errorf("%w: create fragment uniform layout: %v", ErrNativeCallFailed, err)
	}

	layout, err := d.hal.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            info.Label,
		BindGroupLayouts: []hal.BindGroupLayout{samplerLayout, vertexUniformLayout, fragmentUniformLayout},
	})
	if err != nil {
		d.hal.DestroyBindGroupLayout(samplerLayout)
		d.hal.DestroyBindGroupLayout(vertexUniformLayout)
		d.hal.DestroyBindGroupLayout(fragmentUniformLayout)
		return 0, fmt.Errorf("%w: create pipeline layout: %v", ErrNativeCallFailed, err)
	}

	multisample := info.Multisample
	if multisample.Count == 0 {
		multisample = gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}
	}

	pipeline, err := d.hal.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  info.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vert.module,
			EntryPoint: vert.entryPoint,
			Buffers:    info.VertexLayouts,
		},
		Fragment: &hal.FragmentState{
			Module:     frag.module,
			EntryPoint: frag.entryPoint,
			Targets:    info.ColorTargets,
		},
		Primitive:    info.Primitive,
		DepthStencil: info.DepthStencil,
		Multisample:  multisample,
	})
	if err != nil {
		d.hal.DestroyPipelineLayout(layout)
		d.hal.DestroyBindGroupLayout(samplerLayout)
		d.hal.DestroyBindGroupLayout(vertexUniformLayout)
		d.hal.DestroyBindGroupLayout(fragmentUniformLayout)
		return 0, fmt.Errorf("%w: create render pipeline: %v", ErrNativeCallFailed, err)
	}

	handle := d.graphics.insert(graphicsPipelineEntry{
		pipeline:              pipeline,
		layout:                layout,
		samplerLayout:         samplerLayout,
		vertexUniformLayout:   vertexUniformLayout,
		fragmentUniformLayout: fragmentUniformLayout,
		fragSamplers:          frag.samplers,
		vertexUniforms:        vert.uniformBuffers,
		fragUniforms:          frag.uniformBuffers,
	})
	return GraphicsPipelineID(handle), nil
}

// DestroyGraphicsPipeline removes the pipeline from the registry and
// releases the native pipeline and its layouts.
func (d *Device) DestroyGraphicsPipeline(id GraphicsPipelineID) {
	entry := d.graphics.remove(int32(id))
	d.hal.DestroyRenderPipeline(entry.pipeline)
	d.hal.DestroyPipelineLayout(entry.layout)
	d.hal.DestroyBindGroupLayout(entry.samplerLayout)
	d.hal.DestroyBindGroupLayout(entry.vertexUniformLayout)
	d.hal.DestroyBindGroupLayout(entry.fragmentUniformLayout)
}

// === Compute pipelines ===

// CreateComputePipeline creates a compute pipeline from a compute shader
// handle. Group 0 binds read-write storage (textures first, then
// buffers); group 1 binds uniforms; group 2 binds read-only
// texture/sampler pairs.
func (d *Device) CreateComputePipeline(info ComputePipelineCreateInfo) (ComputePipelineID, error) {
	shader := d.shaders.get(int32(info.Shader))
	if shader.stage != ShaderStageCompute {
		return 0, fmt.Errorf("%w: compute shader has stage %s", ErrInvalidArgument, shader.stage)
	}

	storageLayout, err := d.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   info.Label + "_storage",
		Entries: storageGroupLayoutEntries(shader.storageTextures, shader.storageBuffers),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: create storage layout: %v", ErrNativeCallFailed, err)
	}
	uniformLayout, err := d.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   info.Label + "_uniforms",
		Entries: uniformGroupLayoutEntries(shader.uniformBuffers, gputypes.ShaderStageCompute),
	})
	if err != nil {
		d.hal.DestroyBindGroupLayout(storageLayout)
		return 0, fmt.Errorf("%w: create uniform layout: %v", ErrNativeCallFailed, err)
	}
	samplerLayout, err := d.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   info.Label + "_samplers",
		Entries: samplerGroupLayoutEntries(shader.samplers, gputypes.ShaderStageCompute),
	})
	if err != nil {
		d.hal.DestroyBindGroupLayout(storageLayout)
		d.hal.DestroyBindGroupLayout(uniformLayout)
		return 0, fmt.Errorf("%w: create sampler layout: %v", ErrNativeCallFailed, err)
	}

	layout, err := d.hal.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            info.Label,
		BindGroupLayouts: []hal.BindGroupLayout{storageLayout, uniformLayout, samplerLayout},
	})
	if err != nil {
		d.hal.DestroyBindGroupLayout(storageLayout)
		d.hal.DestroyBindGroupLayout(uniformLayout)
		d.hal.DestroyBindGroupLayout(samplerLayout)
		return 0, fmt.Errorf("%w: create pipeline layout: %v", ErrNativeCallFailed, err)
	}

	pipeline, err := d.hal.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  info.Label,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     shader.module,
			EntryPoint: shader.entryPoint,
		},
	})
	if err != nil {
		d.hal.DestroyPipelineLayout(layout)
		d.hal.DestroyBindGroupLayout(storageLayout)
		d.hal.DestroyBindGroupLayout(uniformLayout)
		d.hal.DestroyBindGroupLayout(samplerLayout)
		return 0, fmt.Errorf("%w: create compute pipeline: %v", ErrNativeCallFailed, err)
	}

	handle := d.computes.insert(computePipelineEntry{
		pipeline:        pipeline,
		layout:          layout,
		storageLayout:   storageLayout,
		uniformLayout:   uniformLayout,
		samplerLayout:   samplerLayout,
		storageTextures: shader.storageTextures,
		storageBuffers:  shader.storageBuffers,
		uniforms:        shader.uniformBuffers,
		samplers:        shader.samplers,
	})
	return ComputePipelineID(handle), nil
}

// DestroyComputePipeline removes the pipeline from the registry and
// releases the native pipeline and its layouts.
func (d *Device) DestroyComputePipeline(id ComputePipelineID) {
	entry := d.computes.remove(int32(id))
	d.hal.DestroyComputePipeline(entry.pipeline)
	d.hal.DestroyPipelineLayout(entry.layout)
	d.hal.DestroyBindGroupLayout(entry.storageLayout)
	d.hal.DestroyBindGroupLayout(entry.uniformLayout)
	d.hal.DestroyBindGroupLayout(entry.samplerLayout)
}

// === Teardown ===

// Destroy releases every resource still held in the registries, the
// upload staging buffer, and any pending staging buffers. The HAL device
// itself belongs to the caller and is not destroyed.
//
// Destroy must not be called while command buffers are in flight.
func (d *Device) Destroy() {
	d.graphics.forEach(func(_ int32, e graphicsPipelineEntry) {
		d.hal.DestroyRenderPipeline(e.pipeline)
		d.hal.DestroyPipelineLayout(e.layout)
		d.hal.DestroyBindGroupLayout(e.samplerLayout)
		d.hal.DestroyBindGroupLayout(e.vertexUniformLayout)
		d.hal.DestroyBindGroupLayout(e.fragmentUniformLayout)
	})
	d.computes.forEach(func(_ int32, e computePipelineEntry) {
		d.hal.DestroyComputePipeline(e.pipeline)
		d.hal.DestroyPipelineLayout(e.layout)
		d.hal.DestroyBindGroupLayout(e.storageLayout)
		d.hal.DestroyBindGroupLayout(e.uniformLayout)
		d.hal.DestroyBindGroupLayout(e.samplerLayout)
	})
	d.shaders.forEach(func(_ int32, e shaderEntry) {
		d.hal.DestroyShaderModule(e.module)
	})
	d.samplers.forEach(func(_ int32, s hal.Sampler) {
		d.hal.DestroySampler(s)
	})
	d.textures.forEach(func(_ int32, e textureEntry) {
		d.hal.DestroyTextureView(e.view)
		d.hal.DestroyTexture(e.tex)
	})
	d.buffers.forEach(func(_ int32, e bufferEntry) {
		d.hal.DestroyBuffer(e.buf)
	})

	d.textures = newRegistryCell[textureEntry]()
	d.buffers = newRegistryCell[bufferEntry]()
	d.samplers = newRegistryCell[hal.Sampler]()
	d.shaders = newRegistryCell[shaderEntry]()
	d.graphics = newRegistryCell[graphicsPipelineEntry]()
	d.computes = newRegistryCell[computePipelineEntry]()

	if d.upload.buf != nil {
		d.hal.DestroyBuffer(d.upload.buf)
		d.upload = uploadStaging{}
	}
	for _, buf := range d.pending {
		d.hal.DestroyBuffer(buf)
	}
	d.pending = nil
}

// === Bind group layout construction ===

// samplerGroupLayoutEntries lays out count texture/sampler pairs with
// the given stage visibility: binding 2i texture, 2i+1 sampler.
func samplerGroupLayoutEntries(count uint32, visibility gputypes.ShaderStage) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, count*2)
	for i := uint32(0); i < count; i++ {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    i * 2,
				Visibility: visibility,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    i*2 + 1,
				Visibility: visibility,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	return entries
}

// uniformGroupLayoutEntries lays out count uniform buffer slots with the
// given stage visibility.
func uniformGroupLayoutEntries(count uint32, visibility gputypes.ShaderStage) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    i,
			Visibility: visibility,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	return entries
}

// storageGroupLayoutEntries lays out read-write storage for compute:
// textures at bindings 0..textures-1, buffers after.
func storageGroupLayoutEntries(textures, buffers uint32) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, textures+buffers)
	for i := uint32(0); i < textures; i++ {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    i,
			Visibility: gputypes.ShaderStageCompute,
			StorageTexture: &gputypes.StorageTextureBindingLayout{
				Access:        gputypes.StorageTextureAccessReadWrite,
				Format:        gputypes.TextureFormatRGBA8Unorm,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	for i := uint32(0); i < buffers; i++ {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    textures + i,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		})
	}
	return entries
}

// clearFrame empties the swapchain frame state. Called unconditionally
// when a command buffer finishes.
func (d *Device) clearFrame() {
	d.frame = frameState{}
}

// commandBufferDone decrements the in-flight counter and drains the
// pending-release list when no work remains outstanding.
func (d *Device) commandBufferDone() {
	n := d.inFlight.Add(-1)
	if n < 0 {
		panic("gpudev: in-flight counter underflow")
	}
	if n == 0 {
		d.upload.used = 0
		d.drainPending()
	}
}

// drainPending releases staging buffers superseded by growth. Only safe
// at in-flight zero: no submitted work can still read them.
func (d *Device) drainPending() {
	if len(d.pending) == 0 {
		return
	}
	slogger().Debug("gpudev: draining pending staging buffers", "count", len(d.pending))
	for _, buf := range d.pending {
		d.hal.DestroyBuffer(buf)
	}
	d.pending = d.pending[:0]
}
