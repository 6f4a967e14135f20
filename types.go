// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Typed resource handles. A handle is a non-negative index into the
// owning registry, valid until the resource is destroyed. Handles are
// not pointers; a destroyed handle's value may be reissued for a new
// resource of the same kind.
type (
	// TextureID identifies a texture in the device's texture registry.
	TextureID int32
	// BufferID identifies a buffer in the device's buffer registry.
	BufferID int32
	// SamplerID identifies a sampler in the device's sampler registry.
	SamplerID int32
	// ShaderID identifies a shader in the device's shader registry.
	ShaderID int32
	// GraphicsPipelineID identifies a graphics pipeline.
	GraphicsPipelineID int32
	// ComputePipelineID identifies a compute pipeline.
	ComputePipelineID int32
)

// SwapchainTextureID is the reserved handle for the swapchain texture
// acquired by the current command buffer. It is never stored in the
// texture registry; binding it resolves the per-device frame state, and
// doing so with no frame acquired is a programming-error fault.
const SwapchainTextureID TextureID = -7777

// ShaderStage identifies the pipeline stage a shader runs in.
type ShaderStage int

const (
	// ShaderStageVertex marks a vertex shader.
	ShaderStageVertex ShaderStage = iota
	// ShaderStageFragment marks a fragment shader.
	ShaderStageFragment
	// ShaderStageCompute marks a compute shader.
	ShaderStageCompute
)

// String returns the string representation of ShaderStage.
func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "Vertex"
	case ShaderStageFragment:
		return "Fragment"
	case ShaderStageCompute:
		return "Compute"
	default:
		return "Unknown"
	}
}

// TextureCreateInfo describes a texture to create.
type TextureCreateInfo struct {
	// Label is an optional debug name.
	Label string

	// Width and Height are the texture dimensions in texels.
	Width  uint32
	Height uint32

	// Format is the texel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage gputypes.TextureUsage

	// MipLevelCount is the number of mip levels. Zero defaults to 1.
	MipLevelCount uint32

	// SampleCount is the multisample count. Zero defaults to 1.
	SampleCount uint32
}

// BufferCreateInfo describes a buffer to create.
type BufferCreateInfo struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage gputypes.BufferUsage
}

// SamplerCreateInfo describes a sampler to create.
type SamplerCreateInfo struct {
	// Label is an optional debug name.
	Label string

	// Address modes per axis.
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	AddressModeW gputypes.AddressMode

	// Filters for magnification, minification, and mip selection.
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	MipmapFilter gputypes.FilterMode
}

// ShaderCreateInfo describes a shader to create. Exactly one of SPIRV or
// WGSL must be set; WGSL source is compiled with naga. The resource
// counts declare how many bind slots of each category the shader uses and
// size the bind group layouts built for pipelines using the shader.
type ShaderCreateInfo struct {
	// Label is an optional debug name.
	Label string

	// SPIRV is precompiled bytecode, little-endian 32-bit words.
	SPIRV []uint32

	// WGSL is shader source compiled at creation time.
	WGSL string

	// EntryPoint names the shader's entry function. Must not contain a
	// NUL byte.
	EntryPoint string

	// Stage identifies the pipeline stage.
	Stage ShaderStage

	// Resource slot counts used by the shader.
	SamplerCount        uint32
	UniformBufferCount  uint32
	StorageBufferCount  uint32
	StorageTextureCount uint32
}

// GraphicsPipelineCreateInfo describes a graphics pipeline to create.
type GraphicsPipelineCreateInfo struct {
	// Label is an optional debug name.
	Label string

	// VertexShader and FragmentShader are shader handles created with the
	// matching stages.
	VertexShader   ShaderID
	FragmentShader ShaderID

	// VertexLayouts describe the vertex buffer slots.
	VertexLayouts []gputypes.VertexBufferLayout

	// ColorTargets describe the color attachment formats and blending.
	ColorTargets []gputypes.ColorTargetState

	// Primitive is the primitive assembly state.
	Primitive gputypes.PrimitiveState

	// DepthStencil is the optional depth/stencil state.
	DepthStencil *hal.DepthStencilState

	// Multisample is the multisample state. A zero Count defaults to 1.
	Multisample gputypes.MultisampleState
}

// ComputePipelineCreateInfo describes a compute pipeline to create.
type ComputePipelineCreateInfo struct {
	// Label is an optional debug name.
	Label string

	// Shader is a shader handle created with ShaderStageCompute.
	Shader ShaderID
}

// TextureRegion selects a sub-rectangle of a texture mip level for
// transfer operations. Offsets and extents are in texels.
type TextureRegion struct {
	Texture  TextureID
	MipLevel uint32
	X, Y     uint32
	Width    uint32
	Height   uint32
}

// FullTextureRegion returns a region covering the whole level-0 extent
// of the texture.
func FullTextureRegion(texture TextureID, width, height uint32) TextureRegion {
	return TextureRegion{Texture: texture, Width: width, Height: height}
}

// BlitInfo describes a texture-to-texture blit. The source and
// destination regions must have equal extents; the HAL exposes no
// filtered blit, so scaling and flipping requests are rejected.
type BlitInfo struct {
	Source      TextureRegion
	Destination TextureRegion

	// FlipVertically requests a vertical flip. Unsupported; must be false.
	FlipVertically bool

	// Filter is the sampling filter for scaled blits. Retained for API
	// compatibility; scaling is unsupported.
	Filter gputypes.FilterMode
}

// ColorTargetInfo describes one color attachment of a render pass.
type ColorTargetInfo struct {
	// Texture is the attachment target, possibly SwapchainTextureID.
	Texture TextureID

	// LoadOp and StoreOp control attachment load/store behavior.
	LoadOp  gputypes.LoadOp
	StoreOp gputypes.StoreOp

	// ClearColor is used when LoadOp is LoadOpClear.
	ClearColor gputypes.Color
}

// DepthStencilTargetInfo describes the depth/stencil attachment of a
// render pass.
type DepthStencilTargetInfo struct {
	Texture TextureID

	DepthLoadOp    gputypes.LoadOp
	DepthStoreOp   gputypes.StoreOp
	DepthClear     float32
	StencilLoadOp  gputypes.LoadOp
	StencilStoreOp gputypes.StoreOp
	StencilClear   uint32
}

// TextureSamplerBinding pairs a texture and a sampler for fragment
// shader sampling.
type TextureSamplerBinding struct {
	Texture TextureID
	Sampler SamplerID
}

// StorageBufferReadWriteBinding binds a buffer for read-write storage
// access in a compute pass.
type StorageBufferReadWriteBinding struct {
	Buffer BufferID
}

// StorageTextureReadWriteBinding binds a texture for read-write storage
// access in a compute pass.
type StorageTextureReadWriteBinding struct {
	Texture  TextureID
	MipLevel uint32
}
