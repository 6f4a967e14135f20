// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// ComputePass records dispatches. Read-write storage bindings are fixed
// at pass begin; binding a pipeline validates them against the shader's
// declared counts and binds them as group 0. Uniform data pushed per
// slot is materialized at dispatch time as group 1; read-only
// texture/sampler pairs bound via BindSamplers occupy group 2.
type ComputePass struct {
	cb      *CommandBuffer
	encoder hal.ComputePassEncoder
	ended   bool

	storageTextures []StorageTextureReadWriteBinding
	storageBuffers  []StorageBufferReadWriteBinding

	pipeline      computePipelineEntry
	hasPipeline   bool
	samplersBound bool

	uniformBlobs  [][]byte
	uniformsDirty bool
}

// BeginComputePass opens a compute pass with the given read-write
// storage bindings. Panics if another pass is already open on this
// command buffer.
func (cb *CommandBuffer) BeginComputePass(label string, storageTextures []StorageTextureReadWriteBinding, storageBuffers []StorageBufferReadWriteBinding) (*ComputePass, error) {
	if err := cb.checkRecording(); err != nil {
		return nil, err
	}
	p := &ComputePass{
		cb:              cb,
		storageTextures: storageTextures,
		storageBuffers:  storageBuffers,
	}
	cb.beginPass(p)
	p.encoder = cb.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	return p, nil
}

func (p *ComputePass) checkOpen() error {
	if p.ended {
		return ErrPassEnded
	}
	return p.cb.checkRecording()
}

// BindComputePipeline makes the pipeline current and binds the pass's
// storage bindings as group 0. The binding counts must match the
// shader's declared storage texture and buffer counts.
func (p *ComputePass) BindComputePipeline(id ComputePipelineID) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	entry := p.cb.dev.computes.get(int32(id))
	if uint32(len(p.storageTextures)) != entry.storageTextures {
		return fmt.Errorf("%w: %d storage texture bindings for %d declared slots",
			ErrInvalidArgument, len(p.storageTextures), entry.storageTextures)
	}
	if uint32(len(p.storageBuffers)) != entry.storageBuffers {
		return fmt.Errorf("%w: %d storage buffer bindings for %d declared slots",
			ErrInvalidArgument, len(p.storageBuffers), entry.storageBuffers)
	}

	p.encoder.SetPipeline(entry.pipeline)
	p.pipeline = entry
	p.hasPipeline = true
	p.uniformBlobs = make([][]byte, entry.uniforms)
	p.uniformsDirty = true

	bg, err := p.cb.createStorageBindGroup(entry.storageLayout, p.storageTextures, p.storageBuffers, "gpudev-storage")
	if err != nil {
		return err
	}
	p.encoder.SetBindGroup(0, bg, nil)

	p.samplersBound = false
	if entry.samplers == 0 {
		empty, err := p.cb.createSamplerBindGroup(entry.samplerLayout, nil, "gpudev-compute-samplers")
		if err != nil {
			return err
		}
		p.encoder.SetBindGroup(2, empty, nil)
		p.samplersBound = true
	}
	return nil
}

// BindSamplers binds texture/sampler pairs for read-only sampling in the
// compute shader as group 2. The binding count must match the shader's
// declared sampler count.
func (p *ComputePass) BindSamplers(bindings []TextureSamplerBinding) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !p.hasPipeline {
		return ErrNoPipeline
	}
	if uint32(len(bindings)) != p.pipeline.samplers {
		return fmt.Errorf("%w: %d sampler bindings for %d declared slots",
			ErrInvalidArgument, len(bindings), p.pipeline.samplers)
	}
	bg, err := p.cb.createSamplerBindGroup(p.pipeline.samplerLayout, bindings, "gpudev-compute-samplers")
	if err != nil {
		return err
	}
	p.encoder.SetBindGroup(2, bg, nil)
	p.samplersBound = true
	return nil
}

// PushUniformData stages uniform data for a compute shader slot. The
// data is copied; it takes effect on the next dispatch.
func (p *ComputePass) PushUniformData(slot uint32, data []byte) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !p.hasPipeline {
		return ErrNoPipeline
	}
	if slot >= p.pipeline.uniforms {
		return fmt.Errorf("%w: uniform slot %d of %d", ErrInvalidArgument, slot, p.pipeline.uniforms)
	}
	p.uniformBlobs[slot] = append([]byte(nil), data...)
	p.uniformsDirty = true
	return nil
}

func (p *ComputePass) flushUniforms() error {
	if !p.uniformsDirty {
		return nil
	}
	bg, err := p.cb.createUniformBindGroup(p.pipeline.uniformLayout, p.pipeline.uniforms, p.uniformBlobs, "gpudev-compute-uniforms")
	if err != nil {
		return err
	}
	p.encoder.SetBindGroup(1, bg, nil)
	p.uniformsDirty = false
	return nil
}

// Dispatch issues a dispatch of the given workgroup counts.
func (p *ComputePass) Dispatch(x, y, z uint32) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !p.hasPipeline {
		return ErrNoPipeline
	}
	if !p.samplersBound {
		return fmt.Errorf("%w: samplers not bound", ErrInvalidArgument)
	}
	if err := p.flushUniforms(); err != nil {
		return err
	}
	p.encoder.Dispatch(x, y, z)
	return nil
}

// DispatchIndirect reads three uint32 workgroup counts from the buffer
// at offset and dispatches them. The HAL exposes no native indirect
// dispatch, so the arguments are read back synchronously; counts written
// by work recorded on this command buffer are not visible yet, only
// previously submitted work.
func (p *ComputePass) DispatchIndirect(buffer BufferID, offset uint64) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if !p.hasPipeline {
		return ErrNoPipeline
	}
	const argsSize = 12
	entry := p.cb.dev.buffers.get(int32(buffer))
	if err := checkBufferRange(entry.size, offset, argsSize); err != nil {
		return err
	}
	args, err := p.cb.dev.DownloadFromBuffer(buffer, offset, argsSize)
	if err != nil {
		return fmt.Errorf("read indirect arguments: %w", err)
	}
	x := binary.LittleEndian.Uint32(args[0:])
	y := binary.LittleEndian.Uint32(args[4:])
	z := binary.LittleEndian.Uint32(args[8:])
	return p.Dispatch(x, y, z)
}

// End closes the pass. End is idempotent.
func (p *ComputePass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.encoder.End()
	p.cb.endPass(p)
}

// abandon marks the pass ended without touching the encoder; the
// command buffer discards the whole recording.
func (p *ComputePass) abandon() { p.ended = true }
