// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// CopyPass scopes transfer commands on a command buffer. The HAL records
// copies directly on the encoder, so the pass carries no native object;
// it exists to enforce the one-open-pass protocol shared with render and
// compute passes.
type CopyPass struct {
	cb    *CommandBuffer
	ended bool
}

// BeginCopyPass opens a copy pass. Panics if another pass is already
// open on this command buffer.
func (cb *CommandBuffer) BeginCopyPass() (*CopyPass, error) {
	if err := cb.checkRecording(); err != nil {
		return nil, err
	}
	p := &CopyPass{cb: cb}
	cb.beginPass(p)
	return p, nil
}

func (p *CopyPass) checkOpen() error {
	if p.ended {
		return ErrPassEnded
	}
	return p.cb.checkRecording()
}

// CopyBufferToBuffer copies size bytes between buffer regions. Both
// ranges are checked against the buffers' declared sizes.
func (p *CopyPass) CopyBufferToBuffer(src BufferID, srcOffset uint64, dst BufferID, dstOffset uint64, size uint64) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	srcEntry := p.cb.dev.buffers.get(int32(src))
	dstEntry := p.cb.dev.buffers.get(int32(dst))
	if err := checkBufferRange(srcEntry.size, srcOffset, size); err != nil {
		return fmt.Errorf("source %w", err)
	}
	if err := checkBufferRange(dstEntry.size, dstOffset, size); err != nil {
		return fmt.Errorf("destination %w", err)
	}

	p.cb.encoder.CopyBufferToBuffer(srcEntry.buf, dstEntry.buf, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
	return nil
}

// CopyTextureToTexture copies between texture regions of equal extent.
func (p *CopyPass) CopyTextureToTexture(src, dst TextureRegion) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if src.Width != dst.Width || src.Height != dst.Height {
		return fmt.Errorf("%w: region extents differ", ErrInvalidArgument)
	}
	if src.Width == 0 || src.Height == 0 {
		return nil
	}
	srcEntry := p.cb.dev.resolveTexture(src.Texture)
	dstEntry := p.cb.dev.resolveTexture(dst.Texture)

	p.cb.encoder.CopyTextureToTexture(srcEntry.tex, dstEntry.tex, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{
			Texture:  srcEntry.tex,
			MipLevel: src.MipLevel,
			Origin:   hal.Origin3D{X: src.X, Y: src.Y},
		},
		DstBase: hal.ImageCopyTexture{
			Texture:  dstEntry.tex,
			MipLevel: dst.MipLevel,
			Origin:   hal.Origin3D{X: dst.X, Y: dst.Y},
		},
		Size: hal.Extent3D{Width: src.Width, Height: src.Height, DepthOrArrayLayers: 1},
	}})
	return nil
}

// End closes the pass. End is idempotent.
func (p *CopyPass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.cb.endPass(p)
}

// abandon marks the pass ended without touching the encoder; the
// command buffer discards the whole recording.
func (p *CopyPass) abandon() { p.ended = true }

// checkBufferRange validates [offset, offset+size) against a buffer's
// declared size.
func checkBufferRange(bufSize, offset, size uint64) error {
	if offset > bufSize || size > bufSize-offset {
		return fmt.Errorf("%w: range [%d, %d) exceeds buffer size %d", ErrOutOfRange, offset, offset+size, bufSize)
	}
	return nil
}
