// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer copy offsets and sizes must be 4-byte aligned; buffer-to-texture
// rows must start on 256-byte boundaries.
const (
	copyAlignment     uint64 = 4
	rowPitchAlignment uint64 = 256
)

// stageUpload copies data into the shared upload staging buffer and
// returns the buffer and the offset the data landed at. The staging
// buffer only grows; when a larger allocation is needed the old buffer
// joins the pending-release list until no command buffers are in flight.
//
// The write cursor advances across uploads recorded while any command
// buffer is open and rewinds to zero once the in-flight count returns to
// zero, so sequential frames reuse the same allocation.
//
// Growth allocates at least double the old capacity, so cursor-packed
// uploads rarely force a reallocation; a buffer whose cursor is full is
// replaced even when its total capacity would fit the data alone.
func (d *Device) stageUpload(data []byte, align uint64) (hal.Buffer, uint64, error) {
	size := uint64(len(data))
	offset := (d.upload.used + align - 1) &^ (align - 1)

	if d.upload.buf == nil || offset+size > d.upload.capacity {
		capacity := d.upload.capacity * 2
		if capacity < size {
			capacity = size
		}
		capacity = (capacity + copyAlignment - 1) &^ (copyAlignment - 1)

		buf, err := d.hal.CreateBuffer(&hal.BufferDescriptor{
			Label: "gpudev-upload-staging",
			Size:  capacity,
			Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapWrite,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("%w: create staging buffer: %v", ErrNativeCallFailed, err)
		}
		if d.upload.buf != nil {
			d.pending = append(d.pending, d.upload.buf)
			slogger().Debug("gpudev: upload staging grew",
				"old_capacity", d.upload.capacity, "new_capacity", capacity,
				"pending", len(d.pending))
		}
		d.upload.buf = buf
		d.upload.capacity = capacity
		d.upload.used = 0
		offset = 0
	}

	d.queue.WriteBuffer(d.upload.buf, offset, data)
	d.upload.used = offset + size
	return d.upload.buf, offset, nil
}

// standaloneCopy runs fn inside a one-shot command buffer with an open
// copy pass and submits it.
func (d *Device) standaloneCopy(fn func(*CopyPass) error) error {
	cb, err := d.AcquireCommandBuffer()
	if err != nil {
		return err
	}
	defer cb.Cancel()

	cp, err := cb.BeginCopyPass()
	if err != nil {
		return err
	}
	if err := fn(cp); err != nil {
		return err
	}
	cp.End()
	return cb.Submit()
}

// UploadToBuffer stages data through the shared upload buffer and
// records a copy into dst at offset. With a non-nil pass the copy is
// recorded there; with a nil pass the upload runs in its own one-shot
// command buffer. The destination range is checked against the buffer's
// declared size before anything is staged.
func (d *Device) UploadToBuffer(pass *CopyPass, dst BufferID, offset uint64, data []byte) error {
	entry := d.buffers.get(int32(dst))
	if err := checkBufferRange(entry.size, offset, uint64(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	record := func(p *CopyPass) error {
		staging, stagingOffset, err := d.stageUpload(data, copyAlignment)
		if err != nil {
			return err
		}
		p.cb.encoder.CopyBufferToBuffer(staging, entry.buf, []hal.BufferCopy{{
			SrcOffset: stagingOffset,
			DstOffset: offset,
			Size:      uint64(len(data)),
		}})
		return nil
	}

	if pass != nil {
		if err := pass.checkOpen(); err != nil {
			return err
		}
		return record(pass)
	}
	return d.standaloneCopy(record)
}

// UploadToTexture stages tightly packed texel data and records a copy
// into the texture region. Rows are repacked to the 256-byte pitch the
// copy requires when the region width doesn't align naturally. With a
// nil pass the upload runs in its own one-shot command buffer.
func (d *Device) UploadToTexture(pass *CopyPass, region TextureRegion, data []byte) error {
	tex := d.resolveTexture(region.Texture)
	if err := validateRegion(tex, region); err != nil {
		return err
	}
	if region.Width == 0 || region.Height == 0 {
		return nil
	}

	texelSize := formatTexelSize(tex.format)
	rowBytes := uint64(region.Width) * texelSize
	tight := rowBytes * uint64(region.Height)
	if uint64(len(data)) < tight {
		return fmt.Errorf("%w: %d bytes for a %d-byte region", ErrOutOfRange, len(data), tight)
	}

	alignedRow := (rowBytes + rowPitchAlignment - 1) &^ (rowPitchAlignment - 1)
	upload := data[:tight]
	if alignedRow != rowBytes {
		padded := make([]byte, alignedRow*uint64(region.Height))
		for y := uint64(0); y < uint64(region.Height); y++ {
			copy(padded[y*alignedRow:], data[y*rowBytes:(y+1)*rowBytes])
		}
		upload = padded
	}

	record := func(p *CopyPass) error {
		staging, stagingOffset, err := d.stageUpload(upload, rowPitchAlignment)
		if err != nil {
			return err
		}
		p.cb.encoder.CopyBufferToTexture(staging, tex.tex, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{
				Offset:       stagingOffset,
				BytesPerRow:  uint32(alignedRow), //nolint:gosec // pitch bounded by texture width
				RowsPerImage: region.Height,
			},
			TextureBase: hal.ImageCopyTexture{
				Texture:  tex.tex,
				MipLevel: region.MipLevel,
				Origin:   hal.Origin3D{X: region.X, Y: region.Y},
			},
			Size: hal.Extent3D{Width: region.Width, Height: region.Height, DepthOrArrayLayers: 1},
		}})
		return nil
	}

	if pass != nil {
		if err := pass.checkOpen(); err != nil {
			return err
		}
		return record(pass)
	}
	return d.standaloneCopy(record)
}

// DownloadFromBuffer copies size bytes starting at offset out of the
// buffer and blocks until the data is readable. A size of zero reads to
// the end of the buffer. Each download uses a one-shot MapRead staging
// buffer and its own command buffer, fenced with the device's download
// timeout.
func (d *Device) DownloadFromBuffer(src BufferID, offset, size uint64) ([]byte, error) {
	entry := d.buffers.get(int32(src))
	if size == 0 {
		if offset > entry.size {
			return nil, fmt.Errorf("%w: offset %d exceeds buffer size %d", ErrOutOfRange, offset, entry.size)
		}
		size = entry.size - offset
	} else if err := checkBufferRange(entry.size, offset, size); err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}

	// Copies need 4-byte aligned offsets and sizes; widen the copied
	// window and slice the requested range out afterwards.
	alignedOffset := offset &^ (copyAlignment - 1)
	head := offset - alignedOffset
	copySize := (head + size + copyAlignment - 1) &^ (copyAlignment - 1)

	staging, err := d.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: "gpudev-download-staging",
		Size:  copySize,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create download staging: %v", ErrNativeCallFailed, err)
	}
	defer d.hal.DestroyBuffer(staging)

	cb, err := d.AcquireCommandBuffer()
	if err != nil {
		return nil, err
	}
	defer cb.Cancel()

	cp, err := cb.BeginCopyPass()
	if err != nil {
		return nil, err
	}
	cb.encoder.CopyBufferToBuffer(entry.buf, staging, []hal.BufferCopy{{
		SrcOffset: alignedOffset,
		DstOffset: 0,
		Size:      copySize,
	}})
	cp.End()

	if err := cb.submitAndWait(); err != nil {
		return nil, err
	}

	out := make([]byte, copySize)
	if err := d.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("%w: read staging: %v", ErrNativeCallFailed, err)
	}
	return out[head : head+size], nil
}

// DownloadFromTexture copies the texture region into CPU memory and
// blocks until the data is readable. The result is tightly packed,
// width*texelSize bytes per row.
func (d *Device) DownloadFromTexture(region TextureRegion) ([]byte, error) {
	tex := d.resolveTexture(region.Texture)
	if err := validateRegion(tex, region); err != nil {
		return nil, err
	}
	if region.Width == 0 || region.Height == 0 {
		return []byte{}, nil
	}

	texelSize := formatTexelSize(tex.format)
	rowBytes := uint64(region.Width) * texelSize
	alignedRow := (rowBytes + rowPitchAlignment - 1) &^ (rowPitchAlignment - 1)
	stagingSize := alignedRow * uint64(region.Height)

	staging, err := d.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: "gpudev-download-staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create download staging: %v", ErrNativeCallFailed, err)
	}
	defer d.hal.DestroyBuffer(staging)

	cb, err := d.AcquireCommandBuffer()
	if err != nil {
		return nil, err
	}
	defer cb.Cancel()

	cp, err := cb.BeginCopyPass()
	if err != nil {
		return nil, err
	}
	cb.encoder.CopyTextureToBuffer(tex.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(alignedRow), //nolint:gosec // pitch bounded by texture width
			RowsPerImage: region.Height,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  tex.tex,
			MipLevel: region.MipLevel,
			Origin:   hal.Origin3D{X: region.X, Y: region.Y},
		},
		Size: hal.Extent3D{Width: region.Width, Height: region.Height, DepthOrArrayLayers: 1},
	}})
	cp.End()

	if err := cb.submitAndWait(); err != nil {
		return nil, err
	}

	padded := make([]byte, stagingSize)
	if err := d.queue.ReadBuffer(staging, 0, padded); err != nil {
		return nil, fmt.Errorf("%w: read staging: %v", ErrNativeCallFailed, err)
	}
	if alignedRow == rowBytes {
		return padded, nil
	}
	tight := make([]byte, rowBytes*uint64(region.Height))
	for y := uint64(0); y < uint64(region.Height); y++ {
		copy(tight[y*rowBytes:], padded[y*alignedRow:y*alignedRow+rowBytes])
	}
	return tight, nil
}

// validateRegion checks the region rectangle against the mip level's
// extent. Swapchain-backed entries validate against the frame extent.
func validateRegion(tex textureEntry, region TextureRegion) error {
	mipW := tex.width >> region.MipLevel
	mipH := tex.height >> region.MipLevel
	if mipW == 0 {
		mipW = 1
	}
	if mipH == 0 {
		mipH = 1
	}
	if uint64(region.X)+uint64(region.Width) > uint64(mipW) ||
		uint64(region.Y)+uint64(region.Height) > uint64(mipH) {
		return fmt.Errorf("%w: region (%d,%d %dx%d) exceeds mip extent %dx%d",
			ErrOutOfRange, region.X, region.Y, region.Width, region.Height, mipW, mipH)
	}
	return nil
}

// formatTexelSize returns the byte size of one texel for the formats the
// transfer paths support.
func formatTexelSize(format gputypes.TextureFormat) uint64 {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatR32Float:
		return 4
	case gputypes.TextureFormatRG32Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	case gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb:
		return 4
	default:
		return 4
	}
}
