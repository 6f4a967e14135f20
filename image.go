// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"
)

// UploadImage uploads img into the texture at origin (0,0), converting
// to tightly packed RGBA as needed. The texture must use an RGBA8 format
// and be at least as large as the image. With a nil pass the upload runs
// in its own one-shot command buffer.
func (d *Device) UploadImage(pass *CopyPass, texture TextureID, img image.Image) error {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	tex := d.resolveTexture(texture)
	switch tex.format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
	default:
		return fmt.Errorf("%w: image upload needs an RGBA8 texture, got format %v", ErrInvalidArgument, tex.format)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != w*4 {
		converted := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(converted, converted.Bounds(), img, bounds.Min, xdraw.Src)
		rgba = converted
	}

	region := TextureRegion{
		Texture: texture,
		Width:   uint32(w), //nolint:gosec // bounds checked non-negative above
		Height:  uint32(h), //nolint:gosec // bounds checked non-negative above
	}
	return d.UploadToTexture(pass, region, rgba.Pix)
}

// UploadImageScaled scales img to width x height with Catmull-Rom
// resampling and uploads the result, for thumbnails and mismatched
// texture extents.
func (d *Device) UploadImageScaled(pass *CopyPass, texture TextureID, img image.Image, width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: scaled upload extent is empty", ErrInvalidArgument)
	}
	scaled := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return d.UploadImage(pass, texture, scaled)
}
