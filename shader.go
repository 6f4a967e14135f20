// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpudev

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// CreateShader creates a shader module from SPIR-V words or WGSL source
// and returns its handle. WGSL is compiled to SPIR-V with naga at
// creation time. The create info's resource counts are recorded with the
// shader and size bind group layouts for pipelines built from it.
func (d *Device) CreateShader(info ShaderCreateInfo) (ShaderID, error) {
	if info.EntryPoint == "" {
		return 0, fmt.Errorf("%w: shader entry point is empty", ErrInvalidArgument)
	}
	if strings.ContainsRune(info.EntryPoint, 0) {
		return 0, fmt.Errorf("%w: shader entry point contains NUL", ErrInvalidArgument)
	}
	if (len(info.SPIRV) == 0) == (info.WGSL == "") {
		return 0, fmt.Errorf("%w: exactly one of SPIRV and WGSL must be set", ErrInvalidArgument)
	}

	spirv := info.SPIRV
	if info.WGSL != "" {
		compiled, err := naga.Compile(info.WGSL)
		if err != nil {
			return 0, fmt.Errorf("%w: compile WGSL: %v", ErrNativeCallFailed, err)
		}
		spirv, err = spirvWords(compiled)
		if err != nil {
			return 0, err
		}
	}

	module, err := d.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  info.Label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: create shader module: %v", ErrNativeCallFailed, err)
	}

	handle := d.shaders.insert(shaderEntry{
		module:          module,
		entryPoint:      info.EntryPoint,
		stage:           info.Stage,
		samplers:        info.SamplerCount,
		uniformBuffers:  info.UniformBufferCount,
		storageBuffers:  info.StorageBufferCount,
		storageTextures: info.StorageTextureCount,
	})
	return ShaderID(handle), nil
}

// spirvWords reinterprets compiled SPIR-V bytes as little-endian 32-bit
// words.
func spirvWords(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: SPIR-V byte length %d is not word-aligned", ErrInvalidArgument, len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}
