// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpudev is a safety layer between application code and the
// gogpu/wgpu HAL. It gives every native GPU resource a stable integer
// handle backed by a free-list slot registry, stages CPU<->GPU transfers
// through a single growable upload buffer with deferred reclamation, and
// enforces a strict command-buffer/pass recording protocol.
//
// Resources (textures, buffers, samplers, shaders, pipelines) are created
// and destroyed through a Device and referenced by typed int32 handles.
// Work is recorded on a CommandBuffer acquired from the Device, inside
// scoped copy, render, or compute passes. At most one pass may be open on
// a command buffer at a time; submission (or cancellation) finishes the
// buffer and, once no command buffers remain in flight, reclaims staging
// buffers superseded by growth.
//
// Handle misuse (destroying a resource twice, using a stale handle,
// opening overlapping passes) is a programming error and panics rather
// than returning an error. Failures of the native layer (creation,
// submission) and caller-checkable conditions (out-of-range transfers,
// invalid arguments) are returned as errors.
//
// The Device is not safe for concurrent multi-threaded recording; access
// must be externally synchronized or single-threaded.
package gpudev
