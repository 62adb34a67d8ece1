//go:build windows

// Copyright 2025 The minigpu Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu is the public entry point to the minigpu WebGPU backend:
// a typed, packed-storage compute buffer and a dispatchable compute
// shader, built on github.com/go-webgpu/webgpu.
//
// Example:
//
//	ctx := webgpu.NewContext()
//	if err := ctx.Initialize(); err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Destroy()
//
//	buf, err := webgpu.CreateBuffer(ctx, 1024, webgpu.F32)
package webgpu

import (
	internalwebgpu "github.com/PracticalXR/minigpu/internal/backend/webgpu"
	"github.com/go-webgpu/webgpu/wgpu"
)

// AdapterInfo describes a WebGPU adapter (name, vendor, backend).
type AdapterInfo = wgpu.AdapterInfo

// Context owns the WebGPU instance/adapter/device/queue and the single
// worker goroutine that serializes every driver call.
type Context = internalwebgpu.Context

// Buffer is a typed, packed-storage device buffer.
type Buffer = internalwebgpu.Buffer

// ComputeShader is a cached compute pipeline bound to a kernel source and
// a set of buffer bindings.
type ComputeShader = internalwebgpu.ComputeShader

// LogicalType is the type a Buffer stores: one of the ten scalar types in
// Numeric, mapped either directly (f32/i32/u32) or packed into a 32-bit
// surrogate on device.
type LogicalType = internalwebgpu.LogicalType

// Numeric is the set of host element types Write/Read accept.
type Numeric = internalwebgpu.Numeric

// TypeCode is the C-ABI's fixed integer type enumeration.
type TypeCode = internalwebgpu.TypeCode

// LogicalTypeFromCode maps a C-ABI type code to a LogicalType, degrading
// unknown codes and the f16 alias to F32.
func LogicalTypeFromCode(code TypeCode) (LogicalType, bool) {
	return internalwebgpu.LogicalTypeFromCode(code)
}

const (
	F32 = internalwebgpu.F32
	F64 = internalwebgpu.F64
	I8  = internalwebgpu.I8
	I16 = internalwebgpu.I16
	I32 = internalwebgpu.I32
	I64 = internalwebgpu.I64
	U8  = internalwebgpu.U8
	U16 = internalwebgpu.U16
	U32 = internalwebgpu.U32
	U64 = internalwebgpu.U64
)

// NewContext allocates a Context. Call Initialize before using it.
func NewContext() *Context {
	return internalwebgpu.NewContext()
}

// CreateBuffer allocates a new device buffer holding count logical
// elements of type t.
func CreateBuffer(ctx *Context, count uint64, t LogicalType) (*Buffer, error) {
	return internalwebgpu.CreateBuffer(ctx, count, t)
}

// Write uploads data to buf starting at element 0. len(data) must fit
// within buf's capacity for its logical type.
func Write[T Numeric](buf *Buffer, data []T) error {
	return internalwebgpu.Write(buf, data)
}

// Read blocks until count logical elements starting at offset have been
// copied from buf into out, returning how many were actually read.
func Read[T Numeric](buf *Buffer, out []T, count, offset uint64) (int, error) {
	return internalwebgpu.Read(buf, out, count, offset)
}

// ReadAsync is Read's non-blocking counterpart: callback runs once the
// staging round trip completes.
func ReadAsync[T Numeric](buf *Buffer, out []T, count, offset uint64, callback func(n int, err error)) error {
	return internalwebgpu.ReadAsync(buf, out, count, offset, callback)
}

// NewComputeShader creates an empty compute shader bound to ctx.
func NewComputeShader(ctx *Context) *ComputeShader {
	return internalwebgpu.NewComputeShader(ctx)
}

// IsAvailable reports whether a WebGPU adapter can be created on this
// system.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}

// ListAdapters enumerates the adapters visible to the WebGPU instance.
func ListAdapters() ([]*AdapterInfo, error) {
	return internalwebgpu.ListAdapters()
}
