//go:build windows

// Package main implements the C-ABI surface consumed by non-Go language
// bindings: a thin delegation layer over backend/webgpu, built from
// cgo-exported functions operating on a handle table rather than passing
// Go pointers across the boundary.
//
// The core (internal/backend/webgpu) is typed, generic, and Go-idiomatic;
// this layer exists only to erase that down to C-compatible integers,
// strings, and raw pointers.
package main

/*
#include <stdlib.h>

typedef void (*minigpu_callback)(void);

static inline void minigpu_call_callback(minigpu_callback cb) {
	if (cb) {
		cb();
	}
}
*/
import "C"

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	webgpu "github.com/PracticalXR/minigpu/backend/webgpu"
)

// Global process-wide context, one driver per process: the core takes a
// *Context constructor argument everywhere, and this façade is what
// binds it to a single instance.
var (
	globalCtx   *webgpu.Context
	globalMu    sync.Mutex
	lastErr     string
	lastErrMu   sync.Mutex
	shaderTable = newHandleTable[*webgpu.ComputeShader]()
	bufferTable = newHandleTable[*webgpu.Buffer]()
)

type handleTable[T any] struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]T
}

func newHandleTable[T any]() *handleTable[T] {
	return &handleTable[T]{entries: make(map[uint64]T)}
}

func (h *handleTable[T]) put(v T) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.entries[h.next] = v
	return h.next
}

func (h *handleTable[T]) get(id uint64) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.entries[id]
	return v, ok
}

func (h *handleTable[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, id)
}

func setLastError(err error) {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	if err == nil {
		lastErr = ""
		return
	}
	lastErr = err.Error()
}

//export minigpu_get_last_error
func minigpu_get_last_error() *C.char {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	return C.CString(lastErr)
}

//export minigpu_free_string
func minigpu_free_string(s *C.char) {
	C.free(unsafe.Pointer(s))
}

//export minigpu_initialize
func minigpu_initialize() C.int {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCtx == nil {
		globalCtx = webgpu.NewContext()
	}
	if err := globalCtx.Initialize(); err != nil {
		setLastError(err)
		return 0
	}
	return 1
}

//export minigpu_initialize_async
func minigpu_initialize_async(cb C.uintptr_t) {
	globalMu.Lock()
	if globalCtx == nil {
		globalCtx = webgpu.NewContext()
	}
	ctx := globalCtx
	globalMu.Unlock()

	callback := lookupCallback(cb)
	err := ctx.InitializeAsync(func() {
		if callback != nil {
			callback()
		}
	})
	if err != nil {
		setLastError(err)
	}
}

//export minigpu_destroy
func minigpu_destroy() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCtx == nil {
		return
	}
	if err := globalCtx.Destroy(); err != nil {
		setLastError(err)
	}
	globalCtx = nil
}

// lookupCallback wraps a C function pointer (passed as a uintptr_t,
// since cgo cannot receive C function-pointer arguments directly in a Go
// signature) into a Go nullary closure. Every callback crossing the
// C-ABI is nullary, runs on the worker, and must not block.
func lookupCallback(ptr C.uintptr_t) func() {
	if ptr == 0 {
		return nil
	}
	cb := C.minigpu_callback(unsafe.Pointer(uintptr(ptr)))
	return func() {
		C.minigpu_call_callback(cb)
	}
}

func currentContext() (*webgpu.Context, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCtx == nil {
		return nil, fmt.Errorf("minigpu: context not initialized")
	}
	return globalCtx, nil
}

//export minigpu_shader_create
func minigpu_shader_create() C.ulonglong {
	ctx, err := currentContext()
	if err != nil {
		setLastError(err)
		return 0
	}
	cs := webgpu.NewComputeShader(ctx)
	return C.ulonglong(shaderTable.put(cs))
}

//export minigpu_shader_destroy
func minigpu_shader_destroy(handle C.ulonglong) {
	cs, ok := shaderTable.get(uint64(handle))
	if !ok {
		return
	}
	cs.Release()
	shaderTable.remove(uint64(handle))
}

//export minigpu_shader_load_kernel
func minigpu_shader_load_kernel(handle C.ulonglong, source *C.char) {
	cs, ok := shaderTable.get(uint64(handle))
	if !ok {
		setLastError(fmt.Errorf("minigpu: unknown shader handle"))
		return
	}
	cs.LoadKernelString(C.GoString(source))
}

//export minigpu_shader_has_kernel
func minigpu_shader_has_kernel(handle C.ulonglong) C.int {
	cs, ok := shaderTable.get(uint64(handle))
	if !ok {
		return 0
	}
	if cs.HasKernel() {
		return 1
	}
	return 0
}

//export minigpu_shader_set_buffer
func minigpu_shader_set_buffer(shaderHandle C.ulonglong, slot C.int, bufferHandle C.ulonglong) C.int {
	cs, ok := shaderTable.get(uint64(shaderHandle))
	if !ok {
		setLastError(fmt.Errorf("minigpu: unknown shader handle"))
		return 0
	}
	buf, ok := bufferTable.get(uint64(bufferHandle))
	if !ok {
		setLastError(fmt.Errorf("minigpu: unknown buffer handle"))
		return 0
	}
	if err := cs.SetBuffer(int(slot), buf); err != nil {
		setLastError(err)
		return 0
	}
	return 1
}

//export minigpu_shader_dispatch
func minigpu_shader_dispatch(handle C.ulonglong, gx, gy, gz C.int) C.int {
	cs, ok := shaderTable.get(uint64(handle))
	if !ok {
		setLastError(fmt.Errorf("minigpu: unknown shader handle"))
		return 0
	}
	if err := cs.Dispatch(int(gx), int(gy), int(gz)); err != nil {
		setLastError(err)
		return 0
	}
	return 1
}

//export minigpu_shader_dispatch_async
func minigpu_shader_dispatch_async(handle C.ulonglong, gx, gy, gz C.int, cb C.uintptr_t) {
	cs, ok := shaderTable.get(uint64(handle))
	if !ok {
		setLastError(fmt.Errorf("minigpu: unknown shader handle"))
		return
	}
	callback := lookupCallback(cb)
	err := cs.DispatchAsync(int(gx), int(gy), int(gz), func() {
		if callback != nil {
			callback()
		}
	})
	if err != nil {
		setLastError(err)
	}
}

// minigpu_buffer_create allocates a buffer of elementCount logical
// elements of the type named by typeCode ({0: f16-alias-f32, 1: f32,
// 2: f64, 3: i8, 4: i16, 5: i32, 6: i64, 7: u8, 8: u16, 9: u32,
// 10: u64}). Unknown codes and code 0 (f16) both degrade to f32 with a
// logged warning.
//
//export minigpu_buffer_create
func minigpu_buffer_create(elementCount C.ulonglong, typeCode C.int) C.ulonglong {
	ctx, err := currentContext()
	if err != nil {
		setLastError(err)
		return 0
	}
	t, degraded := webgpu.LogicalTypeFromCode(webgpu.TypeCode(typeCode))
	if degraded {
		log.Printf("minigpu: type code %d degraded to f32", typeCode)
		setLastError(fmt.Errorf("minigpu: type code %d degraded to f32", typeCode))
	}
	buf, err := webgpu.CreateBuffer(ctx, uint64(elementCount), t)
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(bufferTable.put(buf))
}

//export minigpu_buffer_destroy
func minigpu_buffer_destroy(handle C.ulonglong) {
	buf, ok := bufferTable.get(uint64(handle))
	if !ok {
		return
	}
	buf.Release()
	bufferTable.remove(uint64(handle))
}

// writeFromPointer, readSyncToPointer, and readAsyncToPointer back every
// per-type write_*/read_sync_*/read_async_* export below: the host
// pointer's exact element type is fixed by the caller's choice of
// exported function, so each wrapper below supplies T and the matching C
// pointer type, while the handle lookup, slice construction, and error
// propagation live here once.
func writeFromPointer[T webgpu.Numeric](handle uint64, ptr unsafe.Pointer, byteSize uint64) C.int {
	buf, ok := bufferTable.get(handle)
	if !ok {
		setLastError(fmt.Errorf("minigpu: unknown buffer handle"))
		return 0
	}
	if ptr == nil && byteSize > 0 {
		setLastError(fmt.Errorf("minigpu: null host pointer with non-zero size"))
		return 0
	}
	var zero T
	elemSize := uint64(unsafe.Sizeof(zero))
	count := byteSize / elemSize
	data := unsafe.Slice((*T)(ptr), count)
	if err := webgpu.Write(buf, data); err != nil {
		setLastError(err)
		return 0
	}
	return 1
}

func readSyncToPointer[T webgpu.Numeric](handle uint64, ptr unsafe.Pointer, count, offset uint64) C.longlong {
	buf, ok := bufferTable.get(handle)
	if !ok {
		setLastError(fmt.Errorf("minigpu: unknown buffer handle"))
		return -1
	}
	if ptr == nil && count > 0 {
		setLastError(fmt.Errorf("minigpu: null host pointer with non-zero count"))
		return -1
	}
	out := unsafe.Slice((*T)(ptr), count)
	n, err := webgpu.Read(buf, out, count, offset)
	if err != nil {
		setLastError(err)
		return -1
	}
	return C.longlong(n)
}

func readAsyncToPointer[T webgpu.Numeric](handle uint64, ptr unsafe.Pointer, count, offset uint64, cbPtr C.uintptr_t) C.int {
	buf, ok := bufferTable.get(handle)
	if !ok {
		setLastError(fmt.Errorf("minigpu: unknown buffer handle"))
		return 0
	}
	if ptr == nil && count > 0 {
		setLastError(fmt.Errorf("minigpu: null host pointer with non-zero count"))
		return 0
	}
	out := unsafe.Slice((*T)(ptr), count)
	callback := lookupCallback(cbPtr)
	err := webgpu.ReadAsync(buf, out, count, offset, func(n int, err error) {
		if err != nil {
			setLastError(err)
		}
		if callback != nil {
			callback()
		}
	})
	if err != nil {
		setLastError(err)
		return 0
	}
	return 1
}

//export minigpu_buffer_write_f32
func minigpu_buffer_write_f32(handle C.ulonglong, ptr *C.float, byteSize C.ulonglong) C.int {
	return writeFromPointer[float32](uint64(handle), unsafe.Pointer(ptr), uint64(byteSize))
}

//export minigpu_buffer_write_f64
func minigpu_buffer_write_f64(handle C.ulonglong, ptr *C.double, byteSize C.ulonglong) C.int {
	return writeFromPointer[float64](uint64(handle), unsafe.Pointer(ptr), uint64(byteSize))
}

//export minigpu_buffer_write_i8
func minigpu_buffer_write_i8(handle C.ulonglong, ptr *C.schar, byteSize C.ulonglong) C.int {
	return writeFromPointer[int8](uint64(handle), unsafe.Pointer(ptr), uint64(byteSize))
}

//export minigpu_buffer_write_i16
func minigpu_buffer_write_i16(handle C.ulonglong, ptr *C.short, byteSize C.ulonglong) C.int {
	return writeFromPointer[int16](uint64(handle), unsafe.Pointer(ptr), uint64(byteSize))
}

//export minigpu_buffer_write_i32
func minigpu_buffer_write_i32(handle C.ulonglong, ptr *C.int, byteSize C.ulonglong) C.int {
	return writeFromPointer[int32](uint64(handle), unsafe.Pointer(ptr), uint64(byteSize))
}

//export minigpu_buffer_write_i64
func minigpu_buffer_write_i64(handle C.ulonglong, ptr *C.longlong, byteSize C.ulonglong) C.int {
	return writeFromPointer[int64](uint64(handle), unsafe.Pointer(ptr), uint64(byteSize))
}

//export minigpu_buffer_write_u8
func minigpu_buffer_write_u8(handle C.ulonglong, ptr *C.uchar, byteSize C.ulonglong) C.int {
	return writeFromPointer[uint8](uint64(handle), unsafe.Pointer(ptr), uint64(byteSize))
}

//export minigpu_buffer_write_u16
func minigpu_buffer_write_u16(handle C.ulonglong, ptr *C.ushort, byteSize C.ulonglong) C.int {
	return writeFromPointer[uint16](uint64(handle), unsafe.Pointer(ptr), uint64(byteSize))
}

//export minigpu_buffer_write_u32
func minigpu_buffer_write_u32(handle C.ulonglong, ptr *C.uint, byteSize C.ulonglong) C.int {
	return writeFromPointer[uint32](uint64(handle), unsafe.Pointer(ptr), uint64(byteSize))
}

//export minigpu_buffer_write_u64
func minigpu_buffer_write_u64(handle C.ulonglong, ptr *C.ulonglong, byteSize C.ulonglong) C.int {
	return writeFromPointer[uint64](uint64(handle), unsafe.Pointer(ptr), uint64(byteSize))
}

//export minigpu_buffer_read_sync_f32
func minigpu_buffer_read_sync_f32(handle C.ulonglong, ptr *C.float, count, offset C.ulonglong) C.longlong {
	return readSyncToPointer[float32](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset))
}

//export minigpu_buffer_read_sync_f64
func minigpu_buffer_read_sync_f64(handle C.ulonglong, ptr *C.double, count, offset C.ulonglong) C.longlong {
	return readSyncToPointer[float64](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset))
}

//export minigpu_buffer_read_sync_i8
func minigpu_buffer_read_sync_i8(handle C.ulonglong, ptr *C.schar, count, offset C.ulonglong) C.longlong {
	return readSyncToPointer[int8](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset))
}

//export minigpu_buffer_read_sync_i16
func minigpu_buffer_read_sync_i16(handle C.ulonglong, ptr *C.short, count, offset C.ulonglong) C.longlong {
	return readSyncToPointer[int16](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset))
}

//export minigpu_buffer_read_sync_i32
func minigpu_buffer_read_sync_i32(handle C.ulonglong, ptr *C.int, count, offset C.ulonglong) C.longlong {
	return readSyncToPointer[int32](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset))
}

//export minigpu_buffer_read_sync_i64
func minigpu_buffer_read_sync_i64(handle C.ulonglong, ptr *C.longlong, count, offset C.ulonglong) C.longlong {
	return readSyncToPointer[int64](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset))
}

//export minigpu_buffer_read_sync_u8
func minigpu_buffer_read_sync_u8(handle C.ulonglong, ptr *C.uchar, count, offset C.ulonglong) C.longlong {
	return readSyncToPointer[uint8](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset))
}

//export minigpu_buffer_read_sync_u16
func minigpu_buffer_read_sync_u16(handle C.ulonglong, ptr *C.ushort, count, offset C.ulonglong) C.longlong {
	return readSyncToPointer[uint16](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset))
}

//export minigpu_buffer_read_sync_u32
func minigpu_buffer_read_sync_u32(handle C.ulonglong, ptr *C.uint, count, offset C.ulonglong) C.longlong {
	return readSyncToPointer[uint32](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset))
}

//export minigpu_buffer_read_sync_u64
func minigpu_buffer_read_sync_u64(handle C.ulonglong, ptr *C.ulonglong, count, offset C.ulonglong) C.longlong {
	return readSyncToPointer[uint64](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset))
}

//export minigpu_buffer_read_async_f32
func minigpu_buffer_read_async_f32(handle C.ulonglong, ptr *C.float, count, offset C.ulonglong, cb C.uintptr_t) C.int {
	return readAsyncToPointer[float32](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset), cb)
}

//export minigpu_buffer_read_async_f64
func minigpu_buffer_read_async_f64(handle C.ulonglong, ptr *C.double, count, offset C.ulonglong, cb C.uintptr_t) C.int {
	return readAsyncToPointer[float64](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset), cb)
}

//export minigpu_buffer_read_async_i8
func minigpu_buffer_read_async_i8(handle C.ulonglong, ptr *C.schar, count, offset C.ulonglong, cb C.uintptr_t) C.int {
	return readAsyncToPointer[int8](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset), cb)
}

//export minigpu_buffer_read_async_i16
func minigpu_buffer_read_async_i16(handle C.ulonglong, ptr *C.short, count, offset C.ulonglong, cb C.uintptr_t) C.int {
	return readAsyncToPointer[int16](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset), cb)
}

//export minigpu_buffer_read_async_i32
func minigpu_buffer_read_async_i32(handle C.ulonglong, ptr *C.int, count, offset C.ulonglong, cb C.uintptr_t) C.int {
	return readAsyncToPointer[int32](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset), cb)
}

//export minigpu_buffer_read_async_i64
func minigpu_buffer_read_async_i64(handle C.ulonglong, ptr *C.longlong, count, offset C.ulonglong, cb C.uintptr_t) C.int {
	return readAsyncToPointer[int64](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset), cb)
}

//export minigpu_buffer_read_async_u8
func minigpu_buffer_read_async_u8(handle C.ulonglong, ptr *C.uchar, count, offset C.ulonglong, cb C.uintptr_t) C.int {
	return readAsyncToPointer[uint8](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset), cb)
}

//export minigpu_buffer_read_async_u16
func minigpu_buffer_read_async_u16(handle C.ulonglong, ptr *C.ushort, count, offset C.ulonglong, cb C.uintptr_t) C.int {
	return readAsyncToPointer[uint16](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset), cb)
}

//export minigpu_buffer_read_async_u32
func minigpu_buffer_read_async_u32(handle C.ulonglong, ptr *C.uint, count, offset C.ulonglong, cb C.uintptr_t) C.int {
	return readAsyncToPointer[uint32](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset), cb)
}

//export minigpu_buffer_read_async_u64
func minigpu_buffer_read_async_u64(handle C.ulonglong, ptr *C.ulonglong, count, offset C.ulonglong, cb C.uintptr_t) C.int {
	return readAsyncToPointer[uint64](uint64(handle), unsafe.Pointer(ptr), uint64(count), uint64(offset), cb)
}

func main() {}
