//go:build windows

package webgpu

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// Numeric is the set of host element types the typed buffer's generic
// Write/Read operations accept. The packing layout is always chosen by
// the buffer's own LogicalType, never by the concrete type; a concrete
// type that does not match it is not value-converted: Write stores its
// raw integer or float bit pattern (or zero bits for a non-float64 value
// written to an F64 buffer), and Read yields zero values.
type Numeric interface {
	float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// Buffer is a typed, packed-storage device buffer: a handle plus its
// physical byte size, logical type, logical element count, and whether
// internal storage is a 32-bit surrogate of the logical type.
//
// Buffer state machine: Empty -> Allocated -> Released. A released buffer
// cannot be reallocated.
type Buffer struct {
	ctx *Context

	mu       sync.Mutex
	handle   *wgpu.Buffer
	released bool

	physicalBytes uint64
	logicalType   LogicalType
	count         uint64
	packed        bool

	// gen is the context device generation this buffer's handle belongs
	// to. A device loss invalidates the handle; once the context
	// re-initializes, the generations no longer match and operations on
	// this buffer fail with invalid-state rather than touching a dead
	// handle.
	gen uint64
}

// CreateBuffer allocates a new device buffer sized by RequiredBytes(t,
// count), padded and aligned up to 4 bytes. count == 0 yields a buffer
// with a null handle and physical size 0; every operation on it except
// Release is a no-op.
func CreateBuffer(ctx *Context, count uint64, t LogicalType) (*Buffer, error) {
	b := &Buffer{
		ctx:         ctx,
		logicalType: t,
		count:       count,
		packed:      t.NeedsPacking(),
	}
	if count == 0 {
		return b, nil
	}

	physical := alignUp4(RequiredBytes(t, count))
	b.physicalBytes = physical

	type created struct {
		handle *wgpu.Buffer
		gen    uint64
	}
	r, err := EnqueueSync(ctx.worker, func() created {
		device, devErr := ctx.deviceLocked()
		if devErr != nil {
			return created{}
		}
		handle := device.CreateBuffer(&wgpu.BufferDescriptor{
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
			Size:  physical,
		})
		return created{handle: handle, gen: ctx.generation()}
	})
	if err != nil {
		return nil, err
	}
	if r.handle == nil {
		return nil, newErr("create", KindDriverUnavailable, nil)
	}

	b.handle = r.handle
	b.gen = r.gen
	ctx.stats.trackAlloc(physical)
	return b, nil
}

// LogicalType returns the buffer's logical element type.
func (b *Buffer) LogicalType() LogicalType { return b.logicalType }

// Count returns the logical element count the buffer was created with.
func (b *Buffer) Count() uint64 { return b.count }

// Packed reports whether the buffer's internal storage is a 32-bit
// surrogate of its logical type.
func (b *Buffer) Packed() bool { return b.packed }

// PhysicalBytes returns the buffer's physical device-side size in bytes.
func (b *Buffer) PhysicalBytes() uint64 { return b.physicalBytes }

func (b *Buffer) checkLive(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return newErr(op, KindInvalidState, nil)
	}
	return nil
}

// Write uploads host to the buffer, packed according to the buffer's
// LogicalType. T is expected to be the host type of that LogicalType
// (mismatched calls produce garbage, same as the C-ABI's typed write_*
// family).
// Acquires the shared-resource mutex so a write never interleaves with a
// concurrent dispatch.
func Write[T Numeric](b *Buffer, host []T) error {
	if err := b.checkLive("write"); err != nil {
		return err
	}
	if b.handle == nil {
		return nil
	}
	count := uint64(len(host))
	if RequiredBytes(b.logicalType, count) > b.physicalBytes {
		return newErr("write", KindSizeMismatch, nil)
	}

	payload, err := packHost(b.logicalType, host)
	if err != nil {
		return err
	}

	queue, err := b.ctx.Queue()
	if err != nil {
		return err
	}
	// Queue re-initializes a lost context; a handle from the previous
	// device is stale and must not be written through.
	if b.gen != b.ctx.generation() {
		return newErr("write", KindInvalidState, nil)
	}

	_, err = EnqueueSync(b.ctx.worker, func() error {
		b.ctx.worker.SharedMu.Lock()
		defer b.ctx.worker.SharedMu.Unlock()
		queue.WriteBuffer(b.handle, 0, payload)
		return nil
	})
	return err
}

// packHost converts a host slice of logical elements into the bytes to
// upload: direct types copy as-is; 8/16-bit types pack 4/2 lanes per
// 32-bit word; 64-bit types split into little-endian word pairs
// (bit-cast for f64).
func packHost[T Numeric](t LogicalType, host []T) ([]byte, error) {
	n := uint64(len(host))
	switch t {
	case F32, I32, U32:
		out := make([]byte, n*4)
		for i, v := range host {
			binary.LittleEndian.PutUint32(out[i*4:], toU32Bits(t, v))
		}
		return out, nil

	case I8, U8:
		words := ceilDiv(n, 4)
		out := make([]byte, words*4)
		for i, v := range host {
			word := i / 4
			lane := uint(i % 4)
			b := toU32Bits(t, v) & 0xFF
			cur := binary.LittleEndian.Uint32(out[word*4:])
			cur |= b << (8 * lane)
			binary.LittleEndian.PutUint32(out[word*4:], cur)
		}
		return out, nil

	case I16, U16:
		words := ceilDiv(n, 2)
		out := make([]byte, words*4)
		for i, v := range host {
			word := i / 2
			lane := uint(i % 2)
			b := toU32Bits(t, v) & 0xFFFF
			cur := binary.LittleEndian.Uint32(out[word*4:])
			cur |= b << (16 * lane)
			binary.LittleEndian.PutUint32(out[word*4:], cur)
		}
		return out, nil

	case F64, I64, U64:
		out := make([]byte, n*8)
		for i, v := range host {
			bits := toU64Bits(t, v)
			low := uint32(bits & 0xFFFFFFFF)
			high := uint32(bits >> 32)
			binary.LittleEndian.PutUint32(out[i*8:], low)
			binary.LittleEndian.PutUint32(out[i*8+4:], high)
		}
		return out, nil

	default:
		return nil, newErr("write", KindInvalidArgument, nil)
	}
}

// toU32Bits reinterprets a Numeric value as its 32-bit unsigned bit
// pattern for the 32-bit-surrogate paths.
func toU32Bits[T Numeric](t LogicalType, v T) uint32 {
	if t == F32 {
		if f, ok := any(v).(float32); ok {
			return math.Float32bits(f)
		}
	}
	return uint32(toI64(v))
}

// toU64Bits reinterprets a Numeric value as its 64-bit bit pattern,
// bit-casting through Float64bits for f64 rather than value-converting.
func toU64Bits[T Numeric](t LogicalType, v T) uint64 {
	if t == F64 {
		f, _ := any(v).(float64)
		return math.Float64bits(f)
	}
	return uint64(toI64(v))
}

// toI64 widens any Numeric scalar to its exact int64/uint64 bit value by
// round-tripping through the concrete type, preserving sign for signed
// inputs.
func toI64[T Numeric](v T) int64 {
	switch x := any(v).(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return int64(math.Float32bits(x))
	case float64:
		return int64(math.Float64bits(x))
	default:
		return 0
	}
}

// Read reads up to count elements starting at offset into out (which must
// have length >= count) and returns the number of elements actually
// written. Offsets at or past the stored count return zero elements
// without touching out; ranges overhanging the end are clamped. The
// staging copy runs on the worker; Read blocks the calling goroutine
// until it completes, so it must not be called from a task already
// running on the worker (use ReadAsync there, or readWorkerLocked
// directly).
func Read[T Numeric](b *Buffer, out []T, count, offset uint64) (int, error) {
	if err := b.checkLive("read"); err != nil {
		return 0, err
	}
	if b.handle == nil {
		return 0, nil
	}
	clamped := b.clampRead(count, offset)
	if clamped == 0 {
		return 0, nil
	}

	type result struct {
		data []byte
		err  error
	}
	r, err := EnqueueSync(b.ctx.worker, func() result {
		b.ctx.worker.SharedMu.Lock()
		defer b.ctx.worker.SharedMu.Unlock()
		data, readErr := b.readWorkerLocked(clamped, offset)
		return result{data: data, err: readErr}
	})
	if err != nil {
		return 0, err
	}
	if r.err != nil {
		return 0, r.err
	}

	unpackHost(b.logicalType, r.data, out[:clamped], offset)
	return int(clamped), nil
}

// ReadAsync enqueues the read onto the worker; callback (run on the
// worker) fires once the copy and unpack complete, or on error —
// callbacks always fire, success or failure. The read body runs inline
// in the worker task rather than through Read, which would nest a
// synchronous enqueue onto the worker already executing it and deadlock.
func ReadAsync[T Numeric](b *Buffer, out []T, count, offset uint64, callback func(n int, err error)) error {
	return b.ctx.worker.EnqueueAsync(func() {
		n, err := func() (int, error) {
			if err := b.checkLive("read_async"); err != nil {
				return 0, err
			}
			if b.handle == nil {
				return 0, nil
			}
			clamped := b.clampRead(count, offset)
			if clamped == 0 {
				return 0, nil
			}
			b.ctx.worker.SharedMu.Lock()
			defer b.ctx.worker.SharedMu.Unlock()
			raw, err := b.readWorkerLocked(clamped, offset)
			if err != nil {
				return 0, err
			}
			unpackHost(b.logicalType, raw, out[:clamped], offset)
			return int(clamped), nil
		}()
		if callback != nil {
			callback(n, err)
		}
	})
}

// clampRead bounds a requested [offset, offset+count) range against the
// stored element count: zero for offsets at or past the end, otherwise
// the count truncated to what remains.
func (b *Buffer) clampRead(count, offset uint64) uint64 {
	if offset >= b.count {
		return 0
	}
	if offset+count > b.count {
		return b.count - offset
	}
	return count
}

// readWorkerLocked validates the device and generation, then performs
// the staging-buffer copy and returns the mapped bytes covering
// [offset, offset+clampedCount) logical elements, at word granularity
// for 8/16-bit packed types (see unpackHost for the lane math) and at
// native stride for direct and 64-bit types. Must run as a worker task
// with the shared-resource mutex held, the same as Write and Dispatch,
// so a read never interleaves with a concurrent write or dispatch
// touching the same buffer.
func (b *Buffer) readWorkerLocked(clampedCount, offset uint64) ([]byte, error) {
	if _, err := b.ctx.deviceLocked(); err != nil {
		return nil, err
	}
	if b.gen != b.ctx.generation() {
		return nil, newErr("read", KindInvalidState, nil)
	}

	t := b.logicalType
	epw := elementsPerWord(t)

	var byteOffset, byteSize uint64
	switch {
	case epw > 1:
		laneStart := offset % epw
		wordIndex := offset / epw
		wordsNeeded := ceilDiv(laneStart+clampedCount, epw)
		byteOffset = wordIndex * 4
		byteSize = wordsNeeded * 4
	default:
		stride := t.nativeReadStride()
		byteOffset = offset * stride
		byteSize = clampedCount * stride
	}

	return b.ctx.stagingRead(b.handle, byteOffset, byteSize)
}

// elementsPerWord is the packing density for lane-packed 8/16-bit types
// (4 and 2 respectively); 1 for every other logical type, meaning "no
// sub-word lane math needed".
func elementsPerWord(t LogicalType) uint64 {
	switch t {
	case I8, U8:
		return 4
	case I16, U16:
		return 2
	default:
		return 1
	}
}

// unpackHost decodes raw (the bytes returned by readWorkerLocked) into
// out, starting logically at offset. raw begins at the word/pair
// boundary readWorkerLocked aligned down to, so for lane-packed types
// the first relevant lane is offset % elementsPerWord(t), not lane 0.
func unpackHost[T Numeric](t LogicalType, raw []byte, out []T, offset uint64) {
	switch t {
	case F32, I32, U32:
		for i := range out {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			out[i] = fromU32Bits[T](t, bits)
		}

	case I8, U8:
		laneStart := offset % 4
		for i := range out {
			lane := laneStart + uint64(i)
			word := binary.LittleEndian.Uint32(raw[(lane/4)*4:])
			byteVal := (word >> (8 * (lane % 4))) & 0xFF
			out[i] = fromNarrowBits[T](t, byteVal, 24)
		}

	case I16, U16:
		laneStart := offset % 2
		for i := range out {
			lane := laneStart + uint64(i)
			word := binary.LittleEndian.Uint32(raw[(lane/2)*4:])
			halfVal := (word >> (16 * (lane % 2))) & 0xFFFF
			out[i] = fromNarrowBits[T](t, halfVal, 16)
		}

	case F64, I64, U64:
		for i := range out {
			low := uint64(binary.LittleEndian.Uint32(raw[i*8:]))
			high := uint64(binary.LittleEndian.Uint32(raw[i*8+4:]))
			bits := low | (high << 32)
			out[i] = fromU64Bits[T](t, bits)
		}
	}
}

// fromU32Bits reinterprets a 32-bit word as the requested Numeric type.
func fromU32Bits[T Numeric](t LogicalType, bits uint32) T {
	var zero T
	switch t {
	case F32:
		v := math.Float32frombits(bits)
		if r, ok := any(v).(T); ok {
			return r
		}
	case I32:
		v := int32(bits)
		if r, ok := any(v).(T); ok {
			return r
		}
	case U32:
		if r, ok := any(bits).(T); ok {
			return r
		}
	}
	return zero
}

// fromNarrowBits sign-extends (for signed logical types) or
// zero-extends (unsigned) an 8- or 16-bit lane value, using the
// canonical shift-left-then-arithmetic-shift-right pattern in the
// 32-bit domain, then narrows to T.
func fromNarrowBits[T Numeric](t LogicalType, lane uint32, shift uint) T {
	var zero T
	switch t {
	case I8:
		v := int8(int32(lane<<shift) >> shift)
		if r, ok := any(v).(T); ok {
			return r
		}
	case U8:
		v := uint8(lane)
		if r, ok := any(v).(T); ok {
			return r
		}
	case I16:
		v := int16(int32(lane<<shift) >> shift)
		if r, ok := any(v).(T); ok {
			return r
		}
	case U16:
		v := uint16(lane)
		if r, ok := any(v).(T); ok {
			return r
		}
	}
	return zero
}

// fromU64Bits reinterprets a reassembled 64-bit value as the requested
// Numeric type, bit-casting through Float64frombits for f64.
func fromU64Bits[T Numeric](t LogicalType, bits uint64) T {
	var zero T
	switch t {
	case F64:
		v := math.Float64frombits(bits)
		if r, ok := any(v).(T); ok {
			return r
		}
	case I64:
		v := int64(bits)
		if r, ok := any(v).(T); ok {
			return r
		}
	case U64:
		if r, ok := any(bits).(T); ok {
			return r
		}
	}
	return zero
}

// Release destroys the buffer's handle via the worker, zeroes its state,
// and idempotently protects against double-free. If the worker is
// already stopped, the handle is leaked with a warning, acceptable at
// process exit.
func (b *Buffer) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	handle := b.handle
	b.handle = nil
	physical := b.physicalBytes
	b.mu.Unlock()

	if handle == nil {
		return
	}

	err := b.ctx.worker.EnqueueAsync(func() {
		handle.Release()
		b.ctx.stats.trackRelease(physical)
	})
	if err != nil {
		logger.Printf("webgpu: release: worker stopped, leaking buffer handle")
	}
}
