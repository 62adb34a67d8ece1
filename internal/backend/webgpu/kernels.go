//go:build windows

package webgpu

// A fixed library of WGSL sources implementing on-device the same
// pack/unpack transforms as the CPU path in buffer.go, for callers that
// already hold data on the GPU as a wider surrogate and want to convert
// without a host round-trip. Each is a 1-D compute kernel with workgroup
// size 256 and two storage-buffer bindings (source, destination); bounds
// are checked per-invocation against both the packed-array length and
// the logical length. Lane layout: 4 lanes per 32-bit word for 8-bit
// types, 2 for 16-bit.
const (
	kPackedInt8ToInt32Kernel = `
@group(0) @binding(0) var<storage, read_write> packed_input: array<i32>;
@group(0) @binding(1) var<storage, read_write> unpacked_output: array<i32>;

fn sign_extend_i8(val: i32) -> i32 {
  return (val << 24) >> 24;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
  let packed_idx: u32 = gid.x;
  if (packed_idx >= arrayLength(&packed_input)) {
    return;
  }
  let packed_val = packed_input[packed_idx];
  let base_output_idx = packed_idx * 4u;
  if ((base_output_idx + 3u) >= arrayLength(&unpacked_output)) {
    return;
  }
  unpacked_output[base_output_idx + 0u] = sign_extend_i8((packed_val >> 0u) & 0xFF);
  unpacked_output[base_output_idx + 1u] = sign_extend_i8((packed_val >> 8u) & 0xFF);
  unpacked_output[base_output_idx + 2u] = sign_extend_i8((packed_val >> 16u) & 0xFF);
  unpacked_output[base_output_idx + 3u] = sign_extend_i8((packed_val >> 24u) & 0xFF);
}
`

	kInt32ToPackedInt8Kernel = `
@group(0) @binding(0) var<storage, read_write> unpacked_input: array<i32>;
@group(0) @binding(1) var<storage, read_write> packed_output: array<i32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
  let packed_idx: u32 = gid.x;
  if (packed_idx >= arrayLength(&packed_output)) {
    return;
  }
  let base_input_idx = packed_idx * 4u;
  if ((base_input_idx + 3u) >= arrayLength(&unpacked_input)) {
    packed_output[packed_idx] = 0;
    return;
  }
  let val0 = unpacked_input[base_input_idx + 0u];
  let val1 = unpacked_input[base_input_idx + 1u];
  let val2 = unpacked_input[base_input_idx + 2u];
  let val3 = unpacked_input[base_input_idx + 3u];
  var packed_result: i32 = 0;
  packed_result = packed_result | ((val0 & 0xFF) << 0u);
  packed_result = packed_result | ((val1 & 0xFF) << 8u);
  packed_result = packed_result | ((val2 & 0xFF) << 16u);
  packed_result = packed_result | ((val3 & 0xFF) << 24u);
  packed_output[packed_idx] = packed_result;
}
`

	kPackedUint8ToUint32Kernel = `
@group(0) @binding(0) var<storage, read_write> packed_input: array<u32>;
@group(0) @binding(1) var<storage, read_write> unpacked_output: array<u32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
  let packed_idx: u32 = gid.x;
  if (packed_idx >= arrayLength(&packed_input)) {
    return;
  }
  let packed_val = packed_input[packed_idx];
  let base_output_idx = packed_idx * 4u;
  if ((base_output_idx + 3u) >= arrayLength(&unpacked_output)) {
    return;
  }
  unpacked_output[base_output_idx + 0u] = (packed_val >> 0u) & 0xFFu;
  unpacked_output[base_output_idx + 1u] = (packed_val >> 8u) & 0xFFu;
  unpacked_output[base_output_idx + 2u] = (packed_val >> 16u) & 0xFFu;
  unpacked_output[base_output_idx + 3u] = (packed_val >> 24u) & 0xFFu;
}
`

	kUint32ToPackedUint8Kernel = `
@group(0) @binding(0) var<storage, read_write> unpacked_input: array<u32>;
@group(0) @binding(1) var<storage, read_write> packed_output: array<u32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
  let packed_idx: u32 = gid.x;
  if (packed_idx >= arrayLength(&packed_output)) {
    return;
  }
  let base_input_idx = packed_idx * 4u;
  if ((base_input_idx + 3u) >= arrayLength(&unpacked_input)) {
    packed_output[packed_idx] = 0u;
    return;
  }
  let val0 = unpacked_input[base_input_idx + 0u];
  let val1 = unpacked_input[base_input_idx + 1u];
  let val2 = unpacked_input[base_input_idx + 2u];
  let val3 = unpacked_input[base_input_idx + 3u];
  var packed_result: u32 = 0u;
  packed_result = packed_result | ((val0 & 0xFFu) << 0u);
  packed_result = packed_result | ((val1 & 0xFFu) << 8u);
  packed_result = packed_result | ((val2 & 0xFFu) << 16u);
  packed_result = packed_result | ((val3 & 0xFFu) << 24u);
  packed_output[packed_idx] = packed_result;
}
`

	kPackedInt16ToInt32Kernel = `
@group(0) @binding(0) var<storage, read_write> packed_input: array<i32>;
@group(0) @binding(1) var<storage, read_write> unpacked_output: array<i32>;

fn sign_extend_i16(val: i32) -> i32 {
  return (val << 16) >> 16;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
  let packed_idx: u32 = gid.x;
  if (packed_idx >= arrayLength(&packed_input)) {
    return;
  }
  let packed_val = packed_input[packed_idx];
  let base_output_idx = packed_idx * 2u;
  if ((base_output_idx + 1u) >= arrayLength(&unpacked_output)) {
    return;
  }
  unpacked_output[base_output_idx + 0u] = sign_extend_i16((packed_val >> 0u) & 0xFFFF);
  unpacked_output[base_output_idx + 1u] = sign_extend_i16((packed_val >> 16u) & 0xFFFF);
}
`

	kInt32ToPackedInt16Kernel = `
@group(0) @binding(0) var<storage, read_write> unpacked_input: array<i32>;
@group(0) @binding(1) var<storage, read_write> packed_output: array<i32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
  let packed_idx: u32 = gid.x;
  if (packed_idx >= arrayLength(&packed_output)) {
    return;
  }
  let base_input_idx = packed_idx * 2u;
  if ((base_input_idx + 1u) >= arrayLength(&unpacked_input)) {
    packed_output[packed_idx] = 0;
    return;
  }
  let val0 = unpacked_input[base_input_idx + 0u];
  let val1 = unpacked_input[base_input_idx + 1u];
  var packed_result: i32 = 0;
  packed_result = packed_result | ((val0 & 0xFFFF) << 0u);
  packed_result = packed_result | ((val1 & 0xFFFF) << 16u);
  packed_output[packed_idx] = packed_result;
}
`

	kPackedUint16ToUint32Kernel = `
@group(0) @binding(0) var<storage, read_write> packed_input: array<u32>;
@group(0) @binding(1) var<storage, read_write> unpacked_output: array<u32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
  let packed_idx: u32 = gid.x;
  if (packed_idx >= arrayLength(&packed_input)) {
    return;
  }
  let packed_val = packed_input[packed_idx];
  let base_output_idx = packed_idx * 2u;
  if ((base_output_idx + 1u) >= arrayLength(&unpacked_output)) {
    return;
  }
  unpacked_output[base_output_idx + 0u] = (packed_val >> 0u) & 0xFFFFu;
  unpacked_output[base_output_idx + 1u] = (packed_val >> 16u) & 0xFFFFu;
}
`

	kUint32ToPackedUint16Kernel = `
@group(0) @binding(0) var<storage, read_write> unpacked_input: array<u32>;
@group(0) @binding(1) var<storage, read_write> packed_output: array<u32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
  let packed_idx: u32 = gid.x;
  if (packed_idx >= arrayLength(&packed_output)) {
    return;
  }
  let base_input_idx = packed_idx * 2u;
  if ((base_input_idx + 1u) >= arrayLength(&unpacked_input)) {
    packed_output[packed_idx] = 0u;
    return;
  }
  let val0 = unpacked_input[base_input_idx + 0u];
  let val1 = unpacked_input[base_input_idx + 1u];
  var packed_result: u32 = 0u;
  packed_result = packed_result | ((val0 & 0xFFFFu) << 0u);
  packed_result = packed_result | ((val1 & 0xFFFFu) << 16u);
  packed_output[packed_idx] = packed_result;
}
`

	// kPairCopyKernel moves one word-pair per logical element from
	// source to destination verbatim. WGSL has no native 64-bit scalar
	// type, so there is no GPU-side arithmetic equivalent of the CPU's
	// bit-cast split/reassemble for f64/i64/u64 (see buffer.go's
	// packHost/unpackHost, which do that work host-side); this kernel
	// is the device-resident counterpart for moving 64-bit-packed data
	// between two buffers at pair granularity without a host round-trip.
	kPairCopyKernel = `
@group(0) @binding(0) var<storage, read_write> pair_input: array<u32>;
@group(0) @binding(1) var<storage, read_write> pair_output: array<u32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
  let pair_idx: u32 = gid.x;
  let base = pair_idx * 2u;
  if ((base + 1u) >= arrayLength(&pair_output) || (base + 1u) >= arrayLength(&pair_input)) {
    return;
  }
  pair_output[base + 0u] = pair_input[base + 0u];
  pair_output[base + 1u] = pair_input[base + 1u];
}
`
)

type kernelKind int

const (
	kernelUnpackI8 kernelKind = iota
	kernelPackI8
	kernelUnpackU8
	kernelPackU8
	kernelUnpackI16
	kernelPackI16
	kernelUnpackU16
	kernelPackU16
	kernelPairCopy
)

// kernelShader returns the cached ComputeShader for kind, building it on
// first use. Reusing one ComputeShader per kernel kind across calls lets
// the pipeline cache do its job: source and slot count never change
// shape for a given kind, so only the bound buffers change between
// dispatches.
func (c *Context) kernelShader(kind kernelKind, source string) *ComputeShader {
	c.kernelsMu.Lock()
	defer c.kernelsMu.Unlock()
	if c.kernels == nil {
		c.kernels = make(map[kernelKind]*ComputeShader)
	}
	cs, ok := c.kernels[kind]
	if !ok {
		cs = NewComputeShader(c)
		cs.LoadKernelString(source)
		c.kernels[kind] = cs
	}
	return cs
}

// calculateGroups returns the number of workgroups of size 256 needed to
// cover n elements.
func calculateGroups(n uint64) int {
	return int(ceilDiv(n, 256))
}

// validateConversionDispatch checks that both buffers are non-nil and
// that the destination is large enough to hold the unpacked/packed
// result.
func validateConversionDispatch(src, dst *Buffer, expectedDstCount uint64) error {
	if src == nil || dst == nil {
		return newErr("dispatch_conversion", KindInvalidArgument, nil)
	}
	if dst.Count() < expectedDstCount {
		return newErr("dispatch_conversion", KindSizeMismatch, nil)
	}
	return nil
}

// DispatchPackedI8ToI32 unpacks a packed i8 buffer (packed.Count() words,
// each holding 4 sign-extended lanes) into an i32 buffer of at least
// packed.Count()*4 elements.
func DispatchPackedI8ToI32(ctx *Context, packed, unpacked *Buffer) error {
	if err := validateConversionDispatch(packed, unpacked, packed.Count()*4); err != nil {
		return err
	}
	cs := ctx.kernelShader(kernelUnpackI8, kPackedInt8ToInt32Kernel)
	if err := cs.SetBuffer(0, packed); err != nil {
		return err
	}
	if err := cs.SetBuffer(1, unpacked); err != nil {
		return err
	}
	return cs.Dispatch(calculateGroups(packed.Count()), 1, 1)
}

// DispatchI32ToPackedI8 packs the low 8 bits of every 4 consecutive i32
// elements into one packed-i8 word each.
func DispatchI32ToPackedI8(ctx *Context, unpacked, packed *Buffer) error {
	if err := validateConversionDispatch(unpacked, packed, ceilDiv(unpacked.Count(), 4)); err != nil {
		return err
	}
	cs := ctx.kernelShader(kernelPackI8, kInt32ToPackedInt8Kernel)
	if err := cs.SetBuffer(0, unpacked); err != nil {
		return err
	}
	if err := cs.SetBuffer(1, packed); err != nil {
		return err
	}
	return cs.Dispatch(calculateGroups(packed.Count()), 1, 1)
}

// DispatchPackedU8ToU32 is DispatchPackedI8ToI32's zero-extending
// unsigned counterpart.
func DispatchPackedU8ToU32(ctx *Context, packed, unpacked *Buffer) error {
	if err := validateConversionDispatch(packed, unpacked, packed.Count()*4); err != nil {
		return err
	}
	cs := ctx.kernelShader(kernelUnpackU8, kPackedUint8ToUint32Kernel)
	if err := cs.SetBuffer(0, packed); err != nil {
		return err
	}
	if err := cs.SetBuffer(1, unpacked); err != nil {
		return err
	}
	return cs.Dispatch(calculateGroups(packed.Count()), 1, 1)
}

// DispatchU32ToPackedU8 is DispatchI32ToPackedI8's unsigned counterpart.
func DispatchU32ToPackedU8(ctx *Context, unpacked, packed *Buffer) error {
	if err := validateConversionDispatch(unpacked, packed, ceilDiv(unpacked.Count(), 4)); err != nil {
		return err
	}
	cs := ctx.kernelShader(kernelPackU8, kUint32ToPackedUint8Kernel)
	if err := cs.SetBuffer(0, unpacked); err != nil {
		return err
	}
	if err := cs.SetBuffer(1, packed); err != nil {
		return err
	}
	return cs.Dispatch(calculateGroups(packed.Count()), 1, 1)
}

// DispatchPackedI16ToI32 unpacks a packed i16 buffer (2 sign-extended
// lanes per word) into an i32 buffer of at least packed.Count()*2
// elements.
func DispatchPackedI16ToI32(ctx *Context, packed, unpacked *Buffer) error {
	if err := validateConversionDispatch(packed, unpacked, packed.Count()*2); err != nil {
		return err
	}
	cs := ctx.kernelShader(kernelUnpackI16, kPackedInt16ToInt32Kernel)
	if err := cs.SetBuffer(0, packed); err != nil {
		return err
	}
	if err := cs.SetBuffer(1, unpacked); err != nil {
		return err
	}
	return cs.Dispatch(calculateGroups(packed.Count()), 1, 1)
}

// DispatchI32ToPackedI16 packs the low 16 bits of every 2 consecutive i32
// elements into one packed-i16 word each.
func DispatchI32ToPackedI16(ctx *Context, unpacked, packed *Buffer) error {
	if err := validateConversionDispatch(unpacked, packed, ceilDiv(unpacked.Count(), 2)); err != nil {
		return err
	}
	cs := ctx.kernelShader(kernelPackI16, kInt32ToPackedInt16Kernel)
	if err := cs.SetBuffer(0, unpacked); err != nil {
		return err
	}
	if err := cs.SetBuffer(1, packed); err != nil {
		return err
	}
	return cs.Dispatch(calculateGroups(packed.Count()), 1, 1)
}

// DispatchPackedU16ToU32 is DispatchPackedI16ToI32's zero-extending
// unsigned counterpart.
func DispatchPackedU16ToU32(ctx *Context, packed, unpacked *Buffer) error {
	if err := validateConversionDispatch(packed, unpacked, packed.Count()*2); err != nil {
		return err
	}
	cs := ctx.kernelShader(kernelUnpackU16, kPackedUint16ToUint32Kernel)
	if err := cs.SetBuffer(0, packed); err != nil {
		return err
	}
	if err := cs.SetBuffer(1, unpacked); err != nil {
		return err
	}
	return cs.Dispatch(calculateGroups(packed.Count()), 1, 1)
}

// DispatchU32ToPackedU16 is DispatchI32ToPackedI16's unsigned counterpart.
func DispatchU32ToPackedU16(ctx *Context, unpacked, packed *Buffer) error {
	if err := validateConversionDispatch(unpacked, packed, ceilDiv(unpacked.Count(), 2)); err != nil {
		return err
	}
	cs := ctx.kernelShader(kernelPackU16, kUint32ToPackedUint16Kernel)
	if err := cs.SetBuffer(0, unpacked); err != nil {
		return err
	}
	if err := cs.SetBuffer(1, packed); err != nil {
		return err
	}
	return cs.Dispatch(calculateGroups(packed.Count()), 1, 1)
}

// DispatchPairCopy moves src's 64-bit-packed word pairs into dst
// verbatim, one pair per logical element, for f64/i64/u64 buffers that
// are already device-resident. See kPairCopyKernel for why this is a
// copy rather than a numeric transform.
func DispatchPairCopy(ctx *Context, src, dst *Buffer) error {
	if err := validateConversionDispatch(src, dst, src.Count()); err != nil {
		return err
	}
	cs := ctx.kernelShader(kernelPairCopy, kPairCopyKernel)
	if err := cs.SetBuffer(0, src); err != nil {
		return err
	}
	if err := cs.SetBuffer(1, dst); err != nil {
		return err
	}
	return cs.Dispatch(calculateGroups(src.Count()), 1, 1)
}
