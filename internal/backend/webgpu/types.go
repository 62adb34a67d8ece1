package webgpu

// LogicalType is the type the caller asked to store. WebGPU storage buffers
// natively address only f32/i32/u32; every other LogicalType is packed into
// a 32-bit surrogate on device (see NeedsPacking).
type LogicalType int

const (
	F32 LogicalType = iota
	F64
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
)

func (t LogicalType) String() string {
	switch t {
	case F32:
		return "f32"
	case F64:
		return "f64"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	default:
		return "unknown"
	}
}

// HostElementSize is the size in bytes of one logical element as the host
// sees it (1, 2, 4, or 8).
func (t LogicalType) HostElementSize() uint64 {
	switch t {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case F32, I32, U32:
		return 4
	case F64, I64, U64:
		return 8
	default:
		return 4
	}
}

// NeedsPacking reports whether the logical type is stored on device as a
// 32-bit surrogate rather than directly. True for everything except the
// three WebGPU-native scalar types.
func (t LogicalType) NeedsPacking() bool {
	switch t {
	case F32, I32, U32:
		return false
	default:
		return true
	}
}

// nativeReadStride is the stride, in bytes, of one unit of the mapped
// staging region for this type: 4 for 8/16-bit packed (one word holds
// several lanes), 8 for 64-bit packed (one pair of words), and the host
// element size for direct types.
func (t LogicalType) nativeReadStride() uint64 {
	switch t {
	case I8, U8, I16, U16:
		return 4
	case F64, I64, U64:
		return 8
	default:
		return t.HostElementSize()
	}
}

// RequiredBytes is the minimum physical buffer size, in bytes, needed to
// hold count logical elements of type t:
//   - direct types (f32/i32/u32): count * 4
//   - 8-bit packed:  ceil(count/4) * 4
//   - 16-bit packed: ceil(count/2) * 4
//   - 64-bit packed (f64/i64/u64): count * 8
func RequiredBytes(t LogicalType, count uint64) uint64 {
	switch t {
	case F32, I32, U32:
		return count * 4
	case I8, U8:
		return ceilDiv(count, 4) * 4
	case I16, U16:
		return ceilDiv(count, 2) * 4
	case F64, I64, U64:
		return count * 8
	default:
		return count * 4
	}
}

// alignUp4 rounds n up to the next multiple of 4, with a floor of 4 for
// any nonzero input (every physical buffer size must be >= 4 and 4-byte
// aligned).
func alignUp4(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	aligned := (n + 3) &^ 3
	if aligned < 4 {
		return 4
	}
	return aligned
}

func ceilDiv(a, b uint64) uint64 {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// TypeCode is the fixed integer enumeration the C-ABI surface uses for
// logical types: {0: f16-alias-f32, 1: f32, 2: f64, 3: i8, 4: i16, 5: i32,
// 6: i64, 7: u8, 8: u16, 9: u32, 10: u64}. Code 0 (f16) has no true
// half-precision path in this runtime; it degrades to F32 with a logged
// warning.
type TypeCode int

const (
	TypeCodeF16 TypeCode = 0
	TypeCodeF32 TypeCode = 1
	TypeCodeF64 TypeCode = 2
	TypeCodeI8  TypeCode = 3
	TypeCodeI16 TypeCode = 4
	TypeCodeI32 TypeCode = 5
	TypeCodeI64 TypeCode = 6
	TypeCodeU8  TypeCode = 7
	TypeCodeU16 TypeCode = 8
	TypeCodeU32 TypeCode = 9
	TypeCodeU64 TypeCode = 10
)

// LogicalTypeFromCode maps a C-ABI type code to a LogicalType. Unknown
// codes and the f16 alias both degrade to F32; degraded reports whether
// degradation happened so the caller can log a warning.
func LogicalTypeFromCode(code TypeCode) (t LogicalType, degraded bool) {
	switch code {
	case TypeCodeF16:
		return F32, true
	case TypeCodeF32:
		return F32, false
	case TypeCodeF64:
		return F64, false
	case TypeCodeI8:
		return I8, false
	case TypeCodeI16:
		return I16, false
	case TypeCodeI32:
		return I32, false
	case TypeCodeI64:
		return I64, false
	case TypeCodeU8:
		return U8, false
	case TypeCodeU16:
		return U16, false
	case TypeCodeU32:
		return U32, false
	case TypeCodeU64:
		return U64, false
	default:
		return F32, true
	}
}
