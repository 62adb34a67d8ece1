package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredBytesDirectTypes(t *testing.T) {
	assert.Equal(t, uint64(40), RequiredBytes(F32, 10))
	assert.Equal(t, uint64(40), RequiredBytes(I32, 10))
	assert.Equal(t, uint64(40), RequiredBytes(U32, 10))
}

func TestRequiredBytes8BitPacked(t *testing.T) {
	assert.Equal(t, uint64(4), RequiredBytes(I8, 1))
	assert.Equal(t, uint64(4), RequiredBytes(I8, 4))
	assert.Equal(t, uint64(8), RequiredBytes(I8, 5))
	assert.Equal(t, uint64(8), RequiredBytes(U8, 5))
}

func TestRequiredBytes16BitPacked(t *testing.T) {
	assert.Equal(t, uint64(4), RequiredBytes(I16, 1))
	assert.Equal(t, uint64(4), RequiredBytes(I16, 2))
	assert.Equal(t, uint64(8), RequiredBytes(I16, 3))
	assert.Equal(t, uint64(8), RequiredBytes(U16, 3))
}

func TestRequiredBytes64BitPacked(t *testing.T) {
	assert.Equal(t, uint64(80), RequiredBytes(F64, 10))
	assert.Equal(t, uint64(80), RequiredBytes(I64, 10))
	assert.Equal(t, uint64(80), RequiredBytes(U64, 10))
}

func TestNeedsPacking(t *testing.T) {
	for _, direct := range []LogicalType{F32, I32, U32} {
		assert.False(t, direct.NeedsPacking(), "%s should not need packing", direct)
	}
	for _, packed := range []LogicalType{F64, I8, I16, I64, U8, U16, U64} {
		assert.True(t, packed.NeedsPacking(), "%s should need packing", packed)
	}
}

func TestAlignUp4(t *testing.T) {
	assert.Equal(t, uint64(0), alignUp4(0))
	assert.Equal(t, uint64(4), alignUp4(1))
	assert.Equal(t, uint64(4), alignUp4(4))
	assert.Equal(t, uint64(8), alignUp4(5))
}

func TestLogicalTypeFromCodeF16AliasesF32(t *testing.T) {
	typ, degraded := LogicalTypeFromCode(TypeCodeF16)
	assert.Equal(t, F32, typ)
	assert.True(t, degraded)
}

func TestLogicalTypeFromCodeUnknownDegrades(t *testing.T) {
	typ, degraded := LogicalTypeFromCode(TypeCode(99))
	assert.Equal(t, F32, typ)
	assert.True(t, degraded)
}

func TestLogicalTypeFromCodeKnownCodes(t *testing.T) {
	cases := map[TypeCode]LogicalType{
		TypeCodeF32: F32, TypeCodeF64: F64,
		TypeCodeI8: I8, TypeCodeI16: I16, TypeCodeI32: I32, TypeCodeI64: I64,
		TypeCodeU8: U8, TypeCodeU16: U16, TypeCodeU32: U32, TypeCodeU64: U64,
	}
	for code, want := range cases {
		got, degraded := LogicalTypeFromCode(code)
		assert.Equal(t, want, got)
		assert.False(t, degraded)
	}
}
