//go:build windows

package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packI8Word lays out 4 i8 lanes into one 32-bit word, little lane first,
// mirroring kPackedInt8ToInt32Kernel's bit layout.
func packI8Word(lanes [4]int8) int32 {
	w := uint32(uint8(lanes[0])) | uint32(uint8(lanes[1]))<<8 |
		uint32(uint8(lanes[2]))<<16 | uint32(uint8(lanes[3]))<<24
	return int32(w)
}

// packU16Word lays out 2 u16 lanes into one 32-bit word.
func packU16Word(lo, hi uint16) uint32 {
	return uint32(lo) | uint32(hi)<<16
}

// The 8/16-bit conversion kernels address their packed side in units of
// whole 32-bit words, not logical lane count, so the packed-side Buffer
// here is a plain I32/U32 buffer of word values built by hand — not a
// Buffer created with LogicalType I8/U16 (that would size itself in
// lanes and pack/unpack host-side per buffer.go, a different path).
func TestDispatchPackedI8ToI32RoundTrip(t *testing.T) {
	c := newTestContext(t)

	lanes := [4]int8{1, -2, 3, -4}
	packed, err := CreateBuffer(c, 1, I32)
	require.NoError(t, err)
	defer packed.Release()
	require.NoError(t, Write(packed, []int32{packI8Word(lanes)}))

	unpacked, err := CreateBuffer(c, 4, I32)
	require.NoError(t, err)
	defer unpacked.Release()

	require.NoError(t, DispatchPackedI8ToI32(c, packed, unpacked))

	out := make([]int32, 4)
	_, err = Read(unpacked, out, 4, 0)
	require.NoError(t, err)
	for i, want := range lanes {
		assert.EqualValues(t, want, out[i], "lane %d", i)
	}
}

func TestDispatchI32ToPackedI8RoundTrip(t *testing.T) {
	c := newTestContext(t)

	unpacked, err := CreateBuffer(c, 4, I32)
	require.NoError(t, err)
	defer unpacked.Release()
	require.NoError(t, Write(unpacked, []int32{10, -20, 30, -40}))

	packed, err := CreateBuffer(c, 1, I32)
	require.NoError(t, err)
	defer packed.Release()

	require.NoError(t, DispatchI32ToPackedI8(c, unpacked, packed))

	out := make([]int32, 1)
	_, err = Read(packed, out, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, packI8Word([4]int8{10, -20, 30, -40}), out[0])
}

func TestDispatchPackedU16ToU32RoundTrip(t *testing.T) {
	c := newTestContext(t)

	packed, err := CreateBuffer(c, 1, U32)
	require.NoError(t, err)
	defer packed.Release()
	require.NoError(t, Write(packed, []uint32{packU16Word(300, 400)}))

	unpacked, err := CreateBuffer(c, 2, U32)
	require.NoError(t, err)
	defer unpacked.Release()

	require.NoError(t, DispatchPackedU16ToU32(c, packed, unpacked))

	out := make([]uint32, 2)
	_, err = Read(unpacked, out, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{300, 400}, out)
}

func TestDispatchU32ToPackedU16RoundTrip(t *testing.T) {
	c := newTestContext(t)

	unpacked, err := CreateBuffer(c, 2, U32)
	require.NoError(t, err)
	defer unpacked.Release()
	require.NoError(t, Write(unpacked, []uint32{500, 600}))

	packed, err := CreateBuffer(c, 1, U32)
	require.NoError(t, err)
	defer packed.Release()

	require.NoError(t, DispatchU32ToPackedU16(c, unpacked, packed))

	out := make([]uint32, 1)
	_, err = Read(packed, out, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, packU16Word(500, 600), out[0])
}

func TestDispatchPairCopyPreserves64BitWords(t *testing.T) {
	c := newTestContext(t)

	src, err := CreateBuffer(c, 4, F64)
	require.NoError(t, err)
	defer src.Release()
	data := []float64{1.5, -2.5, 3.25, -4.125}
	require.NoError(t, Write(src, data))

	dst, err := CreateBuffer(c, 4, F64)
	require.NoError(t, err)
	defer dst.Release()

	require.NoError(t, DispatchPairCopy(c, src, dst))

	out := make([]float64, 4)
	_, err = Read(dst, out, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestValidateConversionDispatchRejectsUndersizedDestination(t *testing.T) {
	c := newTestContext(t)

	packed, err := CreateBuffer(c, 2, I32) // 2 words -> needs 8 unpacked elements
	require.NoError(t, err)
	defer packed.Release()

	undersized, err := CreateBuffer(c, 4, I32) // needs 8, has 4
	require.NoError(t, err)
	defer undersized.Release()

	err = DispatchPackedI8ToI32(c, packed, undersized)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestCalculateGroups(t *testing.T) {
	assert.Equal(t, 1, calculateGroups(1))
	assert.Equal(t, 1, calculateGroups(256))
	assert.Equal(t, 2, calculateGroups(257))
	assert.Equal(t, 0, calculateGroups(0))
}
