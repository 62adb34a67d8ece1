//go:build windows

package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A compute shader that adds 1 to every element of a 16-element u32
// buffer, dispatched over one workgroup, produces all-ones from an input
// of zeros.
func TestAddOneDispatch(t *testing.T) {
	c := newTestContext(t)
	buf, err := CreateBuffer(c, 16, U32)
	require.NoError(t, err)
	defer buf.Release()
	require.NoError(t, Write(buf, make([]uint32, 16)))

	cs := NewComputeShader(c)
	defer cs.Release()
	cs.LoadKernelString(trivialKernel)
	require.NoError(t, cs.SetBuffer(0, buf))
	require.NoError(t, cs.Dispatch(1, 1, 1))

	out := make([]uint32, 16)
	_, err = Read(buf, out, 16, 0)
	require.NoError(t, err)
	want := make([]uint32, 16)
	for i := range want {
		want[i] = 1
	}
	assert.Equal(t, want, out)
}

func TestDispatchRejectsOversizedWorkgroupCountX(t *testing.T) {
	c := newTestContext(t)
	cs := NewComputeShader(c)
	defer cs.Release()

	err := cs.Dispatch(maxWorkgroupsX+1, 1, 1)
	assert.ErrorIs(t, err, ErrDispatchTooLarge)
}

func TestDispatchRejectsTotalInvocationsOverLimit(t *testing.T) {
	c := newTestContext(t)
	cs := NewComputeShader(c)
	defer cs.Release()

	err := cs.Dispatch(maxWorkgroupsX, maxWorkgroupsX, 1)
	assert.ErrorIs(t, err, ErrDispatchTooLarge)
}

func TestDispatchRejectsHugeGridWithoutOverflowWrap(t *testing.T) {
	c := newTestContext(t)
	cs := NewComputeShader(c)
	defer cs.Release()

	// Dimensions large enough that a naive uint64 product of the grid
	// would wrap back under the invocation limit.
	err := cs.Dispatch(2, 1<<31, 1<<31)
	assert.ErrorIs(t, err, ErrDispatchTooLarge)

	err = cs.Dispatch(1, maxWorkgroupsX+1, 1)
	assert.ErrorIs(t, err, ErrDispatchTooLarge)

	err = cs.Dispatch(1, 1, maxWorkgroupsX+1)
	assert.ErrorIs(t, err, ErrDispatchTooLarge)
}

func TestDispatchNonPositiveDimsIsNoOp(t *testing.T) {
	c := newTestContext(t)
	cs := NewComputeShader(c)
	defer cs.Release()

	assert.NoError(t, cs.Dispatch(0, 1, 1))
	assert.NoError(t, cs.Dispatch(1, -1, 1))
	assert.NoError(t, cs.Dispatch(1, 1, 0))
}

func TestDispatchWithoutKernelSkipsButStillCompletes(t *testing.T) {
	c := newTestContext(t)
	cs := NewComputeShader(c)
	defer cs.Release()

	done := make(chan struct{})
	require.NoError(t, cs.DispatchAsync(1, 1, 1, func() { close(done) }))
	<-done

	pipelineRebuilds, bindGroupRebuilds := cs.RebuildCounts()
	assert.Zero(t, pipelineRebuilds)
	assert.Zero(t, bindGroupRebuilds)
}

func TestDispatchWithUnboundSlotSkipsButStillCompletes(t *testing.T) {
	c := newTestContext(t)
	buf, err := CreateBuffer(c, 4, U32)
	require.NoError(t, err)
	defer buf.Release()

	cs := NewComputeShader(c)
	defer cs.Release()
	cs.LoadKernelString(`
@group(0) @binding(0) var<storage, read_write> a: array<u32>;
@group(0) @binding(1) var<storage, read_write> b: array<u32>;
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {}
`)
	require.NoError(t, cs.SetBuffer(0, buf))
	// slot 1 never bound

	done := make(chan struct{})
	require.NoError(t, cs.DispatchAsync(1, 1, 1, func() { close(done) }))
	<-done

	pipelineRebuilds, _ := cs.RebuildCounts()
	assert.Zero(t, pipelineRebuilds, "should skip before touching the pipeline cache")
}

func TestDispatchValidationFailureStillFiresCallback(t *testing.T) {
	c := newTestContext(t)
	cs := NewComputeShader(c)
	defer cs.Release()

	done := make(chan struct{})
	err := cs.DispatchAsync(maxWorkgroupsX+1, 1, 1, func() { close(done) })
	assert.ErrorIs(t, err, ErrDispatchTooLarge)
	<-done
}
