//go:build windows

package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trivialKernel = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
	if (gid.x >= arrayLength(&data)) {
		return;
	}
	data[gid.x] = data[gid.x] + 1u;
}
`

const otherKernel = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
	if (gid.x >= arrayLength(&data)) {
		return;
	}
	data[gid.x] = data[gid.x] * 2u;
}
`

// syncWorker blocks until every task enqueued on c's worker before this
// call has run, exploiting FIFO ordering to turn a fire-and-forget
// Dispatch into a synchronization point for assertions.
func syncWorker(t *testing.T, c *Context) {
	t.Helper()
	_, err := EnqueueSync(c.Worker(), func() bool { return true })
	require.NoError(t, err)
}

func TestIdenticalDispatchesRebuildOnce(t *testing.T) {
	c := newTestContext(t)
	buf, err := CreateBuffer(c, 16, U32)
	require.NoError(t, err)
	defer buf.Release()

	cs := NewComputeShader(c)
	defer cs.Release()

	for i := 0; i < 5; i++ {
		cs.LoadKernelString(trivialKernel)
		require.NoError(t, cs.SetBuffer(0, buf))
		require.NoError(t, cs.Dispatch(1, 1, 1))
	}
	syncWorker(t, c)

	pipelineRebuilds, bindGroupRebuilds := cs.RebuildCounts()
	assert.EqualValues(t, 1, pipelineRebuilds)
	assert.EqualValues(t, 1, bindGroupRebuilds)
}

func TestSourceChangeRebuildsPipelineAndBindings(t *testing.T) {
	c := newTestContext(t)
	buf, err := CreateBuffer(c, 16, U32)
	require.NoError(t, err)
	defer buf.Release()

	cs := NewComputeShader(c)
	defer cs.Release()

	cs.LoadKernelString(trivialKernel)
	require.NoError(t, cs.SetBuffer(0, buf))
	require.NoError(t, cs.Dispatch(1, 1, 1))

	cs.LoadKernelString(otherKernel)
	require.NoError(t, cs.Dispatch(1, 1, 1))
	syncWorker(t, c)

	pipelineRebuilds, bindGroupRebuilds := cs.RebuildCounts()
	assert.EqualValues(t, 2, pipelineRebuilds)
	assert.EqualValues(t, 2, bindGroupRebuilds)
}

func TestBindingOnlyChangeRebuildsOnlyBindGroup(t *testing.T) {
	c := newTestContext(t)
	bufA, err := CreateBuffer(c, 16, U32)
	require.NoError(t, err)
	defer bufA.Release()
	bufB, err := CreateBuffer(c, 16, U32)
	require.NoError(t, err)
	defer bufB.Release()

	cs := NewComputeShader(c)
	defer cs.Release()

	cs.LoadKernelString(trivialKernel)
	require.NoError(t, cs.SetBuffer(0, bufA))
	require.NoError(t, cs.Dispatch(1, 1, 1))

	require.NoError(t, cs.SetBuffer(0, bufB))
	require.NoError(t, cs.Dispatch(1, 1, 1))
	syncWorker(t, c)

	pipelineRebuilds, bindGroupRebuilds := cs.RebuildCounts()
	assert.EqualValues(t, 1, pipelineRebuilds)
	assert.EqualValues(t, 2, bindGroupRebuilds)
}

func TestHasKernelReflectsLoadState(t *testing.T) {
	c := newTestContext(t)
	cs := NewComputeShader(c)
	defer cs.Release()

	assert.False(t, cs.HasKernel())
	cs.LoadKernelString(trivialKernel)
	assert.True(t, cs.HasKernel())
}

func TestSetBufferNegativeSlotFails(t *testing.T) {
	c := newTestContext(t)
	buf, err := CreateBuffer(c, 4, U32)
	require.NoError(t, err)
	defer buf.Release()

	cs := NewComputeShader(c)
	defer cs.Release()

	err = cs.SetBuffer(-1, buf)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
