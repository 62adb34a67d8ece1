//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// ComputeShader owns a pipeline cache: shader module, compute pipeline,
// the bind-group layout derived from it, and the bind group, built from a
// kernel source string and an ordered list of binding slots. Cache
// artifacts are never shared across ComputeShader values — each handle
// owns its own.
//
// Dirty bits drive minimal rebuilds: pipelineDirty (kernel-source
// change) forces a rebuild of shader module, pipeline, and the layout
// derived from it, and implies bindingsDirty; bindingsDirty (any slot
// add/replace/clear) forces only a bind-group rebuild. Workgroup size is
// declared in-shader in WGSL, so a group-size change is already a
// kernel-source change and already sets pipelineDirty.
//
// The pipeline is created with an auto layout (nil layout argument) and
// the bind-group layout fetched back from it with GetBindGroupLayout(0);
// the shader's own @group(0) @binding(N) declarations are the source of
// truth for which slots exist, so an explicit layout would only restate
// them.
type ComputeShader struct {
	ctx *Context

	mu     sync.Mutex
	source string
	slots  []*Buffer

	pipelineDirty bool
	bindingsDirty bool

	shaderModule    *wgpu.ShaderModule
	pipeline        *wgpu.ComputePipeline
	bindGroupLayout *wgpu.BindGroupLayout
	bindGroup       *wgpu.BindGroup

	// rebuildCounts supports the testable property that N consecutive
	// dispatches with identical kernel/bindings/group-size rebuild
	// exactly once.
	rebuildCounts struct {
		pipeline  uint64
		bindGroup uint64
	}
}

// NewComputeShader creates an empty ComputeShader bound to ctx. Load a
// kernel and bind buffers before dispatching.
func NewComputeShader(ctx *Context) *ComputeShader {
	return &ComputeShader{ctx: ctx}
}

// LoadKernelString sets the WGSL source. A no-op if the source is
// unchanged (common when the same kernel is loaded repeatedly); otherwise
// marks the pipeline dirty.
func (cs *ComputeShader) LoadKernelString(source string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.source == source {
		return
	}
	cs.source = source
	cs.pipelineDirty = true
}

// HasKernel reports whether a non-empty kernel source has been loaded.
func (cs *ComputeShader) HasKernel() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.source != ""
}

// SetBuffer binds buf to slot. A no-op if the slot already holds the same
// buffer pointer; otherwise marks bindings dirty. slot must be
// non-negative.
func (cs *ComputeShader) SetBuffer(slot int, buf *Buffer) error {
	if slot < 0 {
		return newErr("set_buffer", KindInvalidArgument, nil)
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if slot >= len(cs.slots) {
		grown := make([]*Buffer, slot+1)
		copy(grown, cs.slots)
		cs.slots = grown
	}
	if cs.slots[slot] == buf {
		return nil
	}
	cs.slots[slot] = buf
	cs.bindingsDirty = true
	return nil
}

// slotsSnapshot returns a defensive copy of the current binding slots for
// validation without holding the lock across driver calls.
func (cs *ComputeShader) slotsSnapshot() []*Buffer {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]*Buffer, len(cs.slots))
	copy(out, cs.slots)
	return out
}

// updateIfNeeded rebuilds the minimum set of pipeline artifacts. Must be
// called on the worker with the shared-resource mutex held (the caller's
// responsibility, per the dispatch sequencing).
func (cs *ComputeShader) updateIfNeeded(device *wgpu.Device) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.pipelineDirty {
		if !cs.rebuildPipelineLocked(device) {
			return newErr("dispatch", KindDriverUnavailable, nil)
		}
		cs.pipelineDirty = false
		cs.bindingsDirty = true // layout changed, bind group must be rebuilt
		cs.rebuildCounts.pipeline++
	}
	if cs.bindingsDirty {
		if !cs.rebuildBindGroupLocked(device) {
			return newErr("dispatch", KindDriverUnavailable, nil)
		}
		cs.bindingsDirty = false
		cs.rebuildCounts.bindGroup++
	}
	return nil
}

// rebuildPipelineLocked recompiles the shader module, builds a pipeline
// with an auto layout and entry point "main", and fetches the bind-group
// layout back from it. Rebuilding releases the predecessors; the layout
// is owned by the pipeline and is not released separately.
func (cs *ComputeShader) rebuildPipelineLocked(device *wgpu.Device) bool {
	if cs.pipeline != nil {
		cs.pipeline.Release()
		cs.pipeline = nil
		cs.bindGroupLayout = nil
	}
	if cs.shaderModule != nil {
		cs.shaderModule.Release()
		cs.shaderModule = nil
	}

	module := device.CreateShaderModuleWGSL(cs.source)
	if module == nil {
		return false
	}
	pipeline := device.CreateComputePipelineSimple(nil, module, "main")
	if pipeline == nil {
		module.Release()
		return false
	}

	cs.shaderModule = module
	cs.pipeline = pipeline
	cs.bindGroupLayout = pipeline.GetBindGroupLayout(0)
	return cs.bindGroupLayout != nil
}

// rebuildBindGroupLocked builds a bind group matching the layout, each
// non-empty slot bound to the full extent of its buffer.
func (cs *ComputeShader) rebuildBindGroupLocked(device *wgpu.Device) bool {
	if cs.bindGroup != nil {
		cs.bindGroup.Release()
		cs.bindGroup = nil
	}
	entries := make([]wgpu.BindGroupEntry, 0, len(cs.slots))
	for i, buf := range cs.slots {
		if buf == nil || buf.handle == nil {
			continue
		}
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buf.handle, 0, buf.physicalBytes))
	}
	bg := device.CreateBindGroupSimple(cs.bindGroupLayout, entries)
	if bg == nil {
		return false
	}
	cs.bindGroup = bg
	return true
}

// RebuildCounts reports how many times the pipeline and bind-group
// artifacts have been rebuilt, for the "rebuilds exactly once" testable
// property.
func (cs *ComputeShader) RebuildCounts() (pipeline, bindGroup uint64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.rebuildCounts.pipeline, cs.rebuildCounts.bindGroup
}

// Release destroys the pipeline artifacts via the worker, deferred so
// they run on the GPU-owning thread. Safe to call more than once.
func (cs *ComputeShader) Release() {
	cs.mu.Lock()
	module, pipeline, bindGroup := cs.shaderModule, cs.pipeline, cs.bindGroup
	cs.shaderModule, cs.pipeline, cs.bindGroupLayout, cs.bindGroup = nil, nil, nil, nil
	cs.mu.Unlock()

	_ = cs.ctx.worker.EnqueueAsync(func() {
		if bindGroup != nil {
			bindGroup.Release()
		}
		if pipeline != nil {
			pipeline.Release()
		}
		if module != nil {
			module.Release()
		}
	})
}
