//go:build windows

package webgpu

import (
	"regexp"
	"strconv"
)

// bindingDecl matches the @binding(N) declarations in a WGSL source.
var bindingDecl = regexp.MustCompile(`@binding\((\d+)\)`)

// Workgroup dispatch limits: at most 65535 workgroups in the X
// dimension, and at most 256*65535 total invocations across the grid
// (workgroup size 256 is the convention every kernel in this package
// uses, see kernels.go).
const (
	maxWorkgroupsX      = 65535
	maxTotalInvocations = 256 * 65535
)

// Dispatch encodes and submits a compute pass: set pipeline, set bind
// group 0, dispatch workgroups (gx, gy, gz), end pass, finish, submit.
// Runs entirely on the worker; Dispatch itself is fire-and-forget — it
// returns as soon as the task is enqueued, not when the GPU has run it.
func (cs *ComputeShader) Dispatch(gx, gy, gz int) error {
	return cs.dispatch(gx, gy, gz, nil)
}

// DispatchAsync is identical to Dispatch except callback (nullary) runs
// on the worker after submission. Submission completion is not GPU
// completion: callers that need GPU completion must follow with a Read.
func (cs *ComputeShader) DispatchAsync(gx, gy, gz int, callback func()) error {
	return cs.dispatch(gx, gy, gz, callback)
}

func (cs *ComputeShader) dispatch(gx, gy, gz int, callback func()) error {
	if gx <= 0 || gy <= 0 || gz <= 0 {
		return nil
	}
	if err := checkWorkgroupLimits(gx, gy, gz); err != nil {
		logger.Printf("webgpu: dispatch: %v", err)
		if callback != nil {
			_ = cs.ctx.worker.EnqueueAsync(callback)
		}
		return err
	}

	return cs.ctx.worker.EnqueueAsync(func() {
		if callback != nil {
			defer callback()
		}

		if !cs.HasKernel() {
			logger.Printf("webgpu: dispatch: skipped, no kernel source loaded")
			return
		}
		slots := cs.slotsSnapshot()
		for _, s := range slots {
			if s == nil {
				logger.Printf("webgpu: dispatch: skipped, unbound binding slot")
				return
			}
		}
		cs.mu.Lock()
		source := cs.source
		cs.mu.Unlock()
		for _, m := range bindingDecl.FindAllStringSubmatch(source, -1) {
			n, convErr := strconv.Atoi(m[1])
			if convErr != nil || n >= len(slots) {
				logger.Printf("webgpu: dispatch: skipped, unbound binding slot")
				return
			}
		}

		cs.ctx.worker.SharedMu.Lock()
		defer cs.ctx.worker.SharedMu.Unlock()

		device, err := cs.ctx.deviceLocked()
		if err != nil {
			logger.Printf("webgpu: dispatch: %v", err)
			return
		}
		for _, s := range cs.slotsSnapshot() {
			if s != nil && s.handle != nil && s.gen != cs.ctx.generation() {
				logger.Printf("webgpu: dispatch: skipped, stale buffer binding from a lost device")
				return
			}
		}
		if err := cs.updateIfNeeded(device); err != nil {
			logger.Printf("webgpu: dispatch: %v", err)
			return
		}
		queue, err := cs.ctx.queueLocked()
		if err != nil {
			logger.Printf("webgpu: dispatch: %v", err)
			return
		}

		encoder := device.CreateCommandEncoder(nil)
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(cs.pipeline)
		pass.SetBindGroup(0, cs.bindGroup, nil)
		pass.DispatchWorkgroups(uint32(gx), uint32(gy), uint32(gz))
		pass.End()

		cmd := encoder.Finish(nil)
		queue.Submit(cmd)
	})
}

// checkWorkgroupLimits validates a dispatch's grid against the backend's
// workgroup limits before it's handed to the worker. The total-invocation
// cap already bounds every dimension at 65535 groups, so each is checked
// individually first — that also keeps the product below 2^48 and the
// multiplication free of uint64 overflow.
func checkWorkgroupLimits(gx, gy, gz int) error {
	if gx > maxWorkgroupsX || gy > maxWorkgroupsX || gz > maxWorkgroupsX {
		return newErr("dispatch", KindDispatchTooLarge, nil)
	}
	total := uint64(gx) * uint64(gy) * uint64(gz) * 256
	if total > maxTotalInvocations {
		return newErr("dispatch", KindDispatchTooLarge, nil)
	}
	return nil
}
