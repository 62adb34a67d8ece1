//go:build windows

package webgpu

import (
	"github.com/go-webgpu/webgpu/wgpu"
)

// stagingRead bridges a device storage buffer and host memory for
// readback. It copies byteSize bytes starting at byteOffset from src into
// a short-lived staging buffer, maps it for reading, pumps the device
// until the map completes, and returns a copy of the mapped bytes.
//
// Lifetime spans exactly this call: the staging buffer (pooled when
// possible, see bufferpool.go) is released/returned before stagingRead
// returns.
//
// Always called from within a task already running on the worker (see
// buffer.go's readWorkerLocked), so it uses the non-enqueuing deviceLocked /
// queueLocked accessors rather than Device/Queue.
func (c *Context) stagingRead(src *wgpu.Buffer, byteOffset, byteSize uint64) ([]byte, error) {
	device, err := c.deviceLocked()
	if err != nil {
		return nil, err
	}
	queue, err := c.queueLocked()
	if err != nil {
		return nil, err
	}

	alignedSize := alignUp4(byteSize)

	staging := c.pool.acquire(alignedSize)
	if staging == nil {
		staging = device.CreateBuffer(&wgpu.BufferDescriptor{
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
			Size:  alignedSize,
		})
	}

	encoder := device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, byteOffset, staging, 0, byteSize)
	cmd := encoder.Finish(nil)
	queue.Submit(cmd)

	if mapErr := staging.MapAsync(device, wgpu.MapModeRead, 0, byteSize); mapErr != nil {
		c.pool.release(staging, alignedSize)
		return nil, newErr("read", KindMapFailed, mapErr)
	}

	mapped := staging.GetMappedRange(0, byteSize)
	out := make([]byte, byteSize)
	copyFromMapped(out, mapped, byteSize)
	staging.Unmap()

	c.pool.release(staging, alignedSize)
	return out, nil
}
