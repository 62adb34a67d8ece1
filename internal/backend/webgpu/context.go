//go:build windows

package webgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-webgpu/webgpu/wgpu"
)

// state is the Device Context's state machine:
// Uninitialized -> Initializing -> Ready -> Lost -> Initializing -> Ready -> Destroyed.
// Lost is reachable only from Ready, and only via the device-lost callback.
type state int32

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
	stateLost
	stateDestroyed
)

// Context owns the driver instance, adapter, device, and queue. It is
// created lazily on first use and destroyed explicitly or on device-lost
// (in which case the flag is cleared but the object is retained for
// re-initialization).
type Context struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	adapterInfo *wgpu.AdapterInfo

	initialized atomic.Bool
	st          atomic.Int32

	// gen counts successful (re-)initializations. Buffers record the
	// generation they were created under; after a device loss the next
	// re-init bumps it, and operations on buffers from the old device
	// fail with invalid-state instead of touching a dead handle.
	gen atomic.Uint64

	worker *Worker
	pool   *bufferPool

	kernelsMu sync.Mutex
	kernels   map[kernelKind]*ComputeShader

	// OnDeviceLost, if set, is invoked (in addition to the internal
	// handling that clears initialized) when NotifyDeviceLost fires.
	// Must not block or recursively acquire device resources.
	OnDeviceLost func(reason string)

	stats stats
}

// NewContext creates a Context without initializing the driver. Call
// Initialize (or let any operation trigger EnsureValid) before use.
func NewContext() *Context {
	c := &Context{worker: NewWorker()}
	c.st.Store(int32(stateUninitialized))
	c.pool = newBufferPool()
	return c
}

// Initialize is idempotent and returns only when adapter, device, and
// queue are live. Runs on the worker.
func (c *Context) Initialize() error {
	_, err := EnqueueSync(c.worker, func() error {
		return c.initLocked()
	})
	return err
}

// InitializeAsync runs Initialize on the worker and invokes callback
// (nullary, on the worker) once it completes, regardless of outcome.
func (c *Context) InitializeAsync(callback func()) error {
	return c.worker.EnqueueAsync(func() {
		_ = c.initLocked()
		if callback != nil {
			callback()
		}
	})
}

func (c *Context) initLocked() (err error) {
	if c.initialized.Load() {
		return nil
	}
	// A re-init after device loss still holds the dead handles and any
	// staging buffers pooled against them: tear down before rebuilding.
	c.pool.clear()
	if c.queue != nil {
		c.queue.Release()
		c.queue = nil
	}
	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
	c.st.Store(int32(stateInitializing))

	defer func() {
		if r := recover(); r != nil {
			err = newErr("initialize", KindDriverUnavailable, fmt.Errorf("%v", r))
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return newErr("initialize", KindDriverUnavailable, adapterErr)
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return newErr("initialize", KindDriverUnavailable, deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return newErr("initialize", KindDriverUnavailable, fmt.Errorf("no queue"))
	}

	info := adapter.GetInfo()

	c.instance = instance
	c.adapter = adapter
	c.device = device
	c.queue = queue
	c.adapterInfo = &info

	c.initialized.Store(true)
	c.st.Store(int32(stateReady))
	c.gen.Add(1)
	return nil
}

// generation returns the current device generation, bumped on every
// successful (re-)initialization.
func (c *Context) generation() uint64 {
	return c.gen.Load()
}

// NotifyDeviceLost is the device-lost handler. The wgpu binding exposes
// no lost-callback registration on RequestDevice, so embedders wire this
// to whatever loss signal their host surface provides (a browser
// device.lost promise, a driver error hook); failed driver calls on a
// dead device surface through the normal error paths either way. It must
// not block or recursively acquire device resources: it logs, clears the
// initialized flag, marks the state lost, and calls OnDeviceLost if set.
// Subsequent accessors observe the cleared flag and re-initialize on next
// use.
func (c *Context) NotifyDeviceLost(message string) {
	logger.Printf("webgpu: device lost: %s", message)
	c.initialized.Store(false)
	c.st.Store(int32(stateLost))
	if c.OnDeviceLost != nil {
		c.OnDeviceLost(message)
	}
}

// EnsureValid re-initializes the context if the device was lost since the
// last access. Safe to call from any goroutine; the actual work happens
// on the worker.
func (c *Context) EnsureValid() error {
	if c.initialized.Load() {
		return nil
	}
	if state(c.st.Load()) == stateDestroyed {
		return newErr("ensure_valid", KindInvalidState, nil)
	}
	return c.Initialize()
}

// Device returns the live device, triggering re-initialization if needed.
// Must not be called from a function already running on the worker (it
// may enqueue onto the same worker via EnsureValid -> Initialize and
// deadlock); such callers use deviceLocked instead.
func (c *Context) Device() (*wgpu.Device, error) {
	if err := c.EnsureValid(); err != nil {
		return nil, err
	}
	return c.device, nil
}

// Queue returns the live queue, triggering re-initialization if needed.
// Same restriction as Device: not for use from within a worker task.
func (c *Context) Queue() (*wgpu.Queue, error) {
	if err := c.EnsureValid(); err != nil {
		return nil, err
	}
	return c.queue, nil
}

// deviceLocked and queueLocked are Device/Queue's counterparts for code
// that is already running on the worker goroutine: re-initializing in
// place (via initLocked, no enqueue) rather than through EnsureValid's
// EnqueueSync, which would deadlock against the very task calling it.
func (c *Context) deviceLocked() (*wgpu.Device, error) {
	if !c.initialized.Load() {
		if state(c.st.Load()) == stateDestroyed {
			return nil, newErr("ensure_valid", KindInvalidState, nil)
		}
		if err := c.initLocked(); err != nil {
			return nil, err
		}
	}
	return c.device, nil
}

func (c *Context) queueLocked() (*wgpu.Queue, error) {
	if !c.initialized.Load() {
		if state(c.st.Load()) == stateDestroyed {
			return nil, newErr("ensure_valid", KindInvalidState, nil)
		}
		if err := c.initLocked(); err != nil {
			return nil, err
		}
	}
	return c.queue, nil
}

// Instance returns the live instance, triggering re-initialization if
// needed.
func (c *Context) Instance() (*wgpu.Instance, error) {
	if err := c.EnsureValid(); err != nil {
		return nil, err
	}
	return c.instance, nil
}

// AdapterInfo returns information about the GPU adapter, or nil if the
// context has never successfully initialized.
func (c *Context) AdapterInfo() *wgpu.AdapterInfo {
	return c.adapterInfo
}

// Name returns a human-readable backend name.
func (c *Context) Name() string {
	if c.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", c.adapterInfo.Name, c.adapterInfo.VendorName)
	}
	return "WebGPU"
}

// Worker returns the context's single dedicated worker.
func (c *Context) Worker() *Worker {
	return c.worker
}

// Destroy releases queue, device, adapter, and instance in that order,
// and clears the initialized flag. Runs on the worker and then stops it.
func (c *Context) Destroy() error {
	_, err := EnqueueSync(c.worker, func() error {
		c.pool.clear()
		if c.queue != nil {
			c.queue.Release()
			c.queue = nil
		}
		if c.device != nil {
			c.device.Release()
			c.device = nil
		}
		if c.adapter != nil {
			c.adapter.Release()
			c.adapter = nil
		}
		if c.instance != nil {
			c.instance.Release()
			c.instance = nil
		}
		c.initialized.Store(false)
		c.st.Store(int32(stateDestroyed))
		return nil
	})
	c.worker.Stop()
	return err
}

// IsAvailable checks whether WebGPU is available on this system by
// attempting to create an instance and request an adapter.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// ListAdapters returns information about the adapters the driver exposes.
// WebGPU has no multi-adapter enumeration primitive, so this reports the
// single default adapter.
func ListAdapters() (adapters []*wgpu.AdapterInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			adapters = nil
			err = newErr("list_adapters", KindDriverUnavailable, fmt.Errorf("%v", r))
		}
	}()
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, adapterErr := instance.RequestAdapter(nil)
	if adapterErr != nil {
		return nil, newErr("list_adapters", KindDriverUnavailable, adapterErr)
	}
	defer adapter.Release()

	info := adapter.GetInfo()
	return []*wgpu.AdapterInfo{&info}, nil
}
