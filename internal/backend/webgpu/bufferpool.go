//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// Size tiers for staging-buffer reuse.
const (
	smallStagingThreshold  = 4 * 1024
	mediumStagingThreshold = 1024 * 1024
	maxPooledBuffers       = 100
)

type stagingTier int

const (
	tierSmall stagingTier = iota
	tierMedium
	tierLarge
)

func tierOf(size uint64) stagingTier {
	switch {
	case size <= smallStagingThreshold:
		return tierSmall
	case size <= mediumStagingThreshold:
		return tierMedium
	default:
		return tierLarge
	}
}

type pooledStaging struct {
	buffer *wgpu.Buffer
	size   uint64
}

// bufferPool recycles staging buffers across reads instead of creating
// and destroying one per read. Each read's staging buffer is still
// logically scoped to that read; only the device allocation underneath
// is reused.
type bufferPool struct {
	mu    sync.Mutex
	tiers map[stagingTier][]pooledStaging

	allocated uint64
	released  uint64
	hits      uint64
	misses    uint64
}

func newBufferPool() *bufferPool {
	return &bufferPool{tiers: make(map[stagingTier][]pooledStaging)}
}

// acquire returns a pooled staging buffer of at least size bytes, or nil
// if none is available (caller must create one).
func (p *bufferPool) acquire(size uint64) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	tier := tierOf(size)
	bucket := p.tiers[tier]
	for i, pb := range bucket {
		if pb.size >= size {
			bucket[i] = bucket[len(bucket)-1]
			p.tiers[tier] = bucket[:len(bucket)-1]
			p.hits++
			return pb.buffer
		}
	}
	p.misses++
	return nil
}

// release returns buf to the pool, or releases it outright if the pool
// for its tier is full.
func (p *bufferPool) release(buf *wgpu.Buffer, size uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tier := tierOf(size)
	bucket := p.tiers[tier]
	if len(bucket) >= maxPooledBuffers {
		buf.Release()
		p.released++
		return
	}
	p.tiers[tier] = append(bucket, pooledStaging{buffer: buf, size: size})
	p.allocated++
}

func (p *bufferPool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bucket := range p.tiers {
		for _, pb := range bucket {
			pb.buffer.Release()
		}
	}
	p.tiers = make(map[stagingTier][]pooledStaging)
}

func (p *bufferPool) Stats() (hits, misses uint64, pooled int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, bucket := range p.tiers {
		count += len(bucket)
	}
	return p.hits, p.misses, count
}

// stats tracks the GPU memory used by one Context's typed buffers.
type stats struct {
	mu                  sync.RWMutex
	totalAllocatedBytes uint64
	peakMemoryBytes     uint64
	activeBuffers       int64
}

func (s *stats) trackAlloc(size uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalAllocatedBytes += size
	s.activeBuffers++
	if s.totalAllocatedBytes > s.peakMemoryBytes {
		s.peakMemoryBytes = s.totalAllocatedBytes
	}
}

func (s *stats) trackRelease(size uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalAllocatedBytes >= size {
		s.totalAllocatedBytes -= size
	}
	s.activeBuffers--
}

func (s *stats) snapshot() (total uint64, peak uint64, active int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalAllocatedBytes, s.peakMemoryBytes, s.activeBuffers
}

// Stats reports current GPU memory usage and staging-buffer pool
// effectiveness.
type Stats struct {
	TotalAllocatedBytes uint64
	PeakMemoryBytes     uint64
	ActiveBuffers       int64
	PoolHits            uint64
	PoolMisses          uint64
	PooledBuffers       int
}

// Stats returns a snapshot of the context's memory and pool statistics.
func (c *Context) Stats() Stats {
	total, peak, active := c.stats.snapshot()
	hits, misses, pooled := c.pool.Stats()
	return Stats{
		TotalAllocatedBytes: total,
		PeakMemoryBytes:     peak,
		ActiveBuffers:       active,
		PoolHits:            hits,
		PoolMisses:          misses,
		PooledBuffers:       pooled,
	}
}
