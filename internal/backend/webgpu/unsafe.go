//go:build windows

package webgpu

import "unsafe"

// copyFromMapped copies n bytes out of a mapped GPU pointer into dst.
func copyFromMapped(dst []byte, mapped unsafe.Pointer, n uint64) {
	if mapped == nil || n == 0 {
		return
	}
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	src := unsafe.Slice((*byte)(mapped), n)
	copy(dst, src)
}
