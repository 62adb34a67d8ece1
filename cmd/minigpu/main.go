//go:build windows

// Command minigpu is a diagnostic CLI for the minigpu WebGPU backend: it
// reports adapter availability and, with the "demo" subcommand, runs a
// minimal dispatch against a real device.
package main

import (
	"fmt"
	"os"

	webgpu "github.com/PracticalXR/minigpu/backend/webgpu"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("minigpu %s\n", version)
	case "adapters":
		runAdapters()
	case "demo":
		runDemo()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("minigpu - typed GPU compute buffers over WebGPU")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  adapters   List available WebGPU adapters")
	fmt.Println("  demo       Run a minimal add-one dispatch and print the result")
}

func runAdapters() {
	if !webgpu.IsAvailable() {
		fmt.Println("WebGPU not available on this system")
		return
	}
	adapters, err := webgpu.ListAdapters()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error listing adapters: %v\n", err)
		os.Exit(1)
	}
	for _, a := range adapters {
		fmt.Printf("%s (%s)\n", a.Name, a.VendorName)
	}
}

const demoKernel = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
	if (gid.x >= arrayLength(&data)) {
		return;
	}
	data[gid.x] = data[gid.x] + 1u;
}
`

func runDemo() {
	if !webgpu.IsAvailable() {
		fmt.Println("WebGPU not available on this system")
		os.Exit(1)
	}

	ctx := webgpu.NewContext()
	if err := ctx.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "initialize: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Destroy()

	buf, err := webgpu.CreateBuffer(ctx, 8, webgpu.U32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create buffer: %v\n", err)
		os.Exit(1)
	}
	defer buf.Release()

	if err := webgpu.Write(buf, make([]uint32, 8)); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}

	cs := webgpu.NewComputeShader(ctx)
	defer cs.Release()
	cs.LoadKernelString(demoKernel)
	if err := cs.SetBuffer(0, buf); err != nil {
		fmt.Fprintf(os.Stderr, "set_buffer: %v\n", err)
		os.Exit(1)
	}
	if err := cs.Dispatch(1, 1, 1); err != nil {
		fmt.Fprintf(os.Stderr, "dispatch: %v\n", err)
		os.Exit(1)
	}

	out := make([]uint32, 8)
	if _, err := webgpu.Read(buf, out, 8, 0); err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%v\n", out)
}
