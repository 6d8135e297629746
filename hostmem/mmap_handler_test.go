//go:build linux

package hostmem_test

import (
	"testing"
	"unsafe"

	"pgtbl/addr"
	"pgtbl/hostmem"
)

func TestMmapHandlerAllocIsZeroedAndWritable(t *testing.T) {
	h, err := hostmem.NewMmapHandler(64 * 1024)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	f, ok := h.AllocFrame()
	if !ok {
		t.Fatalf("alloc frame failed")
	}
	va := h.PhysToVirt(f)
	page := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(va))), addr.PageSize4K)
	for i, b := range page {
		if b != 0 {
			t.Fatalf("byte %d of fresh frame = %#x, want 0", i, b)
		}
	}
	page[0] = 0xAB
	page2 := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(h.PhysToVirt(f)))), addr.PageSize4K)
	if page2[0] != 0xAB {
		t.Fatalf("write through PhysToVirt did not persist")
	}
}

func TestMmapHandlerRecyclesFreedFrames(t *testing.T) {
	h, err := hostmem.NewMmapHandler(2 * 4096)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	f1, _ := h.AllocFrame()
	h.DeallocFrame(f1)
	f2, ok := h.AllocFrame()
	if !ok || f2 != f1 {
		t.Fatalf("expected recycled frame %#x, got %#x ok=%v", f1, f2, ok)
	}
}

func TestMmapHandlerExhaustsArena(t *testing.T) {
	h, err := hostmem.NewMmapHandler(4096)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	if _, ok := h.AllocFrame(); !ok {
		t.Fatalf("first alloc should succeed")
	}
	if _, ok := h.AllocFrame(); ok {
		t.Fatalf("second alloc should fail: arena is only 1 frame")
	}
}
