//go:build linux

// Package hostmem provides real, runnable pgtbl.Handler implementations for
// hosts that actually have an operating system underneath them — unlike a
// bare-metal kernel, which supplies its own frame allocator and direct map,
// a user-space embedder (a hypervisor building shadow page tables, an
// emulator) can use MmapHandler directly instead of writing one.
package hostmem

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"pgtbl/addr"
)

// MmapHandler is a pgtbl.Handler backed by one anonymous mmap arena: frames
// are carved out of it by a bump pointer plus a free list, and PhysToVirt
// is ordinary pointer arithmetic within the arena. The PhysAddr values it
// hands out are offsets into the arena, not real physical addresses.
type MmapHandler struct {
	mu sync.Mutex

	arena []byte
	free  []addr.PhysAddr
	next  addr.PhysAddr
	limit addr.PhysAddr
}

// NewMmapHandler reserves an arena of at least size bytes, rounded up to a
// 4K multiple, via mmap(MAP_ANONYMOUS|MAP_PRIVATE).
func NewMmapHandler(size int) (*MmapHandler, error) {
	rounded := int(addr.Roundup(uintptr(size), uintptr(addr.PageSize4K)))
	arena, err := unix.Mmap(-1, 0, rounded, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("hostmem: mmap %d bytes: %w", rounded, err)
	}
	return &MmapHandler{arena: arena, limit: addr.PhysAddr(rounded)}, nil
}

// Close unmaps the arena. Using the handler afterward is undefined.
func (h *MmapHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return unix.Munmap(h.arena)
}

// AllocFrame returns a recycled frame from the free list if one exists,
// otherwise the next never-used frame from the arena.
func (h *MmapHandler) AllocFrame() (addr.PhysAddr, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.free); n > 0 {
		frame := h.free[n-1]
		h.free = h.free[:n-1]
		h.zero(frame)
		return frame, true
	}
	if h.next >= h.limit {
		return 0, false
	}
	frame := h.next
	h.next += addr.PhysAddr(addr.PageSize4K)
	h.zero(frame)
	return frame, true
}

// DeallocFrame returns frame to the free list.
func (h *MmapHandler) DeallocFrame(frame addr.PhysAddr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.free = append(h.free, frame)
}

// PhysToVirt maps an arena offset back to the process address that backs it.
func (h *MmapHandler) PhysToVirt(frame addr.PhysAddr) addr.VirtAddr {
	return addr.VirtAddr(uintptr(unsafe.Pointer(&h.arena[frame])))
}

func (h *MmapHandler) zero(frame addr.PhysAddr) {
	start := uintptr(frame)
	page := h.arena[start : start+addr.PageSize4K]
	for i := range page {
		page[i] = 0
	}
}
