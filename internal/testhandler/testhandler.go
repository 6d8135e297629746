// Package testhandler provides a counting, in-process mock of pgtbl.Handler
// for use by pgtbl's own test suite and by any embedder's tests. It hands
// out fresh 4K frames from a bump allocator and records every alloc/dealloc
// so a test can assert the generic walker frees exactly what it allocated.
package testhandler

import (
	"sync"
	"unsafe"

	"pgtbl/addr"
)

// Handler is a bump-allocating, counting pgtbl.Handler.
type Handler struct {
	mu sync.Mutex

	next   addr.PhysAddr
	memory map[addr.PhysAddr][]byte
	live   map[addr.PhysAddr]bool

	// MaxFrames caps the number of frames AllocFrame will hand out before
	// reporting NoMemory. Zero means unlimited.
	MaxFrames int

	AllocCount      int
	DeallocCount    int
	DoubleFreeCount int
}

// New returns a Handler that allocates frames starting at base.
func New(base addr.PhysAddr) *Handler {
	return &Handler{
		next:   base,
		memory: make(map[addr.PhysAddr][]byte),
		live:   make(map[addr.PhysAddr]bool),
	}
}

// AllocFrame returns the next frame in the bump sequence, backed by a
// freshly zeroed Go slice standing in for physical memory.
func (h *Handler) AllocFrame() (addr.PhysAddr, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.MaxFrames > 0 && h.AllocCount >= h.MaxFrames {
		return 0, false
	}
	frame := h.next
	h.next += addr.PhysAddr(addr.PageSize4K)
	h.memory[frame] = make([]byte, addr.PageSize4K)
	h.live[frame] = true
	h.AllocCount++
	return frame, true
}

// DeallocFrame marks frame as freed. Freeing a frame that was never
// allocated, or that was already freed, counts as a double free rather
// than panicking, so a misbehaving caller shows up in a test assertion
// instead of crashing the test binary.
func (h *Handler) DeallocFrame(frame addr.PhysAddr) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.live[frame] {
		h.DoubleFreeCount++
		return
	}
	delete(h.live, frame)
	h.DeallocCount++
}

// PhysToVirt exposes a frame's backing slice as a VirtAddr the generic
// walker can read and write through via unsafe.Slice, the same role the
// teacher's Dmap direct-map window plays for real physical memory.
func (h *Handler) PhysToVirt(frame addr.PhysAddr) addr.VirtAddr {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf, ok := h.memory[frame]
	if !ok {
		buf = make([]byte, addr.PageSize4K)
		h.memory[frame] = buf
	}
	return addr.VirtAddr(uintptr(unsafe.Pointer(&buf[0])))
}

// Outstanding reports how many allocated-but-not-yet-freed frames remain.
func (h *Handler) Outstanding() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}
