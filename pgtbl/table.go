package pgtbl

import (
	"log"
	"runtime"
	"unsafe"

	"pgtbl/addr"
	"pgtbl/pgerror"
)

// Table is a generic hierarchical page table. T is the architecture's raw
// PTE representation, E is the pointer-method-set view of it (always *T),
// and M is the architecture's stateless Metadata. The frame bookkeeping
// follows a Physmem_t/Pmap_t style frame accounting scheme; the
// level-by-level walk loop follows the shape of a generic vmm walk/Map/Unmap
// loop.
type Table[T any, E Entry[T], M Metadata] struct {
	handler Handler
	root    addr.PhysAddr
	closed  bool

	// borrowed holds frames shared in via CopyFrom: present but not owned,
	// so destroy must skip them rather than deallocating a table another
	// Table is still using.
	borrowed map[addr.PhysAddr]struct{}
}

// TryNew allocates a fresh root frame from h and returns an empty table.
func TryNew[T any, E Entry[T], M Metadata](h Handler) (*Table[T, E, M], error) {
	var m M
	frame, ok := h.AllocFrame()
	if !ok {
		return nil, pgerror.Error{Code: pgerror.NoMemory, Op: "try_new"}
	}
	zeroEntries[T](h, frame, 1<<uint(m.BitsPerLevel()))

	t := &Table[T, E, M]{handler: h, root: frame}
	runtime.SetFinalizer(t, func(t *Table[T, E, M]) {
		if !t.closed {
			log.Printf("pgtbl: Table rooted at %#x dropped without Close()", uintptr(t.root))
			t.destroy()
		}
	})
	return t, nil
}

// RootPaddr returns the physical frame holding the table's root level, e.g.
// to install into a CPU's page-table base register.
func (t *Table[T, E, M]) RootPaddr() addr.PhysAddr {
	return t.root
}

// Close releases every frame the table owns: all of its intermediate
// tables, plus the root, but never a leaf (leaves are never owned by the
// table) and never a frame shared in via CopyFrom. Close is idempotent.
func (t *Table[T, E, M]) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	runtime.SetFinalizer(t, nil)
	t.destroy()
	return nil
}

func (t *Table[T, E, M]) destroy() {
	var m M
	t.freeSubtree(t.root, 0, m.Levels())
	t.handler.DeallocFrame(t.root)
}

// freeSubtree frees every intermediate table reachable below frame (a table
// at the given level), but not frame itself — the caller owns that.
func (t *Table[T, E, M]) freeSubtree(frame addr.PhysAddr, level, levels int) {
	if level >= levels-1 {
		return // entries here are leaves, nothing further to own
	}
	var m M
	n := 1 << uint(m.BitsPerLevel())
	entries := entriesAt[T](t.handler, frame, n)
	for i := range entries {
		e := E(&entries[i])
		if e.IsUnused() || e.IsHuge() {
			continue
		}
		child := e.Paddr()
		if t.isBorrowed(child) {
			continue
		}
		t.freeSubtree(child, level+1, levels)
		t.handler.DeallocFrame(child)
	}
}

func (t *Table[T, E, M]) isBorrowed(frame addr.PhysAddr) bool {
	if t.borrowed == nil {
		return false
	}
	_, ok := t.borrowed[frame]
	return ok
}

func (t *Table[T, E, M]) markBorrowed(frame addr.PhysAddr) {
	if t.borrowed == nil {
		t.borrowed = make(map[addr.PhysAddr]struct{})
	}
	t.borrowed[frame] = struct{}{}
}

// levelForSize returns the radix-tree level (0 = root) at which a leaf of
// the given size terminates, or ok==false if size is not a legal leaf size
// for this architecture.
func (t *Table[T, E, M]) levelForSize(size addr.PageSize) (level int, ok bool) {
	var m M
	legal := false
	for _, s := range m.ValidPageSizes() {
		if s == size {
			legal = true
			break
		}
	}
	if !legal {
		return 0, false
	}
	levels := m.Levels()
	bpl := uint(m.BitsPerLevel())
	for l := 0; l < levels; l++ {
		shift := 12 + uint(levels-1-l)*bpl
		if addr.PageSize(uintptr(1)<<shift) == size {
			return l, true
		}
	}
	return 0, false
}

// sizeAtLevel is levelForSize's inverse.
func (t *Table[T, E, M]) sizeAtLevel(level int) addr.PageSize {
	var m M
	levels := m.Levels()
	bpl := uint(m.BitsPerLevel())
	shift := 12 + uint(levels-1-level)*bpl
	return addr.PageSize(uintptr(1) << shift)
}

// indexAt returns v's table index at the given level.
func (t *Table[T, E, M]) indexAt(v addr.VirtAddr, level int) uintptr {
	var m M
	levels := m.Levels()
	bpl := uint(m.BitsPerLevel())
	shift := 12 + uint(levels-1-level)*bpl
	mask := uintptr(1)<<bpl - 1
	return (uintptr(v) >> shift) & mask
}

// walkCreate descends from the root to targetLevel, allocating and zeroing
// intermediate tables on demand, and returns the entry slot at that level.
func (t *Table[T, E, M]) walkCreate(v addr.VirtAddr, targetLevel int) (E, error) {
	var m M
	var zero E
	frame := t.root
	n := 1 << uint(m.BitsPerLevel())

	for level := 0; level < targetLevel; level++ {
		entries := entriesAt[T](t.handler, frame, n)
		idx := t.indexAt(v, level)
		e := E(&entries[idx])

		switch {
		case e.IsUnused():
			child, ok := t.handler.AllocFrame()
			if !ok {
				return zero, pgerror.Error{Code: pgerror.NoMemory, Op: "map", Addr: v}
			}
			zeroEntries[T](t.handler, child, n)
			e.SetTable(child)
			frame = child
		case e.IsHuge():
			return zero, pgerror.Error{Code: pgerror.MappedToHugePage, Op: "map", Addr: v}
		default:
			frame = e.Paddr()
		}
	}

	entries := entriesAt[T](t.handler, frame, n)
	idx := t.indexAt(v, targetLevel)
	return E(&entries[idx]), nil
}

// walkExisting descends from the root following already-installed
// intermediate tables and returns the leaf entry at v, whatever level it
// terminates at.
func (t *Table[T, E, M]) walkExisting(v addr.VirtAddr, op string) (E, int, error) {
	var m M
	var zero E
	levels := m.Levels()
	n := 1 << uint(m.BitsPerLevel())
	frame := t.root

	for level := 0; level < levels; level++ {
		entries := entriesAt[T](t.handler, frame, n)
		idx := t.indexAt(v, level)
		e := E(&entries[idx])

		if e.IsUnused() {
			return zero, 0, pgerror.Error{Code: pgerror.NotMapped, Op: op, Addr: v}
		}
		if level == levels-1 || e.IsHuge() {
			return e, level, nil
		}
		frame = e.Paddr()
	}
	return zero, 0, pgerror.Error{Code: pgerror.NotMapped, Op: op, Addr: v}
}

func entriesAt[T any](h Handler, frame addr.PhysAddr, n int) []T {
	va := h.PhysToVirt(frame)
	ptr := (*T)(unsafe.Pointer(uintptr(va)))
	return unsafe.Slice(ptr, n)
}

func zeroEntries[T any](h Handler, frame addr.PhysAddr, n int) {
	entries := entriesAt[T](h, frame, n)
	var zero T
	for i := range entries {
		entries[i] = zero
	}
}
