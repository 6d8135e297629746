package pgtbl

import (
	"pgtbl/addr"
	"pgtbl/pgerror"
)

// Map installs a single leaf mapping from v to p of the given size and
// permission flags. size must be one of the architecture's
// Metadata.ValidPageSizes; callers that pass a size the instantiated
// architecture doesn't support get a panic, the same defensive posture the
// teacher's mem.go takes on out-of-contract frame addresses.
func (t *Table[T, E, M]) Map(v addr.VirtAddr, p addr.PhysAddr, size addr.PageSize, flags addr.MappingFlags) (TlbFlush, error) {
	var m M
	level, ok := t.levelForSize(size)
	if !ok {
		panic("pgtbl: page size is not valid for this architecture")
	}
	if !v.IsAligned(uintptr(size)) || !p.IsAligned(uintptr(size)) {
		return TlbFlush{}, pgerror.Error{Code: pgerror.NotAligned, Op: "map", Addr: v}
	}
	if !m.VaddrIsValid(v) {
		return TlbFlush{}, pgerror.Error{Code: pgerror.NotAligned, Op: "map", Addr: v}
	}

	entry, err := t.walkCreate(v, level)
	if err != nil {
		return TlbFlush{}, err
	}
	if entry.IsPresent() {
		return TlbFlush{}, pgerror.Error{Code: pgerror.AlreadyMapped, Op: "map", Addr: v}
	}
	entry.SetPage(p, flags, level != m.Levels()-1)
	return newTlbFlush(m, v), nil
}

// Unmap clears whatever leaf mapping covers v and returns the physical
// frame it pointed at along with the leaf's size.
func (t *Table[T, E, M]) Unmap(v addr.VirtAddr) (addr.PhysAddr, addr.PageSize, TlbFlush, error) {
	var m M
	entry, level, err := t.walkExisting(v, "unmap")
	if err != nil {
		return 0, 0, TlbFlush{}, err
	}
	paddr := entry.Paddr()
	size := t.sizeAtLevel(level)
	entry.Clear()
	return paddr, size, newTlbFlush(m, v), nil
}

// Query reports the translation of v without modifying the table: the
// physical address v maps to (not the containing frame's base — the page
// offset is folded back in), the mapping's flags, and its leaf size.
func (t *Table[T, E, M]) Query(v addr.VirtAddr) (addr.PhysAddr, addr.MappingFlags, addr.PageSize, error) {
	entry, level, err := t.walkExisting(v, "query")
	if err != nil {
		return 0, 0, 0, err
	}
	size := t.sizeAtLevel(level)
	return entry.Paddr().Add(v.PageOffset(size)), entry.Flags(), size, nil
}

// Remap repoints the leaf mapping at v to newP with newFlags, preserving
// its existing size. newP must be aligned to that size.
func (t *Table[T, E, M]) Remap(v addr.VirtAddr, newP addr.PhysAddr, newFlags addr.MappingFlags) (addr.PageSize, TlbFlush, error) {
	var m M
	entry, level, err := t.walkExisting(v, "remap")
	if err != nil {
		return 0, TlbFlush{}, err
	}
	size := t.sizeAtLevel(level)
	if !newP.IsAligned(uintptr(size)) {
		return 0, TlbFlush{}, pgerror.Error{Code: pgerror.NotAligned, Op: "remap", Addr: v}
	}
	entry.SetPaddr(newP)
	entry.SetFlags(newFlags, level != m.Levels()-1)
	return size, newTlbFlush(m, v), nil
}

// Protect overwrites the permission flags of the leaf mapping at v,
// preserving its physical address and size.
func (t *Table[T, E, M]) Protect(v addr.VirtAddr, newFlags addr.MappingFlags) (addr.PageSize, TlbFlush, error) {
	var m M
	entry, level, err := t.walkExisting(v, "protect")
	if err != nil {
		return 0, TlbFlush{}, err
	}
	size := t.sizeAtLevel(level)
	entry.SetFlags(newFlags, level != m.Levels()-1)
	return size, newTlbFlush(m, v), nil
}
