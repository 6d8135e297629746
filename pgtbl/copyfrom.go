package pgtbl

import "pgtbl/addr"

// CopyFrom shares src's top-level intermediate tables covering
// [v, v+size) into t, so that translations src already has installed
// become visible through t without copying any leaf. This is how two
// address spaces share a kernel half: install once in one table, then
// CopyFrom it into every other table that needs the same mapping.
//
// Shared intermediate frames are marked borrowed so Close/the finalizer
// never deallocates a table another Table is still using; t also never
// overwrites an existing entry at a shared slot, so calling CopyFrom
// against a range t has already partially populated only fills the gaps.
//
// Only root-level (level 0) sharing is supported: deeper partial-range
// merging would require walking and cloning intermediate levels instead of
// sharing them outright. Whole-top-level sharing already covers the common
// "share the kernel half of the address space" case.
func (t *Table[T, E, M]) CopyFrom(src *Table[T, E, M], v addr.VirtAddr, size uintptr) error {
	var m M
	bpl := uint(m.BitsPerLevel())
	levels := m.Levels()
	topShift := 12 + uint(levels-1)*bpl
	step := uintptr(1) << topShift
	n := 1 << bpl

	start := uintptr(v) &^ (step - 1)
	end := uintptr(v) + size

	srcEntries := entriesAt[T](src.handler, src.root, n)
	dstEntries := entriesAt[T](t.handler, t.root, n)

	for cur := start; cur < end; cur += step {
		idx := (cur >> topShift) & (uintptr(1)<<bpl - 1)
		se := E(&srcEntries[idx])
		if se.IsUnused() {
			continue
		}
		de := E(&dstEntries[idx])
		if !de.IsUnused() {
			continue
		}
		if se.IsHuge() {
			de.SetPage(se.Paddr(), se.Flags(), true)
			continue
		}
		child := se.Paddr()
		de.SetTable(child)
		t.markBorrowed(child)
	}
	return nil
}
