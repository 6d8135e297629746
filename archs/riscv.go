package archs

import "pgtbl/addr"

// RISC-V Sv39/Sv48 PTE bit positions: V, R, W, X, U, G, A, D occupy bits
// 0..7 in that order; PPN occupies bits 10..53. A slot with V set and
// R=W=X=0 is a pointer to the next-level table; any of R/W/X set makes it
// a leaf, so — unlike x86_64 — there is no dedicated huge/PS bit: the
// walker's own notion of level already tells it whether a leaf is huge,
// and IsHuge is only ever asked at non-deepest levels where "is a leaf"
// and "is huge" mean the same thing.
const (
	rvV        = uint64(1) << 0
	rvR        = uint64(1) << 1
	rvW        = uint64(1) << 2
	rvX        = uint64(1) << 3
	rvU        = uint64(1) << 4
	rvG        = uint64(1) << 5
	rvA        = uint64(1) << 6
	rvD        = uint64(1) << 7
	rvPPNShift = 10
	rvPPNBits  = 44
	rvPPNMask  = ((uint64(1) << rvPPNBits) - 1) << rvPPNShift
)

// RISCVPTE is a single Sv39 or Sv48 page-table entry; the two modes differ
// only in level count and VA width, both carried by the Metadata, not the
// entry encoding.
type RISCVPTE uint64

func (e *RISCVPTE) Clear() { *e = 0 }

func (e *RISCVPTE) SetPage(paddr addr.PhysAddr, flags addr.MappingFlags, huge bool) {
	bits := (uint64(paddr) >> 12 << rvPPNShift) & rvPPNMask
	bits |= rvV | rvA | rvD
	bits |= encodeRISCVFlags(flags)
	*e = RISCVPTE(bits)
	_ = huge
}

func (e *RISCVPTE) SetTable(paddr addr.PhysAddr) {
	*e = RISCVPTE((uint64(paddr)>>12<<rvPPNShift)&rvPPNMask | rvV)
}

func (e *RISCVPTE) SetFlags(flags addr.MappingFlags, huge bool) {
	bits := uint64(*e) &^ (rvR | rvW | rvX | rvU | rvG)
	bits |= encodeRISCVFlags(flags)
	*e = RISCVPTE(bits)
	_ = huge
}

func (e *RISCVPTE) SetPaddr(paddr addr.PhysAddr) {
	bits := uint64(*e) &^ rvPPNMask
	bits |= (uint64(paddr) >> 12 << rvPPNShift) & rvPPNMask
	*e = RISCVPTE(bits)
}

func (e *RISCVPTE) Paddr() addr.PhysAddr {
	ppn := (uint64(*e) & rvPPNMask) >> rvPPNShift
	return addr.PhysAddr(ppn << 12)
}

func (e *RISCVPTE) Flags() addr.MappingFlags {
	if !e.IsPresent() {
		return 0
	}
	return decodeRISCVFlags(uint64(*e))
}

func (e *RISCVPTE) IsPresent() bool { return uint64(*e)&rvV != 0 }
func (e *RISCVPTE) IsHuge() bool    { return e.IsPresent() && uint64(*e)&(rvR|rvW|rvX) != 0 }
func (e *RISCVPTE) IsUnused() bool  { return !e.IsPresent() }
func (e *RISCVPTE) Bits() uint64    { return uint64(*e) }

// encodeRISCVFlags leaves FlagDevice/FlagUncached unrepresented: the base
// Sv39/Sv48 PTE format has no memory-type bits of its own (that's the
// Svpbmt extension, out of scope here), so those flags round-trip through
// Map as a no-op on this architecture rather than an error.
func encodeRISCVFlags(flags addr.MappingFlags) uint64 {
	var bits uint64
	if flags.Has(addr.FlagRead) {
		bits |= rvR
	}
	if flags.Has(addr.FlagWrite) {
		bits |= rvW
	}
	if flags.Has(addr.FlagExecute) {
		bits |= rvX
	}
	if flags.Has(addr.FlagUser) {
		bits |= rvU
	}
	return bits
}

func decodeRISCVFlags(bits uint64) addr.MappingFlags {
	var flags addr.MappingFlags
	if bits&rvR != 0 {
		flags |= addr.FlagRead
	}
	if bits&rvW != 0 {
		flags |= addr.FlagWrite
	}
	if bits&rvX != 0 {
		flags |= addr.FlagExecute
	}
	if bits&rvU != 0 {
		flags |= addr.FlagUser
	}
	return flags
}

// RISCVFlushTLB is the SFENCE.VMA hook, overridable by a host embedder or test.
var RISCVFlushTLB = func(v addr.VirtAddr, all bool) {}

// Sv39Metadata is the 3-level, 39-bit-virtual-address RISC-V instantiation.
type Sv39Metadata struct{}

func (Sv39Metadata) Levels() int       { return 3 }
func (Sv39Metadata) PaMaxBits() int    { return 56 }
func (Sv39Metadata) VaMaxBits() int    { return 39 }
func (Sv39Metadata) BitsPerLevel() int { return 9 }

func (Sv39Metadata) ValidPageSizes() []addr.PageSize {
	return []addr.PageSize{addr.Size4K, addr.Size2M, addr.Size1G}
}

// VaddrIsValid applies Sv39's sign-extension check: bits 63..38 must all
// equal bit 38.
func (Sv39Metadata) VaddrIsValid(v addr.VirtAddr) bool {
	top := uint64(v) >> 38
	return top == 0 || top == 1<<26-1
}

func (Sv39Metadata) FlushTLB(v addr.VirtAddr, all bool) { RISCVFlushTLB(v, all) }

// Sv48Metadata is the 4-level, 48-bit-virtual-address RISC-V instantiation.
type Sv48Metadata struct{}

func (Sv48Metadata) Levels() int       { return 4 }
func (Sv48Metadata) PaMaxBits() int    { return 56 }
func (Sv48Metadata) VaMaxBits() int    { return 48 }
func (Sv48Metadata) BitsPerLevel() int { return 9 }

func (Sv48Metadata) ValidPageSizes() []addr.PageSize {
	return []addr.PageSize{addr.Size4K, addr.Size2M, addr.Size1G, addr.Size512G}
}

// VaddrIsValid applies Sv48's sign-extension check: bits 63..47 must all
// equal bit 47.
func (Sv48Metadata) VaddrIsValid(v addr.VirtAddr) bool {
	top := uint64(v) >> 47
	return top == 0 || top == 1<<17-1
}

func (Sv48Metadata) FlushTLB(v addr.VirtAddr, all bool) { RISCVFlushTLB(v, all) }
