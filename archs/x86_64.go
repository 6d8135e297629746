// Package archs provides the per-architecture PTE encodings and metadata
// that instantiate pgtbl.Table: x86_64 4-level long mode, AArch64 stage-1,
// RISC-V Sv39/Sv48, and LoongArch64 4-level paging. Each file is
// independent and owns exactly one architecture's bit layout; none of them
// import each other.
//
// 32-bit ARM (2-level, 10-bit-per-level, 1KiB/4KiB sections) is not
// provided: its PTE layout is never given a concrete bit assignment, only
// named as an exclusion alongside PAE and shadow paging, and inventing one
// here would not be grounded in anything the corpus actually shows.
package archs

import "pgtbl/addr"

// x86_64 PTE bit positions, per the AMD64/Intel SDM page-table format:
// bit 0 present, 1 writable, 2 user, 3 PWT, 4 PCD, 7 PS (huge), 63 NX.
const (
	x86Present   = uint64(1) << 0
	x86Write     = uint64(1) << 1
	x86User      = uint64(1) << 2
	x86PWT       = uint64(1) << 3
	x86PCD       = uint64(1) << 4
	x86Huge      = uint64(1) << 7
	x86NX        = uint64(1) << 63
	x86AddrShift = 12
	x86AddrBits  = 40 // bits 12..51 inclusive
	x86AddrMask  = ((uint64(1) << x86AddrBits) - 1) << x86AddrShift
)

// X86_64PTE is a single x86_64 long-mode page-table entry.
type X86_64PTE uint64

func (e *X86_64PTE) Clear() { *e = 0 }

func (e *X86_64PTE) SetPage(paddr addr.PhysAddr, flags addr.MappingFlags, huge bool) {
	bits := uint64(paddr) & x86AddrMask
	bits |= x86Present | encodeX86Flags(flags)
	if huge {
		bits |= x86Huge
	}
	*e = X86_64PTE(bits)
}

func (e *X86_64PTE) SetTable(paddr addr.PhysAddr) {
	// Intermediate entries grant the union of all possible leaf
	// permissions; the leaf PTE further down is what actually restricts
	// access, matching how every real MMU table walk ANDs permissions.
	*e = X86_64PTE(uint64(paddr)&x86AddrMask | x86Present | x86Write | x86User)
}

func (e *X86_64PTE) SetFlags(flags addr.MappingFlags, huge bool) {
	bits := uint64(*e) &^ (x86Write | x86User | x86PWT | x86PCD | x86NX | x86Huge)
	bits |= encodeX86Flags(flags)
	if huge {
		bits |= x86Huge
	}
	*e = X86_64PTE(bits)
}

func (e *X86_64PTE) SetPaddr(paddr addr.PhysAddr) {
	*e = X86_64PTE(uint64(*e)&^x86AddrMask | uint64(paddr)&x86AddrMask)
}

func (e *X86_64PTE) Paddr() addr.PhysAddr {
	return addr.PhysAddr(uint64(*e) & x86AddrMask)
}

func (e *X86_64PTE) Flags() addr.MappingFlags {
	if !e.IsPresent() {
		return 0
	}
	return decodeX86Flags(uint64(*e))
}

func (e *X86_64PTE) IsPresent() bool { return uint64(*e)&x86Present != 0 }
func (e *X86_64PTE) IsHuge() bool    { return uint64(*e)&x86Huge != 0 }
func (e *X86_64PTE) IsUnused() bool  { return !e.IsPresent() }
func (e *X86_64PTE) Bits() uint64    { return uint64(*e) }

func encodeX86Flags(flags addr.MappingFlags) uint64 {
	var bits uint64
	if flags.Has(addr.FlagWrite) {
		bits |= x86Write
	}
	if flags.Has(addr.FlagUser) {
		bits |= x86User
	}
	if !flags.Has(addr.FlagExecute) {
		bits |= x86NX
	}
	switch {
	case flags.Has(addr.FlagDevice):
		bits |= x86PWT | x86PCD
	case flags.Has(addr.FlagUncached):
		bits |= x86PCD
	}
	return bits
}

func decodeX86Flags(bits uint64) addr.MappingFlags {
	flags := addr.FlagRead // x86_64 has no way to mark a present page unreadable
	if bits&x86Write != 0 {
		flags |= addr.FlagWrite
	}
	if bits&x86User != 0 {
		flags |= addr.FlagUser
	}
	if bits&x86NX == 0 {
		flags |= addr.FlagExecute
	}
	switch {
	case bits&x86PCD != 0 && bits&x86PWT != 0:
		flags |= addr.FlagDevice | addr.FlagUncached
	case bits&x86PCD != 0:
		flags |= addr.FlagUncached
	}
	return flags
}

// X86_64Metadata is the stateless PagingMetaData instantiation for 4-level
// x86_64 long mode with a 4 KiB base granule.
type X86_64Metadata struct{}

func (X86_64Metadata) Levels() int       { return 4 }
func (X86_64Metadata) PaMaxBits() int    { return 52 }
func (X86_64Metadata) VaMaxBits() int    { return 48 }
func (X86_64Metadata) BitsPerLevel() int { return 9 }

func (X86_64Metadata) ValidPageSizes() []addr.PageSize {
	return []addr.PageSize{addr.Size4K, addr.Size2M, addr.Size1G}
}

// VaddrIsValid applies the canonical-address check: bits 63..47 must all
// equal bit 47.
func (X86_64Metadata) VaddrIsValid(v addr.VirtAddr) bool {
	top := uint64(v) >> 47
	return top == 0 || top == 1<<17-1
}

func (X86_64Metadata) FlushTLB(v addr.VirtAddr, all bool) {
	X86_64FlushTLB(v, all)
}

// X86_64FlushTLB is the INVLPG/INVPCID hook. It defaults to a no-op because
// this library never runs on bare x86_64 hardware directly; a host embedder
// overrides it, and tests substitute a counting stub.
var X86_64FlushTLB = func(v addr.VirtAddr, all bool) {}
