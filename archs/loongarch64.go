package archs

import "pgtbl/addr"

// LoongArch64 TLB-refill PTE bit positions, following the loongarch64
// reduced/refill PTE format: V valid, PLV privilege level (modeled here as
// a single user/kernel bit rather than the full 2-bit field, since this
// library only ever needs user/not-user), MAT memory access type, GH
// global-or-huge (huge leaf marker above the deepest level, mirroring
// x86_64's PS bit), W writable, NR no-read, NX no-execute, PPN bits 12..47.
const (
	laV            = uint64(1) << 0
	laPLVUser      = uint64(1) << 2
	laMATShift     = 4
	laMATMask      = uint64(0x3) << laMATShift
	laMATCached    = 1 // coherent, write-back cacheable
	laMATStrongUC  = 0 // strongly-ordered, uncached
	laHuge         = uint64(1) << 6
	laPresent      = uint64(1) << 7
	laWrite        = uint64(1) << 8
	laNR           = uint64(1) << 61
	laNX           = uint64(1) << 62
	laAddrShift    = 12
	laAddrBits     = 36
	laAddrMask     = ((uint64(1) << laAddrBits) - 1) << laAddrShift
)

// LoongArch64PTE is a single LoongArch64 4-level page-table entry.
type LoongArch64PTE uint64

func (e *LoongArch64PTE) Clear() { *e = 0 }

func (e *LoongArch64PTE) SetPage(paddr addr.PhysAddr, flags addr.MappingFlags, huge bool) {
	bits := uint64(paddr) & laAddrMask
	bits |= laV | laPresent
	bits |= encodeLoongArch64Flags(flags)
	if huge {
		bits |= laHuge
	}
	*e = LoongArch64PTE(bits)
}

func (e *LoongArch64PTE) SetTable(paddr addr.PhysAddr) {
	*e = LoongArch64PTE(uint64(paddr)&laAddrMask | laV)
}

func (e *LoongArch64PTE) SetFlags(flags addr.MappingFlags, huge bool) {
	bits := uint64(*e) &^ (laPLVUser | laMATMask | laWrite | laNR | laNX | laHuge)
	bits |= encodeLoongArch64Flags(flags)
	if huge {
		bits |= laHuge
	}
	*e = LoongArch64PTE(bits)
}

func (e *LoongArch64PTE) SetPaddr(paddr addr.PhysAddr) {
	*e = LoongArch64PTE(uint64(*e)&^laAddrMask | uint64(paddr)&laAddrMask)
}

func (e *LoongArch64PTE) Paddr() addr.PhysAddr {
	return addr.PhysAddr(uint64(*e) & laAddrMask)
}

func (e *LoongArch64PTE) Flags() addr.MappingFlags {
	if !e.IsPresent() {
		return 0
	}
	return decodeLoongArch64Flags(uint64(*e))
}

func (e *LoongArch64PTE) IsPresent() bool { return uint64(*e)&laV != 0 }
func (e *LoongArch64PTE) IsHuge() bool    { return e.IsPresent() && uint64(*e)&laHuge != 0 }
func (e *LoongArch64PTE) IsUnused() bool  { return !e.IsPresent() }
func (e *LoongArch64PTE) Bits() uint64    { return uint64(*e) }

func encodeLoongArch64Flags(flags addr.MappingFlags) uint64 {
	var bits uint64
	if flags.Has(addr.FlagWrite) {
		bits |= laWrite
	}
	if flags.Has(addr.FlagUser) {
		bits |= laPLVUser
	}
	if !flags.Has(addr.FlagRead) {
		bits |= laNR
	}
	if !flags.Has(addr.FlagExecute) {
		bits |= laNX
	}
	mat := uint64(laMATCached)
	if flags.Has(addr.FlagDevice) || flags.Has(addr.FlagUncached) {
		mat = laMATStrongUC
	}
	bits |= mat << laMATShift
	return bits
}

func decodeLoongArch64Flags(bits uint64) addr.MappingFlags {
	flags := addr.FlagRead
	if bits&laNR != 0 {
		flags &^= addr.FlagRead
	}
	if bits&laWrite != 0 {
		flags |= addr.FlagWrite
	}
	if bits&laNX == 0 {
		flags |= addr.FlagExecute
	}
	if bits&laPLVUser != 0 {
		flags |= addr.FlagUser
	}
	if (bits&laMATMask)>>laMATShift == laMATStrongUC {
		flags |= addr.FlagDevice | addr.FlagUncached
	}
	return flags
}

// LoongArch64Metadata is the stateless PagingMetaData instantiation for
// 4-level LoongArch64 paging with a 4 KiB granule.
type LoongArch64Metadata struct{}

func (LoongArch64Metadata) Levels() int       { return 4 }
func (LoongArch64Metadata) PaMaxBits() int    { return 48 }
func (LoongArch64Metadata) VaMaxBits() int    { return 48 }
func (LoongArch64Metadata) BitsPerLevel() int { return 9 }

func (LoongArch64Metadata) ValidPageSizes() []addr.PageSize {
	return []addr.PageSize{addr.Size4K, addr.Size2M, addr.Size1G}
}

// VaddrIsValid applies LoongArch64's canonical-style check: bits 63..47
// must all equal bit 47, the same shape as the other 48-bit architectures.
func (LoongArch64Metadata) VaddrIsValid(v addr.VirtAddr) bool {
	top := uint64(v) >> 47
	return top == 0 || top == 1<<17-1
}

func (LoongArch64Metadata) FlushTLB(v addr.VirtAddr, all bool) {
	LoongArch64FlushTLB(v, all)
}

// LoongArch64FlushTLB is the INVTLB hook, overridable by a host embedder or test.
var LoongArch64FlushTLB = func(v addr.VirtAddr, all bool) {}
