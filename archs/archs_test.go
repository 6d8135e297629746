package archs_test

import (
	"testing"

	"pgtbl/addr"
	"pgtbl/archs"
)

func TestX86_64PTERoundTrip(t *testing.T) {
	var e archs.X86_64PTE
	if !e.IsUnused() {
		t.Fatalf("zero value should be unused")
	}

	e.SetPage(0x1234_5000, addr.FlagRead|addr.FlagWrite|addr.FlagExecute, false)
	if !e.IsPresent() || e.IsHuge() {
		t.Fatalf("SetPage(huge=false): present=%v huge=%v", e.IsPresent(), e.IsHuge())
	}
	if e.Paddr() != 0x1234_5000 {
		t.Fatalf("paddr = %#x", e.Paddr())
	}
	if got := e.Flags(); got != addr.FlagRead|addr.FlagWrite|addr.FlagExecute {
		t.Fatalf("flags = %v", got)
	}

	e.SetFlags(addr.FlagRead, true)
	if !e.IsHuge() {
		t.Fatalf("SetFlags(huge=true) did not mark huge")
	}
	if got := e.Flags(); got.Has(addr.FlagWrite) || got.Has(addr.FlagExecute) {
		t.Fatalf("flags after SetFlags(read-only) = %v", got)
	}

	e.SetPaddr(0x9000)
	if e.Paddr() != 0x9000 {
		t.Fatalf("paddr after SetPaddr = %#x", e.Paddr())
	}

	e.SetTable(0x2000)
	if !e.IsPresent() || e.IsHuge() {
		t.Fatalf("table entry: present=%v huge=%v", e.IsPresent(), e.IsHuge())
	}

	e.Clear()
	if !e.IsUnused() {
		t.Fatalf("clear did not reset to unused")
	}
}

func TestAArch64PTERoundTrip(t *testing.T) {
	var e archs.AArch64PTE
	e.SetPage(0x4000_0000, addr.FlagRead|addr.FlagUser, true)
	if !e.IsHuge() {
		t.Fatalf("expected huge block descriptor")
	}
	if e.Paddr() != 0x4000_0000 {
		t.Fatalf("paddr = %#x", e.Paddr())
	}
	if got := e.Flags(); !got.Has(addr.FlagRead) || !got.Has(addr.FlagUser) || got.Has(addr.FlagWrite) {
		t.Fatalf("flags = %v", got)
	}

	var page archs.AArch64PTE
	page.SetPage(0x1000, addr.FlagRead|addr.FlagWrite, false)
	if page.IsHuge() {
		t.Fatalf("page descriptor at deepest level reported as huge")
	}

	var table archs.AArch64PTE
	table.SetTable(0x2000)
	if table.IsHuge() {
		t.Fatalf("table descriptor reported as huge")
	}
	if !table.IsPresent() {
		t.Fatalf("table descriptor not present")
	}
}

func TestRISCVPTERoundTrip(t *testing.T) {
	var e archs.RISCVPTE
	e.SetPage(0x8000_0000, addr.FlagRead|addr.FlagWrite|addr.FlagExecute, true)
	if !e.IsHuge() {
		t.Fatalf("leaf with R/W/X set should report huge at a non-deepest level")
	}
	if e.Paddr() != 0x8000_0000 {
		t.Fatalf("paddr = %#x", e.Paddr())
	}

	var table archs.RISCVPTE
	table.SetTable(0x3000)
	if table.IsHuge() {
		t.Fatalf("pure pointer entry (R=W=X=0) should not report huge")
	}
	if !table.IsPresent() {
		t.Fatalf("table entry should be present")
	}
}

func TestLoongArch64PTERoundTrip(t *testing.T) {
	var e archs.LoongArch64PTE
	e.SetPage(0x2000_0000, addr.FlagRead|addr.FlagWrite, true)
	if !e.IsHuge() {
		t.Fatalf("expected huge leaf")
	}
	e.SetFlags(addr.FlagRead, false)
	if e.IsHuge() {
		t.Fatalf("SetFlags(huge=false) should clear the huge marker")
	}
	if got := e.Flags(); got.Has(addr.FlagWrite) {
		t.Fatalf("flags after read-only SetFlags = %v", got)
	}
}

func TestMetadataVaddrValidity(t *testing.T) {
	cases := []struct {
		name  string
		m     interface{ VaddrIsValid(addr.VirtAddr) bool }
		valid addr.VirtAddr
		bad   addr.VirtAddr
	}{
		{"x86_64", archs.X86_64Metadata{}, 0x0000_7FFF_FFFF_FFFF, 0x0000_8000_0000_0000},
		{"aarch64", archs.AArch64Metadata{}, 0xFFFF_0000_0000_0000, 0x0001_0000_0000_0000},
		{"sv39", archs.Sv39Metadata{}, 0x3F_FFFF_FFFF, 0x40_0000_0000},
		{"sv48", archs.Sv48Metadata{}, 0x0000_7FFF_FFFF_FFFF, 0x0000_8000_0000_0000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if !c.m.VaddrIsValid(c.valid) {
				t.Errorf("%#x should be valid", c.valid)
			}
			if c.m.VaddrIsValid(c.bad) {
				t.Errorf("%#x should be invalid", c.bad)
			}
		})
	}
}
