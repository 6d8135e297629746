package addr_test

import (
	"testing"

	"pgtbl/addr"
)

func TestRoundupRounddown(t *testing.T) {
	if got := addr.Rounddown(0x1234, 0x1000); got != 0x1000 {
		t.Fatalf("Rounddown(0x1234, 0x1000) = %#x, want 0x1000", got)
	}
	if got := addr.Roundup(0x1234, 0x1000); got != 0x2000 {
		t.Fatalf("Roundup(0x1234, 0x1000) = %#x, want 0x2000", got)
	}
	if got := addr.Roundup(0x1000, 0x1000); got != 0x1000 {
		t.Fatalf("Roundup of an already-aligned value should be a no-op, got %#x", got)
	}
}

func TestMin(t *testing.T) {
	if addr.Min(3, 5) != 3 {
		t.Fatalf("Min(3, 5) should be 3")
	}
	if addr.Min(uintptr(9), uintptr(2)) != 2 {
		t.Fatalf("Min(9, 2) should be 2")
	}
}

func TestPhysAddrAlignment(t *testing.T) {
	p := addr.PhysAddr(0x2000_1234)
	if p.IsAligned(0x1000) {
		t.Fatalf("%#x should not be 4K-aligned", p)
	}
	if got := p.AlignDown(0x1000); got != 0x2000_1000 {
		t.Fatalf("AlignDown = %#x, want 0x20001000", got)
	}
	if got := p.AlignUp(0x1000); got != 0x2000_2000 {
		t.Fatalf("AlignUp = %#x, want 0x20002000", got)
	}
	if got := p.PageOffset(addr.Size4K); got != 0x234 {
		t.Fatalf("PageOffset = %#x, want 0x234", got)
	}
}

func TestVirtAddrAlignment(t *testing.T) {
	v := addr.VirtAddr(0x4000_0800)
	if got := v.Add(0x800); got != 0x4000_1000 {
		t.Fatalf("Add = %#x, want 0x40001000", got)
	}
	if !v.AlignUp(0x1000).IsAligned(0x1000) {
		t.Fatalf("AlignUp result should be aligned")
	}
}

func TestPageSizeString(t *testing.T) {
	cases := []struct {
		size addr.PageSize
		want string
	}{
		{addr.Size4K, "4K"},
		{addr.Size2M, "2M"},
		{addr.Size1G, "1G"},
		{addr.Size512G, "512G"},
	}
	for _, c := range cases {
		if got := c.size.String(); got != c.want {
			t.Errorf("%#x.String() = %q, want %q", uintptr(c.size), got, c.want)
		}
	}
}

func TestPageSizeBits(t *testing.T) {
	if addr.Size4K.Bits() != 12 {
		t.Fatalf("Size4K.Bits() = %d, want 12", addr.Size4K.Bits())
	}
	if addr.Size2M.Bits() != 21 {
		t.Fatalf("Size2M.Bits() = %d, want 21", addr.Size2M.Bits())
	}
	if addr.Size1G.Bits() != 30 {
		t.Fatalf("Size1G.Bits() = %d, want 30", addr.Size1G.Bits())
	}
}

func TestPageSizeIsHuge(t *testing.T) {
	if addr.Size4K.IsHuge(addr.Size4K) {
		t.Fatalf("base granule should not be huge")
	}
	if !addr.Size2M.IsHuge(addr.Size4K) {
		t.Fatalf("2M should be huge relative to a 4K base granule")
	}
}
