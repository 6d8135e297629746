package pgtbl

import (
	"errors"

	"pgtbl/addr"
	"pgtbl/pgerror"
)

// chooseChunkSize picks the largest legal leaf size that both fits within
// remaining and leaves v aligned to it, falling back to the architecture's
// base granule. When allowHuge is false only the base granule is ever
// chosen.
func (t *Table[T, E, M]) chooseChunkSize(v addr.VirtAddr, remaining uintptr, allowHuge bool) addr.PageSize {
	var m M
	sizes := m.ValidPageSizes()
	best := sizes[0]
	if !allowHuge {
		return best
	}
	for _, s := range sizes {
		sz := uintptr(s)
		if remaining >= sz && uintptr(v)%sz == 0 && sz > uintptr(best) {
			best = s
		}
	}
	return best
}

func (t *Table[T, E, M]) finishRegion(flushByPage bool, pending []TlbFlush) TlbFlushAll {
	var m M
	if flushByPage {
		return consumedTlbFlushAll()
	}
	for _, f := range pending {
		f.Ignore()
	}
	return newTlbFlushAll(m)
}

// MapRegion installs mappings across [v, v+size), splitting the range into
// the largest legal chunks the alignment and allowHuge allow. paddrAt maps a
// chunk's starting virtual address to the physical address to map it to,
// letting callers drive either a contiguous or a scattered physical layout.
// On error the chunks already installed before the failing one are left in
// place; MapRegion never rolls back partial work.
func (t *Table[T, E, M]) MapRegion(v addr.VirtAddr, size uintptr, paddrAt func(addr.VirtAddr) addr.PhysAddr, flags addr.MappingFlags, allowHuge, flushByPage bool) (TlbFlushAll, error) {
	var pending []TlbFlush
	remaining := size
	cursor := v

	for remaining > 0 {
		chunk := t.chooseChunkSize(cursor, remaining, allowHuge)
		f, err := t.Map(cursor, paddrAt(cursor), chunk, flags)
		if err != nil {
			for _, p := range pending {
				p.Ignore()
			}
			return TlbFlushAll{}, err
		}
		if flushByPage {
			f.Flush()
		} else {
			pending = append(pending, f)
		}
		cursor = cursor.Add(uintptr(chunk))
		remaining -= uintptr(chunk)
	}
	return t.finishRegion(flushByPage, pending), nil
}

// UnmapRegion clears every mapping in [v, v+size). Addresses that are
// already unmapped are skipped rather than treated as an error, tolerating
// partially-populated ranges.
func (t *Table[T, E, M]) UnmapRegion(v addr.VirtAddr, size uintptr, flushByPage bool) (TlbFlushAll, error) {
	var m M
	baseGranule := m.ValidPageSizes()[0]
	var pending []TlbFlush
	remaining := size
	cursor := v

	for remaining > 0 {
		_, chunk, f, err := t.Unmap(cursor)
		if err != nil {
			if errors.Is(err, pgerror.Error{Code: pgerror.NotMapped}) {
				cursor = cursor.Add(uintptr(baseGranule))
				remaining -= addr.Min(remaining, uintptr(baseGranule))
				continue
			}
			for _, p := range pending {
				p.Ignore()
			}
			return TlbFlushAll{}, err
		}
		if flushByPage {
			f.Flush()
		} else {
			pending = append(pending, f)
		}
		cursor = cursor.Add(uintptr(chunk))
		remaining -= addr.Min(remaining, uintptr(chunk))
	}
	return t.finishRegion(flushByPage, pending), nil
}

// ProtectRegion overwrites the permission flags of every leaf mapping in
// [v, v+size). Unlike UnmapRegion, an unmapped address in the range is an
// error: there is no flag value that could paper over a missing mapping.
func (t *Table[T, E, M]) ProtectRegion(v addr.VirtAddr, size uintptr, flags addr.MappingFlags, flushByPage bool) (TlbFlushAll, error) {
	var pending []TlbFlush
	remaining := size
	cursor := v

	for remaining > 0 {
		chunk, f, err := t.Protect(cursor, flags)
		if err != nil {
			for _, p := range pending {
				p.Ignore()
			}
			return TlbFlushAll{}, err
		}
		if flushByPage {
			f.Flush()
		} else {
			pending = append(pending, f)
		}
		cursor = cursor.Add(uintptr(chunk))
		remaining -= addr.Min(remaining, uintptr(chunk))
	}
	return t.finishRegion(flushByPage, pending), nil
}
