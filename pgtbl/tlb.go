package pgtbl

import (
	"log"
	"runtime"

	"pgtbl/addr"
)

// TlbFlush is returned by every mutating operation that touches exactly one
// virtual address, representing a pending invalidation the caller must
// resolve. Go has no linear types, so the "must be consumed" contract is
// enforced at runtime instead — Flush or Ignore must be called exactly
// once, and a finalizer logs a warning if neither happens before the value
// is collected.
type TlbFlush struct {
	v    addr.VirtAddr
	meta Metadata
	done *bool
}

func newTlbFlush(m Metadata, v addr.VirtAddr) TlbFlush {
	done := new(bool)
	runtime.SetFinalizer(done, func(d *bool) {
		if !*d {
			log.Printf("pgtbl: TlbFlush for %#x was never consumed with Flush() or Ignore()", uintptr(v))
		}
	})
	return TlbFlush{v: v, meta: m, done: done}
}

// Flush invalidates the address this value was produced for.
func (f TlbFlush) Flush() {
	if f.done == nil {
		return
	}
	if *f.done {
		panic("pgtbl: TlbFlush consumed twice")
	}
	*f.done = true
	if f.meta != nil {
		f.meta.FlushTLB(f.v, false)
	}
}

// Ignore discards the flush obligation, e.g. because the caller will flush
// the whole TLB itself shortly after.
func (f TlbFlush) Ignore() {
	if f.done == nil {
		return
	}
	if *f.done {
		panic("pgtbl: TlbFlush consumed twice")
	}
	*f.done = true
}

// TlbFlushAll is the region-operation counterpart of TlbFlush: one
// obligation covering an entire operation's worth of touched addresses.
type TlbFlushAll struct {
	meta Metadata
	done *bool
	noop bool
}

func newTlbFlushAll(m Metadata) TlbFlushAll {
	done := new(bool)
	runtime.SetFinalizer(done, func(d *bool) {
		if !*d {
			log.Printf("pgtbl: TlbFlushAll was never consumed with Flush() or Ignore()")
		}
	})
	return TlbFlushAll{meta: m, done: done}
}

// consumedTlbFlushAll represents "nothing left to flush": used when a region
// operation already flushed every chunk individually (flushByPage) and has
// no remaining obligation to hand back.
func consumedTlbFlushAll() TlbFlushAll {
	return TlbFlushAll{noop: true}
}

// Flush invalidates every address the originating operation touched.
func (f TlbFlushAll) Flush() {
	if f.noop || f.done == nil {
		return
	}
	if *f.done {
		panic("pgtbl: TlbFlushAll consumed twice")
	}
	*f.done = true
	if f.meta != nil {
		f.meta.FlushTLB(0, true)
	}
}

// Ignore discards the flush obligation.
func (f TlbFlushAll) Ignore() {
	if f.noop || f.done == nil {
		return
	}
	if *f.done {
		panic("pgtbl: TlbFlushAll consumed twice")
	}
	*f.done = true
}
