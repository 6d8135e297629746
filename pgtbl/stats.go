package pgtbl

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pgtbl/addr"
)

var statsPrinter = message.NewPrinter(language.English)

// Stats summarizes a table's frame usage: how much memory the page-table
// structure itself costs, broken down by frame role.
type Stats struct {
	// IntermediateFrames counts table frames the Table itself owns (root
	// plus every intermediate), excluding frames shared in via CopyFrom.
	IntermediateFrames int
	// LeafMappings counts installed leaf entries at every level, huge or not.
	LeafMappings int
	// HugeMappings counts installed leaf entries above the deepest level.
	HugeMappings int
	// BorrowedFrames counts intermediate frames shared in via CopyFrom and
	// therefore excluded from IntermediateFrames and from Close's teardown.
	BorrowedFrames int
}

// Stats walks the table and reports its current frame usage. It never
// mutates the table.
func (t *Table[T, E, M]) Stats() Stats {
	var m M
	var s Stats
	s.BorrowedFrames = len(t.borrowed)
	s.IntermediateFrames = 1 // the root itself
	t.walkStats(t.root, 0, m.Levels(), true, &s)
	return s
}

func (t *Table[T, E, M]) walkStats(frame addr.PhysAddr, level, levels int, owned bool, s *Stats) {
	var m M
	n := 1 << uint(m.BitsPerLevel())
	entries := entriesAt[T](t.handler, frame, n)
	for i := range entries {
		e := E(&entries[i])
		if e.IsUnused() {
			continue
		}
		if level == levels-1 || e.IsHuge() {
			s.LeafMappings++
			if level < levels-1 {
				s.HugeMappings++
			}
			continue
		}
		child := e.Paddr()
		childOwned := owned && !t.isBorrowed(child)
		if childOwned {
			s.IntermediateFrames++
		}
		t.walkStats(child, level+1, levels, childOwned, s)
	}
}

// String renders stats with thousand-separated counts, so a table backing
// a multi-gigabyte mapping doesn't print as an unreadable digit run.
func (s Stats) String() string {
	return statsPrinter.Sprintf("pgtbl.Stats{intermediate=%d leaves=%d huge=%d borrowed=%d}",
		s.IntermediateFrames, s.LeafMappings, s.HugeMappings, s.BorrowedFrames)
}
