package addr

// MappingFlags describes the capability bits a mapping carries, independent
// of any architecture's native PTE bit positions. An empty MappingFlags
// value is a legal, meaningful state: "this slot holds an entry, but it
// grants no access" (distinct from the slot being absent/unmapped).
type MappingFlags uint

const (
	// FlagRead grants load access.
	FlagRead MappingFlags = 1 << iota
	// FlagWrite grants store access.
	FlagWrite
	// FlagExecute grants instruction-fetch access.
	FlagExecute
	// FlagUser grants access from unprivileged (ring 3 / EL0 / U-mode) code.
	FlagUser
	// FlagDevice marks the mapping as device memory (no speculative access,
	// strict ordering).
	FlagDevice
	// FlagUncached disables caching for the mapping.
	FlagUncached
)

// Has reports whether flags contains every bit set in want.
func (f MappingFlags) Has(want MappingFlags) bool {
	return f&want == want
}

// HasAny reports whether flags contains at least one bit set in want.
func (f MappingFlags) HasAny(want MappingFlags) bool {
	return f&want != 0
}

// String renders the flag set using the conventional rwx-style letters,
// plus u/d/c for user/device/uncached.
func (f MappingFlags) String() string {
	letters := [...]struct {
		bit MappingFlags
		ch  byte
	}{
		{FlagRead, 'r'},
		{FlagWrite, 'w'},
		{FlagExecute, 'x'},
		{FlagUser, 'u'},
		{FlagDevice, 'd'},
		{FlagUncached, 'c'},
	}
	buf := make([]byte, 0, len(letters))
	for _, l := range letters {
		if f.HasAny(l.bit) {
			buf = append(buf, l.ch)
		} else {
			buf = append(buf, '-')
		}
	}
	return string(buf)
}
