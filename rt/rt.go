// Package rt defines the runtime types both execution engines (btengine,
// nfa) and the substitution engine share: the caller-supplied buffer
// contract (LineProvider) and the submatch records a match produces.
//
// Splitting these out of the root package keeps btengine/nfa free of a
// dependency on the root package, which itself depends on them.
package rt

// LineProvider is how an engine reaches into the caller's buffer without
// owning a copy of it, mirroring Vim's reg_getline/reg_buf/win_cursor
// callback surface (spec §4's "external interfaces").
type LineProvider interface {
	// GetLine returns the bytes of line lnum (0-based), without a
	// trailing newline, or nil if lnum is out of range.
	GetLine(lnum int) []byte
	// MaxLnum returns the number of the last valid line.
	MaxLnum() int
	// VisualRegion reports the current Visual-mode selection as
	// ((startLnum,startCol),(endLnum,endCol)) and whether one is active,
	// for \%V.
	VisualRegion() (startLnum, startCol, endLnum, endCol int, active bool)
	// Cursor reports the cursor position, for \%#.
	Cursor() (lnum, col int)
	// GetMark reports the position of mark m ('a'..'z', '<', '>', ...),
	// for \%'m. ok is false if the mark isn't set.
	GetMark(m byte) (lnum, col int, ok bool)
}

// Pos is a (line, column) position used by multi-line submatches; Lnum
// and Col are both byte-offset based, not screen-column based.
type Pos struct {
	Lnum int
	Col  int
}

// NoPos is the unset sentinel for a Pos field.
var NoPos = Pos{Lnum: -1, Col: -1}

// nGroups is the fixed capture-slot count: the whole match (index 0) plus
// groups 1-9, matching Vim's NSUBEXP.
const nGroups = 10

// Match is a single-line submatch record: byte-offset column pairs
// relative to the one line a single-line Match call searched, used by
// Compile+Match and exposed to :substitute for single-line patterns. A
// group that did not participate has Start == -1.
type Match struct {
	Line       []byte
	StartCol   [nGroups]int
	EndCol     [nGroups]int
	ZStartCol  [nGroups]int
	ZEndCol    [nGroups]int
}

// NewMatch returns a Match with every slot unset.
func NewMatch(line []byte) *Match {
	m := &Match{Line: line}
	for i := range m.StartCol {
		m.StartCol[i] = -1
		m.EndCol[i] = -1
		m.ZStartCol[i] = -1
		m.ZEndCol[i] = -1
	}
	return m
}

// Clone returns an independent copy, used for the copy-on-write capture
// snapshots the NFA engine takes in addThread before writing a slot.
func (m *Match) Clone() *Match {
	c := *m
	return &c
}

// Group returns the matched text for group n (0 is the whole match), or
// nil, false if it did not participate.
func (m *Match) Group(n int) ([]byte, bool) {
	if n < 0 || n >= nGroups || m.StartCol[n] < 0 || m.EndCol[n] < 0 {
		return nil, false
	}
	return m.Line[m.StartCol[n]:m.EndCol[n]], true
}

// ZGroup returns the matched text for z-group n (1..9).
func (m *Match) ZGroup(n int) ([]byte, bool) {
	if n < 1 || n >= nGroups || m.ZStartCol[n] < 0 || m.ZEndCol[n] < 0 {
		return nil, false
	}
	return m.Line[m.ZStartCol[n]:m.ZEndCol[n]], true
}

// MultiMatch is a multi-line submatch record: (lnum, col) pairs relative
// to the LineProvider a MatchMulti call searched.
type MultiMatch struct {
	Start  [nGroups]Pos
	End    [nGroups]Pos
	ZStart [nGroups]Pos
	ZEnd   [nGroups]Pos
}

// NewMultiMatch returns a MultiMatch with every slot unset.
func NewMultiMatch() *MultiMatch {
	m := &MultiMatch{}
	for i := range m.Start {
		m.Start[i] = NoPos
		m.End[i] = NoPos
		m.ZStart[i] = NoPos
		m.ZEnd[i] = NoPos
	}
	return m
}

// Clone returns an independent copy.
func (m *MultiMatch) Clone() *MultiMatch {
	c := *m
	return &c
}
