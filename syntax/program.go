// Package syntax implements component C of the regex core: the recursive-
// descent parser and program emitter. It turns a lexer.Item stream into a
// compact program graph of typed instructions (the "opcode blob" of spec
// §3/§4.C), and computes the must-start-with code point and must-contain
// literal used as a prefilter.
//
// Offsets in the original C implementation are 16-bit byte offsets into a
// flat instruction blob; vimregex instead represents the graph as a Go
// slice of Inst with integer indices standing in for those offsets (the
// "Node view type" the design notes call for), while still enforcing the
// same ceiling (65535 instructions) so ErrTooBig/E339 triggers at the same
// scale.
package syntax

import (
	"github.com/coregx/ahocorasick"
	"github.com/coregx/vimregex/chartab"
)

// Op identifies one instruction's opcode family.
type Op uint8

const (
	OpBOL Op = iota
	OpEOL
	OpBOF
	OpEOF
	OpBOW
	OpEOW
	OpCursor
	OpVisual
	OpComposing
	OpNewl
	OpBhpos

	OpLnum
	OpCol
	OpVcol
	OpMark

	OpClass
	OpExactly
	OpMultibyte
	OpAnyOf
	OpAnyBut

	OpBranch
	OpBack
	OpNothing
	OpEnd
	// OpBodyEnd marks the end of a Body sub-chain owned by a repeat or
	// assertion instruction (OpStar/OpPlus/OpBraceSimple/OpBraceComplex/
	// OpMatch/OpNomatch/OpBehind/OpNobehind/OpSubpat). It signals "this
	// sub-chain matched" to the engine without signalling "the whole
	// program matched", which is what OpEnd means.
	OpBodyEnd
	OpMatch
	OpNomatch
	OpSubpat
	OpBehind
	OpNobehind

	OpStar
	OpPlus
	OpBraceSimple
	OpBraceComplex

	OpMopen
	OpMclose
	OpNopen
	OpNclose
	OpZopen
	OpZclose
	OpBackref
	OpZref
)

// ClassKind identifies which character-class predicate an OpClass
// instruction tests (component A's predicates, spec §4.C "atom" ->
// class).
type ClassKind uint8

const (
	ClassAny ClassKind = iota
	ClassIdent
	ClassSIdent // \I: identifier character, digits excluded
	ClassKword
	ClassSKword // \K: keyword character, digits excluded
	ClassFname
	ClassSFname // \F: filename character, digits excluded
	ClassPrint
	ClassSPrint // \P: printable character, digits excluded
	ClassWhite
	ClassDigit
	ClassHex
	ClassOctal
	ClassWord
	ClassHead
	ClassAlpha
	ClassLower
	ClassUpper
)

// CharSet is the decoded body of a `[...]` bracket expression: an explicit
// rune set plus ranges, used by OpAnyOf/OpAnyBut.
type CharSet struct {
	Runes  map[rune]bool
	Ranges []RuneRange
	// Classes holds POSIX `[:class:]` predicates folded in (component A).
	Classes []ClassKind
}

// RuneRange is an inclusive [Lo, Hi] range inside a bracket expression.
type RuneRange struct{ Lo, Hi rune }

// Contains reports whether r is a member of the set: an explicit rune, a
// range, or one of the set's `[:class:]` predicates (tested against the
// default chartab; a buffer-specific table only matters for \i \k \f \p
// class shortcuts outside brackets, not POSIX bracket classes).
func (s *CharSet) Contains(r rune) bool {
	if s.Runes[r] {
		return true
	}
	for _, rr := range s.Ranges {
		if r >= rr.Lo && r <= rr.Hi {
			return true
		}
	}
	if len(s.Classes) == 0 {
		return false
	}
	t := chartab.Default()
	for _, c := range s.Classes {
		switch c {
		case ClassAlpha:
			if t.IsAlpha(r) {
				return true
			}
		case ClassDigit:
			if t.IsDigit(r) {
				return true
			}
		case ClassLower:
			if t.IsLower(r) {
				return true
			}
		case ClassUpper:
			if t.IsUpper(r) {
				return true
			}
		case ClassWhite:
			if t.IsWhite(r) {
				return true
			}
		case ClassHex:
			if t.IsHex(r) {
				return true
			}
		case ClassOctal:
			if t.IsOctal(r) {
				return true
			}
		case ClassPrint:
			if t.IsPrint(r) {
				return true
			}
		case ClassWord:
			if t.IsWord(r) {
				return true
			}
		case ClassHead:
			if t.IsHead(r) {
				return true
			}
		}
	}
	return false
}

// Cmp is a position-predicate comparator (`\%23l`, `\%'m>`, ...).
type Cmp uint8

const (
	CmpEq Cmp = iota
	CmpLess
	CmpGreater
)

// Inst is one program instruction. Only the fields relevant to Op are
// meaningful; the rest are zero. Next is the default successor (the
// instruction executed after this one succeeds and falls through);
// control-flow instructions override it with Body/Alt as documented per
// opcode below.
type Inst struct {
	Op Op

	Next int // default fallthrough successor, -1 if none (end of program)

	// OpClass / OpAnyOf / OpAnyBut
	Class ClassKind
	Neg   bool
	NL    bool // "+NL" variant: also matches a line break
	Set   *CharSet

	// OpExactly
	Str []byte
	// OpMultibyte
	Rune rune

	// OpBranch: Body is this alternative's instruction sequence; Alt is
	// the next BRANCH to try if Body fails to lead to an overall match
	// (-1 if this is the last alternative).
	Body int
	Alt  int

	// OpMatch/OpNomatch/OpBehind/OpNobehind/OpSubpat: Body is the
	// zero-width (or bounded) assertion's sub-program entry point.
	// OpBehind/OpNobehind: Num bounds how many characters back to try
	// (-1 = unbounded, scan back to start of line/buffer).
	Num int

	// OpStar/OpPlus/OpBraceSimple: Body is a single simple atom
	// instruction (class/exactly/multibyte/anyof/anybut), matched
	// through regrepeat. Min/Max bound the repeat count; Greedy
	// selects greedy-vs-reluctant backtrack order (`{-m,n}`).
	//
	// OpBraceComplex: Body is an arbitrary sub-program (may itself
	// contain alternation/groups); the engine drives it through an
	// explicit back-stack progress check to rule out infinite empty
	// loops (spec §8 "Back-stack progress").
	Min, Max int
	Greedy   bool

	// OpMopen/OpMclose/OpZopen/OpZclose/OpBackref/OpZref: Group is the
	// 1..9 group number (0 for MOPEN_0/MCLOSE_0, the whole match /
	// \zs..\ze override).
	Group int

	// OpLnum/OpCol/OpVcol: Num is the compared-against value, Cmp the
	// comparator.
	CmpOp Cmp
	// OpMark: MarkName is the mark character ('a'..'z', '<', '>', ...).
	MarkName byte
}

// Flags mirrors the compiled-program flag set of spec §3.
type Flags uint8

const (
	FlagIgnoreCase Flags = 1 << iota
	FlagNoIgnoreCase
	FlagHasNewline
	FlagIgnoreCombine
	FlagUsesLookbehind
	FlagHasZCaptures
)

// EngineTag selects which execution engine a Program targets.
type EngineTag uint8

const (
	// EngineAuto means the pattern carried no `\%#=N` override; the
	// caller's Config.PreferEngine decides.
	EngineAuto EngineTag = iota
	EngineBT
	EngineNFA
)

// Prefilter is the optional first-code-point / must-contain-literal
// skip-scan computed by the emitter (spec §4.C post-parse pass).
type Prefilter struct {
	HasFirstRune bool
	FirstRune    rune
	// Literal holds the bytes of the first OpExactly on the path from
	// Start. The parser emits one OpExactly per character, so this is a
	// single byte; longer required substrings are not collected. nil when
	// the head is not an ASCII literal.
	Literal []byte
	// FoldedLiteralVariants holds every ASCII-fold byte-form of Literal
	// when the program is compiled ignore-case; see prefilter.go.
	FoldedLiteralVariants [][]byte
	// auto is the Aho-Corasick automaton over FoldedLiteralVariants used
	// by NextCandidate to skip-scan; nil when Literal is empty or the
	// automaton failed to build.
	auto *ahocorasick.Automaton
}

// Program is the compiled, immutable (except InUse) output of Parse: an
// instruction graph plus the metadata spec §3 calls for.
type Program struct {
	Insts    []Inst
	Start    int
	NGroups  int // number of capturing \(...\) groups seen, 0..9
	NZGroups int // number of \z(...\) groups seen, 0..9
	Flags    Flags
	Prefilter
	Anchored bool
	Engine   EngineTag

	Source string

	// InUse is the re-entrancy guard of spec §3; Compile leaves it
	// false, engines set/clear it around a single match call.
	InUse bool
}

// MaxInsts is the ceiling on program size, standing in for the original
// 16-bit byte-offset space (spec §4.C "offsets are 16-bit").
const MaxInsts = 65535
