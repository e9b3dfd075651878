// Package nfa implements component E: the NFA execution engine. It runs
// a Thompson-style lockstep simulation directly over a syntax.Program's
// instruction graph (no separate NFA compile step — the program graph is
// already instruction-indexed with epsilon edges via Next/Body/Alt), using
// a frontier pair (clist/nlist) deduplicated with internal/sparse, the
// way the teacher's pikevm.go tracks its own clist/nlist.
//
// Vim's backreferences, lookaround, atomic groups, and arbitrary-body
// braces have no lockstep NFA representation; Supports reports whether a
// program sticks to the subset that does, and a caller (package
// vimregex) falls back to btengine whenever it doesn't, exactly as Vim's
// own NFA engine bails to its own backtracking engine on the same
// constructs (ErrTooExpensive, spec §4.E).
package nfa

import (
	"errors"
	"unicode/utf8"

	"github.com/coregx/vimregex/chartab"
	"github.com/coregx/vimregex/internal/conv"
	"github.com/coregx/vimregex/internal/sparse"
	"github.com/coregx/vimregex/rt"
	"github.com/coregx/vimregex/syntax"
)

// ErrTooExpensive is returned by Run when the program was not rejected by
// Supports up front but the simulation still can't proceed (defensive;
// Supports is expected to catch every case ahead of time).
var ErrTooExpensive = errors.New("nfa: construct not supported by the NFA engine")

// Supports reports whether prog sticks to the subset of opcodes the NFA
// engine can run in lockstep: no backreferences, lookaround, atomic
// groups, or arbitrary-body braces.
func Supports(prog *syntax.Program) bool {
	for _, in := range prog.Insts {
		switch in.Op {
		case syntax.OpBackref, syntax.OpZref,
			syntax.OpMatch, syntax.OpNomatch,
			syntax.OpBehind, syntax.OpNobehind,
			syntax.OpSubpat, syntax.OpBraceComplex,
			syntax.OpCursor, syntax.OpVisual, syntax.OpMark,
			syntax.OpLnum, syntax.OpCol, syntax.OpVcol,
			syntax.OpComposing, syntax.OpBhpos:
			// Buffer-context position atoms need a PosContext the
			// lockstep frontier has no natural place to carry per
			// thread without defeating the dedup invariant (every
			// thread at the same pc would need its own resolved
			// truth value cached alongside it); btengine already
			// handles them, so the NFA engine simply declines.
			return false
		case syntax.OpPlus, syntax.OpBraceSimple:
			// A bounded or mandatory repeat count has no pc-keyed
			// lockstep representation without carrying a per-thread
			// counter (addThread's epsilon-closure dedup is keyed on
			// pc alone); only the unbounded, zero-or-more case (plain
			// Kleene star) is simulated, so \+ and \{n,m} with a
			// nonzero floor or a finite ceiling bail to btengine.
			if in.Min != 0 || in.Max != -1 {
				return false
			}
		}
	}
	return true
}

// bodyEndOwners maps each repeat's internal OpBodyEnd instruction back to
// the OpStar/OpPlus/OpBraceSimple instruction that owns it, so addThread
// can loop the repeat construct back around instead of falling off the
// end of an isolated Body sub-chain (see wrapRepeat in syntax/parser.go:
// Body's single atom has its `out` patched to a fresh OpBodyEnd whose own
// Next is never set).
func bodyEndOwners(prog *syntax.Program) map[int]int {
	owners := make(map[int]int)
	for i, in := range prog.Insts {
		switch in.Op {
		case syntax.OpStar, syntax.OpPlus, syntax.OpBraceSimple:
			owners[prog.Insts[in.Body].Next] = i
		}
	}
	return owners
}

// thread is one live NFA thread: an instruction pointer plus the capture
// snapshot that reached it. caps is shared (copy-on-write) across threads
// that haven't diverged yet.
type thread struct {
	pc   int
	caps *rt.Match
}

type threadList struct {
	threads []thread
	seen    *sparse.SparseSet
}

func newThreadList(n int) *threadList {
	return &threadList{seen: sparse.NewSparseSet(conv.IntToUint32(n))}
}

func (l *threadList) reset() {
	l.threads = l.threads[:0]
	l.seen.Clear()
}

// Run simulates prog over buf starting at or after startPos in lockstep,
// returning the leftmost match using the same leftmost-first (not
// leftmost-longest) priority order a backtracking engine would: once a
// thread reaches OpEnd, every lower-priority thread added after it in the
// same step is discarded, but higher-priority threads already in flight
// keep running in case they produce their own, preferred match.
func Run(prog *syntax.Program, buf []byte, startPos int, dispatchInterval int, cancel <-chan struct{}, pos *nfaPosContext) (*rt.Match, error) {
	n := len(prog.Insts)
	clist := newThreadList(n)
	nlist := newThreadList(n)
	table := chartab.Default()
	ignoreCase := prog.Flags&syntax.FlagIgnoreCase != 0
	owners := bodyEndOwners(prog)

	last := len(buf)
	dispatches := 0
	for start := startPos; start <= last; start++ {
		if !prog.Anchored && prog.Prefilter.HasFirstRune {
			next, ok := prog.Prefilter.NextCandidate(buf, start)
			if !ok {
				break
			}
			start = next
			if start > last {
				break
			}
		}
		clist.reset()
		init := rt.NewMatch(buf)
		init.StartCol[0] = start
		addThread(clist, prog, buf, start, prog.Start, init, table, pos, owners)

		var matched *rt.Match
		p := start
		for {
			if len(clist.threads) == 0 {
				break
			}
			dispatches++
			if dispatchInterval > 0 && dispatches%dispatchInterval == 0 && cancel != nil {
				select {
				case <-cancel:
					return nil, errors.New("nfa: interrupted")
				default:
				}
			}

			var r rune
			var size int
			atEOF := p >= len(buf)
			if !atEOF {
				r, size = decodeRuneAt(buf, p)
			}

			nlist.reset()
			for i := 0; i < len(clist.threads); i++ {
				th := clist.threads[i]
				in := &prog.Insts[th.pc]
				switch in.Op {
				case syntax.OpEnd:
					if th.caps.EndCol[0] < 0 {
						th.caps.EndCol[0] = p
					}
					matched = th.caps
					// Lower-priority threads queued after this one this
					// step can't win; drop them.
					clist.threads = clist.threads[:i+1]
				case syntax.OpClass:
					if !atEOF && classMatches(table, in.Class, r) != in.Neg {
						addThread(nlist, prog, buf, p+size, in.Next, th.caps, table, pos, owners)
					}
				case syntax.OpAnyOf:
					if !atEOF && in.Set.Contains(r) {
						addThread(nlist, prog, buf, p+size, in.Next, th.caps, table, pos, owners)
					}
				case syntax.OpAnyBut:
					if !atEOF && !in.Set.Contains(r) {
						addThread(nlist, prog, buf, p+size, in.Next, th.caps, table, pos, owners)
					}
				case syntax.OpMultibyte:
					if !atEOF && runeEq(r, in.Rune, ignoreCase) {
						addThread(nlist, prog, buf, p+size, in.Next, th.caps, table, pos, owners)
					}
				case syntax.OpExactly:
					if matchExactlyAt(buf, p, in.Str, ignoreCase) {
						addThread(nlist, prog, buf, p+len(in.Str), in.Next, th.caps, table, pos, owners)
					}
				case syntax.OpNewl:
					if !atEOF && buf[p] == '\n' {
						addThread(nlist, prog, buf, p+1, in.Next, th.caps, table, pos, owners)
					}
				}
			}
			clist, nlist = nlist, clist
			if atEOF {
				break
			}
			p += size
		}
		if matched != nil {
			return matched, nil
		}
		if prog.Anchored {
			break
		}
	}
	return nil, nil
}

// nfaPosContext mirrors btengine.PosContext without importing btengine;
// defined
// identically and adapted at the call site.
type nfaPosContext struct {
	LineOf   func(pos int) (lnum, col int)
	Provider rt.LineProvider
}

// addThread expands pc through every epsilon transition reachable from it
// (Nothing, Mopen/Mclose/Zopen/Zclose with capture cloning, Branch, and
// position assertions evaluated immediately against pos), appending each
// consuming instruction or OpEnd it reaches to list, deduplicated by pc
// so the same instruction is never scheduled twice in one step (the
// standard Thompson-simulation invariant that keeps this linear instead
// of exponential).
func addThread(list *threadList, prog *syntax.Program, buf []byte, pos, pc int, caps *rt.Match, table *chartab.Table, posCtx *nfaPosContext, owners map[int]int) {
	if list.seen.Contains(conv.IntToUint32(pc)) {
		return
	}
	list.seen.Insert(conv.IntToUint32(pc))
	in := &prog.Insts[pc]

	switch in.Op {
	case syntax.OpNothing, syntax.OpNopen, syntax.OpNclose, syntax.OpBack:
		addThread(list, prog, buf, pos, in.Next, caps, table, posCtx, owners)
	case syntax.OpBranch:
		addThread(list, prog, buf, pos, in.Body, caps, table, posCtx, owners)
		if in.Alt >= 0 {
			addThread(list, prog, buf, pos, in.Alt, caps, table, posCtx, owners)
		}
	case syntax.OpMopen:
		c := caps.Clone()
		c.StartCol[in.Group] = pos
		addThread(list, prog, buf, pos, in.Next, c, table, posCtx, owners)
	case syntax.OpMclose:
		c := caps.Clone()
		c.EndCol[in.Group] = pos
		addThread(list, prog, buf, pos, in.Next, c, table, posCtx, owners)
	case syntax.OpZopen:
		c := caps.Clone()
		c.ZStartCol[in.Group] = pos
		addThread(list, prog, buf, pos, in.Next, c, table, posCtx, owners)
	case syntax.OpZclose:
		c := caps.Clone()
		c.ZEndCol[in.Group] = pos
		addThread(list, prog, buf, pos, in.Next, c, table, posCtx, owners)
	case syntax.OpBOL:
		if pos == 0 || buf[pos-1] == '\n' {
			addThread(list, prog, buf, pos, in.Next, caps, table, posCtx, owners)
		}
	case syntax.OpEOL:
		if pos == len(buf) || buf[pos] == '\n' {
			addThread(list, prog, buf, pos, in.Next, caps, table, posCtx, owners)
		}
	case syntax.OpBOF:
		if pos == 0 {
			addThread(list, prog, buf, pos, in.Next, caps, table, posCtx, owners)
		}
	case syntax.OpEOF:
		if pos == len(buf) {
			addThread(list, prog, buf, pos, in.Next, caps, table, posCtx, owners)
		}
	case syntax.OpBOW:
		if isWordBoundary(buf, pos, table) && pos < len(buf) && table.IsWord(rune(buf[pos])) {
			addThread(list, prog, buf, pos, in.Next, caps, table, posCtx, owners)
		}
	case syntax.OpEOW:
		if isWordBoundary(buf, pos, table) && pos > 0 && table.IsWord(rune(buf[pos-1])) {
			addThread(list, prog, buf, pos, in.Next, caps, table, posCtx, owners)
		}
	case syntax.OpStar, syntax.OpPlus, syntax.OpBraceSimple:
		addRepeat(list, prog, buf, pos, pc, caps, table, posCtx, owners)
	case syntax.OpBodyEnd:
		// Falling off the end of a repeat's Body sub-chain: loop back
		// to the owning repeat instruction to decide star-vs-exit
		// again, rather than following this instruction's own (unset)
		// Next.
		if owner, ok := owners[pc]; ok {
			addThread(list, prog, buf, pos, owner, caps, table, posCtx, owners)
		}
	case syntax.OpEnd, syntax.OpClass, syntax.OpAnyOf, syntax.OpAnyBut, syntax.OpMultibyte, syntax.OpExactly, syntax.OpNewl:
		list.threads = append(list.threads, thread{pc: pc, caps: caps})
	default:
		// Position atoms (\%l \%c \%v \%# \%V \%'m) and the unsupported
		// constructs Supports already rejected don't reach here in a
		// program the NFA engine agreed to run.
		addThread(list, prog, buf, pos, in.Next, caps, table, posCtx, owners)
	}
}

// addRepeat expands a simple-body repeat inline as the epsilon fork
// "match Body once more, or take Next", which is exactly what an NFA
// Kleene-star construction does; Body here is always a single consuming
// instruction (Supports guarantees only BRACE_COMPLEX, which has an
// arbitrary body, is excluded).
func addRepeat(list *threadList, prog *syntax.Program, buf []byte, pos, pc int, caps *rt.Match, table *chartab.Table, posCtx *nfaPosContext, owners map[int]int) {
	in := &prog.Insts[pc]
	// Greedy: prefer expanding the body again before falling through.
	if in.Greedy {
		addThread(list, prog, buf, pos, in.Body, caps, table, posCtx, owners)
		addThread(list, prog, buf, pos, in.Next, caps, table, posCtx, owners)
	} else {
		addThread(list, prog, buf, pos, in.Next, caps, table, posCtx, owners)
		addThread(list, prog, buf, pos, in.Body, caps, table, posCtx, owners)
	}
}

func isWordBoundary(buf []byte, pos int, table *chartab.Table) bool {
	before := pos > 0 && table.IsWord(rune(buf[pos-1]))
	after := pos < len(buf) && table.IsWord(rune(buf[pos]))
	return before != after
}

func classMatches(table *chartab.Table, c syntax.ClassKind, r rune) bool {
	switch c {
	case syntax.ClassAny:
		return r != '\n'
	case syntax.ClassIdent, syntax.ClassSIdent:
		if c == syntax.ClassSIdent && table.IsDigit(r) {
			return false
		}
		return table.IsIdent(r)
	case syntax.ClassKword, syntax.ClassSKword:
		if c == syntax.ClassSKword && table.IsDigit(r) {
			return false
		}
		return table.IsWord(r)
	case syntax.ClassFname, syntax.ClassSFname:
		if c == syntax.ClassSFname && table.IsDigit(r) {
			return false
		}
		return table.IsFname(r)
	case syntax.ClassPrint, syntax.ClassSPrint:
		if c == syntax.ClassSPrint && table.IsDigit(r) {
			return false
		}
		return table.IsPrint(r)
	case syntax.ClassWhite:
		return table.IsWhite(r)
	case syntax.ClassDigit:
		return table.IsDigit(r)
	case syntax.ClassHex:
		return table.IsHex(r)
	case syntax.ClassOctal:
		return table.IsOctal(r)
	case syntax.ClassWord:
		return table.IsWord(r)
	case syntax.ClassHead:
		return table.IsHead(r)
	case syntax.ClassAlpha:
		return table.IsAlpha(r)
	case syntax.ClassLower:
		return table.IsLower(r)
	case syntax.ClassUpper:
		return table.IsUpper(r)
	}
	return false
}

func runeEq(a, b rune, ignoreCase bool) bool {
	if a == b {
		return true
	}
	if ignoreCase {
		return chartab.Fold(a) == chartab.Fold(b)
	}
	return false
}

func matchExactlyAt(buf []byte, pos int, lit []byte, ignoreCase bool) bool {
	if !ignoreCase {
		if pos+len(lit) > len(buf) {
			return false
		}
		for i, b := range lit {
			if buf[pos+i] != b {
				return false
			}
		}
		return true
	}
	p := pos
	for _, b := range lit {
		if p >= len(buf) {
			return false
		}
		r, size := decodeRuneAt(buf, p)
		if !runeEq(r, rune(b), true) {
			return false
		}
		p += size
	}
	return true
}

func decodeRuneAt(buf []byte, pos int) (rune, int) {
	if buf[pos] < 0x80 {
		return rune(buf[pos]), 1
	}
	r, size := utf8.DecodeRune(buf[pos:])
	if r == utf8.RuneError && size <= 1 {
		return rune(buf[pos]), 1
	}
	return r, size
}
