// Package vimregex compiles and runs Vim's `:help pattern` regular
// expression dialect: the magic-mode lexer and recursive-descent parser
// (packages lexer/syntax) feed a compiled syntax.Program to one of two
// execution engines (package nfa's lockstep simulation, package
// btengine's recursive backtracker), selected automatically or pinned by
// a leading `\%#=N` in the pattern itself or by Config.PreferEngine.
//
// Compile once, Match/MatchMulti many times, the way the teacher's own
// top-level Compile/Regexp pairing works: a *Regexp is safe for
// concurrent read-only reuse across goroutines as long as no two Match
// calls run against the same *Regexp at once (the in_use guard rejects
// that with ErrRecursive rather than racing, mirroring Vim's own
// reg_prog->re_in_use).
package vimregex

import (
	"sync"

	"github.com/coregx/vimregex/btengine"
	"github.com/coregx/vimregex/lexer"
	"github.com/coregx/vimregex/nfa"
	"github.com/coregx/vimregex/rt"
	"github.com/coregx/vimregex/submatch"
	"github.com/coregx/vimregex/syntax"
)

// Regexp is a compiled pattern ready to match. The zero value is not
// usable; construct one with Compile or CompileWithConfig.
type Regexp struct {
	prog *syntax.Program
	cfg  Config

	mu           sync.Mutex
	inUse        bool
	engine       Engine // resolved engine: prog.Engine override, else cfg.PreferEngine
	nfaSupported bool   // cached nfa.Supports(prog), computed once at compile time
}

// Compile parses pattern under Vim's default magic level (Magic), case
// sensitive, with DefaultConfig — the common case for a `:help pattern`
// caller that hasn't changed 'magic'/'ignorecase' or tuned any budget.
func Compile(pattern string) (*Regexp, error) {
	return CompileWithConfig(pattern, lexer.Magic, false, DefaultConfig())
}

// CompileWithConfig parses pattern starting at the given magic level
// (spec §4.B "toggle_Magic" baseline, typically lexer.Magic unless the
// caller tracks Vim's 'magic' option itself), honoring ignoreCase the way
// Vim derives it from 'ignorecase'/'smartcase' before ever reaching the
// regex engine, under cfg.
//
// If the pattern (or cfg.PreferEngine) pins EngineNFA and the compiled
// program uses a construct the NFA engine cannot run in lockstep
// (backreferences, lookaround, atomic groups, a bounded or mandatory
// repeat), Compile fails with ErrTooExpensive rather than silently
// falling back — only EngineAuto falls through transparently at match
// time.
func CompileWithConfig(pattern string, initial lexer.Level, ignoreCase bool, cfg Config) (*Regexp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prog, err := syntax.Parse([]byte(pattern), initial, syntax.ParseConfig{
		MaxRecursionDepth: cfg.MaxRecursionDepth,
		IgnoreCase:        ignoreCase,
		Strict:            cfg.Strict,
	})
	if err != nil {
		return nil, translateParseErr(pattern, err)
	}
	if len(prog.Insts) > cfg.MaxProgramSize {
		return nil, newCompileError(pattern, len(pattern), E339, "pattern is too complex", ErrTooBig)
	}

	eng := engineFromTag(prog.Engine, cfg.PreferEngine)
	supported := nfa.Supports(prog)
	if eng == EngineNFA && !supported {
		return nil, newCompileError(pattern, 0, "", "pattern uses a construct the NFA engine cannot run", ErrTooExpensive)
	}

	return &Regexp{prog: prog, cfg: cfg, engine: eng, nfaSupported: supported}, nil
}

func engineFromTag(tag syntax.EngineTag, pref Engine) Engine {
	switch tag {
	case syntax.EngineBT:
		return EngineBT
	case syntax.EngineNFA:
		return EngineNFA
	default:
		return pref
	}
}

func translateParseErr(pattern string, err error) error {
	if pe, ok := err.(*syntax.ParseError); ok {
		base := ErrSyntax
		if pe.TooBig {
			base = ErrTooBig
		}
		return newCompileError(pattern, pe.Pos, ENumber(pe.Num), pe.Msg, base)
	}
	return err
}

// acquire sets the in_use guard, returning ErrRecursive if the Regexp is
// already matching on another call (spec §3's re-entrancy rule: a
// compiled Program must never be driven by two match attempts at once).
func (re *Regexp) acquire() error {
	re.mu.Lock()
	defer re.mu.Unlock()
	if re.inUse {
		return ErrRecursive
	}
	re.inUse = true
	return nil
}

func (re *Regexp) release() {
	re.mu.Lock()
	re.inUse = false
	re.mu.Unlock()
}

// dispatchIntervals returns the column/opcode dispatch intervals to run
// with, collapsed to 0 under Config.NoBreak (spec §6's NOBREAK flag): a
// dispatch interval of 0 is already how both engines' checkBudget skip
// the periodic cancellation check entirely (cancel is never even
// consulted), so NOBREAK costs nothing beyond picking that value.
func (re *Regexp) dispatchIntervals() (col, op int) {
	if re.cfg.NoBreak {
		return 0, 0
	}
	return re.cfg.DispatchColumnInterval, re.cfg.DispatchOpcodeInterval
}

// Match searches line for the pattern starting at or after startCol,
// returning the submatch record, whether a match was found, and the
// side-channel MatchResult (spec §7: timeouts/interrupts/TooExpensive/
// TooMuchMemory are reported here, not as a Go error).
func (re *Regexp) Match(line []byte, startCol int) (*rt.Match, MatchResult) {
	if err := re.acquire(); err != nil {
		return nil, MatchResult{Err: err}
	}
	defer re.release()

	pos := &btengine.PosContext{
		LineOf: func(p int) (int, int) { return 1, p + 1 },
	}

	colInterval, opInterval := re.dispatchIntervals()

	if re.engine != EngineBT && re.nfaSupported {
		m, err := nfa.Run(re.prog, line, startCol, colInterval*1000, nil, nil)
		if err == nil {
			return m, MatchResult{Matched: m != nil}
		}
		if re.engine == EngineNFA {
			return nil, MatchResult{Err: ErrInterrupted}
		}
		// EngineAuto: fall through to the backtracker on any NFA-side
		// failure.
	}

	m, err := btengine.Run(re.prog, line, startCol, re.cfg.MaxMemPat, opInterval, nil, pos)
	if err != nil {
		switch err {
		case btengine.ErrTooMuchMemory:
			return nil, MatchResult{Err: ErrTooMuchMemory}
		case btengine.ErrInterrupted:
			return nil, MatchResult{Err: ErrInterrupted}
		}
		return nil, MatchResult{Err: err}
	}
	return m, MatchResult{Matched: m != nil}
}

// MatchMulti searches a multi-line buffer via lp, starting at
// (startLnum, startCol) (0-based line, 0-based byte column), returning a
// MultiMatch with (lnum, col) submatch positions.
//
// Internally it flattens lp's lines into one '\n'-joined buffer and runs
// the same single-buffer engine over it (a deliberate simplification
// documented in DESIGN.md: Vim's own engines step line by line and never
// materialize the whole buffer, but a flattened scan produces identical
// submatch results for every construct this package implements, since
// none of them depend on per-line re-entry other than via \%l \%c \%v,
// which the supplied LineOf still resolves correctly against the
// flattened offsets).
func (re *Regexp) MatchMulti(lp rt.LineProvider, startLnum, startCol int) (*rt.MultiMatch, MatchResult) {
	if err := re.acquire(); err != nil {
		return nil, MatchResult{Err: err}
	}
	defer re.release()

	buf, offsets := flatten(lp)
	if startLnum < 0 || startLnum >= len(offsets) {
		return nil, MatchResult{}
	}
	startPos := offsets[startLnum] + startCol

	lineOf := func(p int) (int, int) {
		lnum := lineOfOffset(offsets, p)
		return lnum + 1, p - offsets[lnum] + 1
	}
	pos := &btengine.PosContext{LineOf: lineOf, Provider: lp}

	colInterval, opInterval := re.dispatchIntervals()

	var m *rt.Match
	var err error
	ranNFA := false
	if re.engine != EngineBT && re.nfaSupported {
		m, err = nfa.Run(re.prog, buf, startPos, colInterval*1000, nil, nil)
		if err != nil && re.engine == EngineNFA {
			return nil, MatchResult{Err: ErrInterrupted}
		}
		ranNFA = err == nil
	}
	if !ranNFA && re.engine != EngineNFA {
		m, err = btengine.Run(re.prog, buf, startPos, re.cfg.MaxMemPat, opInterval, nil, pos)
		if err != nil {
			switch err {
			case btengine.ErrTooMuchMemory:
				return nil, MatchResult{Err: ErrTooMuchMemory}
			case btengine.ErrInterrupted:
				return nil, MatchResult{Err: ErrInterrupted}
			}
			return nil, MatchResult{Err: err}
		}
	}
	if m == nil {
		return nil, MatchResult{}
	}
	return toMultiMatch(m, offsets), MatchResult{Matched: true}
}

// flatten joins every line lp exposes with '\n', returning the buffer and
// the byte offset each line starts at (offsets[i] is where line i begins;
// a trailing sentinel equal to len(buf) closes the last line).
func flatten(lp rt.LineProvider) ([]byte, []int) {
	max := lp.MaxLnum()
	var buf []byte
	offsets := make([]int, 0, max+2)
	for lnum := 0; lnum <= max; lnum++ {
		offsets = append(offsets, len(buf))
		buf = append(buf, lp.GetLine(lnum)...)
		buf = append(buf, '\n')
	}
	offsets = append(offsets, len(buf))
	return buf, offsets
}

// lineOfOffset returns the line index whose [offsets[i], offsets[i+1])
// span contains p.
func lineOfOffset(offsets []int, p int) int {
	lo, hi := 0, len(offsets)-2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if offsets[mid] <= p {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func toMultiMatch(m *rt.Match, offsets []int) *rt.MultiMatch {
	mm := rt.NewMultiMatch()
	for i := 0; i < 10; i++ {
		if m.StartCol[i] >= 0 {
			ln := lineOfOffset(offsets, m.StartCol[i])
			mm.Start[i] = rt.Pos{Lnum: ln, Col: m.StartCol[i] - offsets[ln]}
		}
		if m.EndCol[i] >= 0 {
			ln := lineOfOffset(offsets, m.EndCol[i])
			mm.End[i] = rt.Pos{Lnum: ln, Col: m.EndCol[i] - offsets[ln]}
		}
		if m.ZStartCol[i] >= 0 {
			ln := lineOfOffset(offsets, m.ZStartCol[i])
			mm.ZStart[i] = rt.Pos{Lnum: ln, Col: m.ZStartCol[i] - offsets[ln]}
		}
		if m.ZEndCol[i] >= 0 {
			ln := lineOfOffset(offsets, m.ZEndCol[i])
			mm.ZEnd[i] = rt.Pos{Lnum: ln, Col: m.ZEndCol[i] - offsets[ln]}
		}
	}
	return mm
}

// Free releases any resources held by re. vimregex's engines hold no
// off-heap state, so this only clears the in_use guard a caller might
// have left set after abandoning a match mid-call; it exists for
// symmetry with Vim's vim_regfree and so callers written against that
// lifecycle compile unchanged.
func (re *Regexp) Free() {
	re.mu.Lock()
	re.inUse = false
	re.mu.Unlock()
}

// String returns the source pattern re was compiled from.
func (re *Regexp) String() string { return re.prog.Source }

// NGroups reports how many capturing \(...\) groups the pattern has.
func (re *Regexp) NGroups() int { return re.prog.NGroups }

// Subst builds :substitute's replacement text from a single-line Match
// result (spec §4.F): source is copied through with `&`/`\&`, `\0`-`\9`,
// the `\u \U \l \L \e \E` case sinks and `\r \t \b` escapes expanded, or,
// when source begins with `\=`, eval is invoked once and its result used
// verbatim. magic/backslash mirror 'magic' and the :substitute command's
// own backslash-doubling flag the way they govern every other pattern
// metacharacter.
func (re *Regexp) Subst(m *rt.Match, source string, eval submatch.ExprEvaluator, magic, backslash bool) (string, error) {
	flags := submatchFlags(magic, backslash)
	out, err := submatch.Subst(submatch.Groups(m), source, eval, flags)
	return out, translateSubstErr(err)
}

// SubstMulti is Subst for a MatchMulti result: a capturing group that
// spans several lines joins them with CAR (spec's GroupsMulti), matching
// vim_regsub_both's own multi-line submatch behavior.
func (re *Regexp) SubstMulti(mm *rt.MultiMatch, lp rt.LineProvider, source string, eval submatch.ExprEvaluator, magic, backslash bool) (string, error) {
	flags := submatchFlags(magic, backslash)
	out, err := submatch.Subst(submatch.GroupsMulti(mm, lp), source, eval, flags)
	return out, translateSubstErr(err)
}

func submatchFlags(magic, backslash bool) submatch.Flags {
	var flags submatch.Flags
	if magic {
		flags |= submatch.FlagMagic
	}
	if backslash {
		flags |= submatch.FlagBackslash
	}
	return flags
}

func translateSubstErr(err error) error {
	if err == submatch.ErrNestingTooDeep {
		return ErrSubstNestingTooDeep
	}
	return err
}
