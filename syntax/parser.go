package syntax

import (
	"strconv"

	"github.com/coregx/vimregex/lexer"
)

// ParseConfig bounds parser recursion and selects strict bracket handling
// (spec §6 STRICT flag: an unmatched '[' is an error, not a literal '[').
type ParseConfig struct {
	MaxRecursionDepth int
	Strict            bool
	IgnoreCase        bool
}

// Parser implements the recursive-descent grammar of spec §4.C:
// reg(paren) -> branch ('|' branch)*; branch -> concat ('&' concat)*;
// concat -> piece*; piece -> atom quantifier?.
type Parser struct {
	lex      *lexer.Lexer
	insts    []Inst
	nGroups  int
	nZGroups int
	closed   [10]bool
	zClosed  [10]bool
	flags    Flags
	cfg      ParseConfig
	pattern  string
	depth    int
}

type frag struct {
	start int
	out   []int // instruction indices whose Next is still dangling
}

// Parse compiles pattern into a Program. initial is the magic level before
// any in-band \v\m\M\V switch.
func Parse(pattern []byte, initial lexer.Level, cfg ParseConfig) (*Program, error) {
	p := &Parser{
		lex:     lexer.New(pattern, initial),
		insts:   make([]Inst, 0, 64),
		cfg:     cfg,
		pattern: string(pattern),
	}
	if cfg.IgnoreCase {
		p.flags |= FlagIgnoreCase
	}

	engine, skip := parseEngineOverride(pattern)
	if skip > 0 {
		p.lex.SeekTo(skip)
	}

	f, err := p.parseAlt(false)
	if err != nil {
		return nil, err
	}
	item, err := p.lex.Next()
	if err != nil {
		return nil, p.syntaxErr(item.Pos, "E55", err.Error())
	}
	if item.Kind != lexer.KindEOF {
		return nil, p.syntaxErr(item.Pos, "E55", "unmatched ')'")
	}

	endIdx := p.emit(Inst{Op: OpEnd, Next: -1})
	p.patch(f.out, endIdx)

	if err := p.validateBackrefs(); err != nil {
		return nil, err
	}
	if len(p.insts) > MaxInsts {
		return nil, &ParseError{Pos: len(pattern), Num: "E339", Msg: "pattern is too complex", TooBig: true}
	}

	prog := &Program{
		Insts:    p.insts,
		Start:    f.start,
		NGroups:  p.nGroups,
		NZGroups: p.nZGroups,
		Flags:    p.flags,
		Source:   p.pattern,
		Engine:   engine,
	}
	computePrefilter(prog)
	prog.Anchored = isAnchored(prog)
	return prog, nil
}

// parseEngineOverride recognizes a leading `\%#=N` (spec §6) and returns
// the engine it selects plus how many pattern bytes to skip, or (0, 0) if
// the prefix isn't present.
func parseEngineOverride(pattern []byte) (EngineTag, int) {
	if len(pattern) < 5 || pattern[0] != '\\' || pattern[1] != '%' || pattern[2] != '#' || pattern[3] != '=' {
		return EngineAuto, 0
	}
	switch pattern[4] {
	case '0':
		return EngineAuto, 5
	case '1':
		return EngineBT, 5
	case '2':
		return EngineNFA, 5
	}
	return EngineAuto, 0
}

func (p *Parser) emit(in Inst) int {
	p.insts = append(p.insts, in)
	return len(p.insts) - 1
}

func (p *Parser) patch(out []int, target int) {
	for _, idx := range out {
		p.insts[idx].Next = target
	}
}

func (p *Parser) syntaxErr(pos int, num, msg string) error {
	return &ParseError{Pos: pos, Num: num, Msg: msg}
}

// ParseError reports a compile-time failure with the E-number Vim would
// show for it (spec §7).
type ParseError struct {
	Pos    int
	Num    string
	Msg    string
	TooBig bool
}

func (e *ParseError) Error() string { return e.Num + ": " + e.Msg }

// parseAlt parses `branch ('|' branch)*`. paren indicates we're inside a
// group, so EOF before the closing paren is itself an error (checked by
// the caller that consumes the closing token).
func (p *Parser) parseAlt(paren bool) (frag, error) {
	first, err := p.parseBranch()
	if err != nil {
		return frag{}, err
	}
	branches := []frag{first}
	for {
		mark := p.lex.Save()
		item, err := p.lex.Next()
		if err != nil {
			return frag{}, err
		}
		if item.Kind == lexer.KindOp && item.Op == '|' {
			next, err := p.parseBranch()
			if err != nil {
				return frag{}, err
			}
			branches = append(branches, next)
			continue
		}
		p.lex.Restore(mark)
		break
	}
	if len(branches) == 1 {
		return branches[0], nil
	}
	return p.emitAlternation(branches), nil
}

func (p *Parser) emitAlternation(branches []frag) frag {
	var out []int
	branchInsts := make([]int, len(branches))
	for i, b := range branches {
		branchInsts[i] = p.emit(Inst{Op: OpBranch, Body: b.start, Alt: -1})
		out = append(out, b.out...)
	}
	for i := 0; i < len(branchInsts)-1; i++ {
		p.insts[branchInsts[i]].Alt = branchInsts[i+1]
	}
	return frag{start: branchInsts[0], out: out}
}

// parseBranch parses `concat ('&' concat)*`. All but the last concat
// compile to a zero-width positive-lookahead assertion (OpMatch) so the
// match range is governed by the final conjunct, per spec's AND operator.
func (p *Parser) parseBranch() (frag, error) {
	var assertions []int
	for {
		c, err := p.parseConcat()
		if err != nil {
			return frag{}, err
		}
		mark := p.lex.Save()
		item, err := p.lex.Next()
		if err != nil {
			return frag{}, err
		}
		if item.Kind == lexer.KindOp && item.Op == '&' {
			endIdx := p.emit(Inst{Op: OpBodyEnd, Next: -1})
			p.patch(c.out, endIdx)
			idx := p.emit(Inst{Op: OpMatch, Body: c.start, Next: -1})
			assertions = append(assertions, idx)
			continue
		}
		p.lex.Restore(mark)
		// c is the final (consuming) conjunct.
		if len(assertions) == 0 {
			return c, nil
		}
		for i, a := range assertions {
			if i+1 < len(assertions) {
				p.insts[a].Next = assertions[i+1]
			} else {
				p.insts[a].Next = c.start
			}
		}
		return frag{start: assertions[0], out: c.out}, nil
	}
}

// parseConcat parses a sequence of pieces until '|', '&', ')', or EOF.
func (p *Parser) parseConcat() (frag, error) {
	var result *frag
	for {
		mark := p.lex.Save()
		item, err := p.lex.Next()
		if err != nil {
			return frag{}, err
		}
		if item.Kind == lexer.KindEOF {
			p.lex.Restore(mark)
			break
		}
		if item.Kind == lexer.KindOp {
			switch item.Op {
			case '|', '&', ')':
				p.lex.Restore(mark)
				goto done
			}
		}
		p.lex.Restore(mark)

		piece, err := p.parsePiece(result == nil)
		if err != nil {
			return frag{}, err
		}
		if result == nil {
			result = &piece
		} else {
			p.patch(result.out, piece.start)
			result.out = piece.out
		}
	}
done:
	if result == nil {
		idx := p.emit(Inst{Op: OpNothing, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil
	}
	return *result, nil
}

// parsePiece parses one atom plus an optional quantifier/lookaround
// postfix. atStart is forwarded to parseAtom so a leading '^' is
// recognized as BOL only at the true start of a concatenation.
func (p *Parser) parsePiece(atStart bool) (frag, error) {
	atom, err := p.parseAtom(atStart)
	if err != nil {
		return frag{}, err
	}
	return p.parseQuantifier(atom)
}

func (p *Parser) parseQuantifier(atom frag) (frag, error) {
	mark := p.lex.Save()
	item, err := p.lex.Next()
	if err != nil {
		return frag{}, err
	}
	if item.Kind != lexer.KindOp {
		p.lex.Restore(mark)
		return atom, nil
	}
	switch item.Op {
	case '*':
		return p.wrapRepeat(atom, 0, -1, true), nil
	case '+':
		return p.wrapRepeat(atom, 1, -1, true), nil
	case '=', '?':
		return p.wrapRepeat(atom, 0, 1, true), nil
	case '{':
		return p.parseBrace(atom)
	case '@':
		return p.parseLookaroundPostfix(atom)
	}
	p.lex.Restore(mark)
	return atom, nil
}

// wrapRepeat compiles a bounded repetition of atom. Simple atoms (a single
// class/literal instruction) use STAR/PLUS/BRACE_SIMPLE, executed by the
// engine via regrepeat; anything else (groups, alternations, concats) uses
// BRACE_COMPLEX, executed via the recursive explicit back-stack form.
func (p *Parser) wrapRepeat(atom frag, min, max int, greedy bool) frag {
	simple := p.isSimpleAtom(atom)
	endIdx := p.emit(Inst{Op: OpBodyEnd, Next: -1})
	p.patch(atom.out, endIdx)

	var op Op
	if simple {
		switch {
		case min == 0 && max == -1:
			op = OpStar
		case min == 1 && max == -1:
			op = OpPlus
		default:
			op = OpBraceSimple
		}
	} else {
		op = OpBraceComplex
	}
	idx := p.emit(Inst{Op: op, Body: atom.start, Min: min, Max: max, Greedy: greedy, Next: -1})
	return frag{start: idx, out: []int{idx}}
}

func (p *Parser) isSimpleAtom(f frag) bool {
	in := p.insts[f.start]
	switch in.Op {
	case OpClass, OpExactly, OpMultibyte, OpAnyOf, OpAnyBut:
		return len(f.out) == 1 && f.out[0] == f.start
	}
	return false
}

// parseBrace parses the body of `\{...}` / `\{-...}` after the opening
// brace has been consumed.
func (p *Parser) parseBrace(atom frag) (frag, error) {
	greedy := true
	r, sz := p.lex.PeekRune()
	if r == '-' {
		greedy = false
		p.lex.SkipBytes(sz)
	}
	min, max, err := p.parseBraceBounds()
	if err != nil {
		return frag{}, err
	}
	r, sz = p.lex.PeekRune()
	// The closing '}' may carry a backslash (`\{n,m\}`); skip it.
	if r == '\\' {
		p.lex.SkipBytes(sz)
		r, sz = p.lex.PeekRune()
	}
	if r != '}' {
		return frag{}, p.syntaxErr(p.lex.Pos(), "E384", "missing closing '}'")
	}
	p.lex.SkipBytes(sz)
	return p.wrapRepeat(atom, min, max, greedy), nil
}

func (p *Parser) parseBraceBounds() (min, max int, err error) {
	minStr, maxStr := "", ""
	seenComma := false
	for {
		r, sz := p.lex.PeekRune()
		if r >= '0' && r <= '9' {
			if seenComma {
				maxStr += string(r)
			} else {
				minStr += string(r)
			}
			p.lex.SkipBytes(sz)
			continue
		}
		if r == ',' && !seenComma {
			seenComma = true
			p.lex.SkipBytes(sz)
			continue
		}
		break
	}
	min = 0
	max = -1
	if minStr != "" {
		v, e := strconv.Atoi(minStr)
		if e != nil {
			return 0, 0, p.syntaxErr(p.lex.Pos(), "E339", "bad brace bound")
		}
		min = v
	}
	if seenComma {
		if maxStr != "" {
			v, e := strconv.Atoi(maxStr)
			if e != nil {
				return 0, 0, p.syntaxErr(p.lex.Pos(), "E339", "bad brace bound")
			}
			max = v
		}
	} else if minStr != "" {
		max = min
	}
	return min, max, nil
}

// parseLookaroundPostfix handles `\@=`, `\@!`, `\@>`, `\@<=`, `\@<!`
// following a group atom.
func (p *Parser) parseLookaroundPostfix(atom frag) (frag, error) {
	r, sz := p.lex.PeekRune()
	switch r {
	case '=':
		p.lex.SkipBytes(sz)
		return p.wrapAssertion(atom, OpMatch, -1), nil
	case '!':
		p.lex.SkipBytes(sz)
		return p.wrapAssertion(atom, OpNomatch, -1), nil
	case '>':
		p.lex.SkipBytes(sz)
		return p.wrapAssertion(atom, OpSubpat, -1), nil
	case '<':
		p.lex.SkipBytes(sz)
		r2, sz2 := p.lex.PeekRune()
		switch r2 {
		case '=':
			p.lex.SkipBytes(sz2)
			p.flags |= FlagUsesLookbehind
			return p.wrapAssertion(atom, OpBehind, -1), nil
		case '!':
			p.lex.SkipBytes(sz2)
			p.flags |= FlagUsesLookbehind
			return p.wrapAssertion(atom, OpNobehind, -1), nil
		}
	}
	return frag{}, p.syntaxErr(p.lex.Pos(), "E59", "invalid lookaround atom")
}

func (p *Parser) wrapAssertion(atom frag, op Op, num int) frag {
	endIdx := p.emit(Inst{Op: OpBodyEnd, Next: -1})
	p.patch(atom.out, endIdx)
	idx := p.emit(Inst{Op: op, Body: atom.start, Num: num, Next: -1})
	return frag{start: idx, out: []int{idx}}
}

func (p *Parser) depthGuard() error {
	p.depth++
	if p.depth > p.cfg.MaxRecursionDepth {
		return p.syntaxErr(p.lex.Pos(), "E339", "pattern nesting too deep")
	}
	return nil
}

func (p *Parser) undepth() { p.depth-- }

// validateBackrefs rejects references to a group number never defined
// anywhere in the pattern (E65). The other half
// of seen_endbrace()'s check — a back-reference whose group hasn't
// closed yet, unless a trailing lookbehind licenses the forward
// reference — happens inline in backrefAtom instead of here: by the time
// this post-pass runs over the finished instruction list, every defined
// group already shows as closed, forward reference or not, so that check
// needs to run at the moment the back-reference itself is parsed.
func (p *Parser) validateBackrefs() error {
	for _, in := range p.insts {
		switch in.Op {
		case OpBackref:
			if in.Group < 1 || in.Group > p.nGroups {
				return &ParseError{Num: "E65", Msg: "back-reference to a group that is never defined"}
			}
		case OpZref:
			if in.Group < 1 || in.Group > p.nZGroups {
				return &ParseError{Num: "E65", Msg: "z-back-reference to a group that is never defined"}
			}
		}
	}
	return nil
}
