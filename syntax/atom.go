package syntax

import (
	"strings"

	"github.com/coregx/vimregex/chartab"
	"github.com/coregx/vimregex/lexer"
)

// shortcutClass maps a class-shortcut letter (lowercase) to the predicate
// it tests, per spec §4.B's shortcut table.
var shortcutClass = map[rune]ClassKind{
	'w': ClassWord, 'h': ClassHead, 'a': ClassAlpha, 'l': ClassLower,
	'u': ClassUpper, 'd': ClassDigit, 'x': ClassHex, 'o': ClassOctal,
	's': ClassWhite, 'i': ClassIdent, 'k': ClassKword, 'f': ClassFname,
	'p': ClassPrint,
}

// parseAtom consumes and compiles exactly one atom: a literal, class,
// anchor, group, backreference, or position predicate. atStart indicates
// this is the first piece of the enclosing concatenation (only then can
// '^' mean BOL).
func (p *Parser) parseAtom(atStart bool) (frag, error) {
	if err := p.depthGuard(); err != nil {
		return frag{}, err
	}
	defer p.undepth()

	item, err := p.lex.Next()
	if err != nil {
		return frag{}, p.wrapLexErr(err)
	}

	switch item.Kind {
	case lexer.KindEOF:
		return frag{}, p.syntaxErr(item.Pos, "E53", "unexpected end of pattern")

	case lexer.KindChar:
		return p.literalAtom(item.Ch), nil

	case lexer.KindEscapedChar:
		return p.literalAtom(item.Ch), nil

	case lexer.KindBackslashDigit:
		return p.backrefAtom(item)

	case lexer.KindClassShortcut:
		kind, ok := shortcutClass[item.Op]
		if !ok {
			return frag{}, p.syntaxErr(item.Pos, "E486", "unknown class shortcut")
		}
		idx := p.emit(Inst{Op: OpClass, Class: kind, Neg: item.Negated, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil

	case lexer.KindOp:
		return p.opAtom(item, atStart)
	}
	return frag{}, p.syntaxErr(item.Pos, "E53", "unrecognized token")
}

func (p *Parser) wrapLexErr(err error) error {
	if se, ok := err.(*lexer.SyntaxError); ok {
		return &ParseError{Pos: se.Pos, Num: "E488", Msg: se.Msg, TooBig: se.TooBig}
	}
	return err
}

func (p *Parser) literalAtom(r rune) frag {
	var idx int
	if r < 0x80 {
		idx = p.emit(Inst{Op: OpExactly, Str: []byte{byte(r)}, Next: -1})
	} else {
		idx = p.emit(Inst{Op: OpMultibyte, Rune: r, Next: -1})
	}
	return frag{start: idx, out: []int{idx}}
}

// backrefAtom compiles \1-\9 and \z1-\z9. Whether the referenced group's
// closing paren has already been seen at this point is checked right
// here, inline, the way nvim's regexp_bt.c calls seen_endbrace() the
// moment it parses the backref: p.closed/p.zClosed only reflect "closed
// so far" while parsing is in progress, so this check has to happen now
// rather than in a post-pass over the finished instruction list (by the
// time parsing finishes every defined group's closed flag reads true,
// forward reference or not). Whether the group is defined *anywhere* in
// the pattern, by contrast, can't be known until the whole pattern has
// been seen, so that check stays in validateBackrefs.
func (p *Parser) backrefAtom(item lexer.Item) (frag, error) {
	if item.Digit == 0 {
		return frag{}, p.syntaxErr(item.Pos, "E65", "\\0 is not a valid back-reference")
	}
	var idx int
	if item.Digit > 0 {
		if !p.closed[item.Digit] && !p.hasLookbehindAhead() {
			return frag{}, p.syntaxErr(item.Pos, "E65", "illegal back-reference (group not yet closed)")
		}
		idx = p.emit(Inst{Op: OpBackref, Group: item.Digit, Next: -1})
	} else {
		if !p.zClosed[-item.Digit] && !p.hasLookbehindAhead() {
			return frag{}, p.syntaxErr(item.Pos, "E65", "illegal z-back-reference (group not yet closed)")
		}
		idx = p.emit(Inst{Op: OpZref, Group: -item.Digit, Next: -1})
	}
	return frag{start: idx, out: []int{idx}}, nil
}

// hasLookbehindAhead mirrors seen_endbrace's "Trick: check if @<= or @<!
// follows" — a crude textual scan of whatever pattern source is left
// unparsed, not a structural one, matching nvim's own behavior exactly
// (a `\@<=`/`\@<!` anywhere later in the source licenses the forward
// reference, even outside the group the backref actually forward-refers
// to).
func (p *Parser) hasLookbehindAhead() bool {
	rest := string(p.lex.Remaining())
	return strings.Contains(rest, "@<=") || strings.Contains(rest, "@<!")
}

func (p *Parser) opAtom(item lexer.Item, atStart bool) (frag, error) {
	switch item.Op {
	case '.':
		idx := p.emit(Inst{Op: OpClass, Class: ClassAny, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil

	case '^':
		if atStart {
			idx := p.emit(Inst{Op: OpBOL, Next: -1})
			return frag{start: idx, out: []int{idx}}, nil
		}
		return p.literalAtom('^'), nil

	case '$':
		if p.atBranchEnd() {
			idx := p.emit(Inst{Op: OpEOL, Next: -1})
			return frag{start: idx, out: []int{idx}}, nil
		}
		return p.literalAtom('$'), nil

	case '~':
		// The "previous substitute string" search atom is not modeled;
		// treated as a literal tilde.
		return p.literalAtom('~'), nil

	case '[':
		return p.parseBracket()

	case ']', ')', '}':
		return p.literalAtom(item.Op), nil

	case '{', '+', '?', '=', '@':
		return p.literalAtom(item.Op), nil

	case 'n':
		idx := p.emit(Inst{Op: OpNewl, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil

	case '%':
		return p.parsePercentAtom()

	case 'Z':
		return p.parseZGroup()

	case 's':
		idx := p.emit(Inst{Op: OpMopen, Group: 0, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil

	case 'E':
		idx := p.emit(Inst{Op: OpMclose, Group: 0, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil

	case '(':
		return p.parseGroup()
	}
	return p.literalAtom(item.Op), nil
}

// atBranchEnd peeks whether the next token terminates the current branch
// ('|', '&', ')', or EOF), without consuming it, which is what makes '$'
// positional rather than literal.
func (p *Parser) atBranchEnd() bool {
	mark := p.lex.Save()
	defer p.lex.Restore(mark)
	item, err := p.lex.Next()
	if err != nil {
		return false
	}
	if item.Kind == lexer.KindEOF {
		return true
	}
	if item.Kind == lexer.KindOp {
		switch item.Op {
		case '|', '&', ')':
			return true
		}
	}
	return false
}

// parseGroup parses `\( reg \)`, a numbered capturing group.
func (p *Parser) parseGroup() (frag, error) {
	p.nGroups++
	k := p.nGroups
	if k > 9 {
		return frag{}, p.syntaxErr(p.lex.Pos(), "E872", "too many capturing groups")
	}
	mopen := p.emit(Inst{Op: OpMopen, Group: k, Next: -1})
	body, err := p.parseAlt(true)
	if err != nil {
		return frag{}, err
	}
	if err := p.expectClose(); err != nil {
		return frag{}, err
	}
	p.closed[k] = true
	mclose := p.emit(Inst{Op: OpMclose, Group: k, Next: -1})
	p.patch(body.out, mclose)
	p.insts[mopen].Next = body.start
	return frag{start: mopen, out: []int{mclose}}, nil
}

// parseZGroup parses `\z( reg \)`, a z-capturing group (spec §4.C z-groups,
// visible only to :substitute's \z1..\z9, not to ordinary backreferences).
func (p *Parser) parseZGroup() (frag, error) {
	p.nZGroups++
	k := p.nZGroups
	if k > 9 {
		return frag{}, p.syntaxErr(p.lex.Pos(), "E872", "too many z-groups")
	}
	p.flags |= FlagHasZCaptures
	zopen := p.emit(Inst{Op: OpZopen, Group: k, Next: -1})
	body, err := p.parseAlt(true)
	if err != nil {
		return frag{}, err
	}
	if err := p.expectClose(); err != nil {
		return frag{}, err
	}
	p.zClosed[k] = true
	zclose := p.emit(Inst{Op: OpZclose, Group: k, Next: -1})
	p.patch(body.out, zclose)
	p.insts[zopen].Next = body.start
	return frag{start: zopen, out: []int{zclose}}, nil
}

func (p *Parser) expectClose() error {
	item, err := p.lex.Next()
	if err != nil {
		return p.wrapLexErr(err)
	}
	if item.Kind != lexer.KindOp || item.Op != ')' {
		return p.syntaxErr(item.Pos, "E54", "missing closing ')'")
	}
	return nil
}

// parsePercentAtom parses everything that can follow `\%`: position
// predicates, a non-capturing group, or an optional-sequence atom. The
// character right after '%' is read raw (PeekRune), bypassing magic
// classification, because its meaning is fixed regardless of magic level.
func (p *Parser) parsePercentAtom() (frag, error) {
	cmp := CmpEq
	r, sz := p.lex.PeekRune()
	if r == '<' {
		cmp = CmpLess
		p.lex.SkipBytes(sz)
		r, sz = p.lex.PeekRune()
	} else if r == '>' {
		cmp = CmpGreater
		p.lex.SkipBytes(sz)
		r, sz = p.lex.PeekRune()
	}

	switch {
	case r == '^':
		p.lex.SkipBytes(sz)
		idx := p.emit(Inst{Op: OpBOF, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil
	case r == '$':
		p.lex.SkipBytes(sz)
		idx := p.emit(Inst{Op: OpEOF, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil
	case r == '#':
		p.lex.SkipBytes(sz)
		idx := p.emit(Inst{Op: OpCursor, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil
	case r == 'V':
		p.lex.SkipBytes(sz)
		idx := p.emit(Inst{Op: OpVisual, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil
	case r == '(':
		p.lex.SkipBytes(sz)
		return p.parseNonCapGroup()
	case r == '[':
		p.lex.SkipBytes(sz)
		return p.parseOptionalSeq()
	case r == '\'':
		p.lex.SkipBytes(sz)
		mr, msz := p.lex.PeekRune()
		if msz == 0 {
			return frag{}, p.syntaxErr(p.lex.Pos(), "E486", "missing mark name after \\%'")
		}
		p.lex.SkipBytes(msz)
		idx := p.emit(Inst{Op: OpMark, MarkName: byte(mr), CmpOp: cmp, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil
	case r >= '0' && r <= '9':
		num := 0
		for r >= '0' && r <= '9' {
			num = num*10 + int(r-'0')
			p.lex.SkipBytes(sz)
			r, sz = p.lex.PeekRune()
		}
		var op Op
		switch r {
		case 'l':
			op = OpLnum
		case 'c':
			op = OpCol
		case 'v':
			op = OpVcol
		default:
			return frag{}, p.syntaxErr(p.lex.Pos(), "E1204", "invalid position atom suffix, expected l, c, or v")
		}
		p.lex.SkipBytes(sz)
		idx := p.emit(Inst{Op: op, Num: num, CmpOp: cmp, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil
	}
	return frag{}, p.syntaxErr(p.lex.Pos(), "E1204", "invalid \\% atom")
}

// parseNonCapGroup parses `\%( reg \)`, a non-capturing group.
func (p *Parser) parseNonCapGroup() (frag, error) {
	nopen := p.emit(Inst{Op: OpNopen, Next: -1})
	body, err := p.parseAlt(true)
	if err != nil {
		return frag{}, err
	}
	if err := p.expectClose(); err != nil {
		return frag{}, err
	}
	nclose := p.emit(Inst{Op: OpNclose, Next: -1})
	p.patch(body.out, nclose)
	p.insts[nopen].Next = body.start
	return frag{start: nopen, out: []int{nclose}}, nil
}

// parseOptionalSeq parses `\%[ a b c ]`: matches the longest prefix of the
// literal character sequence, each character individually optional, read
// raw (not through magic classification) per Vim's own grammar for this
// atom. Compiled as nested optionals, innermost-first, so the engine's
// normal greedy-optional (STAR with Max=1) machinery drives it.
func (p *Parser) parseOptionalSeq() (frag, error) {
	var chars []rune
	for {
		r, sz := p.lex.PeekRune()
		if sz == 0 {
			return frag{}, p.syntaxErr(p.lex.Pos(), "E69", "missing ] after \\%[")
		}
		if r == ']' {
			p.lex.SkipBytes(sz)
			break
		}
		chars = append(chars, r)
		p.lex.SkipBytes(sz)
	}
	if len(chars) == 0 {
		idx := p.emit(Inst{Op: OpNothing, Next: -1})
		return frag{start: idx, out: []int{idx}}, nil
	}
	// Build right to left: optional(c[n-1]), then optional(c[n-2] . that), ...
	var tail *frag
	for i := len(chars) - 1; i >= 0; i-- {
		lit := p.literalAtom(chars[i])
		if tail != nil {
			p.patch(lit.out, tail.start)
			lit.out = tail.out
		}
		wrapped := p.wrapRepeat(lit, 0, 1, true)
		tail = &wrapped
	}
	return *tail, nil
}

// parseBracket parses a `[...]` bracket expression body (the '[' has
// already been consumed as a normal lexer token). Contents are read raw,
// bypassing magic classification, since '^' '-' ']' and POSIX sub-atoms
// have fixed meanings inside brackets regardless of magic level.
//
// An unterminated `[` (no matching `]` before end of pattern) is E769
// under ParseConfig.Strict (spec §6's STRICT flag); otherwise it falls
// back to treating the `[` itself as a literal character, the lenient
// behavior real Vim uses outside strict contexts so a bare `[` doesn't
// always force callers into escaping it.
func (p *Parser) parseBracket() (frag, error) {
	entry := p.lex.Pos() // position right after the '[' already consumed
	neg := false
	if r, sz := p.lex.PeekRune(); r == '^' {
		neg = true
		p.lex.SkipBytes(sz)
	}
	set := &CharSet{Runes: map[rune]bool{}}
	first := true
	for {
		r, sz := p.lex.PeekRune()
		if sz == 0 {
			if !p.cfg.Strict {
				p.lex.SeekTo(entry)
				return p.literalAtom('['), nil
			}
			return frag{}, p.syntaxErr(p.lex.Pos(), "E769", "missing ] after [")
		}
		if r == ']' && !first {
			p.lex.SkipBytes(sz)
			break
		}
		first = false

		if r == '[' {
			if handled, err := p.parseBracketPosix(set); err != nil {
				return frag{}, err
			} else if handled {
				continue
			}
			// Not a POSIX sub-atom: '[' is a literal member.
			p.lex.SkipBytes(sz)
			if err := p.bracketRangeOrSingle(set, '['); err != nil {
				return frag{}, err
			}
			continue
		}
		p.lex.SkipBytes(sz)
		if err := p.bracketRangeOrSingle(set, r); err != nil {
			return frag{}, err
		}
	}
	op := OpAnyOf
	if neg {
		op = OpAnyBut
	}
	idx := p.emit(Inst{Op: op, Set: set, Next: -1})
	return frag{start: idx, out: []int{idx}}, nil
}

// parseBracketPosix recognizes `[:class:]`, `[=x=]`, `[.x.]` at the
// current raw position (a '[' has been peeked but not consumed). Returns
// handled=false, nil if the leading '[' turns out not to start one of
// these forms, leaving the position unchanged.
func (p *Parser) parseBracketPosix(set *CharSet) (handled bool, err error) {
	mark := p.lex.Pos()
	_, sz := p.lex.PeekRune() // consume '['
	p.lex.SkipBytes(sz)
	r2, sz2 := p.lex.PeekRune()

	switch r2 {
	case ':':
		p.lex.SkipBytes(sz2)
		name := ""
		for {
			r, sz := p.lex.PeekRune()
			if sz == 0 {
				return false, p.syntaxErr(p.lex.Pos(), "E769", "unterminated [:class:]")
			}
			if r == ':' {
				p.lex.SkipBytes(sz)
				break
			}
			name += string(r)
			p.lex.SkipBytes(sz)
		}
		if r, sz := p.lex.PeekRune(); r == ']' {
			p.lex.SkipBytes(sz)
		} else {
			return false, p.syntaxErr(p.lex.Pos(), "E769", "missing ] after [:class:]")
		}
		kinds, ok := posixClass(name)
		if !ok {
			return false, p.syntaxErr(mark, "E769", "unknown class name '"+name+"'")
		}
		set.Classes = append(set.Classes, kinds...)
		return true, nil

	case '=':
		p.lex.SkipBytes(sz2)
		eqc, szc := p.lex.PeekRune()
		if szc == 0 {
			return false, p.syntaxErr(p.lex.Pos(), "E769", "unterminated [=x=]")
		}
		p.lex.SkipBytes(szc)
		if r, sz := p.lex.PeekRune(); r == '=' {
			p.lex.SkipBytes(sz)
		} else {
			return false, p.syntaxErr(p.lex.Pos(), "E769", "missing = before ]")
		}
		if r, sz := p.lex.PeekRune(); r == ']' {
			p.lex.SkipBytes(sz)
		} else {
			return false, p.syntaxErr(p.lex.Pos(), "E769", "missing ] after [=x=]")
		}
		for _, v := range chartab.EquivalenceClass(eqc) {
			set.Runes[v] = true
		}
		return true, nil

	case '.':
		p.lex.SkipBytes(sz2)
		lit, szc := p.lex.PeekRune()
		if szc == 0 {
			return false, p.syntaxErr(p.lex.Pos(), "E769", "unterminated [.x.]")
		}
		p.lex.SkipBytes(szc)
		if r, sz := p.lex.PeekRune(); r == '.' {
			p.lex.SkipBytes(sz)
		} else {
			return false, p.syntaxErr(p.lex.Pos(), "E769", "missing . before ]")
		}
		if r, sz := p.lex.PeekRune(); r == ']' {
			p.lex.SkipBytes(sz)
		} else {
			return false, p.syntaxErr(p.lex.Pos(), "E769", "missing ] after [.x.]")
		}
		set.Runes[lit] = true
		return true, nil
	}

	// Not a POSIX sub-atom: rewind the consumed '['.
	p.lex.SeekTo(mark)
	return false, nil
}

func posixClass(name string) ([]ClassKind, bool) {
	switch name {
	case "alpha":
		return []ClassKind{ClassAlpha}, true
	case "digit":
		return []ClassKind{ClassDigit}, true
	case "lower":
		return []ClassKind{ClassLower}, true
	case "upper":
		return []ClassKind{ClassUpper}, true
	case "space":
		return []ClassKind{ClassWhite}, true
	case "xdigit":
		return []ClassKind{ClassHex}, true
	case "print":
		return []ClassKind{ClassPrint}, true
	case "alnum":
		return []ClassKind{ClassAlpha, ClassDigit}, true
	case "blank":
		return []ClassKind{ClassWhite}, true
	}
	return nil, false
}

// bracketRangeOrSingle consumes an optional `-hi` range tail following lo
// (lo itself already consumed), or records lo as a single member. A
// reversed range (lo > hi, e.g. `[z-a]`) is a syntax error in real Vim
// rather than a silently-always-empty class.
func (p *Parser) bracketRangeOrSingle(set *CharSet, lo rune) error {
	r2, sz2 := p.lex.PeekRune()
	if r2 != '-' {
		set.Runes[lo] = true
		return nil
	}
	// A '-' immediately before ']' is a literal hyphen, not a range.
	save := p.lex.Pos()
	p.lex.SkipBytes(sz2)
	r3, sz3 := p.lex.PeekRune()
	if r3 == ']' || sz3 == 0 {
		p.lex.SeekTo(save)
		set.Runes[lo] = true
		return nil
	}
	p.lex.SkipBytes(sz3)
	if lo > r3 {
		return p.syntaxErr(p.lex.Pos(), "E475", "reverse range")
	}
	set.Ranges = append(set.Ranges, RuneRange{Lo: lo, Hi: r3})
	return nil
}
