package syntax

import (
	"testing"

	"github.com/coregx/vimregex/lexer"
)

func mustParse(t *testing.T, pattern string, ignoreCase bool) *Program {
	t.Helper()
	prog, err := Parse([]byte(pattern), lexer.Magic, ParseConfig{MaxRecursionDepth: 100, IgnoreCase: ignoreCase})
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	return prog
}

func TestLiteralPrefilterSingleVariant(t *testing.T) {
	prog := mustParse(t, "needle", false)
	if !prog.Prefilter.HasFirstRune || prog.Prefilter.FirstRune != 'n' {
		t.Fatalf("prefilter = %+v, want HasFirstRune 'n'", prog.Prefilter)
	}
	if len(prog.Prefilter.FoldedLiteralVariants) != 1 {
		t.Fatalf("case-sensitive literal should have exactly one folded variant, got %d", len(prog.Prefilter.FoldedLiteralVariants))
	}

	buf := []byte("xxxneedlexxx")
	pos, ok := prog.Prefilter.NextCandidate(buf, 0)
	if !ok || pos != 3 {
		t.Errorf("NextCandidate = (%d, %v), want (3, true)", pos, ok)
	}

	_, ok = prog.Prefilter.NextCandidate(buf, 4)
	if ok {
		t.Errorf("expected no further candidate for 'needle' after its own start")
	}
}

func TestIgnoreCasePrefilterMultiVariant(t *testing.T) {
	prog := mustParse(t, "AbC", true)
	if len(prog.Prefilter.FoldedLiteralVariants) <= 1 {
		t.Fatalf("mixed-case ignore-case literal should fold into several variants, got %d", len(prog.Prefilter.FoldedLiteralVariants))
	}

	buf := []byte("xxxABCxxx")
	pos, ok := prog.Prefilter.NextCandidate(buf, 0)
	if !ok || pos != 3 {
		t.Errorf("NextCandidate = (%d, %v), want (3, true) for an upper-case occurrence", pos, ok)
	}
}

func TestPrefilterAbsentOnComplexHead(t *testing.T) {
	// A leading class (not a literal) must not produce a false prefilter;
	// absence is always the sound default.
	prog := mustParse(t, `\d\+foo`, false)
	if prog.Prefilter.HasFirstRune {
		t.Errorf("expected no prefilter when the pattern starts with a class, got %+v", prog.Prefilter)
	}
	pos, ok := prog.Prefilter.NextCandidate([]byte("anything"), 2)
	if !ok || pos != 2 {
		t.Errorf("NextCandidate with no prefilter should return (from, true) unchanged, got (%d, %v)", pos, ok)
	}
}

func TestAnchoredDetection(t *testing.T) {
	anchored := mustParse(t, `^foo`, false)
	if !isAnchored(anchored) {
		t.Errorf("^foo should be detected as anchored")
	}
	unanchored := mustParse(t, `foo`, false)
	if isAnchored(unanchored) {
		t.Errorf("foo should not be detected as anchored")
	}
}

func TestBackrefBeforeGroupClosesIsRejected(t *testing.T) {
	_, err := Parse([]byte(`\1\(a\)`), lexer.Magic, ParseConfig{MaxRecursionDepth: 100})
	if err == nil {
		t.Fatalf("expected an error for a back-reference before its group closes")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Num != "E65" {
		t.Errorf("got %v, want an E65 ParseError", err)
	}
}

func TestBackrefBeforeGroupClosesAllowedUnderLookbehind(t *testing.T) {
	if _, err := Parse([]byte(`\1\(a\)\@<=b`), lexer.Magic, ParseConfig{MaxRecursionDepth: 100}); err != nil {
		t.Errorf("expected a trailing lookbehind to license the forward reference, got %v", err)
	}
}

func TestBackrefAfterGroupClosesIsAccepted(t *testing.T) {
	if _, err := Parse([]byte(`\(a\)\1`), lexer.Magic, ParseConfig{MaxRecursionDepth: 100}); err != nil {
		t.Errorf("expected a backward reference to be accepted, got %v", err)
	}
}

func TestReversedBracketRangeIsSyntaxError(t *testing.T) {
	_, err := Parse([]byte(`[z-a]`), lexer.Magic, ParseConfig{MaxRecursionDepth: 100})
	if err == nil {
		t.Fatalf("expected an error for a reversed bracket range")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Errorf("got %v (%T), want a *ParseError", err, err)
	}
}

func TestForwardBracketRangeIsAccepted(t *testing.T) {
	if _, err := Parse([]byte(`[a-z]`), lexer.Magic, ParseConfig{MaxRecursionDepth: 100}); err != nil {
		t.Errorf("expected a forward range to parse, got %v", err)
	}
}

func TestLargeAlternationEmitsManyInstructions(t *testing.T) {
	// Parse rejects programs over MaxInsts (E339) and the root package
	// checks len(prog.Insts) against Config.MaxProgramSize; this just
	// checks a large alternation chain produces a correspondingly large
	// program, the precondition both checks rely on.
	big := ""
	for i := 0; i < 2000; i++ {
		if i > 0 {
			big += `\|`
		}
		big += "a"
	}
	prog := mustParse(t, big, false)
	if len(prog.Insts) <= 2000 {
		t.Errorf("expected a large alternation to emit many instructions, got %d", len(prog.Insts))
	}
}
