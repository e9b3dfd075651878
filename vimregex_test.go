package vimregex

import (
	"testing"

	"github.com/coregx/vimregex/lexer"
	"github.com/coregx/vimregex/rt"
)

// TestMatchGroupAndBackref is spec scenario 1: a capturing group followed
// by a backreference to it.
func TestMatchGroupAndBackref(t *testing.T) {
	re, err := Compile(`\(foo\)\1`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	m, res := re.Match([]byte("foofoo bar"), 0)
	if !res.Matched {
		t.Fatalf("expected a match, got %+v", res)
	}
	whole, ok := m.Group(0)
	if !ok || string(whole) != "foofoo" {
		t.Errorf("whole match = %q, ok=%v, want %q", whole, ok, "foofoo")
	}
	g1, ok := m.Group(1)
	if !ok || string(g1) != "foo" {
		t.Errorf("group 1 = %q, ok=%v, want %q", g1, ok, "foo")
	}
}

// TestMatchAlternationWithAnchors is spec scenario 2: alternation where
// only one branch is anchored.
func TestMatchAlternationWithAnchors(t *testing.T) {
	re, err := Compile(`^foo\|bar$`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, res := re.Match([]byte("foobaz"), 0); !res.Matched {
		t.Errorf("expected ^foo to match at start of %q", "foobaz")
	}
	if _, res := re.Match([]byte("bazbar"), 0); !res.Matched {
		t.Errorf("expected bar$ to match at end of %q", "bazbar")
	}
	if _, res := re.Match([]byte("bazbaz"), 0); res.Matched {
		t.Errorf("expected no match in %q", "bazbaz")
	}
}

// TestMatchBoundedReluctant is spec scenario 3: a bounded quantifier
// paired with a reluctant (non-greedy) one, checking length ordering
// between the two.
func TestMatchBoundedReluctant(t *testing.T) {
	greedy, err := Compile(`a\{2,4}`)
	if err != nil {
		t.Fatalf("Compile greedy: %v", err)
	}
	m, res := greedy.Match([]byte("aaaaa"), 0)
	if !res.Matched {
		t.Fatalf("expected greedy match")
	}
	whole, _ := m.Group(0)
	if len(whole) != 4 {
		t.Errorf("greedy bounded match = %q, want length 4", whole)
	}

	reluctant, err := Compile(`a\{-2,4}`)
	if err != nil {
		t.Fatalf("Compile reluctant: %v", err)
	}
	m2, res2 := reluctant.Match([]byte("aaaaa"), 0)
	if !res2.Matched {
		t.Fatalf("expected reluctant match")
	}
	whole2, _ := m2.Group(0)
	if len(whole2) != 2 {
		t.Errorf("reluctant bounded match = %q, want length 2", whole2)
	}
	if len(whole2) >= len(whole) {
		t.Errorf("reluctant match (%d) should be shorter than greedy (%d)", len(whole2), len(whole))
	}
}

// TestMatchLookbehindRejection is spec scenario 4: a negative lookbehind
// that must reject a candidate position a plain pattern would accept.
func TestMatchLookbehindRejection(t *testing.T) {
	re, err := Compile(`\(foo\)\@<!bar`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, res := re.Match([]byte("foobar"), 0); res.Matched {
		t.Errorf("negative lookbehind should reject bar preceded by foo")
	}
	if _, res := re.Match([]byte("xxxbar"), 0); !res.Matched {
		t.Errorf("negative lookbehind should accept bar not preceded by foo")
	}
}

// multiLine is a minimal rt.LineProvider over a fixed slice of lines.
type multiLine []string

func (m multiLine) GetLine(lnum int) []byte {
	if lnum < 0 || lnum >= len(m) {
		return nil
	}
	return []byte(m[lnum])
}
func (m multiLine) MaxLnum() int                             { return len(m) - 1 }
func (m multiLine) VisualRegion() (int, int, int, int, bool) { return 0, 0, 0, 0, false }
func (m multiLine) Cursor() (int, int)                       { return 0, 0 }
func (m multiLine) GetMark(byte) (int, int, bool)            { return 0, 0, false }

// TestMatchMultiBackrefAcrossLines is spec scenario 5: a backreference
// whose captured group spans a line boundary.
func TestMatchMultiBackrefAcrossLines(t *testing.T) {
	re, err := Compile(`\(foo\nbar\)\n\1`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	lp := multiLine{"foo", "bar", "foo", "bar"}
	mm, res := re.MatchMulti(lp, 0, 0)
	if !res.Matched {
		t.Fatalf("expected a multi-line match, got %+v", res)
	}
	if mm.Start[1].Lnum != 0 || mm.End[1].Lnum != 1 {
		t.Errorf("group 1 span = %+v..%+v, want lines 0..1", mm.Start[1], mm.End[1])
	}
}

// TestSubstCaseSinkAndExpr is spec scenario 6 driven end-to-end through
// Regexp.Subst: a case-sink substitution and a \=expr substitution.
func TestSubstCaseSinkAndExpr(t *testing.T) {
	re, err := Compile(`\(a\)\(.\)\(c\)`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	m, res := re.Match([]byte("aBc"), 0)
	if !res.Matched {
		t.Fatalf("expected a match")
	}
	got, err := re.Subst(m, `\U\1\2\3\e-\1\2\3`, nil, true, false)
	if err != nil {
		t.Fatalf("Subst: %v", err)
	}
	if got != "ABC-aBc" {
		t.Errorf("got %q, want %q", got, "ABC-aBc")
	}

	gotExpr, err := re.Subst(m, `\=submatch(0) . "!"`, func(sub []string) (string, error) {
		return sub[0] + "!", nil
	}, true, false)
	if err != nil {
		t.Fatalf("Subst expr: %v", err)
	}
	if gotExpr != "aBc!" {
		t.Errorf("got %q, want %q", gotExpr, "aBc!")
	}
}

// TestMatchStartColAdvances checks that Match begins scanning at startCol:
// a start inside the line finds the later occurrence, and a start at the
// end of the line finds nothing.
func TestMatchStartColAdvances(t *testing.T) {
	re, err := Compile(`foo`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, res := re.Match([]byte("foofoo"), 3); !res.Matched {
		t.Errorf("expected a match starting from column 3")
	}
	if _, res := re.Match([]byte("foofoo"), 6); res.Matched {
		t.Errorf("expected no match starting from column 6 (past both occurrences)")
	}
}

// TestCompileWithConfigIgnoreCase exercises the prefilter's folded-
// variant path for an ignore-case literal.
func TestCompileWithConfigIgnoreCase(t *testing.T) {
	re, err := CompileWithConfig(`foo`, lexer.Magic, true, DefaultConfig())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, res := re.Match([]byte("xxFOOxx"), 0); !res.Matched {
		t.Errorf("expected ignore-case match of FOO against foo")
	}
}

// TestRecursiveGuardRejectsReentry confirms the in_use guard rejects a
// second concurrent Match on the same compiled Regexp.
func TestRecursiveGuardRejectsReentry(t *testing.T) {
	re, err := Compile(`foo`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := re.acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer re.release()
	if _, res := re.Match([]byte("foo"), 0); res.Err != ErrRecursive {
		t.Errorf("expected ErrRecursive while re already in use, got %+v", res)
	}
}

// TestEngineNFARejectsBackreference confirms a pattern the NFA engine
// cannot run fails to compile under EngineNFA rather than silently
// falling back (spec §4.E).
func TestEngineNFARejectsBackreference(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreferEngine = EngineNFA
	_, err := CompileWithConfig(`\(a\)\1`, lexer.Magic, false, cfg)
	if err == nil {
		t.Fatalf("expected EngineNFA to reject a backreference pattern")
	}
}

// TestCompileStrictRejectsUnmatchedBracket exercises Config.Strict: an
// unterminated '[' is E769 under Strict, but falls back to a literal '['
// otherwise.
func TestCompileStrictRejectsUnmatchedBracket(t *testing.T) {
	lenient := DefaultConfig()
	re, err := CompileWithConfig(`a[bc`, lexer.Magic, false, lenient)
	if err != nil {
		t.Fatalf("expected lenient Compile to accept an unmatched '[', got %v", err)
	}
	if _, res := re.Match([]byte("a[bc"), 0); !res.Matched {
		t.Errorf("expected a[bc to match a[bc literally under non-strict '['")
	}

	strict := DefaultConfig()
	strict.Strict = true
	if _, err := CompileWithConfig(`a[bc`, lexer.Magic, false, strict); err == nil {
		t.Errorf("expected Strict to reject an unmatched '['")
	}
}

// TestCompileNoBreakStillMatches exercises Config.NoBreak: matching
// still succeeds with periodic cancellation checks collapsed away.
func TestCompileNoBreakStillMatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoBreak = true
	re, err := CompileWithConfig(`foo`, lexer.Magic, false, cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, res := re.Match([]byte("xxfooyy"), 0); !res.Matched {
		t.Errorf("expected a match under NoBreak")
	}
}

var _ rt.LineProvider = multiLine(nil)
