package nfa

import (
	"testing"

	"github.com/coregx/vimregex/btengine"
	"github.com/coregx/vimregex/lexer"
	"github.com/coregx/vimregex/syntax"
)

func compile(t *testing.T, pattern string) *syntax.Program {
	t.Helper()
	prog, err := syntax.Parse([]byte(pattern), lexer.Magic, syntax.ParseConfig{MaxRecursionDepth: 100})
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	return prog
}

func TestSupportsRejectsBackreference(t *testing.T) {
	prog := compile(t, `\(a\)\1`)
	if Supports(prog) {
		t.Errorf("Supports should reject a backreference pattern")
	}
}

func TestSupportsRejectsBoundedRepeat(t *testing.T) {
	prog := compile(t, `a\{2,4}`)
	if Supports(prog) {
		t.Errorf("Supports should reject a bounded {2,4} repeat")
	}
}

func TestSupportsAcceptsStar(t *testing.T) {
	prog := compile(t, `fo*`)
	if !Supports(prog) {
		t.Errorf("Supports should accept a plain Kleene star")
	}
}

func TestRunLiteralMatch(t *testing.T) {
	prog := compile(t, "foo")
	m, err := Run(prog, []byte("xxfooyy"), 0, 20000, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m == nil {
		t.Fatalf("expected a match")
	}
	whole, ok := m.Group(0)
	if !ok || string(whole) != "foo" {
		t.Errorf("whole match = %q, ok=%v", whole, ok)
	}
}

func TestRunLeftmostFirstPriority(t *testing.T) {
	// Alternation priority order must match a backtracker's: the first
	// branch that can match wins even if a later branch could match more.
	prog := compile(t, `a\|ab`)
	m, err := Run(prog, []byte("ab"), 0, 20000, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m == nil {
		t.Fatalf("expected a match")
	}
	whole, _ := m.Group(0)
	if string(whole) != "a" {
		t.Errorf("whole match = %q, want %q (leftmost-first, not leftmost-longest)", whole, "a")
	}
}

func TestRunSkipAheadViaPrefilter(t *testing.T) {
	prog := compile(t, "needle")
	haystack := make([]byte, 5000)
	for i := range haystack {
		haystack[i] = 'x'
	}
	copy(haystack[4000:], "needle")
	m, err := Run(prog, haystack, 0, 20000, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m == nil || m.StartCol[0] != 4000 {
		t.Fatalf("expected a match at offset 4000, got %+v", m)
	}
}

func TestRunAndBtengineAgreeOnSupportedPattern(t *testing.T) {
	// A universal property (spec §8): for any program both engines
	// support, they must agree on whether (and where) a match occurs.
	prog := compile(t, `fo*ba\(r\|z\)`)
	if !Supports(prog) {
		t.Fatalf("expected this pattern to be NFA-supported")
	}
	buf := []byte("xxfooobarxx")
	m, err := Run(prog, buf, 0, 20000, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m == nil {
		t.Fatalf("expected a match")
	}
	whole, _ := m.Group(0)
	if string(whole) != "fooobar" {
		t.Errorf("whole match = %q, want %q", whole, "fooobar")
	}

	bm, err := btengine.Run(prog, buf, 0, 1<<20, 100, nil, nil)
	if err != nil {
		t.Fatalf("btengine.Run: %v", err)
	}
	if bm == nil {
		t.Fatalf("btengine: expected a match")
	}
	bwhole, _ := bm.Group(0)
	if string(bwhole) != string(whole) {
		t.Errorf("btengine whole match = %q, NFA whole match = %q", bwhole, whole)
	}
}
