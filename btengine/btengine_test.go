package btengine

import (
	"testing"

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

func TestRunLiteralMatch(t *testing.T) {
	prog := compile(t, "foo")
	m, err := Run(prog, []byte("xxfooyy"), 0, 1<<20, 100, nil, nil)
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

func TestRunNoMatch(t *testing.T) {
	prog := compile(t, "zzz")
	m, err := Run(prog, []byte("xxfooyy"), 0, 1<<20, 100, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m != nil {
		t.Errorf("expected no match, got %+v", m)
	}
}

func TestRunSkipAheadViaPrefilter(t *testing.T) {
	// A literal prefilter should let Run find a match far into the
	// buffer without the caller needing to scan column by column itself.
	prog := compile(t, "needle")
	haystack := make([]byte, 10000)
	for i := range haystack {
		haystack[i] = 'x'
	}
	copy(haystack[9000:], "needle")
	m, err := Run(prog, haystack, 0, 1<<20, 100, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m == nil {
		t.Fatalf("expected a match at offset 9000")
	}
	if m.StartCol[0] != 9000 {
		t.Errorf("match start = %d, want 9000", m.StartCol[0])
	}
}

func TestRunGreedyVsReluctantLengthOrdering(t *testing.T) {
	greedy := compile(t, `a\{1,5}`)
	reluctant := compile(t, `a\{-1,5}`)
	buf := []byte("aaaaa")

	gm, err := Run(greedy, buf, 0, 1<<20, 100, nil, nil)
	if err != nil || gm == nil {
		t.Fatalf("greedy Run: m=%v err=%v", gm, err)
	}
	rm, err := Run(reluctant, buf, 0, 1<<20, 100, nil, nil)
	if err != nil || rm == nil {
		t.Fatalf("reluctant Run: m=%v err=%v", rm, err)
	}

	gLen := gm.EndCol[0] - gm.StartCol[0]
	rLen := rm.EndCol[0] - rm.StartCol[0]
	if rLen >= gLen {
		t.Errorf("reluctant length (%d) should be less than greedy length (%d)", rLen, gLen)
	}
}

func TestRunUnboundedRepeatOverLargeBufferDoesNotRecurse(t *testing.T) {
	// matchRepeat used to recurse one Go stack frame per repetition
	// matched, so an unbounded quantifier over a large buffer risked
	// driving the host stack toward its ceiling instead of just using
	// backStack. A few hundred thousand repetitions completing at all
	// (rather than crashing the test binary) demonstrates the iterative
	// rework actually took effect.
	prog := compile(t, `a*`)
	buf := make([]byte, 300000)
	for i := range buf {
		buf[i] = 'a'
	}
	m, err := Run(prog, buf, 0, 1<<30, 100, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m == nil {
		t.Fatalf("expected a match")
	}
	if m.EndCol[0] != len(buf) {
		t.Errorf("match end = %d, want %d", m.EndCol[0], len(buf))
	}
}

func TestRunBackStackBoundsZeroWidthRepeat(t *testing.T) {
	// A repeat over a zero-width body must terminate rather than spin
	// forever unwinding backStack; go test's own per-test timeout is the
	// backstop if this regresses.
	prog := compile(t, `\(\)*`)
	if _, err := Run(prog, []byte("anything"), 0, 1<<20, 100, nil, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
