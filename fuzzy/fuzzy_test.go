package fuzzy

import (
	"math"
	"testing"
)

func TestMatchSymmetry(t *testing.T) {
	// fuzzy-symmetry: a string matched against itself scores the max,
	// and matching against an empty pattern never succeeds.
	for _, s := range []string{"a", "FooBarBaz", "hello world", "x"} {
		score, _, ok := Match(s, s, false)
		if !ok {
			t.Fatalf("Match(%q, %q) not ok, want a match", s, s)
		}
		if score != math.MaxInt32 {
			t.Errorf("Match(%q, %q) score = %d, want %d", s, s, score, math.MaxInt32)
		}
	}

	if _, _, ok := Match("anything", "", false); ok {
		t.Error(`Match(s, "") should never match`)
	}
}

func TestMatchBasic(t *testing.T) {
	tests := []struct {
		name string
		str  string
		pat  string
		want bool
	}{
		{"subsequence", "FooBarBaz", "fbb", true},
		{"ordered but scattered", "readme.txt", "rtx", true},
		{"missing letter", "readme.txt", "rtz", false},
		{"case insensitive", "README", "read", true},
		{"empty pattern never matches", "anything", "", false},
		{"pattern longer than candidate", "ab", "abc", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, ok := Match(tc.str, tc.pat, false)
			if ok != tc.want {
				t.Errorf("Match(%q, %q) ok = %v, want %v", tc.str, tc.pat, ok, tc.want)
			}
		})
	}
}

func TestMatchMultiWord(t *testing.T) {
	// spec scenario: "FooBarBaz" against "fo bz" (matchseq=false) should
	// combine two independently-scored sub-matches into one positive score.
	score, positions, ok := Match("FooBarBaz", "fo bz", false)
	if !ok {
		t.Fatalf("Match(FooBarBaz, fo bz) not ok")
	}
	if score <= 0 {
		t.Errorf("score = %d, want > 0", score)
	}
	if len(positions) != 4 {
		t.Errorf("positions = %v, want 4 entries", positions)
	}
}

func TestMatchSeqRequiresLiteralRun(t *testing.T) {
	// "foo bar" with matchseq=true must match the literal sequence
	// (including the inner space) rather than being split into words.
	_, _, ok := Match("foo bar baz", "foo bar", true)
	if !ok {
		t.Fatalf("Match with matchseq=true should match the literal run")
	}
	// Without the space in the candidate, a matchseq run can't match.
	_, _, ok = Match("foobarbaz", "foo bar", true)
	if ok {
		t.Errorf("matchseq=true matched %q against %q without a literal space", "foo bar", "foobarbaz")
	}
}

func TestMatchBonusOrdering(t *testing.T) {
	// A match right after a path separator should outscore the same
	// subsequence found in the middle of a run of letters.
	scoreSlash, _, ok1 := Match("src/foo.go", "foo", false)
	scoreMid, _, ok2 := Match("xxfooxx", "foo", false)
	if !ok1 || !ok2 {
		t.Fatalf("expected both candidates to match")
	}
	if scoreSlash <= scoreMid {
		t.Errorf("slash-adjacent match score %d should exceed buried match score %d", scoreSlash, scoreMid)
	}
}

func TestMatchMaxLen(t *testing.T) {
	long := make([]byte, MatchMaxLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, _, ok := Match(string(long), "a", false)
	if ok {
		t.Errorf("candidate longer than MatchMaxLen should not match")
	}
}
