package chartab

import "testing"

func TestIsWordClasses(t *testing.T) {
	tab := Default()
	cases := []struct {
		r    rune
		word bool
	}{
		{'a', true}, {'Z', true}, {'5', true}, {'_', true},
		{' ', false}, {'.', false}, {'\t', false},
	}
	for _, c := range cases {
		if got := tab.IsWord(c.r); got != c.word {
			t.Errorf("IsWord(%q) = %v, want %v", c.r, got, c.word)
		}
	}
}

func TestIsUpperLowerDisjoint(t *testing.T) {
	tab := Default()
	for _, r := range []rune{'a', 'Z', '5', '_', ' '} {
		if tab.IsUpper(r) && tab.IsLower(r) {
			t.Errorf("%q classified as both upper and lower", r)
		}
	}
	if !tab.IsUpper('A') {
		t.Error("'A' should be upper")
	}
	if !tab.IsLower('a') {
		t.Error("'a' should be lower")
	}
}

func TestFoldRoundTrips(t *testing.T) {
	if Fold('A') != Fold('a') {
		t.Errorf("Fold('A')=%q, Fold('a')=%q, want equal", Fold('A'), Fold('a'))
	}
	if ToUpper('a') != 'A' {
		t.Errorf("ToUpper('a') = %q, want 'A'", ToUpper('a'))
	}
	if ToLower('A') != 'a' {
		t.Errorf("ToLower('A') = %q, want 'a'", ToLower('A'))
	}
}

func TestIsComposingASCIIAlwaysFalse(t *testing.T) {
	for r := rune(0); r < 0x80; r++ {
		if IsComposing(r) {
			t.Fatalf("ASCII code point %q reported as composing", r)
		}
	}
}

func TestIsHexDigitSubsetOfIsWord(t *testing.T) {
	tab := Default()
	for _, r := range []rune{'0', '9', 'a', 'f', 'A', 'F'} {
		if !tab.IsHex(r) {
			t.Errorf("%q should be a hex digit", r)
		}
		if !tab.IsWord(r) {
			t.Errorf("hex digit %q should also be a word character", r)
		}
	}
	if tab.IsHex('g') {
		t.Error("'g' should not be a hex digit")
	}
}
