// Package fuzzy implements component G: fzy-derived fuzzy matching over
// UTF-8 strings (nvim's fuzzy.c), the same scoring model :help matchfuzzy
// documents. A single ordered-needle match is MatchOne; the multi-word
// variant Match splits the pattern on whitespace (unless
// matchseq pins it to one ordered run) and sums each word's score with
// the same saturating-int arithmetic the C implementation uses so ranked
// results stay comparable across candidates of any length.
package fuzzy

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/vimregex/chartab"
)

// Scoring constants ported verbatim from fuzzy.c's SCORE_* macros.
const (
	ScoreGapLeading      = -0.005
	ScoreGapTrailing     = -0.005
	ScoreGapInner        = -0.01
	ScoreMatchConsecutive = 1.0
	ScoreMatchSlash      = 0.9
	ScoreMatchWord       = 0.8
	ScoreMatchCapital    = 0.7
	ScoreMatchDot        = 0.6

	// ScoreScale converts a float fzy score into the integer score
	// fuzzy_match()'s callers (matchfuzzy, popup completion) sum and sort
	// on.
	ScoreScale = 1000

	// MatchMaxLen bounds how many runes of needle/haystack the DP table
	// considers; candidates longer than this never score (matching
	// fuzzy.c's FUZZY_MATCH_MAX_LEN truncation rather than silently
	// growing an O(n*m) table without limit).
	MatchMaxLen = 256
)

var scoreMax = math.Inf(1)
var scoreMin = math.Inf(-1)

// hasMatch reports whether every rune of needle occurs, in order, inside
// haystack (case-folded), mirroring fuzzy.c's has_match — a cheap
// pre-check that lets match_positions skip its DP table entirely on a
// guaranteed miss.
func hasMatch(needle, haystack []rune) bool {
	hi := 0
	for _, n := range needle {
		nl := unicode.ToLower(n)
		found := false
		for ; hi < len(haystack); hi++ {
			if unicode.ToLower(haystack[hi]) == nl {
				found = true
				hi++
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func isWordSep(c rune) bool { return c == '-' || c == '_' || c == ' ' }
func isPathSep(c rune) bool { return c == '/' }
func isDot(c rune) bool     { return c == '.' }

// computeBonus scores the transition into haystack rune c from the
// preceding rune lastC, exactly matching fuzzy.c's compute_bonus_codepoint
// bonus table (path separator > word separator > dot > camelCase hump).
func computeBonus(lastC, c rune) float64 {
	table := chartab.Default()
	if !(unicode.IsLetter(c) || unicode.IsDigit(c) || table.IsWord(c)) {
		return 0
	}
	switch {
	case isPathSep(lastC):
		return ScoreMatchSlash
	case isWordSep(lastC):
		return ScoreMatchWord
	case isDot(lastC):
		return ScoreMatchDot
	case table.IsUpper(c) && table.IsLower(lastC):
		return ScoreMatchCapital
	}
	return 0
}

// matchPositions runs the fzy dynamic-program over needle/haystack
// (already rune-sliced and lower-cased for needle) and returns the best
// score plus, if positions is non-nil, the matched haystack indices —
// the direct port of fuzzy.c's match_row/match_positions pair: D[i][j] is
// the best score ending in a match at (i,j), M[i][j] the best score
// overall up to (i,j).
func matchPositions(needle, haystack []rune, wantPositions bool) (float64, []int) {
	n := len(needle)
	if n == 0 {
		return scoreMin, nil
	}
	m := len(haystack)
	if n == m {
		// hasMatch already confirmed every needle rune occurs in order
		// in haystack; equal lengths mean the strings are equal
		// case-insensitively. This is the one case where a too-long
		// candidate (m > MatchMaxLen) still scores: an exact
		// case-insensitive match always wins outright.
		if wantPositions {
			pos := make([]int, n)
			for i := range pos {
				pos[i] = i
			}
			return scoreMax, pos
		}
		return scoreMax, nil
	}
	if m > MatchMaxLen || n > m {
		return scoreMin, nil
	}

	lowerNeedle := make([]rune, n)
	for i, c := range needle {
		lowerNeedle[i] = unicode.ToLower(c)
	}
	lowerHaystack := make([]rune, m)
	bonus := make([]float64, m)
	prevC := rune('/')
	for i, c := range haystack {
		lc := unicode.ToLower(c)
		lowerHaystack[i] = lc
		bonus[i] = computeBonus(prevC, c)
		prevC = c
	}

	d := make([][]float64, n)
	mm := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, m)
		mm[i] = make([]float64, m)
	}

	matchRow := func(i int, lastD, lastM []float64) {
		prevScore := scoreMin
		gapScore := ScoreGapInner
		if i == n-1 {
			gapScore = ScoreGapTrailing
		}
		var prevM, prevD float64
		for j := 0; j < m; j++ {
			if lowerNeedle[i] == lowerHaystack[j] {
				score := scoreMin
				switch {
				case i == 0:
					score = float64(j)*ScoreGapLeading + bonus[j]
				case j > 0:
					score = math.Max(prevM+bonus[j], prevD+ScoreMatchConsecutive)
				}
				prevD = lastD[j]
				prevM = lastM[j]
				d[i][j] = score
				if score > prevScore+gapScore {
					prevScore = score
				} else {
					prevScore = prevScore + gapScore
				}
				mm[i][j] = prevScore
			} else {
				prevD = lastD[j]
				prevM = lastM[j]
				d[i][j] = scoreMin
				prevScore = prevScore + gapScore
				mm[i][j] = prevScore
			}
		}
	}

	matchRow(0, d[0], mm[0])
	for i := 1; i < n; i++ {
		matchRow(i, d[i-1], mm[i-1])
	}

	var positions []int
	if wantPositions {
		positions = make([]int, n)
		matchRequired := false
		j := m - 1
		for i := n - 1; i >= 0; i-- {
			for ; j >= 0; j-- {
				if d[i][j] != scoreMin && (matchRequired || d[i][j] == mm[i][j]) {
					matchRequired = i > 0 && j > 0 && mm[i][j] == d[i-1][j-1]+ScoreMatchConsecutive
					positions[i] = j
					j--
					break
				}
			}
		}
	}

	return mm[n-1][m-1], positions
}

// MatchOne runs fzy scoring for a single ordered needle against haystack
// (no whitespace splitting — the matchseq=true / single-word case).
// ok is false when needle doesn't occur, in order, inside haystack at all.
func MatchOne(needle, haystack string, wantPositions bool) (score float64, positions []int, ok bool) {
	nr := []rune(needle)
	hr := []rune(haystack)
	if len(nr) == 0 {
		return 0, nil, false
	}
	if !hasMatch(nr, hr) {
		return 0, nil, false
	}
	s, pos := matchPositions(nr, hr, wantPositions)
	if s == scoreMin {
		// Candidate too long for the DP table (fuzzy.c's "unreasonably
		// large candidate" bail-out): not a usable match.
		return 0, nil, false
	}
	return s, pos, true
}

// scaleScore maps a float fzy score to fuzzy_match()'s saturating int
// domain, matching the ceil/floor-plus-half rounding the C code uses so
// ties resolve identically.
func scaleScore(s float64) int {
	switch {
	case s == scoreMin:
		return math.MinInt32 + 1
	case s == scoreMax:
		return math.MaxInt32
	case s < 0:
		return int(math.Ceil(s*ScoreScale - 0.5))
	default:
		return int(math.Floor(s*ScoreScale + 0.5))
	}
}

func saturatingAdd(total, score int) int {
	switch {
	case score > 0 && total > math.MaxInt32-score:
		return math.MaxInt32
	case score < 0 && total < math.MinInt32+1-score:
		return math.MinInt32 + 1
	default:
		return total + score
	}
}

// Match is fuzzy_match(): it scores pattern against str, splitting
// pattern on whitespace into independent words unless matchseq pins them
// to one literal ordered run. ok is false the moment any word fails to
// match at all (fuzzy.c's "numMatches == 0" early-out) — a pattern is
// either entirely satisfied or rejected, never partially credited.
//
// Per spec's fuzzy-symmetry property, Match(s, s, false) always scores
// math.MaxInt32 (fuzzy.c's SCORE_MAX path) and Match(s, "", false) is
// never ok.
func Match(str, pat string, matchSeq bool) (score int, positions []int, ok bool) {
	if pat == "" {
		return 0, nil, false
	}
	// A pattern equal to str (case-insensitively) takes the SCORE_MAX
	// path as a whole, before any whitespace splitting.
	if s, pos, wholeOK := MatchOne(pat, str, true); wholeOK && s == scoreMax {
		return math.MaxInt32, pos, true
	}

	words := []string{pat}
	if !matchSeq {
		words = strings.Fields(pat)
		if len(words) == 0 {
			return 0, nil, false
		}
	}

	total := 0
	var allPositions []int
	matchedAny := false
	runeOffset := 0
	for _, w := range words {
		s, pos, wOK := MatchOne(w, str, true)
		if !wOK {
			return 0, nil, false
		}
		matchedAny = true
		total = saturatingAdd(total, scaleScore(s))
		for _, p := range pos {
			allPositions = append(allPositions, p)
		}
		runeOffset += utf8.RuneCountInString(w)
		if runeOffset >= MatchMaxLen {
			break
		}
	}
	if !matchedAny {
		return 0, nil, false
	}
	return total, allPositions, true
}
