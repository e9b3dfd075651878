package fuzzy

import (
	"unicode/utf8"

	"github.com/coregx/vimregex/chartab"
	"github.com/coregx/vimregex/rt"
)

// LineCursor is the caller-owned scan position fuzzy_match_in_line
// advances, the Go standin for the original's in/out cursor argument: a
// 0-based line and 0-based byte column into Provider's current line.
type LineCursor struct {
	Provider rt.LineProvider
	Lnum     int
	Col      int
	// WrapScan continues the scan from line 0 once it runs off the end
	// of the buffer, mirroring 'wrapscan'; it stops for good once it
	// has visited every line without a match.
	WrapScan bool
}

// MatchInLine advances cur word-by-word through its buffer looking for a
// word that fuzzy-matches pattern, wrapping at end-of-file when
// cur.WrapScan is set. On a match it leaves cur positioned just past the
// matched word (so a repeated call resumes the search there) and returns
// the match's score and rune positions within the matched word.
func MatchInLine(cur *LineCursor, pattern string, matchSeq bool) (ok bool, score int, positions []int) {
	max := cur.Provider.MaxLnum()
	total := max + 1
	if total <= 0 {
		return false, 0, nil
	}

	lnum := cur.Lnum
	col := cur.Col
	for visited := 0; visited <= total; {
		line := cur.Provider.GetLine(lnum)
		if w, _, end, found := nextWord(line, col); found {
			score, positions, matched := Match(string(w), pattern, matchSeq)
			if matched {
				cur.Lnum = lnum
				cur.Col = end
				return true, score, positions
			}
			col = end
			continue
		}

		// No more words on this line; advance to the next one.
		lnum++
		col = 0
		visited++
		if lnum > max {
			if !cur.WrapScan {
				return false, 0, nil
			}
			lnum = 0
		}
	}
	// visited every line (and, if WrapScan, wrapped back to the start)
	// without a match.
	return false, 0, nil
}

// nextWord returns the next maximal run of word characters in line at or
// after byteCol, the unit fuzzy_match_in_line scores one at a time rather
// than matching against the whole line at once.
func nextWord(line []byte, byteCol int) (word []byte, start, end int, found bool) {
	table := chartab.Default()
	i := byteCol
	for i < len(line) {
		r, size := decodeRune(line, i)
		if table.IsWord(r) {
			break
		}
		i += size
	}
	if i >= len(line) {
		return nil, 0, 0, false
	}
	start = i
	for i < len(line) {
		r, size := decodeRune(line, i)
		if !table.IsWord(r) {
			break
		}
		i += size
	}
	return line[start:i], start, i, true
}

func decodeRune(line []byte, i int) (rune, int) {
	r, size := utf8.DecodeRune(line[i:])
	if r == utf8.RuneError && size <= 1 {
		return rune(line[i]), 1
	}
	return r, size
}
