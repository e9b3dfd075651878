package fuzzy

import (
	"sort"
	"strings"
)

// Candidate pairs a caller-supplied payload with the text to fuzzy-match
// against. Vim's matchfuzzy()/matchfuzzypos() resolve "key"/"text_cb"
// against a dict themselves before ever reaching fuzzy_match_in_list; the
// Go-idiomatic split is to let the host layer do that dict/callback
// resolution and hand MatchList already-paired (text, item) candidates.
type Candidate struct {
	Text string
	Item any
}

// ListOptions mirrors matchfuzzy()'s optional dict: {key, text_cb, limit,
// matchseq}. key/text_cb themselves are the caller's job (see Candidate);
// Limit and MatchSeq are the two options that change MatchList's own
// behavior.
type ListOptions struct {
	// MatchSeq requires the pattern to match as one literal ordered run
	// instead of being split into independently-scored words.
	MatchSeq bool
	// Limit caps how many candidates are scored, 0 means unlimited
	// (fuzzy.c's max_matches == 0 convention).
	Limit int
}

// Ranked is one scored candidate, matchfuzzypos()'s per-item output: the
// original candidate, its Score (fuzzy_match()'s saturating int), and the
// Positions of matched runes.
type Ranked struct {
	Candidate Candidate
	Score     int
	Positions []int
}

// MatchFuzzyPos scores pattern against every candidate (matchfuzzy.c's
// fuzzy_match_in_list with retmatchpos=true), keeping only the ones that
// matched at all, and returns them sorted by descending score — ties
// broken by preferring an exact substring match over a scattered one,
// then by original input order (fuzzy_match_item_compare's stable sort).
func MatchFuzzyPos(candidates []Candidate, pattern string, opts ListOptions) []Ranked {
	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		score, positions, ok := Match(c.Text, pattern, opts.MatchSeq)
		if !ok {
			continue
		}
		out = append(out, Ranked{Candidate: c, Score: score, Positions: positions})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		ei := exactMatchAt(out[i], pattern)
		ej := exactMatchAt(out[j], pattern)
		if ei != ej {
			return ei
		}
		return false // equal rank: preserve input order (SliceStable)
	})
	return out
}

// exactMatchAt reports whether candidate.Text contains pattern verbatim
// starting at the position of its first fuzzy-matched rune, fuzzy.c's
// tie-break: a literal substring hit outranks a same-scoring scattered
// match.
func exactMatchAt(r Ranked, pattern string) bool {
	if len(r.Positions) == 0 {
		return false
	}
	runes := []rune(r.Candidate.Text)
	start := r.Positions[0]
	if start < 0 || start >= len(runes) {
		return false
	}
	return strings.HasPrefix(string(runes[start:]), pattern)
}

// MatchFuzzy is MatchFuzzyPos without position tracking, matchfuzzy()'s
// plain string-list form: just the matched candidates in ranked order.
func MatchFuzzy(candidates []Candidate, pattern string, opts ListOptions) []Candidate {
	ranked := MatchFuzzyPos(candidates, pattern, opts)
	out := make([]Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.Candidate
	}
	return out
}
