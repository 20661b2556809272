package cues

// Span is a contiguous run of transcript indices claimed by one cue
type Span struct {
	First int
	Last  int
}

// Len returns the number of words in the span
func (s Span) Len() int {
	return s.Last - s.First + 1
}

// Indices lists every transcript index covered by s
func (s Span) Indices() []int {
	out := make([]int, 0, s.Len())
	for i := s.First; i <= s.Last; i++ {
		out = append(out, i)
	}
	return out
}

// Claims is the set of transcript indices already bound to a cue during one
// resolution run. A zero Claims is ready to use; it is never shared between runs.
type Claims map[int]struct{}

// Has reports whether idx is claimed
func (c Claims) Has(idx int) bool {
	_, ok := c[idx]
	return ok
}

// Claim marks every index of s as taken
func (c Claims) Claim(s Span) {
	for i := s.First; i <= s.Last; i++ {
		c[i] = struct{}{}
	}
}

// FindSpan returns the earliest span of tokens equal, position by position,
// to target whose indices are all unclaimed. Both target and tokens must
// already be normalized. Matching is exact on the normalized surface form.
func FindSpan(target, tokens []string, claimed Claims) (Span, bool) {
	n := len(target)
	if n == 0 || n > len(tokens) {
		return Span{}, false
	}

	for i := 0; i+n <= len(tokens); i++ {
		if spanMatches(target, tokens, claimed, i) {
			return Span{First: i, Last: i + n - 1}, true
		}
	}
	return Span{}, false
}

func spanMatches(target, tokens []string, claimed Claims, start int) bool {
	for j, want := range target {
		idx := start + j
		if claimed.Has(idx) || tokens[idx] != want {
			return false
		}
	}
	return true
}
