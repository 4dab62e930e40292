package adaptive

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile("(?i)" + p)
	}
	return out
}

var (
	mathPatterns = compileAll([]string{
		`calculate`, `compute`, `multiply`, `divide`,
		`add`, `subtract`, `sum`, `difference`,
		`product`, `quotient`, `equals`, `solve`,
		`\d+\s*[+\-*/]\s*\d+`,
		`\b\d+\b`,
	})

	reasoningPatterns = compileAll([]string{
		`explain`, `why`, `how`, `because`, `therefore`, `thus`,
		`compare`, `contrast`, `analyze`, `evaluate`, `justify`,
		`reason`, `logic`, `argument`, `conclusion`, `premise`,
		`if`, `then`, `when`, `would`, `should`, `could`,
	})

	creativePatterns = compileAll([]string{
		`write`, `create`, `design`, `imagine`, `story`, `narrative`,
		`poem`, `essay`, `article`, `describe`, `invent`, `compose`,
		`generate`, `brainstorm`, `explore`,
		`multiple approaches`, `various ways`, `different methods`, `consider all`,
	})

	sentenceSplit = regexp.MustCompile(`[.!?]+`)
)

// Analysis exposes the lexical signals behind a score.
type Analysis struct {
	Chars         int     `json:"chars"`
	Words         int     `json:"words"`
	Sentences     int     `json:"sentences"`
	MathMatches   int     `json:"math_matches"`
	ReasonMatches int     `json:"reasoning_matches"`
	CreativeHits  int     `json:"creative_hits"`
	Score         float64 `json:"score"`
}

// Estimator computes a lexical complexity score. The zero value is ready to use.
type Estimator struct{}

// NewEstimator returns an Estimator.
func NewEstimator() *Estimator { return &Estimator{} }

// Estimate returns the complexity of query in [0, 100]. It is deterministic.
func (e *Estimator) Estimate(query string) float64 {
	return e.Analyze(query).Score
}

// Analyze scores query and returns the intermediate signals.
//
// Length in characters: <50 +5, <150 +20, <300 +40, else +60.
// Word count: <10 +0, <25 +10, <50 +20, else +30.
// More than three pieces after splitting on [.!?]+: +15.
// Any math pattern: -10. Reasoning patterns: >2 +15, 1-2 +5.
// Creative patterns: >2 +30, 1-2 +15. The total is clamped to [0, 100].
func (e *Estimator) Analyze(query string) Analysis {
	a := Analysis{
		Chars:     utf8.RuneCountInString(query),
		Words:     len(strings.Fields(query)),
		Sentences: len(sentenceSplit.Split(query, -1)),
	}

	var score float64

	switch {
	case a.Chars < 50:
		score += 5
	case a.Chars < 150:
		score += 20
	case a.Chars < 300:
		score += 40
	default:
		score += 60
	}

	switch {
	case a.Words < 10:
	case a.Words < 25:
		score += 10
	case a.Words < 50:
		score += 20
	default:
		score += 30
	}

	if a.Sentences > 3 {
		score += 15
	}

	a.MathMatches = countMatches(mathPatterns, query)
	if a.MathMatches > 0 {
		score -= 10
	}

	a.ReasonMatches = countMatches(reasoningPatterns, query)
	switch {
	case a.ReasonMatches > 2:
		score += 15
	case a.ReasonMatches > 0:
		score += 5
	}

	a.CreativeHits = countMatches(creativePatterns, query)
	switch {
	case a.CreativeHits > 2:
		score += 30
	case a.CreativeHits > 0:
		score += 15
	}

	a.Score = math.Max(0, math.Min(100, score))
	return a
}

// countMatches counts patterns that match anywhere in s, each at most once.
func countMatches(patterns []*regexp.Regexp, s string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(s) {
			n++
		}
	}
	return n
}
