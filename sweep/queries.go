package sweep

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/rsamesh/adaptive"
)

// Complexity groups benchmark queries.
type Complexity string

const (
	ComplexityMicro  Complexity = "micro"
	ComplexityMedium Complexity = "medium"
	ComplexityLarge  Complexity = "large"
)

// Complexities lists the benchmark groups in ascending difficulty.
var Complexities = []Complexity{ComplexityMicro, ComplexityMedium, ComplexityLarge}

// ParseComplexity accepts "micro", "medium" or "large".
func ParseComplexity(s string) (Complexity, error) {
	for _, c := range Complexities {
		if string(c) == strings.ToLower(s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown complexity %q", s)
}

// Tier maps a benchmark group onto the selector tier it tunes.
func (c Complexity) Tier() adaptive.Tier {
	switch c {
	case ComplexityMicro:
		return adaptive.TierSimple
	case ComplexityMedium:
		return adaptive.TierMedium
	default:
		return adaptive.TierComplex
	}
}

// Query is a benchmark prompt with the keywords a good answer mentions.
type Query struct {
	Text             string        `json:"query"`
	Complexity       Complexity    `json:"complexity"`
	ExpectedLatency  time.Duration `json:"expected_latency"`
	Description      string        `json:"description"`
	ExpectedKeywords []string      `json:"expected_keywords"`
}

var benchmarkQueries = []Query{
	{
		Text:             "What is 47 * 89?",
		Complexity:       ComplexityMicro,
		ExpectedLatency:  10 * time.Second,
		Description:      "Simple arithmetic",
		ExpectedKeywords: []string{"4183", "4,183", "multiply"},
	},
	{
		Text:             "Calculate 256 + 384",
		Complexity:       ComplexityMicro,
		ExpectedLatency:  10 * time.Second,
		Description:      "Basic addition",
		ExpectedKeywords: []string{"640"},
	},
	{
		Text:             "What is the square root of 144?",
		Complexity:       ComplexityMicro,
		ExpectedLatency:  10 * time.Second,
		Description:      "Square root calculation",
		ExpectedKeywords: []string{"12"},
	},
	{
		Text:             "Explain the concept of recursion using a simple analogy.",
		Complexity:       ComplexityMedium,
		ExpectedLatency:  15 * time.Second,
		Description:      "Conceptual explanation",
		ExpectedKeywords: []string{"recursion", "function", "itself", "calls"},
	},
	{
		Text:             "A bat and a ball cost $1.10 in total. The bat costs $1.00 more than the ball. How much does the ball cost?",
		Complexity:       ComplexityMedium,
		ExpectedLatency:  15 * time.Second,
		Description:      "Classic reasoning puzzle",
		ExpectedKeywords: []string{"0.05", "5 cents", "five cents"},
	},
	{
		Text:             "What are the key differences between Python and JavaScript?",
		Complexity:       ComplexityMedium,
		ExpectedLatency:  15 * time.Second,
		Description:      "Comparative analysis",
		ExpectedKeywords: []string{"python", "javascript", "syntax", "typing"},
	},
	{
		Text:             "How does a binary search algorithm work?",
		Complexity:       ComplexityMedium,
		ExpectedLatency:  15 * time.Second,
		Description:      "Algorithm explanation",
		ExpectedKeywords: []string{"binary", "search", "divide", "sorted"},
	},
	{
		Text:             "Write a short story (3-4 sentences) about a robot learning to appreciate art.",
		Complexity:       ComplexityLarge,
		ExpectedLatency:  20 * time.Second,
		Description:      "Creative writing",
		ExpectedKeywords: []string{"robot", "art"},
	},
	{
		Text:             "Design a solution for reducing traffic congestion in a large city. Consider multiple approaches.",
		Complexity:       ComplexityLarge,
		ExpectedLatency:  20 * time.Second,
		Description:      "Complex problem-solving",
		ExpectedKeywords: []string{"traffic", "transport", "solution"},
	},
	{
		Text:             "Explain quantum entanglement to a 10-year-old, then explain how it's used in quantum computing.",
		Complexity:       ComplexityLarge,
		ExpectedLatency:  20 * time.Second,
		Description:      "Multi-part explanation",
		ExpectedKeywords: []string{"quantum", "entangle", "computing"},
	},
}

// Queries returns the full benchmark set.
func Queries() []Query {
	return append([]Query(nil), benchmarkQueries...)
}

// QueriesFor returns the benchmark queries of one group.
func QueriesFor(c Complexity) []Query {
	var out []Query
	for _, q := range benchmarkQueries {
		if q.Complexity == c {
			out = append(out, q)
		}
	}
	return out
}

// QualityScore is the fraction of keywords found in response, compared
// case-insensitively. No keywords scores 1.
func QualityScore(response string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 1
	}

	lower := strings.ToLower(response)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}
