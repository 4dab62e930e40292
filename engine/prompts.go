package engine

import (
	"github.com/hupe1980/rsamesh/internal/util"
)

var (
	selfRefineTemplate = util.MustParseTemplate("self_refine", `You are given a problem and a candidate solution.
The candidate may be incomplete or contain errors.
Refine this solution and produce an improved, higher-quality response.
If it is entirely wrong, attempt a new strategy.

Problem:
{{.Query}}

Candidate solution:
{{index .Candidates 0}}

Now refine the candidate into an improved solution with clear reasoning:`)

	aggregateTemplate = util.MustParseTemplate("aggregate", `You are given a problem and several candidate solutions.
Some candidates may be incorrect or contain errors.
Aggregate the useful ideas and produce a single, high-quality solution.
Reason carefully; if candidates disagree, choose the correct path.
If all are incorrect, attempt a different strategy.

Problem:
{{.Query}}

Candidate solutions (may contain mistakes):
{{range $i, $c := .Candidates}}{{if $i}}

{{end}}---- Solution {{inc $i}} ----
{{$c}}{{end}}

Now write a single, high-quality solution with clear reasoning:`)
)

// BuildAggregationPrompt renders the prompt that asks an agent to improve on
// candidates. A single candidate selects the self-refinement wording; two or
// more are listed as numbered "---- Solution i ----" blocks.
func BuildAggregationPrompt(query string, candidates []string) (string, error) {
	data := map[string]any{"Query": query, "Candidates": candidates}
	if len(candidates) == 1 {
		return selfRefineTemplate.Render(data)
	}
	return aggregateTemplate.Render(data)
}
