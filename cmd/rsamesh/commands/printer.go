package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/hupe1980/rsamesh/adaptive"
	"github.com/hupe1980/rsamesh/core"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

type printer struct {
	out  io.Writer
	json bool
}

func (p *printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) Result(res *core.Result) error {
	if p.json {
		return p.JSON(res)
	}

	if res.IsCrisis {
		red.Fprintf(p.out, "%s\n", res.Response)
		return nil
	}

	if res.Tier != "" {
		cyan.Fprintf(p.out, "Tier: %s (complexity %.0f)\n", res.Tier, res.Complexity)
	}
	cyan.Fprintf(p.out, "Params: N=%d K=%d T=%d\n", res.Params.N, res.Params.K, res.Params.T)
	for _, it := range res.Iterations {
		degraded := 0
		for _, r := range it.Population {
			if strings.HasPrefix(r, core.ErrorMarker) {
				degraded++
			}
		}
		fmt.Fprintf(p.out, "  round %d  diversity=%.4f", it.Round, it.Diversity)
		if degraded > 0 {
			yellow.Fprintf(p.out, "  degraded=%d", degraded)
		}
		fmt.Fprintln(p.out)
	}

	bold.Fprintln(p.out, "\nAnswer:")
	fmt.Fprintln(p.out, res.Response)

	green.Fprintf(p.out, "\n✓ %d generations, avg diversity %.4f, %s\n",
		res.Metrics.TotalGenerations, res.Metrics.AvgDiversity, res.Metrics.TotalTime.Round(time.Millisecond))
	return nil
}

func (p *printer) SingleStep(res *core.SingleStepResult) error {
	if p.json {
		return p.JSON(res)
	}

	if res.IsCrisis {
		red.Fprintf(p.out, "%s\n", res.Response)
		return nil
	}

	for i, c := range res.Candidates {
		cyan.Fprintf(p.out, "---- Candidate %d ----\n", i+1)
		fmt.Fprintln(p.out, c)
	}
	bold.Fprintln(p.out, "\nAnswer:")
	fmt.Fprintln(p.out, res.Response)
	return nil
}

func (p *printer) Estimate(a adaptive.Analysis, sel adaptive.Selection) error {
	if p.json {
		return p.JSON(map[string]any{"analysis": a, "selection": sel})
	}

	fmt.Fprintf(p.out, "chars=%d words=%d sentences=%d math=%d reasoning=%d creative=%d\n",
		a.Chars, a.Words, a.Sentences, a.MathMatches, a.ReasonMatches, a.CreativeHits)
	cyan.Fprintf(p.out, "Score: %.0f\n", sel.Score)
	green.Fprintf(p.out, "Tier: %s -> N=%d K=%d T=%d\n", sel.Tier, sel.Params.N, sel.Params.K, sel.Params.T)
	return nil
}

func (p *printer) Error(w io.Writer, title string, err error) error {
	red.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "%v\n", err)
	return fmt.Errorf("%s: %w", title, err)
}
