package model

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/rsamesh/core"
)

// Info describes a model.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "horde", "mock"
}

// Model is a generation backend with descriptive metadata.
type Model interface {
	core.GenerationBackend
	Info() Info
}

// Style selects the voice of a MockModel persona.
type Style int

const (
	// StyleCheerful answers enthusiastically.
	StyleCheerful Style = iota
	// StyleFast answers tersely.
	StyleFast
	// StyleMethodical shows full working and a verification.
	StyleMethodical
	// StyleGentle answers hesitantly.
	StyleGentle
)

var personaName = regexp.MustCompile(`You are (.+?), a helpful desktop assistant`)

// MockOptions configures a MockModel.
type MockOptions struct {
	Latency  time.Duration    // simulated network delay per call
	Personas map[string]Style // persona name -> style; unknown names are hashed onto a style
}

// MockModel is a deterministic Model. It detects the persona from the prompt
// wrapper and answers a few known queries in that persona's voice, aggregation
// prompts with a synthesis, and anything else with a generic reply.
type MockModel struct {
	info  Info
	opts  MockOptions
	calls atomic.Int64

	mu        sync.RWMutex
	responses map[string]string
}

// NewMockModel creates a MockModel.
func NewMockModel(optFns ...func(o *MockOptions)) *MockModel {
	opts := MockOptions{Personas: map[string]Style{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MockModel{
		info:      Info{Name: "mock", Provider: "mock"},
		opts:      opts,
		responses: map[string]string{},
	}
}

// AddResponse registers a canned response for prompts containing trigger.
// Longer triggers win over shorter ones.
func (m *MockModel) AddResponse(trigger, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[trigger] = response
}

// Calls returns the number of Generate calls served.
func (m *MockModel) Calls() int { return int(m.calls.Load()) }

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// Generate implements core.GenerationBackend.
func (m *MockModel) Generate(ctx context.Context, req core.GenerationRequest) (string, error) {
	m.calls.Add(1)

	if m.opts.Latency > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.opts.Latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if r, ok := m.canned(req.Prompt); ok {
		return r, nil
	}

	name := detectPersona(req.Prompt)
	style := m.style(name)
	lower := strings.ToLower(req.Prompt)

	switch {
	case strings.Contains(req.Prompt, "15 * 23") || strings.Contains(req.Prompt, "15*23"):
		return mathAnswer(style), nil
	case strings.Contains(req.Prompt, "17 sheep"):
		return sheepAnswer(style), nil
	case strings.Contains(lower, "aggregat") || strings.Contains(lower, "candidate"):
		return aggregationAnswer(req.Prompt, name), nil
	default:
		return genericAnswer(req.Prompt, name), nil
	}
}

func (m *MockModel) canned(prompt string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.responses) == 0 {
		return "", false
	}

	triggers := make([]string, 0, len(m.responses))
	for k := range m.responses {
		triggers = append(triggers, k)
	}
	sort.Slice(triggers, func(i, j int) bool {
		if len(triggers[i]) == len(triggers[j]) {
			return triggers[i] < triggers[j]
		}
		return len(triggers[i]) > len(triggers[j])
	})

	for _, t := range triggers {
		if strings.Contains(prompt, t) {
			return m.responses[t], true
		}
	}
	return "", false
}

func (m *MockModel) style(name string) Style {
	if s, ok := m.opts.Personas[name]; ok {
		return s
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return Style(h.Sum32() % 4)
}

func detectPersona(prompt string) string {
	if m := personaName.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return "Assistant"
}

func mathAnswer(s Style) string {
	switch s {
	case StyleCheerful:
		return `Ooh, a multiplication puzzle! Let me break it apart:
15 × 20 = 300
15 × 3 = 45
300 + 45 = 345
The answer is 345!`
	case StyleFast:
		return `Quick method: (15 × 20) + (15 × 3) = 300 + 45 = 345. Done.`
	case StyleMethodical:
		return `Problem: 15 × 23
Distributive property:
  15 × 23 = 15 × (20 + 3)
  = (15 × 20) + (15 × 3)
  = 300 + 45
  = 345
Check with the standard algorithm: 23 × 5 = 115, 23 × 10 = 230, 115 + 230 = 345.
Answer: 345`
	default:
		return `Um, let me try... 15 × 20 is 300, and 15 × 3 is 45 (15 + 15 + 15).
300 + 45 = 345. So the answer should be 345, I hope that helps.`
	}
}

func sheepAnswer(s Style) string {
	switch s {
	case StyleCheerful:
		return `Tricky wording! "All but 9 die" means 9 don't die, so 9 sheep are left!`
	case StyleFast:
		return `Language trick: "all but 9 die" = 9 survive. Answer: 9 sheep.`
	case StyleMethodical:
		return `Parse the statement: total 17, "all but 9" died, so 17 - 9 = 8 died and 9 survived.
Answer: 9 sheep`
	default:
		return `I think "all but 9 die" means 9 are still alive... so 9 sheep?`
	}
}

func aggregationAnswer(prompt, name string) string {
	if strings.Contains(prompt, "Solution 1") && strings.Contains(prompt, "Solution 2") {
		return fmt.Sprintf(`Based on the candidate solutions, here is a synthesis.

The candidates agree on the core approach and differ only in presentation.
Combining the clearest reasoning from Solution 1 with the checks from Solution 2
gives a single consolidated answer.

- %s`, name)
	}
	return fmt.Sprintf(`Reviewing the candidate solution, the approach holds up.
I tightened the wording and kept each step explicit so it is easier to verify.

- %s`, name)
}

func genericAnswer(prompt, name string) string {
	query := prompt
	if i := strings.Index(prompt, "User query:\n"); i >= 0 {
		query = prompt[i+len("User query:\n"):]
		if j := strings.Index(query, "\n\nYour response:"); j >= 0 {
			query = query[:j]
		}
	}
	r := []rune(query)
	if len(r) > 50 {
		r = r[:50]
	}
	return fmt.Sprintf(`I understand you're asking about: %s...

Here's my response based on the available context and reasoning.

- %s`, string(r), name)
}
