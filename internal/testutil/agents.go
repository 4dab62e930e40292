package testutil

import (
	"fmt"

	"github.com/hupe1980/rsamesh/agent"
	"github.com/hupe1980/rsamesh/core"
)

// Names are display names used by NewAgents.
var Names = []string{"Ada", "Bolt", "Cora", "Dell", "Echo", "Fern", "Gale", "Hugo"}

// NewAgents builds n agents with ids "agent-0".."agent-{n-1}" sharing gen
// and emb.
func NewAgents(n int, gen core.GenerationBackend, emb core.EmbeddingBackend, optFns ...func(o *agent.Options)) []*agent.Agent {
	agents := make([]*agent.Agent, n)
	for i := range agents {
		agents[i] = agent.New(fmt.Sprintf("agent-%d", i), Names[i%len(Names)], gen, emb, optFns...)
	}
	return agents
}
