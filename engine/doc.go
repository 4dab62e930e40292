// Package engine implements Recursive Self-Aggregation (RSA) over a fixed
// population of agents.
//
// # Overview
//
// A run refines the answer to one query through T rounds. Round 1 asks every
// agent for an independent answer. In every later round each of the N slots
// draws K distinct answers from the previous population uniformly at random,
// wraps them into an aggregation prompt and asks its agent for an improved
// answer. After the last round one member of the population is returned.
//
// # Concurrency
//
// Within a round all generation calls run concurrently and the engine waits
// for every one of them before any embedding call starts; embeddings then run
// concurrently as well. Rounds never overlap. MaxConcurrency bounds the
// number of in-flight calls per phase.
//
// # Failure semantics
//
// Capability failures degrade a single slot: the slot's answer becomes an
// "[error] ..." string and its vector the zero vector, and the round goes on.
// Configuration errors, store key collisions, embedding dimension mismatches
// and callback errors abort the run. Cancellation of the run context is
// observed between rounds.
//
// # Observability
//
// Every run and round is traced with OpenTelemetry spans ("rsa.run",
// "rsa.round", "rsa.single_step"). Lifecycle callbacks (see CallbackType)
// let metrics collectors and loggers observe runs without touching the
// orchestration code.
//
// # Adaptivity
//
// When a run does not specify K or T, the adaptive.Selector maps the query's
// lexical complexity onto a tier and the tier's parameters are used. N is
// always the population size; a tier K larger than N is capped.
//
// Basic usage:
//
//	eng, err := engine.New(agents, func(o *engine.Options) {
//	    o.Sampler = core.NewSampler(7)
//	})
//	if err != nil {
//	    return err
//	}
//	res, err := eng.Run(ctx, "What is 15*23?", func(o *engine.RunOptions) {
//	    o.K, o.T = 2, 3
//	})
package engine
