// Package core provides the foundational domain types and interfaces shared by
// every rsamesh package:
//
//   - Params (N agents, K subset size, T rounds) and their validation
//   - IterationRecord, Result and Metrics describing one orchestration call
//   - GenerationBackend / EmbeddingBackend, the only two capabilities an
//     agent consumes from the outside world
//   - Sampler, the injectable randomness seam used for subset sampling and
//     the final answer pick
//   - the error taxonomy (configuration errors, duplicate records,
//     dimension mismatches)
//
// Implementation concerns (agents, the store, the orchestration engine,
// vendor adapters) live in their own packages and depend on core, never the
// other way around.
package core
