// Package memory contains the multi-scale embedding store that tracks the
// population of an RSA run.
//
// Two levels are kept. The fine level holds one vector per agent response,
// keyed "{agentID}_t{round}". The community level holds one vector per round,
// keyed "community_t{round}", equal to the elementwise sum of the fine
// vectors aggregated into it. Diversity of a round is the mean pairwise
// cosine distance of its fine vectors.
//
// Inserts on distinct keys never contend on a store-wide lock: entries live
// in sync.Maps and every round keeps its own small index.
package memory
