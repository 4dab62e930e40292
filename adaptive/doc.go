// Package adaptive scores queries for complexity and maps the score onto RSA
// parameters.
//
// Estimator is a pure lexical heuristic producing a score in [0, 100].
// Selector buckets that score into the simple, medium and complex tiers and
// returns the (N, K, T) configured for the tier. Tier configs and thresholds
// can be tuned at runtime; every update is validated before it is applied.
package adaptive
