// Package embedding holds vector helpers and the local EmbeddingBackend
// implementations: HashEmbedder (deterministic, for tests and offline runs),
// CharEmbedder (character-code fallback for generation-only providers) and
// CachedEmbedder, a decorator that memoizes any backend through a Cache.
package embedding
