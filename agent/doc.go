// Package agent contains the worker unit of an RSA population.
//
// An Agent owns an identity (id, display name, role), a bounded context log
// of its past exchanges and references to one generation backend and one
// embedding backend. Its capability calls never fail the caller: a failed or
// timed out generation turns into an "[error] ..." response that stays in the
// population as ordinary text, and a failed embedding turns into the zero
// vector.
//
// Agents are safe for concurrent use; the engine may schedule the same agent
// for several slots of a single-step run.
package agent
