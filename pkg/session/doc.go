// Package session owns the lifecycle of per-session execution contexts:
// an in-process registry that is the single owner of each context, a
// background reaper that reclaims idle sessions, and an orphan sweeper
// for on-disk leftovers. Last-active timestamps and transcripts live in
// the durable store so other processes can observe them.
package session
