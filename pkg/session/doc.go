// Package session persists the durable identity an agent uses against the gateway.
//
// Invariants:
// - A non-empty persisted session id is reused as-is, without remote validation.
// - A store writes to disk at most once per process, and only when no id exists yet.
// - Read failures other than "not found" are reported, never treated as "create".
//
// Usage:
//
//	store := session.NewStore(session.StoreConfig{Path: ".aphelion/session"})
//	id, _ := store.LoadOrCreate(ctx)
//	_ = id
package session
