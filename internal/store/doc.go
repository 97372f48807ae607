// Package store provides conversation memory for the chat API.
//
// # Architecture
//
// MemoryStore is an append-only log of messages keyed by conversation id.
// Two implementations exist:
//
//   - SQLiteStore: persistent storage via modernc.org/sqlite (pure Go, no cgo)
//   - MockStore: in-memory storage for tests
//
// # Ordering
//
// Messages get a ULID on append. SQLiteStore orders by an autoincrement
// sequence, so two messages written in the same millisecond still come back
// in the order they were appended. Recent(ctx, id, n) returns the newest n
// messages, oldest first, which is the shape a model prompt wants.
//
// # Schema
//
//	memory_messages(seq, id, conversation_id, role, content, created_at)
//
// role is constrained to user, assistant, or system.
package store
