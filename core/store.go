package core

import "context"

// ConversationStore is the durable owner of conversation messages keyed by
// (userID, sessionID).
//
// Contract:
//   - Load returns the ordered message sequence; an absent key yields an
//     empty slice, not an error.
//   - Append durably persists one message and updates the conversation's
//     Updated timestamp; Created is set only on the first write for a key.
//     Appends for the same key are linearizable: each append is atomic and
//     total order is preserved even under concurrent callers. The returned
//     Message carries the persisted ID and Timestamp, so callers caching
//     it hold exactly what a later Load would return.
//   - Clear removes all messages for the key and returns how many were
//     removed; the conversation record itself may survive empty.
//   - History returns the formatted transcript in chronological order.
//
// I/O failures surface to the caller; a turn must never silently drop a
// user message.
type ConversationStore interface {
	Load(ctx context.Context, userID, sessionID string) ([]Message, error)
	Append(ctx context.Context, userID, sessionID string, role Role, content string) (Message, error)
	Clear(ctx context.Context, userID, sessionID string) (int, error)
	History(ctx context.Context, userID, sessionID string) (string, error)
}
