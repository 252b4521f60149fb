// Package session provides ConversationStore implementations: a volatile
// in-process store for tests and prototypes, and (in the sqlite subpackage)
// a durable single-node store that survives process restarts.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tobhei/docuchat/core"
)

// InMemoryStore is a volatile ConversationStore keeping message logs in a
// process-local map. Safe for concurrent access; appends for the same key
// are serialized by the store mutex, preserving a total order.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[storeKey]*record
}

type storeKey struct {
	userID    string
	sessionID string
}

type record struct {
	messages []core.Message
	created  time.Time
	updated  time.Time
}

// NewInMemoryStore constructs an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: make(map[storeKey]*record)}
}

// Load implements core.ConversationStore. Absent keys yield an empty slice.
func (s *InMemoryStore) Load(ctx context.Context, userID, sessionID string) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.conversations[storeKey{userID, sessionID}]
	if !ok {
		return []core.Message{}, nil
	}
	out := make([]core.Message, len(rec.messages))
	copy(out, rec.messages)
	return out, nil
}

// Append implements core.ConversationStore.
func (s *InMemoryStore) Append(ctx context.Context, userID, sessionID string, role core.Role, content string) (core.Message, error) {
	if err := ctx.Err(); err != nil {
		return core.Message{}, err
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey{userID, sessionID}
	rec, ok := s.conversations[key]
	if !ok {
		rec = &record{created: now}
		s.conversations[key] = rec
	}
	msg := core.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
	rec.messages = append(rec.messages, msg)
	rec.updated = now
	return msg, nil
}

// Clear implements core.ConversationStore. The record survives empty so
// the conversation identity is preserved.
func (s *InMemoryStore) Clear(ctx context.Context, userID, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.conversations[storeKey{userID, sessionID}]
	if !ok {
		return 0, nil
	}
	n := len(rec.messages)
	rec.messages = nil
	rec.updated = time.Now()
	return n, nil
}

// History implements core.ConversationStore.
func (s *InMemoryStore) History(ctx context.Context, userID, sessionID string) (string, error) {
	msgs, err := s.Load(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	return core.FormatHistory(msgs), nil
}
