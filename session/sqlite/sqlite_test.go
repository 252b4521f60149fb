package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobhei/docuchat/core"
)

var _ core.ConversationStore = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "docuchat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustAppend(t *testing.T, s *Store, userID, sessionID string, role core.Role, content string) core.Message {
	t.Helper()
	msg, err := s.Append(context.Background(), userID, sessionID, role, content)
	require.NoError(t, err)
	return msg
}

func TestAppendAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, "alice", "s1", core.RoleUser, "hello")
	mustAppend(t, s, "alice", "s1", core.RoleAssistant, "hi there")

	msgs, err := s.Load(ctx, "alice", "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hi there", msgs[1].Content)
	assert.NotEmpty(t, msgs[0].ID)
	assert.False(t, msgs[0].Timestamp.IsZero())
}

func TestAppendReturnsPersistedMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := mustAppend(t, s, "alice", "s1", core.RoleUser, "hello")
	require.NotEmpty(t, msg.ID)
	require.False(t, msg.Timestamp.IsZero())

	msgs, err := s.Load(ctx, "alice", "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
	assert.True(t, msg.Timestamp.Equal(msgs[0].Timestamp))
}

func TestLoadAbsentKey(t *testing.T) {
	s := newTestStore(t)

	msgs, err := s.Load(context.Background(), "nobody", "none")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestKeyIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, "alice", "s1", core.RoleUser, "alice message")
	mustAppend(t, s, "bob", "s1", core.RoleUser, "bob message")
	mustAppend(t, s, "alice", "s2", core.RoleUser, "other session")

	msgs, err := s.Load(ctx, "alice", "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice message", msgs[0].Content)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, "alice", "s1", core.RoleUser, "one")
	mustAppend(t, s, "alice", "s1", core.RoleAssistant, "two")

	n, err := s.Clear(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	msgs, err := s.Load(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// The conversation identity outlives its messages.
	conv, err := s.Conversation(ctx, "alice", "s1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, "alice", conv.UserID)

	// Clearing again is a no-op.
	n, err = s.Clear(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestClearUnknownKey(t *testing.T) {
	s := newTestStore(t)

	n, err := s.Clear(context.Background(), "nobody", "none")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, "alice", "s1", core.RoleUser, "what is Go?")
	mustAppend(t, s, "alice", "s1", core.RoleAssistant, "A programming language.")

	h, err := s.History(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, "User: what is Go?\nAssistant: A programming language.", h)
}

func TestConversationMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.Conversation(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Nil(t, conv)

	mustAppend(t, s, "alice", "s1", core.RoleUser, "hi")

	conv, err = s.Conversation(ctx, "alice", "s1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, "s1", conv.SessionID)
	assert.False(t, conv.Created.IsZero())
	assert.False(t, conv.Updated.IsZero())
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docuchat.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	_, err = s.Append(ctx, "alice", "s1", core.RoleUser, "remember me")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()

	msgs, err := s2.Load(ctx, "alice", "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "remember me", msgs[0].Content)
}

func TestConcurrentAppends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, "alice", "s1", core.RoleUser, "msg")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := s.Load(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Len(t, msgs, writers)
}
