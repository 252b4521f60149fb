package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatHistory(t *testing.T) {
	now := time.Now()
	msgs := []Message{
		{Role: RoleUser, Content: "Hello", Timestamp: now},
		{Role: RoleAssistant, Content: "Hi there", Timestamp: now},
		{Role: RoleUser, Content: "How are you?", Timestamp: now},
	}
	got := FormatHistory(msgs)
	assert.Equal(t, "User: Hello\nAssistant: Hi there\nUser: How are you?", got)

	assert.Equal(t, "", FormatHistory(nil))
}

func TestStatsFromMessages(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleAssistant, Content: "Hi"},
	}
	stats := StatsFromMessages("s1", msgs)
	assert.Equal(t, "s1", stats.SessionID)
	assert.Equal(t, 1, stats.TurnCount)
	assert.Equal(t, len("User: Hello\nAssistant: Hi"), stats.MemorySizeBytes)
}

func TestErrorKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(KindChannel, "model unreachable", cause)

	assert.True(t, IsKind(err, KindChannel))
	assert.False(t, IsKind(err, KindParse))
	assert.Equal(t, KindChannel, KindOf(err))
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("send message: %w", err)
	assert.True(t, IsKind(wrapped, KindChannel))

	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
