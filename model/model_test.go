package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedModelReplaysInOrder(t *testing.T) {
	m := NewScriptedModel("first", "second")

	out, err := m.Complete(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, err = m.Complete(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	// Exhausted scripts repeat the last response.
	out, err = m.Complete(context.Background(), "p3")
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	assert.Equal(t, []string{"p1", "p2", "p3"}, m.Prompts())
	assert.Equal(t, 3, m.Calls())
}

func TestScriptedModelFailWith(t *testing.T) {
	boom := errors.New("boom")
	m := NewScriptedModel("unused").FailWith(boom)

	_, err := m.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, boom)
}

func TestScriptedModelRespectsContext(t *testing.T) {
	m := NewScriptedModel("resp")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Calls())
}
