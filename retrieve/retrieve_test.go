package retrieve

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexEmpty(t *testing.T) {
	idx := NewMemoryIndex()

	_, err := idx.Query(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrNoIndex)

	_, err = idx.AllChunks(context.Background())
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestMemoryIndexRanking(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add(
		"Revenue figures for 2022 and 2023 grew steadily.",
		"The company cafeteria serves lunch at noon.",
		"Quarterly revenue breakdown by region and product.",
	)

	got, err := idx.Query(context.Background(), "revenue figures by quarter", 2)
	require.NoError(t, err)

	parts := strings.Split(got, "\n\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "Revenue")
	assert.NotContains(t, got, "cafeteria")
}

func TestMemoryIndexAllChunksOrder(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add("first", "second", "third")

	chunks, err := idx.AllChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, chunks)

	// Returned slice is a copy.
	chunks[0] = "mutated"
	again, _ := idx.AllChunks(context.Background())
	assert.Equal(t, "first", again[0])
}
