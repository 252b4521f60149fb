// Package retrieve defines the document retrieval boundary consumed by the
// built-in tools, plus an in-memory index so the system runs end-to-end
// without an external vector store. Chunking and vectorization of uploaded
// documents happen outside this module.
package retrieve

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNoIndex is returned when a retriever is queried before any document
// has been indexed. Tools surface it as a readable observation instead of
// failing the turn.
var ErrNoIndex = errors.New("no document index available")

// Retriever fetches relevant passages for a query.
type Retriever interface {
	// Query returns the k most relevant passages concatenated with blank
	// lines, most relevant first.
	Query(ctx context.Context, text string, k int) (string, error)

	// AllChunks returns every indexed passage in insertion order.
	AllChunks(ctx context.Context) ([]string, error)
}

// MemoryIndex is a process-local Retriever ranking chunks by term overlap
// with the query. Safe for concurrent use.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []string
}

// NewMemoryIndex returns an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add appends passages to the index.
func (i *MemoryIndex) Add(chunks ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.chunks = append(i.chunks, chunks...)
}

// Len reports how many passages are indexed.
func (i *MemoryIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

// Query implements Retriever.
func (i *MemoryIndex) Query(ctx context.Context, text string, k int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	if len(i.chunks) == 0 {
		return "", ErrNoIndex
	}
	if k <= 0 {
		k = 3
	}

	terms := tokenize(text)
	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, 0, len(i.chunks))
	for idx, chunk := range i.chunks {
		ranked = append(ranked, scored{idx: idx, score: overlap(terms, tokenize(chunk))})
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	parts := make([]string, 0, k)
	for _, r := range ranked[:k] {
		parts = append(parts, i.chunks[r.idx])
	}
	return strings.Join(parts, "\n\n"), nil
}

// AllChunks implements Retriever.
func (i *MemoryIndex) AllChunks(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	if len(i.chunks) == 0 {
		return nil, ErrNoIndex
	}
	out := make([]string, len(i.chunks))
	copy(out, i.chunks)
	return out, nil
}

func tokenize(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) > 2 {
			out[w] = struct{}{}
		}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
