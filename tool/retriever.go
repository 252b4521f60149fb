package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tobhei/docuchat/model"
	"github.com/tobhei/docuchat/retrieve"
)

const defaultTopK = 3

// RetrieverTool fetches relevant passages from the indexed document.
type RetrieverTool struct {
	retriever retrieve.Retriever
}

// NewRetrieverTool wraps a Retriever as a capability.
func NewRetrieverTool(r retrieve.Retriever) *RetrieverTool {
	return &RetrieverTool{retriever: r}
}

// Name implements Tool.
func (t *RetrieverTool) Name() string { return "document_retriever" }

// Description implements Tool.
func (t *RetrieverTool) Description() string {
	return "Fetch relevant information from the uploaded document. Input is the search query."
}

// Invoke implements Tool.
func (t *RetrieverTool) Invoke(ctx context.Context, input string) (string, error) {
	text, err := t.retriever.Query(ctx, input, defaultTopK)
	if err != nil {
		if errors.Is(err, retrieve.ErrNoIndex) {
			return "", fmt.Errorf("no document has been uploaded yet")
		}
		return "", fmt.Errorf("retrieving document context: %w", err)
	}
	return text, nil
}

// SummarizerTool condenses the full document or the passages matching a
// query.
type SummarizerTool struct {
	model     model.Model
	retriever retrieve.Retriever
}

// NewSummarizerTool builds the summarization capability.
func NewSummarizerTool(m model.Model, r retrieve.Retriever) *SummarizerTool {
	return &SummarizerTool{model: m, retriever: r}
}

// Name implements Tool.
func (t *SummarizerTool) Name() string { return "summarizer" }

// Description implements Tool.
func (t *SummarizerTool) Description() string {
	return "Summarize the full document or a specific query. Use 'full' for the entire document."
}

// Invoke implements Tool.
func (t *SummarizerTool) Invoke(ctx context.Context, input string) (string, error) {
	text, err := documentText(ctx, t.retriever, input)
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}
	summary, err := t.model.Complete(ctx, "Summarize the following document content concisely:\n\n"+text)
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// documentText resolves the conventional "full" input to the whole indexed
// document, anything else to a retrieval query.
func documentText(ctx context.Context, r retrieve.Retriever, input string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(input), "full") {
		chunks, err := r.AllChunks(ctx)
		if err != nil {
			return "", err
		}
		return strings.Join(chunks, "\n"), nil
	}
	return r.Query(ctx, input, defaultTopK)
}
