package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tobhei/docuchat/logging"
	"github.com/tobhei/docuchat/model"
	"github.com/tobhei/docuchat/retrieve"
	"github.com/tobhei/docuchat/structured"
)

const questionPrompt = `You are a question generation assistant.
From the following text, generate diverse types of questions:

Text:
%s

Instructions:
- Create at least %d questions, or as many as the user request asks for.
- Mix question types: multiple-choice, true/false, short answer, and open-ended.
- Always provide a suggested answer for each question.
- Return output in strict JSON format:
{
  "questions": [
    {"type": "MCQ", "question": "What is ...?", "options": ["A", "B", "C", "D"], "answer": "B"},
    {"type": "True/False", "question": "The text says ...", "answer": "True"},
    {"type": "Short Answer", "question": "Explain ...", "answer": "..."},
    {"type": "Open-ended", "question": "Discuss ...", "answer": "Sample points..."}
  ]
}

User request: %s`

// QuestionTool generates typed questions from the document. JSON generation
// goes through the repair pipeline; a plain-text prompt serves as fallback
// when the model cannot produce valid JSON.
type QuestionTool struct {
	model        model.Model
	retriever    retrieve.Retriever
	repairer     *structured.Repairer
	minQuestions int
	logger       logging.Logger
}

// NewQuestionTool builds the question generation capability.
func NewQuestionTool(m model.Model, r retrieve.Retriever, rep *structured.Repairer, logger logging.Logger) *QuestionTool {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &QuestionTool{model: m, retriever: r, repairer: rep, minQuestions: 5, logger: logger}
}

// Name implements Tool.
func (t *QuestionTool) Name() string { return "question_generator" }

// Description implements Tool.
func (t *QuestionTool) Description() string {
	return "Generate questions (MCQ, true/false, short answer, open-ended) from the document or a specific query."
}

// Invoke implements Tool.
func (t *QuestionTool) Invoke(ctx context.Context, input string) (string, error) {
	query := cleanQuery(input)

	text, err := documentText(ctx, t.retriever, query)
	if err != nil {
		if errors.Is(err, retrieve.ErrNoIndex) {
			return "", fmt.Errorf("no document has been uploaded yet")
		}
		return "", fmt.Errorf("generating questions: %w", err)
	}

	out, err := t.model.Complete(ctx, fmt.Sprintf(questionPrompt, text, t.minQuestions, query))
	if err != nil {
		return "", fmt.Errorf("generating questions: %w", err)
	}

	_, raw, perr := t.repairer.Parse(ctx, out, structured.RequireArray("questions"))
	if perr == nil {
		return raw, nil
	}

	var exhausted *structured.RepairExhaustedError
	if !errors.As(perr, &exhausted) {
		return "", perr
	}
	t.logger.Warn("tool.questions.json_failed", "error", perr.Error())

	// Text fallback keeps the turn useful when structured generation fails.
	fallback := fmt.Sprintf("Using only the text below, write %d study questions with answers matching the user request.\n\nTEXT:\n%s\n\nUSER REQUEST: %s",
		t.minQuestions, text, query)
	plain, err := t.model.Complete(ctx, fallback)
	if err != nil {
		return "", fmt.Errorf("generating questions: %w", err)
	}
	return strings.TrimSpace(plain), nil
}

// cleanQuery normalizes free-form input: too-short requests fall back to a
// generic topic, oversized ones are clipped.
func cleanQuery(raw string) string {
	q := strings.TrimSpace(raw)
	if len(q) < 3 {
		return "main concepts"
	}
	if len(q) > 200 {
		q = q[:200]
	}
	return q
}
