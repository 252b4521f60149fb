package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobhei/docuchat/core"
	"github.com/tobhei/docuchat/model"
	"github.com/tobhei/docuchat/tool"
)

func echoRegistry() *tool.Registry {
	return tool.NewRegistry(tool.NewFuncTool("echo", "Echo the input back.", func(ctx context.Context, input string) (string, error) {
		return "echo: " + input, nil
	}))
}

func TestParseProposal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Proposal
	}{
		{
			name: "tool call",
			in:   `{"action": "echo", "action_input": "hello"}`,
			want: ToolCallProposal{Name: "echo", Input: "hello"},
		},
		{
			name: "tool call wrapped in prose",
			in:   `I should use a tool. {"action": "echo", "action_input": "hello"} Let me do that.`,
			want: ToolCallProposal{Name: "echo", Input: "hello"},
		},
		{
			name: "final answer json",
			in:   `{"action": "Final Answer", "action_input": "42"}`,
			want: FinalAnswer{Text: "42"},
		},
		{
			name: "final answer case insensitive",
			in:   `{"action": "final answer", "action_input": "done"}`,
			want: FinalAnswer{Text: "done"},
		},
		{
			name: "react style text",
			in:   "Thought: I know this.\nFinal Answer: the sky is blue",
			want: FinalAnswer{Text: "the sky is blue"},
		},
		{
			name: "plain text",
			in:   "Just a direct reply.",
			want: FinalAnswer{Text: "Just a direct reply."},
		},
		{
			name: "structured action input",
			in:   `{"action": "echo", "action_input": {"city": "Berlin"}}`,
			want: ToolCallProposal{Name: "echo", Input: `{"city":"Berlin"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseProposal(tt.in))
		})
	}
}

func TestLoopDirectAnswer(t *testing.T) {
	m := model.NewScriptedModel(`{"action": "Final Answer", "action_input": "Hello back!"}`)
	l := NewLoop(m, tool.NewRegistry())

	res := l.Run(context.Background(), "", "Hello")
	assert.True(t, res.Success)
	assert.Equal(t, TerminatedSuccess, res.Termination)
	assert.Equal(t, "Hello back!", res.Answer)
	assert.Equal(t, 1, res.Iterations)
	assert.NoError(t, res.Err)
}

func TestLoopToolCallThenAnswer(t *testing.T) {
	m := model.NewScriptedModel(
		`{"action": "echo", "action_input": "ping"}`,
		`{"action": "Final Answer", "action_input": "tool said pong"}`,
	)
	l := NewLoop(m, echoRegistry())

	res := l.Run(context.Background(), "", "use the tool")
	require.True(t, res.Success)
	assert.Equal(t, 2, res.Iterations)

	// The second Thinking prompt carries the observation.
	assert.Contains(t, m.Prompts()[1], "Observation: echo: ping")
}

func TestLoopUnknownToolBecomesObservation(t *testing.T) {
	m := model.NewScriptedModel(
		`{"action": "nonexistent", "action_input": "x"}`,
		`{"action": "Final Answer", "action_input": "recovered"}`,
	)
	l := NewLoop(m, echoRegistry())

	res := l.Run(context.Background(), "", "hi")
	require.True(t, res.Success)
	assert.Equal(t, "recovered", res.Answer)
	assert.Contains(t, m.Prompts()[1], `"nonexistent" failed`)
}

func TestLoopIterationCap(t *testing.T) {
	// The model never emits a final answer; with a cap of 2 the loop must
	// terminate after exactly 2 think/act cycles.
	m := model.NewScriptedModel(`{"action": "echo", "action_input": "again"}`)
	l := NewLoop(m, echoRegistry(), func(o *Options) { o.MaxIterations = 2 })

	res := l.Run(context.Background(), "", "loop forever")
	assert.False(t, res.Success)
	assert.Equal(t, TerminatedIterationLimit, res.Termination)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, 2, m.Calls())
	assert.True(t, core.IsKind(res.Err, core.KindIterationLimit))
	// Best-effort partial answer, never empty.
	assert.Contains(t, res.Answer, "echo: again")
}

func TestLoopModelFailure(t *testing.T) {
	boom := errors.New("connection refused")
	m := model.NewScriptedModel("x").FailWith(boom)
	l := NewLoop(m, tool.NewRegistry())

	res := l.Run(context.Background(), "", "hi")
	assert.False(t, res.Success)
	assert.Equal(t, TerminatedFailure, res.Termination)
	assert.True(t, core.IsKind(res.Err, core.KindChannel))
	assert.ErrorIs(t, res.Err, boom)
}

func TestLoopRejectsEmptyInput(t *testing.T) {
	m := model.NewScriptedModel("x")
	l := NewLoop(m, tool.NewRegistry())

	res := l.Run(context.Background(), "", "   ")
	assert.False(t, res.Success)
	assert.True(t, core.IsKind(res.Err, core.KindValidation))
	// Rejected before any model call.
	assert.Equal(t, 0, m.Calls())
}

func TestLoopPromptIncludesHistoryAndTools(t *testing.T) {
	m := model.NewScriptedModel(`{"action": "Final Answer", "action_input": "ok"}`)
	l := NewLoop(m, echoRegistry())

	l.Run(context.Background(), "User: earlier question\nAssistant: earlier answer", "follow-up")
	prompt := m.Prompts()[0]
	assert.Contains(t, prompt, "echo: Echo the input back.")
	assert.Contains(t, prompt, "earlier question")
	assert.Contains(t, prompt, "User: follow-up")
}
