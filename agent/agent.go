// Package agent implements the think/act/observe loop: each iteration asks
// the model for a proposal (tool call or final answer), dispatches tool
// calls through the registry, feeds observations back into the working
// context, and terminates on a final answer, a model channel failure, or
// the iteration cap.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tobhei/docuchat/core"
	"github.com/tobhei/docuchat/logging"
	"github.com/tobhei/docuchat/model"
	"github.com/tobhei/docuchat/tool"
)

// Termination states of a turn.
type Termination int

const (
	// TerminatedSuccess means the model produced a final answer.
	TerminatedSuccess Termination = iota
	// TerminatedFailure means the model channel itself failed.
	TerminatedFailure
	// TerminatedIterationLimit means the think/act cap was reached without
	// a final answer; the result carries a best-effort partial answer.
	TerminatedIterationLimit
)

// TurnResult is the outcome of one Run call.
type TurnResult struct {
	Answer      string
	Success     bool
	Iterations  int
	Termination Termination
	Err         error
}

const defaultInstruction = `You are a helpful AI assistant that can use tools to answer questions about documents and the weather.

Respond with a single JSON object:
  {"action": "<tool name>", "action_input": "<input for the tool>"}
to use a tool, or
  {"action": "Final Answer", "action_input": "<your answer to the user>"}
to answer directly.`

// Options configures a Loop.
type Options struct {
	// Instruction is the system-style preamble of every Thinking prompt.
	Instruction string
	// MaxIterations caps the number of think/act round-trips per turn.
	MaxIterations int
	// StepTimeout bounds each model call and each tool invocation
	// individually. Zero disables the per-step bound.
	StepTimeout time.Duration
	Logger      logging.Logger
}

// Loop drives one user turn through the think/act/observe state machine.
// A Loop is stateless across turns and safe for concurrent use.
type Loop struct {
	model model.Model
	tools *tool.Registry
	opts  Options
}

// NewLoop constructs a Loop. Defaults: 5 iterations, 60s step timeout.
func NewLoop(m model.Model, tools *tool.Registry, optFns ...func(o *Options)) *Loop {
	opts := Options{
		Instruction:   defaultInstruction,
		MaxIterations: 5,
		StepTimeout:   60 * time.Second,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 1
	}
	return &Loop{model: m, tools: tools, opts: opts}
}

// step is one completed act cycle kept in the turn's scratch context.
// Observations are scratch state only; they are never persisted as
// conversation messages.
type step struct {
	toolName    string
	toolInput   string
	observation string
}

// Run executes one turn. history is the formatted prior transcript, input
// the new user text. Empty input must be rejected by the caller before Run;
// Run guards anyway and reports a validation failure.
func (l *Loop) Run(ctx context.Context, history, input string) TurnResult {
	if strings.TrimSpace(input) == "" {
		err := core.NewError(core.KindValidation, "input must not be empty", nil)
		return TurnResult{Success: false, Termination: TerminatedFailure, Err: err}
	}

	logger := l.opts.Logger
	logger.Debug("agent.turn.start", "max_iterations", l.opts.MaxIterations)

	var scratch []step

	for iter := 1; iter <= l.opts.MaxIterations; iter++ {
		out, err := l.think(ctx, history, input, scratch)
		if err != nil {
			logger.Error("agent.turn.model_failed", "iteration", iter, "error", err.Error())
			return TurnResult{
				Iterations:  iter,
				Termination: TerminatedFailure,
				Err:         core.NewError(core.KindChannel, "model channel failed", err),
			}
		}

		switch p := parseProposal(out).(type) {
		case FinalAnswer:
			logger.Info("agent.turn.answered", "iterations", iter)
			return TurnResult{
				Answer:      p.Text,
				Success:     true,
				Iterations:  iter,
				Termination: TerminatedSuccess,
			}

		case ToolCallProposal:
			obs := l.act(ctx, p)
			scratch = append(scratch, step{toolName: p.Name, toolInput: p.Input, observation: obs})
		}
	}

	logger.Warn("agent.turn.iteration_limit", "iterations", l.opts.MaxIterations)
	return TurnResult{
		Answer:      bestEffortAnswer(scratch),
		Success:     false,
		Iterations:  l.opts.MaxIterations,
		Termination: TerminatedIterationLimit,
		Err:         core.NewError(core.KindIterationLimit, fmt.Sprintf("no final answer after %d iterations", l.opts.MaxIterations), nil),
	}
}

// think performs one time-bounded model call.
func (l *Loop) think(ctx context.Context, history, input string, scratch []step) (string, error) {
	stepCtx, cancel := l.stepContext(ctx)
	defer cancel()
	return l.model.Complete(stepCtx, l.buildPrompt(history, input, scratch))
}

// act dispatches one tool call. Any failure, including an unregistered
// tool name or a per-step timeout, becomes an error observation so the
// model can recover instead of aborting the turn.
func (l *Loop) act(ctx context.Context, p ToolCallProposal) string {
	stepCtx, cancel := l.stepContext(ctx)
	defer cancel()

	start := time.Now()
	out, err := l.tools.Dispatch(stepCtx, p.Name, p.Input)
	if err != nil {
		l.opts.Logger.Warn("agent.tool.error", "tool", p.Name, "error", err.Error())
		return fmt.Sprintf("Tool %q failed: %v. Answer from your own knowledge or try a different tool.", p.Name, err)
	}
	l.opts.Logger.Info("agent.tool.executed", "tool", p.Name, "duration_ms", time.Since(start).Milliseconds())
	return out
}

func (l *Loop) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.opts.StepTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.opts.StepTimeout)
}

func (l *Loop) buildPrompt(history, input string, scratch []step) string {
	var b strings.Builder
	b.WriteString(l.opts.Instruction)

	if ds := l.tools.Descriptors(); len(ds) > 0 {
		b.WriteString("\n\nAvailable tools:\n")
		for _, d := range ds {
			fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
		}
	}

	if history != "" {
		b.WriteString("\nConversation history:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	b.WriteString("\nUser: ")
	b.WriteString(input)

	for _, s := range scratch {
		fmt.Fprintf(&b, "\n\nAction: %s\nAction Input: %s\nObservation: %s", s.toolName, s.toolInput, s.observation)
	}

	b.WriteString("\n\nRespond with a single JSON object as instructed.")
	return b.String()
}

// bestEffortAnswer assembles a partial answer when the iteration cap is
// hit. Every completed iteration ended in a tool call (a final answer would
// have terminated the loop), so the freshest useful content is the last
// observation.
func bestEffortAnswer(scratch []step) string {
	if len(scratch) > 0 {
		return fmt.Sprintf("I could not fully complete the request. Last tool result: %s", scratch[len(scratch)-1].observation)
	}
	return "I could not complete the request within the allowed number of steps."
}
