// Package model defines the minimal completion interface the agent loop and
// the structured-output repairer drive, plus a scripted implementation for
// deterministic tests. Provider-backed implementations live in the openai,
// anthropic and ollama subpackages.
package model

import (
	"context"
	"fmt"
	"sync"
)

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "ollama", "scripted"
}

// Model is the channel to the language model. Complete must be invokable
// repeatedly and cheaply enough to support repair retries; no streaming is
// required for correctness.
type Model interface {
	// Complete sends a prompt and returns the model's full text response.
	Complete(ctx context.Context, prompt string) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ScriptedModel is an in-memory Model that replays a fixed sequence of
// responses, recording every prompt it receives. Useful for tests and
// examples; safe for concurrent use.
type ScriptedModel struct {
	mu        sync.Mutex
	responses []string
	next      int
	err       error
	prompts   []string
}

// NewScriptedModel constructs a ScriptedModel replaying the given responses
// in order. Once exhausted the last response is repeated.
func NewScriptedModel(responses ...string) *ScriptedModel {
	return &ScriptedModel{responses: responses}
}

// FailWith makes every subsequent Complete call return err.
func (m *ScriptedModel) FailWith(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Complete implements Model by replaying the scripted responses.
func (m *ScriptedModel) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("scripted model has no responses")
	}
	resp := m.responses[m.next]
	if m.next < len(m.responses)-1 {
		m.next++
	}
	return resp, nil
}

// Prompts returns a snapshot of all prompts seen so far.
func (m *ScriptedModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Calls returns how many Complete invocations have been made.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return Info{Name: "scripted", Provider: "scripted"} }
