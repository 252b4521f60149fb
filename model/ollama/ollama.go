// Package ollama implements model.Model against a local Ollama server's
// generate API. Only the non-streaming path is used; the agent loop has no
// streaming requirement.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tobhei/docuchat/model"
)

// Options configures the Ollama model adapter.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

// Model talks to an Ollama server over HTTP.
type Model struct {
	opts Options
}

// NewModel creates a new Ollama model. Defaults: localhost server, a
// five-minute HTTP timeout (local models can be slow to load).
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		BaseURL:     "http://localhost:11434",
		Model:       "llama3.2",
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Model{opts: opts}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete implements model.Model via POST /api/generate.
func (m *Model) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   m.opts.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]any{"temperature": m.opts.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.opts.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.opts.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama api error %d: %s", resp.StatusCode, string(data))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Response, nil
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "ollama"}
}
