// Package docuchat provides a high-level façade over the agent loop and
// per-user service registry. Most applications interact with this package
// by:
//  1. Creating a DocuChat via New() with a model (optionally overriding the
//     default in-memory store, logger, or tool set)
//  2. Creating sessions and sending messages per user
//  3. Reading session stats or clearing sessions as needed
//
// The façade delegates turn execution to agent.Loop and state handling to
// service.Registry while keeping setup ergonomics concise. All defaults
// are safe for local development and testing; production deployments
// typically supply a durable store and a structured logger.
package docuchat

import (
	"context"

	"github.com/tobhei/docuchat/agent"
	"github.com/tobhei/docuchat/core"
	"github.com/tobhei/docuchat/logging"
	"github.com/tobhei/docuchat/model"
	"github.com/tobhei/docuchat/service"
	"github.com/tobhei/docuchat/session"
	"github.com/tobhei/docuchat/tool"
)

// Options configures the DocuChat instance.
type Options struct {
	// Store persists conversations (defaults to in-memory if not provided).
	Store core.ConversationStore

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// Tools builds the tool registry for a user. The default returns an
	// empty registry; applications typically register document, analysis
	// and weather tools here. Called once per user.
	Tools func(userID string) *tool.Registry

	// AgentOptions customize the per-user agent loop (instruction,
	// iteration cap, step timeout).
	AgentOptions []func(o *agent.Options)
}

// DocuChat is the high-level façade aggregating the model, the store and
// the per-user service registry.
type DocuChat struct {
	opts     Options
	registry *service.Registry
}

// New creates a DocuChat instance around a model with optional overrides.
func New(m model.Model, optFns ...func(o *Options)) *DocuChat {
	opts := Options{
		Store:  session.NewInMemoryStore(),
		Logger: logging.NoOpLogger{},
		Tools:  func(string) *tool.Registry { return tool.NewRegistry() },
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := service.NewRegistry(func(userID string) (*service.Service, error) {
		agentOpts := append([]func(o *agent.Options){func(o *agent.Options) {
			o.Logger = opts.Logger
		}}, opts.AgentOptions...)
		loop := agent.NewLoop(m, opts.Tools(userID), agentOpts...)
		return service.NewService(userID, loop, opts.Store, opts.Logger), nil
	})

	return &DocuChat{opts: opts, registry: registry}
}

// CreateSession mints a new session for the user.
func (d *DocuChat) CreateSession(userID string) (string, error) {
	svc, err := d.registry.GetOrCreate(userID)
	if err != nil {
		return "", err
	}
	return svc.CreateSession(), nil
}

// SendMessage runs one agent turn in the user's session.
func (d *DocuChat) SendMessage(ctx context.Context, userID, sessionID, input string) (core.TurnResult, error) {
	svc, err := d.registry.GetOrCreate(userID)
	if err != nil {
		return core.TurnResult{}, err
	}
	return svc.SendMessage(ctx, sessionID, input)
}

// ClearSession removes the session's messages and reports how many were
// deleted. The session identifier remains valid.
func (d *DocuChat) ClearSession(ctx context.Context, userID, sessionID string) (int, error) {
	svc, err := d.registry.GetOrCreate(userID)
	if err != nil {
		return 0, err
	}
	return svc.ClearSession(ctx, sessionID)
}

// Stats reports the persisted state of the user's session.
func (d *DocuChat) Stats(ctx context.Context, userID, sessionID string) (core.Stats, error) {
	svc, err := d.registry.GetOrCreate(userID)
	if err != nil {
		return core.Stats{}, err
	}
	return svc.Stats(ctx, sessionID)
}

// History returns the formatted transcript of the user's session.
func (d *DocuChat) History(ctx context.Context, userID, sessionID string) (string, error) {
	svc, err := d.registry.GetOrCreate(userID)
	if err != nil {
		return "", err
	}
	return svc.History(ctx, sessionID)
}

// ActiveUsers lists the users with a constructed service.
func (d *DocuChat) ActiveUsers() []string {
	return d.registry.ActiveUsers()
}
