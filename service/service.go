// Package service binds an agent loop to persistent conversational memory
// and hands out per-user handles through a registry. A Service owns every
// session of one user; the Registry guarantees each user's Service is
// constructed exactly once no matter how many goroutines ask for it.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tobhei/docuchat/agent"
	"github.com/tobhei/docuchat/core"
	"github.com/tobhei/docuchat/logging"
)

// Service runs agent turns for a single user. Sessions are hydrated from
// the store on first touch and kept write-through in memory afterwards, so
// a turn never re-reads history the process already holds.
//
// Each session serializes on its own mutex: turns, clears and stat reads
// for one session are totally ordered, while sessions of the same user
// proceed independently. The store stays the source of truth; the cache is
// invalidated whenever a store write fails and rebuilt atomically with a
// clear, so it can never outlive the rows it mirrors.
type Service struct {
	userID string
	loop   *agent.Loop
	store  core.ConversationStore
	logger logging.Logger

	mu       sync.Mutex // guards the sessions map only
	sessions map[string]*sessionCache
}

type sessionCache struct {
	mu       sync.Mutex
	messages []core.Message
	hydrated bool
}

// NewService constructs the per-user handle. The caller owns the loop and
// store; both may be shared across services.
func NewService(userID string, loop *agent.Loop, store core.ConversationStore, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Service{
		userID:   userID,
		loop:     loop,
		store:    store,
		logger:   logger,
		sessions: make(map[string]*sessionCache),
	}
}

// UserID returns the user this service belongs to.
func (s *Service) UserID() string { return s.userID }

// CreateSession mints a fresh session identifier. No state is written
// until the first message arrives.
func (s *Service) CreateSession() string {
	id := uuid.New().String()
	s.logger.Info("session created", "user_id", s.userID, "session_id", id)
	return id
}

// SendMessage runs one turn: persist the user message, execute the agent
// loop against the session history, and persist the answer. Answers are
// persisted for successful turns and iteration-limit turns alike; a model
// channel failure persists nothing beyond the user message.
func (s *Service) SendMessage(ctx context.Context, sessionID, input string) (core.TurnResult, error) {
	if strings.TrimSpace(input) == "" {
		return core.TurnResult{}, core.NewError(core.KindValidation, "message must not be empty", nil)
	}
	if sessionID == "" {
		return core.TurnResult{}, core.NewError(core.KindValidation, "session id must not be empty", nil)
	}

	cache := s.sessionFor(sessionID)
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if err := s.hydrateLocked(ctx, cache, sessionID); err != nil {
		return core.TurnResult{}, core.NewError(core.KindChannel, "load conversation", err)
	}
	history := core.FormatHistory(cache.messages)

	if err := s.appendLocked(ctx, cache, sessionID, core.RoleUser, input); err != nil {
		return core.TurnResult{}, core.NewError(core.KindChannel, "persist user message", err)
	}

	res := s.loop.Run(ctx, history, input)
	s.logger.Info("turn finished",
		"user_id", s.userID,
		"session_id", sessionID,
		"success", res.Success,
		"iterations", res.Iterations,
	)

	if res.Termination == agent.TerminatedFailure {
		return turnResult(res), res.Err
	}

	if err := s.appendLocked(ctx, cache, sessionID, core.RoleAssistant, res.Answer); err != nil {
		return core.TurnResult{}, core.NewError(core.KindChannel, "persist assistant message", err)
	}
	return turnResult(res), res.Err
}

// ClearSession deletes the session's messages. The store delete runs under
// the session mutex, so no turn can slip between the cache reset and the
// store write; the session identifier stays usable.
func (s *Service) ClearSession(ctx context.Context, sessionID string) (int, error) {
	cache := s.sessionFor(sessionID)
	cache.mu.Lock()
	defer cache.mu.Unlock()

	n, err := s.store.Clear(ctx, s.userID, sessionID)
	if err != nil {
		cache.hydrated = false
		return 0, core.NewError(core.KindChannel, "clear conversation", err)
	}
	cache.messages = nil
	cache.hydrated = true

	s.logger.Info("session cleared", "user_id", s.userID, "session_id", sessionID, "messages", n)
	return n, nil
}

// Stats reports the persisted state of a session.
func (s *Service) Stats(ctx context.Context, sessionID string) (core.Stats, error) {
	cache := s.sessionFor(sessionID)
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if err := s.hydrateLocked(ctx, cache, sessionID); err != nil {
		return core.Stats{}, core.NewError(core.KindChannel, "load conversation", err)
	}
	return core.StatsFromMessages(sessionID, cache.messages), nil
}

// History returns the formatted transcript of a session.
func (s *Service) History(ctx context.Context, sessionID string) (string, error) {
	cache := s.sessionFor(sessionID)
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if err := s.hydrateLocked(ctx, cache, sessionID); err != nil {
		return "", core.NewError(core.KindChannel, "load conversation", err)
	}
	return core.FormatHistory(cache.messages), nil
}

// sessionFor returns the session's cache entry, creating it if missing.
// Entries are never removed, so every caller for a session id locks the
// same mutex.
func (s *Service) sessionFor(sessionID string) *sessionCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	cache, ok := s.sessions[sessionID]
	if !ok {
		cache = &sessionCache{}
		s.sessions[sessionID] = cache
	}
	return cache
}

func (s *Service) hydrateLocked(ctx context.Context, cache *sessionCache, sessionID string) error {
	if cache.hydrated {
		return nil
	}
	msgs, err := s.store.Load(ctx, s.userID, sessionID)
	if err != nil {
		return fmt.Errorf("hydrate session %s: %w", sessionID, err)
	}
	cache.messages = msgs
	cache.hydrated = true
	return nil
}

func (s *Service) appendLocked(ctx context.Context, cache *sessionCache, sessionID string, role core.Role, content string) error {
	msg, err := s.store.Append(ctx, s.userID, sessionID, role, content)
	if err != nil {
		// The cache may now trail the store; force a re-read next turn.
		cache.hydrated = false
		return err
	}
	cache.messages = append(cache.messages, msg)
	return nil
}

func turnResult(res agent.TurnResult) core.TurnResult {
	return core.TurnResult{
		Answer:     res.Answer,
		Success:    res.Success,
		Iterations: res.Iterations,
		Err:        res.Err,
	}
}
