package service

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds the Service for a user. It runs at most once per user for
// the lifetime of a Registry.
type Factory func(userID string) (*Service, error)

// Registry hands out per-user Services, constructing each one lazily and
// exactly once. Lookups after construction take only a read lock.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*Service
	factory  Factory
}

// NewRegistry creates a registry around the given factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		services: make(map[string]*Service),
		factory:  factory,
	}
}

// GetOrCreate returns the user's Service, constructing it on first use.
// Concurrent callers for the same user all receive the same instance.
func (r *Registry) GetOrCreate(userID string) (*Service, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id must not be empty")
	}

	r.mu.RLock()
	svc, ok := r.services[userID]
	r.mu.RUnlock()
	if ok {
		return svc, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if svc, ok := r.services[userID]; ok {
		return svc, nil
	}

	svc, err := r.factory(userID)
	if err != nil {
		return nil, fmt.Errorf("construct service for user %s: %w", userID, err)
	}
	r.services[userID] = svc
	return svc, nil
}

// ActiveUsers lists the users with a constructed Service, sorted.
func (r *Registry) ActiveUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.services))
	for id := range r.services {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

// Len reports the number of constructed Services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
