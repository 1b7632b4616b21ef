// Package session maps users to their agent thread and serializes turns of
// the same user.
package session

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ThreadCreator creates agent threads.
type ThreadCreator interface {
	CreateThread(ctx context.Context) (string, error)
}

// Registry keeps one thread per user for the life of the process. Entries are
// never evicted.
type Registry struct {
	agent ThreadCreator

	mu      sync.RWMutex
	threads map[string]string
	group   singleflight.Group
}

// NewRegistry creates an empty registry backed by agent.
func NewRegistry(agent ThreadCreator) *Registry {
	return &Registry{agent: agent, threads: make(map[string]string)}
}

// Lookup returns the user's thread, if one was created.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.threads[userID]
	return id, ok
}

// GetOrCreate returns the user's thread, creating it on first use. Concurrent
// first calls for the same user share one creation.
func (r *Registry) GetOrCreate(ctx context.Context, userID string) (string, error) {
	if id, ok := r.Lookup(userID); ok {
		return id, nil
	}

	v, err, _ := r.group.Do(userID, func() (interface{}, error) {
		if id, ok := r.Lookup(userID); ok {
			return id, nil
		}
		id, err := r.agent.CreateThread(ctx)
		if err != nil {
			return "", fmt.Errorf("creating thread for %s: %w", userID, err)
		}
		r.mu.Lock()
		r.threads[userID] = id
		r.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len returns the number of users with a thread.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.threads)
}
