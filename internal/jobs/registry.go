package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"video-transcriber/internal/domain"
)

// ErrUnknownRequest is returned when cancel targets an ID that is not running.
var ErrUnknownRequest = errors.New("no running request with that id")

type entry struct {
	request domain.Request
	cancel  context.CancelFunc
}

// Registry tracks in-flight transcription requests. It imposes no limit:
// any number of requests may run at once.
type Registry struct {
	mu      sync.RWMutex
	running map[string]*entry
	now     func() time.Time
	newID   func() string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		running: make(map[string]*entry),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Start registers a running request and returns its snapshot.
func (r *Registry) Start(url string, cancel context.CancelFunc) domain.Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	req := domain.Request{
		ID:        r.newID(),
		URL:       url,
		Status:    domain.RequestStatusRunning,
		StartedAt: r.now().UTC(),
	}
	r.running[req.ID] = &entry{request: req, cancel: cancel}
	return req
}

// Finish removes a request and returns its final snapshot.
func (r *Registry) Finish(id string, status domain.RequestStatus) (domain.Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.running[id]
	if !ok {
		return domain.Request{}, false
	}
	delete(r.running, id)
	e.request.Status = status
	return e.request, true
}

// Cancel invokes the cancel func of a running request.
func (r *Registry) Cancel(id string) error {
	r.mu.RLock()
	e, ok := r.running[id]
	r.mu.RUnlock()

	if !ok {
		return ErrUnknownRequest
	}
	if e.cancel != nil {
		e.cancel()
	}
	return nil
}

// CancelAll cancels every running request, used on shutdown.
func (r *Registry) CancelAll() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.running {
		if e.cancel != nil {
			e.cancel()
		}
	}
	return len(r.running)
}

// Active returns snapshots of running requests, oldest first.
func (r *Registry) Active() []domain.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Request, 0, len(r.running))
	for _, e := range r.running {
		out = append(out, e.request)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
