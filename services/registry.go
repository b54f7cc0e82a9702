package services

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"ragwizard/models"
	"ragwizard/utils"
)

// WizardRegistry hands out one live Orchestrator per session id. Idle
// orchestrators are evicted; their state survives in the SessionStore and is
// resumed on the next request, restarting a poll that was in progress.
type WizardRegistry struct {
	store   SessionStore
	backend Backend
	opts    WizardOptions
	logger  utils.Logger

	mu   sync.Mutex
	live *cache.Cache
}

// NewWizardRegistry keeps orchestrators in memory for idle before eviction
func NewWizardRegistry(store SessionStore, backend Backend, opts WizardOptions, idle time.Duration, logger utils.Logger) *WizardRegistry {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	live := cache.New(idle, idle/2)
	live.OnEvicted(func(id string, x interface{}) {
		x.(*Orchestrator).Close()
	})
	return &WizardRegistry{
		store:   store,
		backend: backend,
		opts:    opts,
		logger:  logger,
		live:    live,
	}
}

// Get returns the orchestrator for id, resuming a stored session or starting a new one
func (r *WizardRegistry) Get(ctx context.Context, id string) (*Orchestrator, error) {
	r.mu.Lock()
	if x, found := r.live.Get(id); found {
		o := x.(*Orchestrator)
		r.live.Set(id, o, cache.DefaultExpiration)
		r.mu.Unlock()
		return o, nil
	}

	session, err := r.store.Load(ctx, id)
	resumed := err == nil
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			r.mu.Unlock()
			return nil, err
		}
		session = models.NewWizardSession(id)
	}

	o := NewOrchestrator(session, r.backend, r.store, r.opts, r.logger)
	r.live.Set(id, o, cache.DefaultExpiration)
	r.mu.Unlock()

	if resumed {
		r.logger.Info("Registry", "Wizard session resumed", map[string]interface{}{
			"session_id": id,
			"step":       int(session.CurrentStep),
			"polling":    session.Polling,
		})
		if session.Polling {
			o.Dispatch(ctx, ResumePolling{})
		}
	}
	return o, nil
}

// Forget drops the live orchestrator for id and stops its poll
func (r *WizardRegistry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Delete triggers OnEvicted, which closes the orchestrator
	r.live.Delete(id)
}

// Len returns the number of live orchestrators
func (r *WizardRegistry) Len() int {
	return r.live.ItemCount()
}
