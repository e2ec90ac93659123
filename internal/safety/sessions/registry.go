package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yungbote/contentsafety/internal/observability"
	"github.com/yungbote/contentsafety/internal/platform/logger"
	"github.com/yungbote/contentsafety/internal/platform/requestid"
	"github.com/yungbote/contentsafety/internal/safety/orchestrator"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrFull     = errors.New("session limit reached")
)

// Registry owns the in-memory orchestrator sessions of the HTTP surface.
// Nothing is persisted; sessions idle past the timeout are closed by Run.
type Registry struct {
	orch    *orchestrator.Orchestrator
	idle    time.Duration
	max     int
	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	session  *orchestrator.Session
	lastUsed time.Time
}

type Options struct {
	IdleTimeout time.Duration
	// MaxSessions caps live sessions; zero means unlimited.
	MaxSessions int
	Log         *logger.Logger
	Metrics     *observability.Metrics
}

func NewRegistry(orch *orchestrator.Orchestrator, opts Options) *Registry {
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Registry{
		orch:    orch,
		idle:    idle,
		max:     opts.MaxSessions,
		log:     logger.OrNop(opts.Log).With("service", "SessionRegistry"),
		metrics: opts.Metrics,
		now:     time.Now,
		entries: map[string]*entry{},
	}
}

func (r *Registry) Create() (string, *orchestrator.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.entries) >= r.max {
		return "", nil, ErrFull
	}
	id := requestid.New()
	s := r.orch.NewSession()
	r.entries[id] = &entry{session: s, lastUsed: r.now()}
	r.metrics.SetSessionsActive(len(r.entries))
	r.log.Debug("session created", "session_id", id)
	return id, s, nil
}

// Get returns the session and marks it used.
func (r *Registry) Get(id string) (*orchestrator.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastUsed = r.now()
	return e.session, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
		r.metrics.SetSessionsActive(len(r.entries))
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return e.session.Close()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes sessions idle for longer than the timeout.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)
	var expired []*orchestrator.Session
	r.mu.Lock()
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			expired = append(expired, e.session)
			delete(r.entries, id)
		}
	}
	r.metrics.SetSessionsActive(len(r.entries))
	r.mu.Unlock()

	for _, s := range expired {
		_ = s.Close()
	}
	if len(expired) > 0 {
		r.log.Info("expired idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.entries
	r.entries = map[string]*entry{}
	r.metrics.SetSessionsActive(0)
	r.mu.Unlock()
	for _, e := range all {
		_ = e.session.Close()
	}
}
