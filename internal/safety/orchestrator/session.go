package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/logger"
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// View is the rendered state of a session: computed warnings minus
// dismissed ids.
type View struct {
	Warnings  []safety.CombinedWarning `json:"warnings"`
	IsLoading bool                     `json:"is_loading"`
	Error     *string                  `json:"error"`
	State     State                    `json:"state"`
	// Degraded is set when one checker failed and its contribution is empty.
	Degraded bool `json:"degraded,omitempty"`

	version uint64
}

type run struct {
	key    string
	done   chan struct{}
	cancel context.CancelFunc
}

// Session is one long-lived consumer of the orchestrator, typically a page
// showing one product. Checks rerun only when the (product, tags) input
// changes by value; dismissals hold until it does.
type Session struct {
	orch *Orchestrator
	log  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	key       string
	computed  []safety.CombinedWarning
	failure   error
	dismissed map[string]bool
	inflight  *run
	version   uint64
	listeners map[uint64]func(View)
	nextID    uint64

	// notifyMu serializes listener delivery; delivered is guarded by it.
	notifyMu  sync.Mutex
	delivered uint64
}

func (o *Orchestrator) NewSession() *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		orch:      o,
		log:       o.log.With("component", "Session"),
		ctx:       ctx,
		cancel:    cancel,
		dismissed: map[string]bool{},
		listeners: map[uint64]func(View){},
	}
}

// CheckProduct returns the view for product and tags, running both checkers
// only when the input differs from the previous call. Concurrent calls with
// the same input share one run; a call with a new input abandons the old run.
// Checker failures are reported in the view and by Failure, not as errors.
func (s *Session) CheckProduct(ctx context.Context, product *safety.Product, tags safety.TagSet) (View, error) {
	if product == nil {
		return View{}, ErrNoProduct
	}
	key, err := InputKey(product, tags)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return View{}, ErrSessionClosed
	}
	if key == s.key && (s.state == StateReady || s.state == StateFailed) {
		v := s.viewLocked()
		s.mu.Unlock()
		return v, nil
	}
	r := s.inflight
	var loading *View
	if key != s.key || r == nil {
		r = s.startLocked(key, product, tags)
		v := s.viewLocked()
		loading = &v
	}
	s.mu.Unlock()
	if loading != nil {
		s.deliver(*loading)
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateClosed:
		return View{}, ErrSessionClosed
	case s.key != r.key:
		return View{}, ErrSuperseded
	}
	return s.viewLocked(), nil
}

func (s *Session) startLocked(key string, product *safety.Product, tags safety.TagSet) *run {
	if s.inflight != nil {
		s.inflight.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	r := &run{key: key, done: make(chan struct{}), cancel: cancel}
	s.inflight = r
	if key != s.key {
		s.dismissed = map[string]bool{}
	}
	s.key = key
	s.state = StateRunning
	s.computed = nil
	s.failure = nil
	s.version++

	go func() {
		defer close(r.done)
		defer cancel()
		res, err := s.orch.Run(ctx, product, tags)

		s.mu.Lock()
		if s.inflight != r || s.state == StateClosed {
			s.mu.Unlock()
			return
		}
		s.inflight = nil
		var total *TotalCheckFailure
		switch {
		case err == nil:
			s.state = StateReady
			s.computed = res.Warnings
			if res.Partial != nil {
				s.failure = res.Partial
			}
		case errors.As(err, &total):
			s.state = StateFailed
			s.failure = err
		default:
			s.state = StateFailed
			s.failure = err
			s.log.Warn("check run ended without result", "error", err)
		}
		s.version++
		v := s.viewLocked()
		s.mu.Unlock()
		s.deliver(v)
	}()
	return r
}

// Dismiss hides id from the rendered view until the input changes. The
// computed warning list is not modified.
func (s *Session) Dismiss(id string) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.dismissed[id] {
		s.mu.Unlock()
		return nil
	}
	s.dismissed[id] = true
	s.version++
	v := s.viewLocked()
	s.mu.Unlock()
	s.deliver(v)
	return nil
}

// View returns the current rendered view without triggering a check.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Failure returns the *PartialCheckFailure or *TotalCheckFailure of the last
// completed run, or nil.
func (s *Session) Failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Subscribe registers fn for every later view change. Views are delivered in
// order, one at a time, and never after Close returns. fn must not call
// CheckProduct, Dismiss or Close.
func (s *Session) Subscribe(fn func(View)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close abandons any in-flight run and releases all listeners. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.inflight = nil
	s.listeners = map[uint64]func(View){}
	s.computed = nil
	s.mu.Unlock()
	s.cancel()

	// Wait out a delivery already in progress.
	s.notifyMu.Lock()
	s.notifyMu.Unlock()
	return nil
}

func (s *Session) viewLocked() View {
	v := View{State: s.state, version: s.version}
	switch s.state {
	case StateRunning:
		v.IsLoading = true
	case StateFailed:
		msg := UnavailableMessage
		v.Error = &msg
	case StateReady:
		v.Degraded = s.failure != nil
	}
	v.Warnings = make([]safety.CombinedWarning, 0, len(s.computed))
	for _, w := range s.computed {
		if !s.dismissed[w.ID] {
			v.Warnings = append(v.Warnings, w)
		}
	}
	return v
}

func (s *Session) deliver(v View) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if v.version <= s.delivered {
		return
	}
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	fns := make([]func(View), 0, len(s.listeners))
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	s.delivered = v.version
	for _, fn := range fns {
		fn(v)
	}
}

// InputKey identifies a (product, tags) pair by value.
func InputKey(product *safety.Product, tags safety.TagSet) (string, error) {
	sorted := make([]string, 0, len(tags))
	for t := range tags {
		sorted = append(sorted, string(t))
	}
	sort.Strings(sorted)
	payload, err := json.Marshal(struct {
		Product *safety.Product `json:"product"`
		Tags    []string        `json:"tags"`
	}{product, sorted})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
