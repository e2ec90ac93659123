package rules

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/observability"
	"github.com/yungbote/contentsafety/internal/platform/logger"
)

// DefaultTTL is how long a resolved banned-phrase snapshot is served before
// the source chain is consulted again.
const DefaultTTL = 5 * time.Minute

// loadTimeout bounds one pass over the source chain.
const loadTimeout = 10 * time.Second

// Snapshot is an immutable view of the resolved banned-phrase rules. Only
// rules whose pattern compiled are included.
type Snapshot struct {
	Rules    []safety.BannedPhraseRule
	Compiled []CompiledRule
	Origin   string
	LoadedAt time.Time
	Rejected int
}

type StoreOptions struct {
	// Sources are tried in order; a BuiltinSource is appended when absent.
	Sources []RuleSource
	TTL     time.Duration
	Log     *logger.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// Store resolves and caches rule sets. Readers never block on each other:
// the snapshot is swapped atomically and concurrent cold loads share one
// resolution.
type Store struct {
	sources []RuleSource
	ttl     time.Duration
	now     func() time.Time
	log     *logger.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	snap  atomic.Pointer[Snapshot]
	gen   atomic.Uint64
	group singleflight.Group
}

func NewStore(opts StoreOptions) *Store {
	sources := slices.Clone(opts.Sources)
	hasBuiltin := false
	for _, src := range sources {
		if _, ok := src.(BuiltinSource); ok {
			hasBuiltin = true
		}
	}
	if !hasBuiltin {
		sources = append(sources, BuiltinSource{})
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		sources: sources,
		ttl:     ttl,
		now:     now,
		log:     logger.OrNop(opts.Log).With("service", "RuleStore"),
		metrics: opts.Metrics,
		tracer:  otel.Tracer("contentsafety/rules"),
	}
}

// LoadBannedPhraseRules never fails: an unresolvable chain degrades to the
// built-in defaults.
func (s *Store) LoadBannedPhraseRules(ctx context.Context) []safety.BannedPhraseRule {
	return slices.Clone(s.Current(ctx).Rules)
}

// CompiledRules returns the valid compiled rules of the current snapshot.
// The slice is shared; callers must not modify it.
func (s *Store) CompiledRules(ctx context.Context) []CompiledRule {
	return s.Current(ctx).Compiled
}

// LoadPersonaRules returns the built-in persona rule set.
func (s *Store) LoadPersonaRules() []safety.PersonaRule {
	return DefaultPersonaRules()
}

// Current returns a fresh snapshot, resolving the source chain when the cache
// is cold or expired.
func (s *Store) Current(ctx context.Context) *Snapshot {
	if snap := s.snap.Load(); snap != nil && s.fresh(snap) {
		return snap
	}
	gen := s.gen.Load()
	v, _, _ := s.group.Do("banned-phrases", func() (any, error) {
		if snap := s.snap.Load(); snap != nil && s.fresh(snap) {
			return snap, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		snap := s.resolve(loadCtx)
		// An Invalidate during resolution wins; the result is served once
		// but not cached.
		if s.gen.Load() == gen {
			s.snap.Store(snap)
		}
		return snap, nil
	})
	return v.(*Snapshot)
}

// Peek returns the cached snapshot without loading; nil when cold.
func (s *Store) Peek() *Snapshot {
	return s.snap.Load()
}

// Invalidate drops the cached snapshot; the next read resolves again.
func (s *Store) Invalidate() {
	s.gen.Add(1)
	s.snap.Store(nil)
	s.log.Info("banned-phrase rule cache invalidated")
}

// FilePaths lists the paths of file-backed sources, for watching.
func (s *Store) FilePaths() []string {
	var out []string
	for _, src := range s.sources {
		if f, ok := src.(*FileSource); ok {
			out = append(out, f.Path)
		}
	}
	return out
}

func (s *Store) SourceNames() []string {
	out := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src.Name())
	}
	return out
}

func (s *Store) Close() error {
	var errs []error
	for _, src := range s.sources {
		if c, ok := src.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Store) fresh(snap *Snapshot) bool {
	return s.now().Sub(snap.LoadedAt) < s.ttl
}

func (s *Store) resolve(ctx context.Context) *Snapshot {
	ctx, span := s.tracer.Start(ctx, "rules.resolve")
	defer span.End()

	for _, src := range s.sources {
		raw, err := src.TryLoad(ctx)
		if err != nil {
			outcome := "error"
			if errors.Is(err, ErrSourceNotFound) {
				outcome = "not_found"
				s.log.Debug("rule source not found", "source", src.Name())
			} else {
				s.log.Warn("rule source failed, trying next", "source", src.Name(), "error", err)
			}
			s.metrics.IncRuleLoad(src.Kind(), outcome)
			continue
		}
		snap := s.compileSnapshot(src, raw)
		if len(snap.Compiled) == 0 {
			s.log.Warn("rule source has no usable rules, trying next", "source", src.Name(), "rejected", snap.Rejected)
			s.metrics.IncRuleLoad(src.Kind(), "empty")
			continue
		}
		s.metrics.IncRuleLoad(src.Kind(), "ok")
		s.metrics.SetRulesActive(len(snap.Compiled))
		span.SetAttributes(
			attribute.String("rules.origin", snap.Origin),
			attribute.Int("rules.count", len(snap.Compiled)),
		)
		s.log.Info("banned-phrase rules loaded", "source", snap.Origin, "count", len(snap.Compiled), "rejected", snap.Rejected)
		return snap
	}

	// Unreachable while the chain ends in BuiltinSource, unless the built-in
	// set itself fails to compile.
	s.log.Error("no rule source resolved; serving empty rule set")
	return &Snapshot{Origin: "none", LoadedAt: s.now()}
}

func (s *Store) compileSnapshot(src RuleSource, raw []safety.BannedPhraseRule) *Snapshot {
	snap := &Snapshot{Origin: src.Name(), LoadedAt: s.now()}
	for _, c := range CompileAll(raw) {
		if !c.Valid() {
			snap.Rejected++
			s.log.Warn("skipping rule with invalid pattern", "source", src.Name(), "pattern", c.Rule.Pattern, "error", c.Err)
			continue
		}
		snap.Rules = append(snap.Rules, c.Rule)
		snap.Compiled = append(snap.Compiled, c)
	}
	return snap
}
