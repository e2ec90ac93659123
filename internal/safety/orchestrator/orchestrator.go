package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/observability"
	"github.com/yungbote/contentsafety/internal/platform/ctxutil"
	"github.com/yungbote/contentsafety/internal/platform/logger"
	"github.com/yungbote/contentsafety/internal/safety/aggregate"
)

const (
	CheckerCompliance = "compliance"
	CheckerPersona    = "persona"
)

type ComplianceChecker interface {
	Check(ctx context.Context, text string) ([]safety.Violation, error)
}

type PersonaChecker interface {
	Check(product *safety.Product, tags safety.TagSet) ([]safety.PersonaWarning, error)
}

type Options struct {
	Compliance ComplianceChecker
	Persona    PersonaChecker
	Log        *logger.Logger
	Metrics    *observability.Metrics
}

// Orchestrator runs both checkers concurrently and merges their output. It
// holds no per-request state; see Session for memoization and dismissal.
type Orchestrator struct {
	compliance ComplianceChecker
	persona    PersonaChecker
	log        *logger.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		compliance: opts.Compliance,
		persona:    opts.Persona,
		log:        logger.OrNop(opts.Log).With("service", "CheckOrchestrator"),
		metrics:    opts.Metrics,
		tracer:     otel.Tracer("contentsafety/orchestrator"),
	}
}

// Result is one completed check. Partial is set when exactly one checker
// failed.
type Result struct {
	Warnings        []safety.CombinedWarning
	Violations      []safety.Violation
	PersonaWarnings []safety.PersonaWarning
	Partial         *PartialCheckFailure
}

// Run checks product for the given persona tags. Checker failures never
// escape individually: a single failure is reported in Result.Partial, a
// double failure as *TotalCheckFailure. Run also fails with ErrNoProduct or
// the context's error; results are never delivered after ctx is done.
func (o *Orchestrator) Run(ctx context.Context, product *safety.Product, tags safety.TagSet) (Result, error) {
	if product == nil {
		return Result{}, ErrNoProduct
	}
	ctx, span := o.tracer.Start(ctx, "safety.check", trace.WithAttributes(
		attribute.String("product.id", product.ID),
		attribute.Int("persona.tags", len(tags)),
	))
	defer span.End()

	var (
		violations []safety.Violation
		warnings   []safety.PersonaWarning
		compErr    error
		persErr    error
	)
	var g errgroup.Group
	g.Go(func() error {
		compErr = o.guard(ctx, CheckerCompliance, func(ctx context.Context) error {
			var err error
			violations, err = o.compliance.Check(ctx, product.Text())
			return err
		})
		return nil
	})
	g.Go(func() error {
		persErr = o.guard(ctx, CheckerPersona, func(context.Context) error {
			var err error
			warnings, err = o.persona.Check(product, tags)
			return err
		})
		return nil
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "abandoned")
		o.metrics.IncCheck("abandoned")
		return Result{}, err
	}

	fields := ctxutil.LogFields(ctx)
	switch {
	case compErr != nil && persErr != nil:
		err := &TotalCheckFailure{ComplianceErr: compErr, PersonaErr: persErr}
		o.log.Error("all checks failed", append(fields, "error", err)...)
		span.RecordError(err)
		span.SetStatus(codes.Error, "total failure")
		o.metrics.IncCheck("failed")
		return Result{}, err
	case compErr != nil:
		violations = nil
	case persErr != nil:
		warnings = nil
	}

	res := Result{
		Warnings:        aggregate.Combine(violations, warnings),
		Violations:      nonNilViolations(violations),
		PersonaWarnings: nonNilWarnings(warnings),
	}
	outcome := "ok"
	if compErr != nil {
		res.Partial = &PartialCheckFailure{Checker: CheckerCompliance, Err: compErr}
	} else if persErr != nil {
		res.Partial = &PartialCheckFailure{Checker: CheckerPersona, Err: persErr}
	}
	if res.Partial != nil {
		outcome = "partial"
		span.RecordError(res.Partial)
	}
	span.SetAttributes(attribute.Int("warnings.count", len(res.Warnings)), attribute.String("check.outcome", outcome))
	o.metrics.IncCheck(outcome)
	return res, nil
}

// guard runs one checker, converting errors and panics into *CheckerError.
func (o *Orchestrator) guard(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	ctx, span := o.tracer.Start(ctx, "safety.check."+name)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				outcome = "canceled"
			}
			err = &CheckerError{Checker: name, Err: err}
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			if outcome == "error" {
				o.log.Warn("checker failed", append(ctxutil.LogFields(ctx), "checker", name, "error", err.(*CheckerError).Err)...)
			}
		}
		o.metrics.ObserveChecker(name, outcome, time.Since(start))
		span.End()
	}()
	return fn(ctx)
}

func nonNilViolations(v []safety.Violation) []safety.Violation {
	if v == nil {
		return []safety.Violation{}
	}
	return v
}

func nonNilWarnings(w []safety.PersonaWarning) []safety.PersonaWarning {
	if w == nil {
		return []safety.PersonaWarning{}
	}
	return w
}
