package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/contentsafety/internal/domain/safety"
)

type countingOrchestrator struct {
	*Orchestrator
	compCalls atomic.Int32
	persCalls atomic.Int32
}

func newCountingOrchestrator(gate chan struct{}) *countingOrchestrator {
	c := &countingOrchestrator{}
	c.Orchestrator = New(Options{
		Compliance: complianceFunc(func(ctx context.Context, text string) ([]safety.Violation, error) {
			c.compCalls.Add(1)
			if gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return []safety.Violation{{Pattern: "完治", MatchedText: "完治", Suggestion: "改善が期待される"}}, nil
		}),
		Persona: personaFunc(func(p *safety.Product, tags safety.TagSet) ([]safety.PersonaWarning, error) {
			c.persCalls.Add(1)
			if !tags.Has(safety.PersonaPregnancy) {
				return nil, nil
			}
			return []safety.PersonaWarning{{
				RuleID:   "pregnancy-caffeine",
				Severity: safety.SeverityHigh,
				Message:  "妊娠中はカフェインの摂取に注意が必要です",
			}}, nil
		}),
	})
	return c
}

func warningIDs(v View) []string {
	out := make([]string, 0, len(v.Warnings))
	for _, w := range v.Warnings {
		out = append(out, w.ID)
	}
	return out
}

func TestSessionMemoizesByInputValue(t *testing.T) {
	c := newCountingOrchestrator(nil)
	s := c.NewSession()
	defer s.Close()
	ctx := context.Background()
	tags := safety.NewTagSet(safety.PersonaPregnancy)

	first, err := s.CheckProduct(ctx, caffeineProduct(), tags)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	// A fresh but equal product value must hit the memo.
	second, err := s.CheckProduct(ctx, caffeineProduct(), safety.NewTagSet("PREGNANCY"))
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if c.compCalls.Load() != 1 || c.persCalls.Load() != 1 {
		t.Fatalf("checkers re-invoked: compliance=%d persona=%d", c.compCalls.Load(), c.persCalls.Load())
	}
	if diff := cmp.Diff(first.Warnings, second.Warnings); diff != "" {
		t.Fatalf("memoized view differs (-first +second):\n%s", diff)
	}

	changed := caffeineProduct()
	changed.Description = "毎日の健康維持に"
	if _, err := s.CheckProduct(ctx, changed, tags); err != nil {
		t.Fatalf("changed check: %v", err)
	}
	if c.compCalls.Load() != 2 || c.persCalls.Load() != 2 {
		t.Fatalf("changed input should rerun: compliance=%d persona=%d", c.compCalls.Load(), c.persCalls.Load())
	}
}

func TestSessionDismissalSurvivesRecompute(t *testing.T) {
	c := newCountingOrchestrator(nil)
	s := c.NewSession()
	defer s.Close()
	ctx := context.Background()
	tags := safety.NewTagSet(safety.PersonaPregnancy)

	v, err := s.CheckProduct(ctx, caffeineProduct(), tags)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if diff := cmp.Diff([]string{"persona-pregnancy-caffeine-0", "compliance-0"}, warningIDs(v)); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}

	if err := s.Dismiss("persona-pregnancy-caffeine-0"); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	v, err = s.CheckProduct(ctx, caffeineProduct(), tags)
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if diff := cmp.Diff([]string{"compliance-0"}, warningIDs(v)); diff != "" {
		t.Fatalf("dismissed id reappeared (-want +got):\n%s", diff)
	}

	v, err = s.CheckProduct(ctx, caffeineProduct(), safety.NewTagSet(safety.PersonaPregnancy, safety.PersonaElderly))
	if err != nil {
		t.Fatalf("check with new tags: %v", err)
	}
	if diff := cmp.Diff([]string{"persona-pregnancy-caffeine-0", "compliance-0"}, warningIDs(v)); diff != "" {
		t.Fatalf("dismissal should reset on input change (-want +got):\n%s", diff)
	}
}

func TestSessionTotalFailureView(t *testing.T) {
	o := New(Options{
		Compliance: complianceFunc(func(context.Context, string) ([]safety.Violation, error) { return nil, errors.New("down") }),
		Persona:    personaFunc(func(*safety.Product, safety.TagSet) ([]safety.PersonaWarning, error) { return nil, errors.New("down") }),
	})
	s := o.NewSession()
	defer s.Close()
	v, err := s.CheckProduct(context.Background(), caffeineProduct(), nil)
	if err != nil {
		t.Fatalf("CheckProduct: %v", err)
	}
	if v.State != StateFailed || v.Error == nil || *v.Error != UnavailableMessage || len(v.Warnings) != 0 {
		t.Fatalf("unexpected view: %+v", v)
	}
	var total *TotalCheckFailure
	if !errors.As(s.Failure(), &total) {
		t.Fatalf("Failure: want TotalCheckFailure got=%v", s.Failure())
	}
}

func TestSessionPartialFailureView(t *testing.T) {
	o := New(Options{
		Compliance: complianceFunc(func(context.Context, string) ([]safety.Violation, error) { return nil, errors.New("down") }),
		Persona: personaFunc(func(*safety.Product, safety.TagSet) ([]safety.PersonaWarning, error) {
			return []safety.PersonaWarning{{RuleID: "r", Severity: safety.SeverityLow, Message: "m"}}, nil
		}),
	})
	s := o.NewSession()
	defer s.Close()
	v, err := s.CheckProduct(context.Background(), caffeineProduct(), nil)
	if err != nil {
		t.Fatalf("CheckProduct: %v", err)
	}
	if v.State != StateReady || v.Error != nil || !v.Degraded || len(v.Warnings) != 1 {
		t.Fatalf("unexpected view: %+v", v)
	}
	var partial *PartialCheckFailure
	if !errors.As(s.Failure(), &partial) || partial.Checker != CheckerCompliance {
		t.Fatalf("Failure: want compliance PartialCheckFailure got=%v", s.Failure())
	}
}

func TestSessionNoProduct(t *testing.T) {
	s := newCountingOrchestrator(nil).NewSession()
	defer s.Close()
	if _, err := s.CheckProduct(context.Background(), nil, nil); !errors.Is(err, ErrNoProduct) {
		t.Fatalf("want ErrNoProduct got=%v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("state: want=idle got=%s", s.State())
	}
}

func TestSessionSharesInflightRun(t *testing.T) {
	gate := make(chan struct{})
	c := newCountingOrchestrator(gate)
	s := c.NewSession()
	defer s.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CheckProduct(context.Background(), caffeineProduct(), nil)
			errs <- err
		}()
	}
	waitFor(t, func() bool { return s.State() == StateRunning })
	close(gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("CheckProduct: %v", err)
		}
	}
	if got := c.compCalls.Load(); got != 1 {
		t.Fatalf("compliance calls: want=1 got=%d", got)
	}
}

func TestSessionSupersededByNewInput(t *testing.T) {
	gate := make(chan struct{})
	c := newCountingOrchestrator(gate)
	s := c.NewSession()
	defer s.Close()

	errc := make(chan error, 1)
	go func() {
		_, err := s.CheckProduct(context.Background(), caffeineProduct(), nil)
		errc <- err
	}()
	waitFor(t, func() bool { return c.compCalls.Load() == 1 })

	other := caffeineProduct()
	other.ID = "p-2"
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.CheckProduct(context.Background(), other, nil); err != nil {
			t.Errorf("second CheckProduct: %v", err)
		}
	}()
	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("first caller: want ErrSuperseded got=%v", err)
	}
	close(gate)
	<-done
	if s.State() != StateReady {
		t.Fatalf("state: want=ready got=%s", s.State())
	}
}

func TestSessionListenersAndTeardown(t *testing.T) {
	gate := make(chan struct{})
	c := newCountingOrchestrator(gate)
	s := c.NewSession()

	var (
		mu    sync.Mutex
		views []View
	)
	unsubscribe := s.Subscribe(func(v View) {
		mu.Lock()
		views = append(views, v)
		mu.Unlock()
	})
	defer unsubscribe()

	errc := make(chan error, 1)
	go func() {
		_, err := s.CheckProduct(context.Background(), caffeineProduct(), nil)
		errc <- err
	}()
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(views) == 1
	})
	mu.Lock()
	if !views[0].IsLoading {
		mu.Unlock()
		t.Fatalf("first view should be loading: %+v", views[0])
	}
	mu.Unlock()

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := <-errc; !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("in-flight caller: want ErrSessionClosed got=%v", err)
	}
	close(gate)

	mu.Lock()
	n := len(views)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("listener fired after teardown: %d views", n)
	}
	if err := s.Dismiss("compliance-0"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Dismiss after Close: want ErrSessionClosed got=%v", err)
	}
	if _, err := s.CheckProduct(context.Background(), caffeineProduct(), nil); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("CheckProduct after Close: want ErrSessionClosed got=%v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSessionDeliversReadyView(t *testing.T) {
	s := newCountingOrchestrator(nil).NewSession()
	defer s.Close()
	ready := make(chan View, 4)
	s.Subscribe(func(v View) {
		if v.State == StateReady {
			ready <- v
		}
	})
	if _, err := s.CheckProduct(context.Background(), caffeineProduct(), nil); err != nil {
		t.Fatalf("CheckProduct: %v", err)
	}
	select {
	case v := <-ready:
		if v.IsLoading || len(v.Warnings) != 1 {
			t.Fatalf("unexpected ready view: %+v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ready view never delivered")
	}
}

func TestInputKeyIgnoresTagOrder(t *testing.T) {
	a, err := InputKey(caffeineProduct(), safety.NewTagSet(safety.PersonaPregnancy, safety.PersonaElderly))
	if err != nil {
		t.Fatalf("InputKey: %v", err)
	}
	b, _ := InputKey(caffeineProduct(), safety.NewTagSet(safety.PersonaElderly, safety.PersonaPregnancy))
	c, _ := InputKey(caffeineProduct(), safety.NewTagSet(safety.PersonaElderly))
	if a != b {
		t.Fatalf("tag order changed the key")
	}
	if a == c {
		t.Fatalf("different tags produced the same key")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
