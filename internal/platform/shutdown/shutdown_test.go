package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"
)

func TestOnHangup(t *testing.T) {
	// Keep the default SIGHUP action from killing the test binary while
	// OnHangup registers.
	guard := make(chan os.Signal, 8)
	signal.Notify(guard, syscall.SIGHUP)
	defer signal.Stop(guard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		OnHangup(ctx, func() { got <- struct{}{} })
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for fired := false; !fired; {
		select {
		case <-got:
			fired = true
		case <-tick.C:
			_ = syscall.Kill(syscall.Getpid(), syscall.SIGHUP)
		case <-deadline:
			t.Fatalf("hangup callback never ran")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("OnHangup did not return after cancel")
	}
}
