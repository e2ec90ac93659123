package rules

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatcherInvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "ng.json", `{"ng":[{"pattern":"完治","suggest":"改善"}]}`)
	s := NewStore(StoreOptions{Sources: []RuleSource{NewFileSource(p, nil)}})
	if got := s.Current(context.Background()).Rules[0].Pattern; got != "完治" {
		t.Fatalf("initial pattern: got=%q", got)
	}

	w, err := NewWatcher(s, s.FilePaths(), 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})

	if err := os.WriteFile(p, []byte(`{"ng":[{"pattern":"治る","suggest":"サポート"}]}`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.Peek() == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.Current(context.Background()).Rules[0].Pattern; got != "治る" {
		t.Fatalf("pattern after rewrite: want=治る got=%q", got)
	}
}
