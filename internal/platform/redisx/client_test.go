package redisx

import "testing"

func TestParseKeyURL(t *testing.T) {
	ref, err := ParseKeyURL("redis://localhost:6379/2?key=rules:banned")
	if err != nil {
		t.Fatalf("ParseKeyURL: %v", err)
	}
	if ref.Key != "rules:banned" {
		t.Fatalf("key: want=rules:banned got=%q", ref.Key)
	}
	if ref.Options.Addr != "localhost:6379" || ref.Options.DB != 2 {
		t.Fatalf("options: addr=%q db=%d", ref.Options.Addr, ref.Options.DB)
	}
}

func TestParseKeyURLUsesRedisAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	ref, err := ParseKeyURL("redis:///0?key=ng")
	if err != nil {
		t.Fatalf("ParseKeyURL: %v", err)
	}
	if ref.Options.Addr != "cache:6380" {
		t.Fatalf("addr: want=cache:6380 got=%q", ref.Options.Addr)
	}
}

func TestParseKeyURLRejects(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	for _, bad := range []string{"redis://localhost:6379/0", "http://x/?key=a", "redis:///0?key=a"} {
		if _, err := ParseKeyURL(bad); err == nil {
			t.Fatalf("ParseKeyURL(%q): expected error", bad)
		}
	}
}
