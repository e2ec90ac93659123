package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("CS_TEST_INT", "nope")
	if got := Int("CS_TEST_INT", 7); got != 7 {
		t.Fatalf("want=7 got=%d", got)
	}
	t.Setenv("CS_TEST_INT", " 12 ")
	if got := Int("CS_TEST_INT", 7); got != 12 {
		t.Fatalf("want=12 got=%d", got)
	}
}

func TestBoolAndDuration(t *testing.T) {
	t.Setenv("CS_TEST_BOOL", "on")
	if !Bool("CS_TEST_BOOL", false) {
		t.Fatalf("want=true")
	}
	t.Setenv("CS_TEST_BOOL", "off")
	if Bool("CS_TEST_BOOL", true) {
		t.Fatalf("want=false")
	}
	t.Setenv("CS_TEST_DUR", "90s")
	if got := Duration("CS_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("want=90s got=%s", got)
	}
	if got := String("CS_TEST_UNSET_STRING", "def"); got != "def" {
		t.Fatalf("want=def got=%q", got)
	}
}
