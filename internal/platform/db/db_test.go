package db

import "testing"

func TestIsDSN(t *testing.T) {
	cases := map[string]bool{
		"postgres://u:p@localhost:5432/rules":   true,
		"postgresql://localhost/rules":          true,
		"sqlite://file::memory:?cache=shared":   true,
		"sqlite://":                             false,
		"/etc/contentsafety/banned.json":        false,
		"redis://localhost:6379/0?key=rules:ng": false,
	}
	for in, want := range cases {
		if got := IsDSN(in); got != want {
			t.Fatalf("IsDSN(%q): want=%v got=%v", in, want, got)
		}
	}
}

func TestOpenSQLiteMemory(t *testing.T) {
	gdb, err := Open("sqlite://file::memory:", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var one int
	if err := gdb.Raw("SELECT 1").Scan(&one).Error; err != nil {
		t.Fatalf("select: %v", err)
	}
	if one != 1 {
		t.Fatalf("want=1 got=%d", one)
	}
}
