package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/contentsafety/internal/domain/safety"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeRules(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "rules.yaml")
	body := "ng:\n  - pattern: 完治\n    suggest: 改善が期待される\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestLintReportsViolations(t *testing.T) {
	rulesPath := writeRules(t)
	out, err := runCLI(t, "", "--rules", rulesPath, "lint", "--text", "このサプリで完治を目指しましょう")
	if !errors.Is(err, errViolations) {
		t.Fatalf("want errViolations got=%v", err)
	}
	var violations []safety.Violation
	if err := json.Unmarshal([]byte(out), &violations); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(violations) != 1 || violations[0].Position != (safety.Position{Start: 6, End: 8}) {
		t.Fatalf("unexpected violations: %+v", violations)
	}
}

func TestLintFixFromStdin(t *testing.T) {
	rulesPath := writeRules(t)
	out, err := runCLI(t, "このサプリで完治を目指しましょう\n", "--rules", rulesPath, "lint", "--fix")
	if err != nil {
		t.Fatalf("lint --fix: %v", err)
	}
	if got := strings.TrimSpace(out); got != "このサプリで改善が期待されるを目指しましょう" {
		t.Fatalf("fixed text: %q", got)
	}
}

func TestLintCleanText(t *testing.T) {
	rulesPath := writeRules(t)
	out, err := runCLI(t, "", "--rules", rulesPath, "lint", "問題のない文章")
	if err != nil {
		t.Fatalf("clean text should pass: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("want empty list got=%q", out)
	}
}

func TestCheckCommand(t *testing.T) {
	rulesPath := writeRules(t)
	product := `{"name":"エナジーサプリ","description":"このサプリで完治を目指しましょう","ingredients":["カフェイン"]}`
	out, err := runCLI(t, product, "--rules", rulesPath, "check", "--product", "-", "--persona", "pregnancy")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var got checkOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got.Warnings) != 2 || got.Warnings[0].Kind != safety.KindPersona {
		t.Fatalf("unexpected warnings: %+v", got.Warnings)
	}
	if got.Degraded != "" {
		t.Fatalf("unexpected degraded: %q", got.Degraded)
	}
}

func TestCheckRequiresProduct(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := runCLI(t, "", "check"); err == nil {
		t.Fatalf("missing --product should fail")
	}
}

func TestRulesCommandFallsBackToBuiltin(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := runCLI(t, "", "rules")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	var got struct {
		Origin        string                    `json:"origin"`
		BannedPhrases []safety.BannedPhraseRule `json:"banned_phrases"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Origin != "builtin" || len(got.BannedPhrases) == 0 {
		t.Fatalf("unexpected rules output: %+v", got)
	}
}
