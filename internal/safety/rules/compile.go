package rules

import (
	"fmt"
	"regexp"

	"github.com/yungbote/contentsafety/internal/domain/safety"
)

// CompiledRule is either valid (Regexp set) or invalid (Err set).
type CompiledRule struct {
	Rule   safety.BannedPhraseRule
	Regexp *regexp.Regexp
	Err    error
}

func (c CompiledRule) Valid() bool { return c.Regexp != nil && c.Err == nil }

// CompileRule compiles the pattern case-insensitively.
func CompileRule(r safety.BannedPhraseRule) CompiledRule {
	re, err := regexp.Compile("(?i)" + r.Pattern)
	if err != nil {
		return CompiledRule{Rule: r, Err: fmt.Errorf("compile pattern %q: %w", r.Pattern, err)}
	}
	return CompiledRule{Rule: r, Regexp: re}
}

// CompileAll keeps input order; callers filter with Valid.
func CompileAll(rules []safety.BannedPhraseRule) []CompiledRule {
	out := make([]CompiledRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, CompileRule(r))
	}
	return out
}
