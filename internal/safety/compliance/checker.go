package compliance

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/logger"
	"github.com/yungbote/contentsafety/internal/safety/rules"
)

// RuleProvider supplies compiled banned-phrase rules. *rules.Store satisfies it.
type RuleProvider interface {
	CompiledRules(ctx context.Context) []rules.CompiledRule
}

// Checker scans free text for banned phrasing.
type Checker struct {
	rules RuleProvider
	log   *logger.Logger
}

func NewChecker(provider RuleProvider, log *logger.Logger) *Checker {
	return &Checker{rules: provider, log: logger.OrNop(log).With("service", "ComplianceChecker")}
}

// Check returns every non-overlapping match of every rule, ordered by start
// offset with ties kept in rule order. Offsets are rune offsets. The only
// error is ctx's.
func (c *Checker) Check(ctx context.Context, text string) ([]safety.Violation, error) {
	if text == "" {
		return []safety.Violation{}, nil
	}
	compiled := c.rules.CompiledRules(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := newRuneIndex(text)
	out := make([]safety.Violation, 0)
	for _, cr := range compiled {
		if !cr.Valid() {
			c.log.Warn("skipping rule with invalid pattern", "pattern", cr.Rule.Pattern, "error", cr.Err)
			continue
		}
		for _, m := range cr.Regexp.FindAllStringIndex(text, -1) {
			if m[0] == m[1] {
				continue
			}
			out = append(out, safety.Violation{
				Pattern:     cr.Rule.Pattern,
				MatchedText: text[m[0]:m[1]],
				Suggestion:  cr.Rule.Suggestion,
				Position:    safety.Position{Start: idx.at(m[0]), End: idx.at(m[1])},
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position.Start < out[j].Position.Start })
	return out, nil
}

// SuggestAlternatives returns text with every violation replaced by its
// suggestion. Text without violations is returned unchanged.
func (c *Checker) SuggestAlternatives(ctx context.Context, text string) (string, error) {
	violations, err := c.Check(ctx, text)
	if err != nil {
		return "", err
	}
	return Rewrite(text, violations), nil
}

// Rewrite applies suggestions from the last violation to the first so earlier
// offsets stay valid. A violation overlapping an already rewritten span is
// skipped; at equal starts the earlier entry wins.
func Rewrite(text string, violations []safety.Violation) string {
	if len(violations) == 0 {
		return text
	}
	ordered := make([]safety.Violation, len(violations))
	copy(ordered, violations)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position.Start > ordered[j].Position.Start })
	runes := []rune(text)
	limit := len(runes)
	for _, v := range ordered {
		start, end := v.Position.Start, v.Position.End
		if start < 0 || end <= start || end > limit {
			continue
		}
		replaced := make([]rune, 0, len(runes)-(end-start)+utf8.RuneCountInString(v.Suggestion))
		replaced = append(replaced, runes[:start]...)
		replaced = append(replaced, []rune(v.Suggestion)...)
		replaced = append(replaced, runes[end:]...)
		runes = replaced
		limit = start
	}
	return string(runes)
}

// runeIndex maps byte offsets of a string to rune offsets.
type runeIndex []int

func newRuneIndex(s string) runeIndex {
	// Matches always begin and end on rune boundaries, so continuation
	// bytes are never looked up.
	idx := make(runeIndex, len(s)+1)
	n := 0
	for i := range s {
		idx[i] = n
		n++
	}
	idx[len(s)] = n
	return idx
}

func (r runeIndex) at(byteOff int) int { return r[byteOff] }
