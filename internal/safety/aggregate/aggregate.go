package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/contentsafety/internal/domain/safety"
)

// ComplianceSeverity is assigned to every banned-phrase violation; rules carry
// no severity of their own.
const ComplianceSeverity = safety.SeverityMedium

const suggestionSeparator = " / "

func ComplianceMessage(matchedText string) string {
	return fmt.Sprintf("禁止表現「%s」が含まれています", matchedText)
}

func ComplianceID(index int) string { return fmt.Sprintf("compliance-%d", index) }

func PersonaID(ruleID string, index int) string { return fmt.Sprintf("persona-%s-%d", ruleID, index) }

// Combine maps, deduplicates and orders both result streams. Entries with
// byte-identical messages merge into the first occurrence, which keeps its id
// and kind and takes the higher severity plus the union of suggestions and
// affected ingredients. The result is sorted by descending severity; ties
// keep encounter order, compliance before persona. Either input may be nil.
func Combine(violations []safety.Violation, warnings []safety.PersonaWarning) []safety.CombinedWarning {
	m := newMerger(len(violations) + len(warnings))
	for i, v := range violations {
		m.add(safety.CombinedWarning{
			ID:         ComplianceID(i),
			Kind:       safety.KindCompliance,
			Severity:   ComplianceSeverity,
			Message:    ComplianceMessage(v.MatchedText),
			Suggestion: v.Suggestion,
		})
	}
	for i, w := range warnings {
		m.add(safety.CombinedWarning{
			ID:                  PersonaID(w.RuleID, i),
			Kind:                safety.KindPersona,
			Severity:            w.Severity,
			Message:             w.Message,
			Suggestion:          w.Action,
			AffectedIngredients: w.AffectedIngredients,
		})
	}
	return m.result()
}

type entry struct {
	warning     safety.CombinedWarning
	suggestions []string
	ingredients []string
}

type merger struct {
	entries   []*entry
	byMessage map[string]*entry
}

func newMerger(n int) *merger {
	return &merger{entries: make([]*entry, 0, n), byMessage: make(map[string]*entry, n)}
}

func (m *merger) add(w safety.CombinedWarning) {
	e, ok := m.byMessage[w.Message]
	if !ok {
		e = &entry{warning: w}
		e.warning.AffectedIngredients = nil
		m.byMessage[w.Message] = e
		m.entries = append(m.entries, e)
	} else {
		e.warning.Severity = safety.MaxSeverity(e.warning.Severity, w.Severity)
	}
	e.suggestions = appendDistinct(e.suggestions, w.Suggestion)
	for _, ing := range w.AffectedIngredients {
		e.ingredients = appendDistinct(e.ingredients, ing)
	}
}

func (m *merger) result() []safety.CombinedWarning {
	out := make([]safety.CombinedWarning, 0, len(m.entries))
	for _, e := range m.entries {
		w := e.warning
		w.Suggestion = strings.Join(e.suggestions, suggestionSeparator)
		w.AffectedIngredients = e.ingredients
		w.Priority = w.Severity.Rank()
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Severity.Rank() > out[j].Severity.Rank() })
	return out
}

func appendDistinct(list []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
