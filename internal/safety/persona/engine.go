package persona

import (
	"strings"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/logger"
)

// RuleProvider supplies persona rules. *rules.Store satisfies it.
type RuleProvider interface {
	LoadPersonaRules() []safety.PersonaRule
}

// Engine matches a product's ingredients against persona-tagged rules. It
// never blocks: persona rules are resident in memory.
type Engine struct {
	rules RuleProvider
	log   *logger.Logger
}

func NewEngine(provider RuleProvider, log *logger.Logger) *Engine {
	return &Engine{rules: provider, log: logger.OrNop(log).With("service", "PersonaRuleEngine")}
}

// Check returns one warning per applicable rule, in rule order. A rule
// applies when its tag is active and one of its alternatives is a substring
// of the product corpus, or an ingredient name is a substring of the
// alternative. Matching is plain substring containment, not tokenized.
func (e *Engine) Check(product *safety.Product, tags safety.TagSet) ([]safety.PersonaWarning, error) {
	out := make([]safety.PersonaWarning, 0)
	if len(tags) == 0 || product == nil {
		return out, nil
	}
	c := newCorpus(product)
	if c.empty() {
		return out, nil
	}

	fired := map[string]bool{}
	for _, rule := range e.rules.LoadPersonaRules() {
		if fired[rule.ID] || !tags.Has(safety.NormalizePersonaTag(string(rule.PersonaTag))) {
			continue
		}
		affected := c.match(rule.Alternatives())
		if len(affected) == 0 {
			continue
		}
		fired[rule.ID] = true
		out = append(out, safety.PersonaWarning{
			RuleID:              rule.ID,
			Severity:            rule.Severity,
			Message:             rule.Message,
			Action:              rule.RecommendedAction,
			AffectedIngredients: affected,
		})
	}
	if len(out) > 0 {
		e.log.Debug("persona rules fired", "product_id", product.ID, "count", len(out))
	}
	return out, nil
}

type corpus struct {
	text        string
	ingredients []string
}

func newCorpus(p *safety.Product) corpus {
	names := p.IngredientNames()
	parts := make([]string, 0, 1+len(names))
	if t := strings.ToLower(p.Text()); t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, names...)
	return corpus{text: strings.Join(parts, "\n"), ingredients: names}
}

func (c corpus) empty() bool { return strings.TrimSpace(c.text) == "" }

// match returns the alternatives found, deduplicated in declaration order.
func (c corpus) match(alternatives []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, alt := range alternatives {
		if seen[alt] || !c.contains(alt) {
			continue
		}
		seen[alt] = true
		out = append(out, alt)
	}
	return out
}

func (c corpus) contains(alt string) bool {
	if strings.Contains(c.text, alt) {
		return true
	}
	for _, name := range c.ingredients {
		if strings.Contains(alt, name) {
			return true
		}
	}
	return false
}
