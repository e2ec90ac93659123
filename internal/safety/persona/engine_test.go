package persona

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/safety/rules"
)

type staticRules []safety.PersonaRule

func (s staticRules) LoadPersonaRules() []safety.PersonaRule { return s }

var pregnancyCaffeine = safety.PersonaRule{
	ID:                "pregnancy-caffeine",
	PersonaTag:        safety.PersonaPregnancy,
	IngredientPattern: "カフェイン|caffeine",
	Severity:          safety.SeverityHigh,
	Message:           "妊娠中はカフェインの摂取に注意が必要です",
}

func TestScenarioPregnancyCaffeine(t *testing.T) {
	e := NewEngine(staticRules{pregnancyCaffeine}, nil)
	product := &safety.Product{Name: "エナジードリンク", Ingredients: safety.IngredientList{{Name: "カフェイン"}}}

	got, err := e.Check(product, safety.NewTagSet(safety.PersonaPregnancy))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	want := []safety.PersonaWarning{{
		RuleID:              "pregnancy-caffeine",
		Severity:            safety.SeverityHigh,
		Message:             "妊娠中はカフェインの摂取に注意が必要です",
		AffectedIngredients: []string{"カフェイン"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckEmptyInputs(t *testing.T) {
	e := NewEngine(staticRules{pregnancyCaffeine}, nil)
	product := &safety.Product{Ingredients: safety.IngredientList{{Name: "caffeine"}}}
	cases := []struct {
		name    string
		product *safety.Product
		tags    safety.TagSet
	}{
		{name: "no tags", product: product, tags: nil},
		{name: "nil product", product: nil, tags: safety.NewTagSet(safety.PersonaPregnancy)},
		{name: "no text", product: &safety.Product{}, tags: safety.NewTagSet(safety.PersonaPregnancy)},
		{name: "inactive tag", product: product, tags: safety.NewTagSet(safety.PersonaElderly)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.Check(tc.product, tc.tags)
			if err != nil || len(got) != 0 {
				t.Fatalf("want no warnings got=%v err=%v", got, err)
			}
		})
	}
}

func TestCheckMatchesDescriptionCaseInsensitively(t *testing.T) {
	e := NewEngine(staticRules{pregnancyCaffeine}, nil)
	product := &safety.Product{Description: "Contains CAFFEINE from green tea"}
	got, _ := e.Check(product, safety.NewTagSet("Pregnancy"))
	if len(got) != 1 || got[0].AffectedIngredients[0] != "caffeine" {
		t.Fatalf("unexpected warnings: %+v", got)
	}
}

func TestCheckReverseContainment(t *testing.T) {
	rule := safety.PersonaRule{
		ID:                "medication-st-johns-wort",
		PersonaTag:        safety.PersonaMedication,
		IngredientPattern: "セントジョーンズワート|st. john's wort",
		Severity:          safety.SeverityHigh,
		Message:           "相互作用に注意",
	}
	e := NewEngine(staticRules{rule}, nil)
	product := &safety.Product{Ingredients: safety.IngredientList{{Name: "ジョーンズワート"}}}
	got, _ := e.Check(product, safety.NewTagSet(safety.PersonaMedication))
	if len(got) != 1 || got[0].AffectedIngredients[0] != "セントジョーンズワート" {
		t.Fatalf("partial ingredient name should match: %+v", got)
	}
}

func TestEachRuleFiresOnce(t *testing.T) {
	e := NewEngine(staticRules{pregnancyCaffeine, pregnancyCaffeine}, nil)
	product := &safety.Product{
		Description: "caffeine",
		Ingredients: safety.IngredientList{{Name: "カフェイン"}, {Name: "Caffeine"}},
	}
	got, _ := e.Check(product, safety.NewTagSet(safety.PersonaPregnancy))
	if len(got) != 1 {
		t.Fatalf("want one warning got=%d", len(got))
	}
	if diff := cmp.Diff([]string{"カフェイン", "caffeine"}, got[0].AffectedIngredients); diff != "" {
		t.Fatalf("affected (-want +got):\n%s", diff)
	}
}

func TestBuiltinRulesFireForMultiplePersonas(t *testing.T) {
	e := NewEngine(rules.NewStore(rules.StoreOptions{}), nil)
	product := &safety.Product{Ingredients: safety.IngredientList{{Name: "カフェイン"}}}
	got, err := e.Check(product, safety.NewTagSet(safety.PersonaPregnancy, safety.PersonaLactation))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	ids := make([]string, 0, len(got))
	for _, w := range got {
		ids = append(ids, w.RuleID)
	}
	if diff := cmp.Diff([]string{"pregnancy-caffeine", "lactation-caffeine"}, ids); diff != "" {
		t.Fatalf("rule ids (-want +got):\n%s", diff)
	}
}
