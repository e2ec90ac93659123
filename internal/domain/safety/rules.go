package safety

import "strings"

// PersonaTag labels the end-user segment whose risk rules should be evaluated.
type PersonaTag string

const (
	PersonaPregnancy            PersonaTag = "pregnancy"
	PersonaLactation            PersonaTag = "lactation"
	PersonaMedication           PersonaTag = "medication"
	PersonaStimulantSensitivity PersonaTag = "stimulant-sensitivity"
	PersonaUnderage             PersonaTag = "underage"
	PersonaElderly              PersonaTag = "elderly"
)

func NormalizePersonaTag(raw string) PersonaTag {
	return PersonaTag(strings.ToLower(strings.TrimSpace(raw)))
}

// TagSet is the caller's active persona tags.
type TagSet map[PersonaTag]struct{}

func NewTagSet(tags ...PersonaTag) TagSet {
	set := make(TagSet, len(tags))
	for _, t := range tags {
		t = NormalizePersonaTag(string(t))
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

func (s TagSet) Has(t PersonaTag) bool {
	_, ok := s[t]
	return ok
}

// BannedPhraseRule flags non-compliant marketing language. Pattern is a
// regular expression source matched case-insensitively.
type BannedPhraseRule struct {
	Pattern    string `json:"pattern" yaml:"pattern"`
	Suggestion string `json:"suggest" yaml:"suggest"`
}

type PersonaRule struct {
	ID                string     `json:"id"`
	PersonaTag        PersonaTag `json:"persona_tag"`
	IngredientPattern string     `json:"ingredient_pattern"`
	Severity          Severity   `json:"severity"`
	Message           string     `json:"message"`
	RecommendedAction string     `json:"recommended_action,omitempty"`
}

// Alternatives splits IngredientPattern on '|' into lowercased, non-empty
// alternatives in declaration order.
func (r PersonaRule) Alternatives() []string {
	parts := strings.Split(r.IngredientPattern, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
