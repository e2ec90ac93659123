package safety

// Position is a 0-based, end-exclusive span of character (rune) offsets.
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Violation struct {
	Pattern     string   `json:"pattern"`
	MatchedText string   `json:"matched_text"`
	Suggestion  string   `json:"suggestion"`
	Position    Position `json:"position"`
}

type PersonaWarning struct {
	RuleID              string   `json:"rule_id"`
	Severity            Severity `json:"severity"`
	Message             string   `json:"message"`
	Action              string   `json:"action,omitempty"`
	AffectedIngredients []string `json:"affected_ingredients"`
}

type WarningKind string

const (
	KindCompliance WarningKind = "compliance"
	KindPersona    WarningKind = "persona"
)

// CombinedWarning is the deduplicated, display-ready engine output. ID is
// stable for identical inputs so dismissals survive recomputation.
type CombinedWarning struct {
	ID                  string      `json:"id"`
	Kind                WarningKind `json:"kind"`
	Severity            Severity    `json:"severity"`
	Message             string      `json:"message"`
	Suggestion          string      `json:"suggestion,omitempty"`
	Priority            int         `json:"priority"`
	AffectedIngredients []string    `json:"affected_ingredients,omitempty"`
}
