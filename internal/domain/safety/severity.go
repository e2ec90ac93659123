package safety

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is an ordinal risk level: low < medium < high.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity accepts "mid" as an alias of medium.
func ParseSeverity(raw string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return SeverityLow, true
	case "mid", "medium":
		return SeverityMedium, true
	case "high":
		return SeverityHigh, true
	default:
		return "", false
	}
}

// Rank orders severities; unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, ok := ParseSeverity(raw)
	if !ok {
		return fmt.Errorf("unknown severity %q", raw)
	}
	*s = parsed
	return nil
}
