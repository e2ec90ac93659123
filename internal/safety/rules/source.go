package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/contentsafety/internal/domain/safety"
)

// RuleSource is one strategy in the banned-phrase resolution chain. An error
// means "not resolved here" and the store moves on to the next source.
type RuleSource interface {
	// Name identifies the source in logs, e.g. "file:/etc/contentsafety/banned_phrases.json".
	Name() string
	// Kind is a low-cardinality label: file, redis, gcs, db or builtin.
	Kind() string
	TryLoad(ctx context.Context) ([]safety.BannedPhraseRule, error)
}

var (
	ErrSourceNotFound = errors.New("rule source not found")
	ErrNoRules        = errors.New("rule payload has no usable rules")
)

type payloadFormat int

const (
	formatAuto payloadFormat = iota
	formatJSON
	formatYAML
)

// maxPayloadBytes bounds rule documents read from any source.
const maxPayloadBytes = 4 << 20

type rawRule struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Suggest string `json:"suggest" yaml:"suggest"`
}

// decodePayload parses a {"ng":[{"pattern","suggest"}]} document. Entries are
// decoded one by one so a malformed entry is dropped without losing the rest;
// skipped counts the dropped entries.
func decodePayload(data []byte, format payloadFormat) (rules []safety.BannedPhraseRule, skipped int, err error) {
	if format == formatAuto {
		format = sniffFormat(data)
	}
	var entries []rawRule
	switch format {
	case formatJSON:
		entries, skipped, err = decodeJSONEntries(data)
	default:
		entries, skipped, err = decodeYAMLEntries(data)
	}
	if err != nil {
		return nil, 0, err
	}
	for _, e := range entries {
		if strings.TrimSpace(e.Pattern) == "" {
			skipped++
			continue
		}
		rules = append(rules, safety.BannedPhraseRule{Pattern: e.Pattern, Suggestion: e.Suggest})
	}
	if len(rules) == 0 {
		return nil, skipped, ErrNoRules
	}
	return rules, skipped, nil
}

func sniffFormat(data []byte) payloadFormat {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return formatJSON
	}
	return formatYAML
}

func decodeJSONEntries(data []byte) ([]rawRule, int, error) {
	var doc struct {
		NG []json.RawMessage `json:"ng"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("decode rule json: %w", err)
	}
	out := make([]rawRule, 0, len(doc.NG))
	skipped := 0
	for _, item := range doc.NG {
		var r rawRule
		if err := json.Unmarshal(item, &r); err != nil {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped, nil
}

func decodeYAMLEntries(data []byte) ([]rawRule, int, error) {
	var doc struct {
		NG []yaml.Node `yaml:"ng"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("decode rule yaml: %w", err)
	}
	out := make([]rawRule, 0, len(doc.NG))
	skipped := 0
	for i := range doc.NG {
		var r rawRule
		if err := doc.NG[i].Decode(&r); err != nil {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped, nil
}
