package safety

import (
	"encoding/json"
	"strings"
)

type Product struct {
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title,omitempty"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Ingredients IngredientList `json:"ingredients,omitempty"`
}

type Ingredient struct {
	Name string `json:"name"`
}

// IngredientList decodes entries given either as plain strings or as objects
// carrying a "name" field. Entries of any other shape are dropped.
type IngredientList []Ingredient

func (l *IngredientList) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make(IngredientList, 0, len(raw))
	for _, item := range raw {
		if name, ok := ingredientName(item); ok {
			out = append(out, Ingredient{Name: name})
		}
	}
	*l = out
	return nil
}

func ingredientName(item json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	var obj struct {
		Name *string `json:"name"`
	}
	if err := json.Unmarshal(item, &obj); err == nil && obj.Name != nil {
		name := strings.TrimSpace(*obj.Name)
		return name, name != ""
	}
	return "", false
}

// Text is the descriptive text scanned for banned phrasing.
func (p *Product) Text() string {
	if p == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Title, p.Name, p.Description} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// IngredientNames returns the lowercased, non-empty ingredient names.
func (p *Product) IngredientNames() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Ingredients))
	for _, ing := range p.Ingredients {
		if name := strings.ToLower(strings.TrimSpace(ing.Name)); name != "" {
			out = append(out, name)
		}
	}
	return out
}
