package classifier

import (
	"context"
	"strings"

	"tandera.com/daypillar/internal/entity"
)

// RuleClassifier is the model-free fallback: a pillar matches when its name
// (or any configured synonym) appears in the action text.
type RuleClassifier struct {
	// Synonyms maps a lowercase keyword to a pillar name, widening the match
	// beyond exact pillar names ("gym" -> "Health").
	Synonyms map[string]string
}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		Synonyms: map[string]string{
			"gym":      "health",
			"run":      "health",
			"workout":  "health",
			"budget":   "finances",
			"invoice":  "finances",
			"tax":      "finances",
			"study":    "learning",
			"read":     "learning",
			"course":   "learning",
			"call":     "relationships",
			"dinner":   "relationships",
			"birthday": "relationships",
		},
	}
}

func (r *RuleClassifier) Method() string { return MethodRules }

func (r *RuleClassifier) Classify(ctx context.Context, content string, pillars []PillarRef) (entity.PillarSet, string, error) {
	text := strings.ToLower(content)

	byName := make(map[string]string, len(pillars))
	for _, p := range pillars {
		byName[strings.ToLower(p.Name)] = p.ID
	}

	var matched entity.PillarSet
	for name, id := range byName {
		if name != "" && strings.Contains(text, name) && !matched.Has(id) {
			matched = append(matched, id)
		}
	}

	for keyword, name := range r.Synonyms {
		id, ok := byName[name]
		if !ok || matched.Has(id) {
			continue
		}
		if containsWord(text, keyword) {
			matched = append(matched, id)
		}
	}

	return matched, "", nil
}

func containsWord(text, word string) bool {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if field == word {
			return true
		}
	}
	return false
}
