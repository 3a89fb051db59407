package classifier

import (
	"context"
	"testing"
)

var testPillars = []PillarRef{
	{ID: "p-health", Name: "Health"},
	{ID: "p-finances", Name: "Finances"},
	{ID: "p-learning", Name: "Learning"},
	{ID: "p-relationships", Name: "Relationships"},
}

func classify(t *testing.T, content string) []string {
	t.Helper()
	r := NewRuleClassifier()
	matched, _, err := r.Classify(context.Background(), content, testPillars)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	return matched
}

func TestRuleClassifierMatchesPillarName(t *testing.T) {
	matched := classify(t, "Improve my health this month")
	if len(matched) != 1 || matched[0] != "p-health" {
		t.Fatalf("expected [p-health], got %v", matched)
	}
}

func TestRuleClassifierMatchesSynonyms(t *testing.T) {
	cases := map[string]string{
		"Go to the gym at 7":      "p-health",
		"Prepare the tax return":  "p-finances",
		"Study for the exam":      "p-learning",
		"Call grandma on Sunday":  "p-relationships",
		"Plan a birthday surprise": "p-relationships",
	}

	for content, want := range cases {
		matched := classify(t, content)
		if len(matched) != 1 || matched[0] != want {
			t.Errorf("%q: expected [%s], got %v", content, want, matched)
		}
	}
}

func TestRuleClassifierSynonymNeedsWordBoundary(t *testing.T) {
	// "running" contains "run" as a substring but not as a word.
	matched := classify(t, "Fix the runny faucet")
	if len(matched) != 0 {
		t.Fatalf("expected no match, got %v", matched)
	}
}

func TestRuleClassifierNoMatchIsValid(t *testing.T) {
	matched := classify(t, "Do that one thing")
	if len(matched) != 0 {
		t.Fatalf("expected empty match set, got %v", matched)
	}
}

func TestRuleClassifierMultipleMatches(t *testing.T) {
	matched := classify(t, "Read the budget report")
	set := map[string]bool{}
	for _, id := range matched {
		set[id] = true
	}
	if !set["p-learning"] || !set["p-finances"] || len(matched) != 2 {
		t.Fatalf("expected learning+finances, got %v", matched)
	}
}

func TestRuleClassifierIgnoresUnknownSynonymTargets(t *testing.T) {
	r := NewRuleClassifier()
	matched, _, err := r.Classify(context.Background(), "Go to the gym", []PillarRef{
		{ID: "p-misc", Name: "Misc"},
	})
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if len(matched) != 0 {
		t.Fatalf("synonym without a matching pillar must not fire, got %v", matched)
	}
}
