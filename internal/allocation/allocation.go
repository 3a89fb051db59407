// Package allocation holds the injectable point-value table: how many bounty
// points an action tier is worth and the default value for habit completions.
// Values are configuration, not business logic; env vars override the
// defaults per deployment.
package allocation

import (
	"os"
	"strconv"
)

const (
	TierQuick    = "quick"
	TierStandard = "standard"
	TierDeep     = "deep"
)

type Table struct {
	TierPoints   map[string]int
	DefaultTier  string
	HabitDefault int
}

func Default() *Table {
	return &Table{
		TierPoints: map[string]int{
			TierQuick:    5,
			TierStandard: 10,
			TierDeep:     25,
		},
		DefaultTier:  TierStandard,
		HabitDefault: 10,
	}
}

// FromEnv builds the default table and applies ALLOC_* overrides.
func FromEnv() *Table {
	t := Default()

	overrides := map[string]string{
		TierQuick:    "ALLOC_TIER_QUICK",
		TierStandard: "ALLOC_TIER_STANDARD",
		TierDeep:     "ALLOC_TIER_DEEP",
	}
	for tier, key := range overrides {
		if v, ok := intFromEnv(key); ok {
			t.TierPoints[tier] = v
		}
	}
	if v, ok := intFromEnv("ALLOC_HABIT_DEFAULT"); ok {
		t.HabitDefault = v
	}

	return t
}

// ActionBounty resolves the bounty for an action: an explicit value wins,
// otherwise the tier's allocation applies.
func (t *Table) ActionBounty(tier string, explicit int) int {
	if explicit > 0 {
		return explicit
	}
	if points, ok := t.TierPoints[tier]; ok {
		return points
	}
	return t.TierPoints[t.DefaultTier]
}

// HabitPoints resolves the award value for a habit completion.
func (t *Table) HabitPoints(explicit int) int {
	if explicit > 0 {
		return explicit
	}
	return t.HabitDefault
}

func intFromEnv(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
