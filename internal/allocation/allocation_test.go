package allocation

import "testing"

func TestActionBountyExplicitWins(t *testing.T) {
	table := Default()
	if got := table.ActionBounty(TierDeep, 7); got != 7 {
		t.Errorf("explicit bounty must win over tier, got %d", got)
	}
}

func TestActionBountyTierFallback(t *testing.T) {
	table := Default()
	cases := map[string]int{
		TierQuick:    5,
		TierStandard: 10,
		TierDeep:     25,
	}
	for tier, want := range cases {
		if got := table.ActionBounty(tier, 0); got != want {
			t.Errorf("tier %s: expected %d, got %d", tier, want, got)
		}
	}
}

func TestActionBountyUnknownTierUsesDefault(t *testing.T) {
	table := Default()
	if got := table.ActionBounty("heroic", 0); got != 10 {
		t.Errorf("unknown tier must fall back to standard, got %d", got)
	}
	if got := table.ActionBounty("", 0); got != 10 {
		t.Errorf("empty tier must fall back to standard, got %d", got)
	}
}

func TestHabitPoints(t *testing.T) {
	table := Default()
	if got := table.HabitPoints(4); got != 4 {
		t.Errorf("explicit habit points must win, got %d", got)
	}
	if got := table.HabitPoints(0); got != 10 {
		t.Errorf("expected default habit points, got %d", got)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ALLOC_TIER_QUICK", "3")
	t.Setenv("ALLOC_HABIT_DEFAULT", "2")
	t.Setenv("ALLOC_TIER_DEEP", "not-a-number")

	table := FromEnv()
	if table.TierPoints[TierQuick] != 3 {
		t.Errorf("expected quick override 3, got %d", table.TierPoints[TierQuick])
	}
	if table.HabitDefault != 2 {
		t.Errorf("expected habit default override 2, got %d", table.HabitDefault)
	}
	if table.TierPoints[TierDeep] != 25 {
		t.Errorf("invalid override must keep the default, got %d", table.TierPoints[TierDeep])
	}
}
