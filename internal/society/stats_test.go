package society

import (
	"math"
	"testing"

	"github.com/talgya/micro-society/internal/agents"
)

func member(gender agents.Gender, class agents.Class, wealth float64, ideology agents.Ideology) *agents.Agent {
	a := &agents.Agent{
		ID:               "m",
		Gender:           gender,
		Class:            class,
		Wealth:           wealth,
		CareSkill:        0.5,
		CompetitionSkill: 0.5,
		Ideology:         ideology,
		IdeologyValue:    ideology.Value(),
	}
	a.Power = a.CalculatePower()
	return a
}

func defaultLevers() PolicyLevers {
	return PolicyLevers{
		CompetitionReward: 1.0,
		CareReward:        1.0,
		TaxRedistribution: 0.2,
		AttributionBias:   0.0,
		SocialSanction:    0.3,
	}
}

func TestGiniIdenticalWealth(t *testing.T) {
	// population=10, all identical wealth=0.5 → Gini=0, equality=1.0.
	var members []*agents.Agent
	for i := 0; i < 10; i++ {
		members = append(members, member(agents.GenderMale, agents.ClassMiddle, 0.5, agents.IdeologyU))
	}
	s := New(members, defaultLevers())

	wealths := make([]float64, 10)
	for i := range wealths {
		wealths[i] = 0.5
	}
	if g := Gini(wealths); g != 0 {
		t.Errorf("Gini(identical) = %v, want 0", g)
	}
	if s.Equality != 1.0 {
		t.Errorf("equality = %v, want 1.0", s.Equality)
	}
}

func TestGiniDegenerateCases(t *testing.T) {
	if g := Gini(nil); g != 0 {
		t.Errorf("Gini(nil) = %v, want 0", g)
	}
	if g := Gini([]float64{0.5}); g != 0 {
		t.Errorf("Gini(single) = %v, want 0", g)
	}
	if g := Gini([]float64{0, 0, 0}); g != 0 {
		t.Errorf("Gini(zero mean) = %v, want 0", g)
	}
}

func TestGiniKnownValue(t *testing.T) {
	// Two members, wealth 0 and 1: Σ|wi−wj| = 2, 2·n²·mean = 4 → Gini 0.5.
	if g := Gini([]float64{0, 1}); math.Abs(g-0.5) > 1e-12 {
		t.Errorf("Gini([0,1]) = %v, want 0.5", g)
	}
}

func TestEqualityAlwaysInRange(t *testing.T) {
	wealthSets := [][]float64{
		{0.01, 0.01, 5.0},
		{0.9, 0.9, 0.9, 0.9},
		{0.05, 0.35, 0.2, 0.8, 0.6, 1.0},
	}
	for _, ws := range wealthSets {
		var members []*agents.Agent
		for _, w := range ws {
			members = append(members, member(agents.GenderFemale, agents.ClassLow, w, agents.IdeologyF))
		}
		s := New(members, defaultLevers())
		if s.Equality < 0 || s.Equality > 1 {
			t.Errorf("equality = %v for wealths %v, want [0,1]", s.Equality, ws)
		}
	}
}

func TestEmptySocietyStatsNeutral(t *testing.T) {
	s := New(nil, defaultLevers())
	if s.Equality != 0 || s.AverageWealth != 0 || s.AveragePower != 0 {
		t.Errorf("empty society stats not neutral: equality=%v wealth=%v power=%v",
			s.Equality, s.AverageWealth, s.AveragePower)
	}
}

func TestGenderStats(t *testing.T) {
	members := []*agents.Agent{
		member(agents.GenderMale, agents.ClassMiddle, 0.6, agents.IdeologyP),
		member(agents.GenderMale, agents.ClassMiddle, 0.4, agents.IdeologyP),
		member(agents.GenderFemale, agents.ClassMiddle, 0.3, agents.IdeologyF),
	}
	s := New(members, defaultLevers())

	if s.Gender.Male.Count != 2 || s.Gender.Female.Count != 1 {
		t.Fatalf("gender counts = %d/%d, want 2/1", s.Gender.Male.Count, s.Gender.Female.Count)
	}
	if math.Abs(s.Gender.Male.AvgWealth-0.5) > 1e-12 {
		t.Errorf("male avg wealth = %v, want 0.5", s.Gender.Male.AvgWealth)
	}
	if math.Abs(s.Gender.WealthGap-0.2) > 1e-12 {
		t.Errorf("wealth gap = %v, want 0.2", s.Gender.WealthGap)
	}
	if math.Abs(s.Gender.Male.WealthStd-0.1) > 1e-12 {
		t.Errorf("male wealth std = %v, want 0.1", s.Gender.Male.WealthStd)
	}
}

func TestIdeologyStats(t *testing.T) {
	members := []*agents.Agent{
		member(agents.GenderMale, agents.ClassLow, 0.2, agents.IdeologyP),
		member(agents.GenderMale, agents.ClassLow, 0.2, agents.IdeologyP),
		member(agents.GenderFemale, agents.ClassLow, 0.2, agents.IdeologyF),
		member(agents.GenderFemale, agents.ClassLow, 0.2, agents.IdeologyU),
	}
	s := New(members, defaultLevers())

	if got := s.Ideology[agents.IdeologyP]; got.Count != 2 || math.Abs(got.Percentage-0.5) > 1e-12 {
		t.Errorf("P group = %+v, want count 2 percentage 0.5", got)
	}
	if got := s.Ideology[agents.IdeologyU]; got.Count != 1 || math.Abs(got.Percentage-0.25) > 1e-12 {
		t.Errorf("U group = %+v, want count 1 percentage 0.25", got)
	}
}

func TestClassStats(t *testing.T) {
	members := []*agents.Agent{
		member(agents.GenderMale, agents.ClassLow, 0.2, agents.IdeologyU),
		member(agents.GenderFemale, agents.ClassLow, 0.3, agents.IdeologyU),
		member(agents.GenderMale, agents.ClassHigh, 0.9, agents.IdeologyU),
	}
	s := New(members, defaultLevers())

	low := s.Class[agents.ClassLow]
	if low.Count != 2 || low.MaleCount != 1 || low.FemaleCount != 1 {
		t.Errorf("low class group = %+v", low)
	}
	if math.Abs(low.AvgWealth-0.25) > 1e-12 {
		t.Errorf("low avg wealth = %v, want 0.25", low.AvgWealth)
	}

	// Empty tier is present with zeroed aggregates, not missing.
	middle, ok := s.Class[agents.ClassMiddle]
	if !ok {
		t.Fatal("middle class group missing")
	}
	if middle.Count != 0 || middle.AvgWealth != 0 {
		t.Errorf("empty middle group = %+v, want zeros", middle)
	}
}

func TestAverageIdeology(t *testing.T) {
	members := []*agents.Agent{
		member(agents.GenderMale, agents.ClassLow, 0.2, agents.IdeologyP),
		member(agents.GenderMale, agents.ClassLow, 0.2, agents.IdeologyF),
		member(agents.GenderMale, agents.ClassLow, 0.2, agents.IdeologyU),
		member(agents.GenderMale, agents.ClassLow, 0.2, agents.IdeologyP),
	}
	s := New(members, defaultLevers())
	if math.Abs(s.AverageIdeology-0.25) > 1e-12 {
		t.Errorf("average ideology = %v, want 0.25", s.AverageIdeology)
	}
}
