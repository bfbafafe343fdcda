// Derived statistics — averages, per-group breakdowns, and the Gini-based
// equality index. Everything here is fully recomputed per round, never
// incrementally patched.
package society

import (
	"math"

	"github.com/talgya/micro-society/internal/agents"
)

// GenderGroup holds per-gender aggregates.
type GenderGroup struct {
	Count               int     `json:"count"`
	AvgWealth           float64 `json:"avg_wealth"`
	AvgPower            float64 `json:"avg_power"`
	AvgCareSkill        float64 `json:"avg_care_skill"`
	AvgCompetitionSkill float64 `json:"avg_competition_skill"`
	WealthStd           float64 `json:"wealth_std"`
	PowerStd            float64 `json:"power_std"`
}

// GenderStats holds both gender groups plus the male−female gaps.
type GenderStats struct {
	Male      GenderGroup `json:"male"`
	Female    GenderGroup `json:"female"`
	PowerGap  float64     `json:"power_gap"`
	WealthGap float64     `json:"wealth_gap"`
}

// IdeologyGroup holds per-stance counts.
type IdeologyGroup struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// IdeologyStats maps each stance to its group.
type IdeologyStats map[agents.Ideology]IdeologyGroup

// ClassGroup holds per-tier aggregates.
type ClassGroup struct {
	Count       int     `json:"count"`
	AvgWealth   float64 `json:"avg_wealth"`
	AvgPower    float64 `json:"avg_power"`
	MaleCount   int     `json:"male_count"`
	FemaleCount int     `json:"female_count"`
}

// ClassStats maps each tier to its group.
type ClassStats map[agents.Class]ClassGroup

// UpdateStatistics recomputes all derived aggregates: basic averages, gender
// groups, ideology groups, class groups, then the equality index. Must run
// once per round after all per-member mutation is complete.
func (s *Society) UpdateStatistics() {
	s.updateBasicStats()
	s.updateGenderStats()
	s.updateIdeologyStats()
	s.updateClassStats()
	s.updateEquality()
}

func (s *Society) updateBasicStats() {
	n := len(s.Agents)
	if n == 0 {
		s.AverageWealth, s.AveragePower, s.AverageIdeology = 0, 0, 0
		return
	}
	var wealth, power, ideology float64
	for _, a := range s.Agents {
		wealth += a.Wealth
		power += a.Power
		ideology += a.IdeologyValue
	}
	s.AverageWealth = wealth / float64(n)
	s.AveragePower = power / float64(n)
	s.AverageIdeology = ideology / float64(n)
}

func (s *Society) updateGenderStats() {
	var male, female []*agents.Agent
	for _, a := range s.Agents {
		if a.Gender == agents.GenderMale {
			male = append(male, a)
		} else {
			female = append(female, a)
		}
	}
	s.Gender = GenderStats{
		Male:   genderGroup(male),
		Female: genderGroup(female),
	}
	s.Gender.PowerGap = s.Gender.Male.AvgPower - s.Gender.Female.AvgPower
	s.Gender.WealthGap = s.Gender.Male.AvgWealth - s.Gender.Female.AvgWealth
}

func genderGroup(members []*agents.Agent) GenderGroup {
	g := GenderGroup{Count: len(members)}
	if g.Count == 0 {
		return g
	}
	n := float64(g.Count)
	for _, a := range members {
		g.AvgWealth += a.Wealth
		g.AvgPower += a.Power
		g.AvgCareSkill += a.CareSkill
		g.AvgCompetitionSkill += a.CompetitionSkill
	}
	g.AvgWealth /= n
	g.AvgPower /= n
	g.AvgCareSkill /= n
	g.AvgCompetitionSkill /= n

	var wealthVar, powerVar float64
	for _, a := range members {
		wealthVar += (a.Wealth - g.AvgWealth) * (a.Wealth - g.AvgWealth)
		powerVar += (a.Power - g.AvgPower) * (a.Power - g.AvgPower)
	}
	g.WealthStd = math.Sqrt(wealthVar / n)
	g.PowerStd = math.Sqrt(powerVar / n)
	return g
}

func (s *Society) updateIdeologyStats() {
	counts := map[agents.Ideology]int{}
	for _, a := range s.Agents {
		counts[a.Ideology]++
	}
	total := len(s.Agents)
	stats := IdeologyStats{}
	for _, ideo := range agents.Ideologies {
		group := IdeologyGroup{Count: counts[ideo]}
		if total > 0 {
			group.Percentage = float64(counts[ideo]) / float64(total)
		}
		stats[ideo] = group
	}
	s.Ideology = stats
}

func (s *Society) updateClassStats() {
	// Group membership is keyed off the member itself each pass; tiers are
	// mutable, so nothing class-keyed is kept between passes.
	groups := map[agents.Class][]*agents.Agent{}
	for _, a := range s.Agents {
		groups[a.Class] = append(groups[a.Class], a)
	}

	stats := ClassStats{}
	for _, class := range []agents.Class{agents.ClassLow, agents.ClassMiddle, agents.ClassHigh} {
		members := groups[class]
		g := ClassGroup{Count: len(members)}
		if g.Count > 0 {
			for _, a := range members {
				g.AvgWealth += a.Wealth
				g.AvgPower += a.Power
				if a.Gender == agents.GenderMale {
					g.MaleCount++
				} else {
					g.FemaleCount++
				}
			}
			g.AvgWealth /= float64(g.Count)
			g.AvgPower /= float64(g.Count)
		}
		stats[class] = g
	}
	s.Class = stats
}

func (s *Society) updateEquality() {
	if len(s.Agents) == 0 {
		s.Equality = 0
		return
	}
	wealths := make([]float64, len(s.Agents))
	for i, a := range s.Agents {
		wealths[i] = a.Wealth
	}
	gini := Gini(wealths)
	s.Equality = math.Max(0, math.Min(1, 1-gini))
}

// Gini computes the Gini coefficient over the given wealths:
// Σ_i Σ_j |w_i − w_j| / (2·n²·mean). Returns the neutral value 0 for fewer
// than two members or zero mean wealth.
func Gini(wealths []float64) float64 {
	n := len(wealths)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, w := range wealths {
		sum += w
	}
	mean := sum / float64(n)
	if mean == 0 {
		return 0
	}

	var totalDiff float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			totalDiff += math.Abs(wealths[i] - wealths[j])
		}
	}
	gini := totalDiff / (2 * float64(n) * float64(n) * mean)
	return math.Min(1.0, gini)
}
