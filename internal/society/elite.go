// Elite decision circle — membership, policy voting, and composition.
package society

import (
	"math"
	"sort"

	"github.com/talgya/micro-society/internal/agents"
	"github.com/talgya/micro-society/internal/entropy"
)

// EliteShare is the fraction of the population forming the decision circle.
const EliteShare = 0.05

// EliteSize returns the circle size for a population of n: the top ⌈n·5%⌉
// by power, never fewer than one.
func EliteSize(n int) int {
	size := int(math.Ceil(float64(n) * EliteShare))
	if size < 1 {
		size = 1
	}
	return size
}

// UpdateEliteCircle rebuilds the circle from scratch: members ranked by power
// descending, ties kept in member order. Membership is never persisted across
// rebuilds.
func (s *Society) UpdateEliteCircle() {
	if len(s.Agents) == 0 {
		s.Elite = nil
		return
	}
	ranked := make([]*agents.Agent, len(s.Agents))
	copy(ranked, s.Agents)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Power > ranked[j].Power
	})
	s.Elite = ranked[:EliteSize(len(s.Agents))]
}

// VoteOnPolicy has each elite member emit a preference in {+1, 0, −1} for the
// named lever; a strict plurality moves the lever multiplicatively by a draw
// from [0.05, 0.2]. Overshoot past a bound is softened back toward it. The new
// value is returned, not applied.
func (s *Society) VoteOnPolicy(name LeverName, rng *entropy.Source) (float64, error) {
	current, err := s.Levers.Get(name)
	if err != nil {
		return 0, err
	}
	if len(s.Elite) == 0 {
		return current, nil
	}

	var increase, decrease, maintain int
	for _, a := range s.Elite {
		switch pref := s.policyPreference(a, name); {
		case pref > 0:
			increase++
		case pref < 0:
			decrease++
		default:
			maintain++
		}
	}

	next := current
	switch {
	case increase > decrease && increase > maintain:
		adj := math.Min(0.2, rng.Uniform(0.05, 0.2))
		next = current * (1 + adj)
	case decrease > increase && decrease > maintain:
		adj := math.Min(0.2, rng.Uniform(0.05, 0.2))
		next = current * (1 - adj)
	}

	bounds, err := BoundsFor(name)
	if err != nil {
		return 0, err
	}
	// Soften overshoot so the bound acts as an attractor rather than a hard
	// saturation point, then re-clamp.
	if next > bounds.Max {
		next = bounds.Max + (next-bounds.Max)*0.1
	} else if next < bounds.Min {
		next = bounds.Min + (bounds.Min-next)*0.1
	}
	return math.Max(bounds.Min, math.Min(bounds.Max, next)), nil
}

// policyPreference maps a member's ideology and relative standing to a vote
// direction for the given lever.
func (s *Society) policyPreference(a *agents.Agent, name LeverName) int {
	switch name {
	case LeverCompetitionReward:
		if a.Ideology == agents.IdeologyP || a.CompetitionSkill > 0.6 {
			return 1
		}
		if a.Ideology == agents.IdeologyF || a.CareSkill > 0.6 {
			return -1
		}
	case LeverCareReward:
		if a.Ideology == agents.IdeologyF || a.CareSkill > 0.6 {
			return 1
		}
		if a.Ideology == agents.IdeologyP || a.CompetitionSkill > 0.6 {
			return -1
		}
	case LeverTaxRedistribution:
		if a.Ideology == agents.IdeologyF || a.Wealth < s.AverageWealth {
			return 1
		}
		if a.Ideology == agents.IdeologyP || a.Wealth > s.AverageWealth*1.5 {
			return -1
		}
	case LeverAttributionBias:
		if a.Ideology == agents.IdeologyP || (a.Gender == agents.GenderMale && a.Power > s.AveragePower) {
			return 1
		}
		if a.Ideology == agents.IdeologyF || a.Gender == agents.GenderFemale {
			return -1
		}
	case LeverSocialSanction:
		if math.Abs(a.IdeologyValue-s.AverageIdeology) < 0.2 {
			return 1
		}
		return -1
	}
	return 0
}

// GroupShare is a count plus its share of the circle.
type GroupShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// EliteComposition breaks the circle down by gender, ideology, and class.
type EliteComposition struct {
	Gender   map[agents.Gender]GroupShare   `json:"gender"`
	Ideology map[agents.Ideology]GroupShare `json:"ideology"`
	Class    map[agents.Class]GroupShare    `json:"class"`
}

// CurrentEliteComposition analyses the current circle membership.
func (s *Society) CurrentEliteComposition() EliteComposition {
	comp := EliteComposition{
		Gender:   map[agents.Gender]GroupShare{},
		Ideology: map[agents.Ideology]GroupShare{},
		Class:    map[agents.Class]GroupShare{},
	}
	total := len(s.Elite)
	if total == 0 {
		return comp
	}

	genderCounts := map[agents.Gender]int{}
	ideologyCounts := map[agents.Ideology]int{}
	classCounts := map[agents.Class]int{}
	for _, a := range s.Elite {
		genderCounts[a.Gender]++
		ideologyCounts[a.Ideology]++
		classCounts[a.Class]++
	}

	for _, g := range []agents.Gender{agents.GenderMale, agents.GenderFemale} {
		comp.Gender[g] = GroupShare{Count: genderCounts[g], Percentage: float64(genderCounts[g]) / float64(total)}
	}
	for _, i := range agents.Ideologies {
		comp.Ideology[i] = GroupShare{Count: ideologyCounts[i], Percentage: float64(ideologyCounts[i]) / float64(total)}
	}
	for _, c := range []agents.Class{agents.ClassLow, agents.ClassMiddle, agents.ClassHigh} {
		comp.Class[c] = GroupShare{Count: classCounts[c], Percentage: float64(classCounts[c]) / float64(total)}
	}
	return comp
}
