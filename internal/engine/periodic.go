// Slow-cadence mechanisms, run after the round sequence every Nth round:
// imitation learning, ideology conversion, elite-circle rebuild, and class
// mobility — in that order.
package engine

import (
	"log/slog"
	"sort"

	"github.com/talgya/micro-society/internal/agents"
	"github.com/talgya/micro-society/internal/society"
)

// Conversion chances. Fixed rules, not policy levers.
const (
	frustrationChance = 0.3
	rationalChance    = 0.2
	dissonanceChance  = 0.1
)

func (s *Simulation) runPeriodic(round int) {
	s.executeLearning()
	s.executeIdeologyConversion(round)
	s.Society.UpdateEliteCircle()
	s.checkClassMobility(round)

	slog.Debug("periodic mechanisms complete", "round", round, "elite", len(s.Society.Elite))
}

// executeLearning pulls every non-cohort member's skills toward a successful
// peer. The success cohort is the top 20% by power.
func (s *Simulation) executeLearning() {
	cohortSize := int(float64(len(s.Society.Agents)) * 0.2)
	if cohortSize == 0 {
		return
	}

	ranked := make([]*agents.Agent, len(s.Society.Agents))
	copy(ranked, s.Society.Agents)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Power > ranked[j].Power
	})
	cohort := ranked[:cohortSize]

	inCohort := make(map[*agents.Agent]bool, cohortSize)
	for _, a := range cohort {
		inCohort[a] = true
	}

	for _, a := range s.Society.Agents {
		if inCohort[a] {
			continue
		}
		if target := s.findLearningTarget(a, cohort); target != nil {
			a.LearnFrom(target, s.Config.LearningRate)
		}
	}
}

// findLearningTarget picks a cohort member by priority: same gender and class,
// then same gender, then same class, then anyone — uniformly within the first
// non-empty group.
func (s *Simulation) findLearningTarget(a *agents.Agent, cohort []*agents.Agent) *agents.Agent {
	var sameBoth, sameGender, sameClass []*agents.Agent
	for _, c := range cohort {
		switch {
		case c.Gender == a.Gender && c.Class == a.Class:
			sameBoth = append(sameBoth, c)
		case c.Gender == a.Gender:
			sameGender = append(sameGender, c)
		case c.Class == a.Class:
			sameClass = append(sameClass, c)
		}
	}

	for _, group := range [][]*agents.Agent{sameBoth, sameGender, sameClass, cohort} {
		if len(group) > 0 {
			return group[s.rng.Intn(len(group))]
		}
	}
	return nil
}

// executeIdeologyConversion applies the three conversion rules in priority
// order; the first rule whose condition matches consumes the member's chance
// for this cycle. All switches remain subject to the change cooldown.
func (s *Simulation) executeIdeologyConversion(round int) {
	for _, a := range s.Society.Agents {
		if round-a.LastIdeologyChange < agents.IdeologyCooldown {
			continue
		}

		partisan := a.Ideology == agents.IdeologyP || a.Ideology == agents.IdeologyF
		benefit := (a.Wealth - 0.5) + (a.Power - 0.5)

		// Frustration: losing partisans abandon the contest.
		if partisan && benefit < -0.2 {
			if s.rng.Chance(frustrationChance) {
				a.ChangeIdeology(agents.IdeologyU, round)
			}
			continue
		}

		// Rational choice: utilitarians drift toward the stance their
		// position favors.
		if a.Ideology == agents.IdeologyU {
			var target agents.Ideology
			switch {
			case a.Gender == agents.GenderMale && (a.Class == agents.ClassMiddle || a.Class == agents.ClassHigh):
				target = agents.IdeologyP
			case a.Gender == agents.GenderFemale:
				target = agents.IdeologyF
			default:
				continue
			}
			if s.rng.Chance(rationalChance) {
				a.ChangeIdeology(target, round)
			}
			continue
		}

		// Cognitive dissonance: mildly losing partisans flip sides.
		if partisan && benefit < -0.1 {
			if s.rng.Chance(dissonanceChance) {
				next := agents.IdeologyF
				if a.Ideology == agents.IdeologyF {
					next = agents.IdeologyP
				}
				a.ChangeIdeology(next, round)
			}
		}
	}
}

// checkClassMobility reassigns tiers against the current per-class average
// wealths and logs one aggregate event listing every transition.
func (s *Simulation) checkClassMobility(round int) {
	avg := agents.ClassAverages{
		Low:    s.Society.Class[agents.ClassLow].AvgWealth,
		Middle: s.Society.Class[agents.ClassMiddle].AvgWealth,
		High:   s.Society.Class[agents.ClassHigh].AvgWealth,
	}

	type transition struct {
		AgentID string       `json:"agent_id"`
		From    agents.Class `json:"from_class"`
		To      agents.Class `json:"to_class"`
		Wealth  float64      `json:"wealth"`
	}
	var changes []transition

	for _, a := range s.Society.Agents {
		next := a.CheckClassMobility(avg)
		if next == a.Class {
			continue
		}
		changes = append(changes, transition{
			AgentID: a.ID,
			From:    a.Class,
			To:      next,
			Wealth:  a.Wealth,
		})
		a.Class = next
	}

	if len(changes) > 0 {
		s.Society.AddEvent(society.Event{
			Type:        "class_mobility",
			Description: "class transitions",
			Meta: map[string]any{
				"changes":       changes,
				"total_changes": len(changes),
			},
		})
	}
}
