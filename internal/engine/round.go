// The per-round sequence. Order is load-bearing: each step reads aggregate
// values (averages, equality) computed by the statistics refresh at the end of
// the previous round, and the refresh at step 7 runs only after all
// per-member mutation for the round is done.
package engine

import (
	"math"

	"github.com/talgya/micro-society/internal/agents"
	"github.com/talgya/micro-society/internal/society"
)

func (s *Simulation) runRound(round int) error {
	// 1. Elite voting on 1–2 random levers.
	if err := s.eliteVoting(); err != nil {
		return err
	}

	// 2. Exactly one event, chosen from start-of-round equality.
	s.triggerEvent()

	// 3. Attribution-bias adjustment to every member's power.
	s.applyAttributionBias()

	// 4. Tax collection and redistribution.
	s.executeTaxRedistribution()

	// 5. Wealth growth, sanction losses, power recompute, sanction decay.
	s.updateWealthPower(round)

	// 6. Sanction triggers from ideology deviation.
	s.executeSocialSanctions(round)

	// 7. Statistics refresh.
	s.Society.UpdateStatistics()
	return nil
}

// eliteVoting puts a random subset of one or two levers to a vote. Levers not
// selected are untouched this round.
func (s *Simulation) eliteVoting() error {
	issues := s.rng.IntBetween(1, 2)
	order := s.rng.Perm(len(society.LeverNames))

	for _, idx := range order[:issues] {
		name := society.LeverNames[idx]
		old, err := s.Society.Levers.Get(name)
		if err != nil {
			return err
		}
		next, err := s.Society.VoteOnPolicy(name, s.rng)
		if err != nil {
			return err
		}
		if math.Abs(next-old) <= 0.01 {
			continue
		}
		if err := s.Society.Levers.Set(name, next); err != nil {
			return err
		}
		s.Society.AddEvent(society.Event{
			Type:        "policy_change",
			Description: "elite circle adjusted " + string(name),
			Meta: map[string]any{
				"policy":    string(name),
				"old_value": old,
				"new_value": next,
				"change":    next - old,
			},
		})
	}
	return nil
}

// triggerEvent fires exactly one event per round: social with probability
// 0.4 + 0.2·equality, else economic.
func (s *Simulation) triggerEvent() {
	socialProb := 0.4 + 0.2*s.Society.Equality
	if s.rng.Chance(socialProb) {
		s.executeSocialEvent()
	} else {
		s.executeEconomicEvent()
	}
}

// executeSocialEvent succeeds when the population's total care skill clears a
// threshold scaling with size and equality. On success, high-care members
// gain power and wealth scaled by the care reward lever.
func (s *Simulation) executeSocialEvent() {
	var totalCare float64
	for _, a := range s.Society.Agents {
		totalCare += a.CareSkill
	}
	threshold := float64(len(s.Society.Agents)) * 0.5 * (1 + s.Society.Equality)

	success := totalCare >= threshold
	if success {
		careReward := s.Society.Levers.CareReward
		for _, a := range s.Society.Agents {
			if a.CareSkill > 0.6 {
				a.Power += 0.05 * careReward * a.CareSkill
				a.Wealth += 0.03 * careReward * a.CareSkill
			}
		}
	}

	s.Society.AddEvent(society.Event{
		Type:        "social",
		Description: "social cooperation event",
		Meta: map[string]any{
			"success":          success,
			"total_care_skill": totalCare,
			"threshold":        threshold,
		},
	})
}

// executeEconomicEvent runs an independent competition trial per member;
// winners gain power and wealth scaled by the competition reward lever.
func (s *Simulation) executeEconomicEvent() {
	competitionReward := s.Society.Levers.CompetitionReward

	winners := 0
	for _, a := range s.Society.Agents {
		if s.rng.Chance(a.CompetitionSkill * 0.8) {
			a.Power += 0.04 * competitionReward * a.CompetitionSkill
			a.Wealth += 0.06 * competitionReward * a.CompetitionSkill
			winners++
		}
	}

	s.Society.AddEvent(society.Event{
		Type:        "economic",
		Description: "economic competition event",
		Meta: map[string]any{
			"success":            true,
			"winners_count":      winners,
			"total_participants": len(s.Society.Agents),
		},
	})
}

// applyAttributionBias scales every member's power by a gender- and
// advantage-dependent factor, using the pre-step population average. Power is
// floored at zero even for large negative advantages.
func (s *Simulation) applyAttributionBias() {
	bias := s.Society.Levers.AttributionBias
	avgPower := s.Society.AveragePower

	for _, a := range s.Society.Agents {
		advantage := (a.Power - avgPower) / math.Max(0.001, avgPower)

		var factor float64
		if a.Gender == agents.GenderMale {
			factor = (1 + 0.2*bias) * (1 + 0.1*advantage)
		} else {
			factor = (1 - 0.3*bias) * (1 + 0.1*advantage)
		}
		a.Power = math.Max(0, a.Power*factor)
	}
}

// executeTaxRedistribution collects from members above half the pre-step
// average wealth and hands the pool back in equal shares to everyone.
func (s *Simulation) executeTaxRedistribution() {
	rate := s.Society.Levers.TaxRedistribution
	if rate <= 0 {
		return
	}
	avgWealth := s.Society.AverageWealth
	if avgWealth <= 0 || len(s.Society.Agents) == 0 {
		return
	}

	var collected float64
	for _, a := range s.Society.Agents {
		if a.Wealth > avgWealth*0.5 {
			multiplier := math.Max(0, a.Wealth/avgWealth-0.5)
			amount := a.Wealth * rate * multiplier
			a.Wealth -= amount
			collected += amount
		}
	}

	if collected > 0 {
		share := collected / float64(len(s.Society.Agents))
		for _, a := range s.Society.Agents {
			a.Wealth += share
		}
	}
}

// updateWealthPower applies base growth plus a skill bonus, subtracts sanction
// wealth loss, soft-decays wealth above 0.9, recomputes power, subtracts
// sanction power loss, then decays the sanction effects for the new round.
func (s *Simulation) updateWealthPower(round int) {
	base := s.Config.BaseGrowthRate

	for _, a := range s.Society.Agents {
		growth := base + 0.02*(a.CompetitionSkill+a.CareSkill)/2
		newWealth := a.Wealth * (1 + growth)

		powerLoss, wealthLoss := a.TotalSanctionEffects()
		newWealth -= wealthLoss

		if newWealth > 0.9 {
			newWealth *= 0.98
		}
		a.UpdateWealth(newWealth)

		a.UpdatePower()
		a.Power = math.Max(0, a.Power-powerLoss)

		a.UpdateSanctionEffects(round)
	}
}

// executeSocialSanctions adds a fresh sanction to every member whose ideology
// deviates from the population average past the trigger threshold.
func (s *Simulation) executeSocialSanctions(round int) {
	lever := s.Society.Levers.SocialSanction
	threshold := s.Config.SanctionTriggerThreshold

	for _, a := range s.Society.Agents {
		deviation := math.Abs(a.IdeologyValue - s.Society.AverageIdeology)
		if deviation > threshold {
			a.AddSanctionEffect(lever*deviation*deviation, round)
		}
	}
}
