// Per-member behaviors: wealth/power updates, ideology switching, sanction
// decay, imitation learning, and class mobility checks.
package agents

import "math"

// CalculatePower derives power from wealth and skills.
func (a *Agent) CalculatePower() float64 {
	return 0.5*a.Wealth + 0.25*a.CompetitionSkill + 0.25*a.CareSkill
}

// UpdateWealth sets wealth to v clamped to the floor and records history.
func (a *Agent) UpdateWealth(v float64) {
	a.Wealth = math.Max(MinWealth, v)
	if a.trackHistory {
		a.WealthHistory = append(a.WealthHistory, a.Wealth)
	}
}

// UpdatePower recomputes power from current wealth and skills and records
// history.
func (a *Agent) UpdatePower() {
	a.Power = a.CalculatePower()
	if a.trackHistory {
		a.PowerHistory = append(a.PowerHistory, a.Power)
	}
}

// ChangeIdeology switches the agent's stance. Returns false without mutating
// anything if the cooldown since the last change has not elapsed.
func (a *Agent) ChangeIdeology(next Ideology, round int) bool {
	if round-a.LastIdeologyChange < IdeologyCooldown {
		return false
	}
	a.Ideology = next
	a.IdeologyValue = next.Value()
	a.LastIdeologyChange = round
	if a.trackHistory {
		a.IdeologyHistory = append(a.IdeologyHistory, next)
	}
	return true
}

// AddSanctionEffect attaches a new sanction. Losses start at full strength
// (decay factor 1 in the start round).
func (a *Agent) AddSanctionEffect(intensity float64, round int) {
	a.SanctionEffects = append(a.SanctionEffects, SanctionEffect{
		Intensity:         intensity,
		StartRound:        round,
		Duration:          SanctionDuration,
		PowerLoss:         intensity * 0.08,
		WealthLoss:        intensity * 0.03,
		CurrentPowerLoss:  intensity * 0.08,
		CurrentWealthLoss: intensity * 0.03,
	})
}

// UpdateSanctionEffects decays active effects by 50% per elapsed round and
// drops effects that have run their duration. Effects are independent, so
// evaluation order does not matter.
func (a *Agent) UpdateSanctionEffects(round int) {
	active := a.SanctionEffects[:0]
	for _, e := range a.SanctionEffects {
		elapsed := round - e.StartRound
		if elapsed >= e.Duration {
			continue
		}
		decay := math.Pow(0.5, float64(elapsed))
		e.CurrentPowerLoss = e.PowerLoss * decay
		e.CurrentWealthLoss = e.WealthLoss * decay
		active = append(active, e)
	}
	a.SanctionEffects = active
}

// TotalSanctionEffects sums the currently-decayed losses across active
// effects.
func (a *Agent) TotalSanctionEffects() (powerLoss, wealthLoss float64) {
	for _, e := range a.SanctionEffects {
		powerLoss += e.CurrentPowerLoss
		wealthLoss += e.CurrentWealthLoss
	}
	return powerLoss, wealthLoss
}

// LearnFrom pulls both skills toward the target's values at the given rate,
// clamped to [0, 1].
func (a *Agent) LearnFrom(target *Agent, rate float64) {
	a.CareSkill = clamp01(a.CareSkill + rate*(target.CareSkill-a.CareSkill))
	a.CompetitionSkill = clamp01(a.CompetitionSkill + rate*(target.CompetitionSkill-a.CompetitionSkill))
}

// ClassAverages holds per-tier average wealth used by mobility checks.
type ClassAverages struct {
	Low    float64
	Middle float64
	High   float64
}

// CheckClassMobility returns the tier the agent should move to given the
// per-class average wealths, or the current tier if no threshold is crossed.
// Upward conditions are checked before downward ones; only one can apply for
// a given tier.
func (a *Agent) CheckClassMobility(avg ClassAverages) Class {
	switch a.Class {
	case ClassLow:
		if a.Wealth > avg.Middle*1.5 {
			return ClassMiddle
		}
	case ClassMiddle:
		if a.Wealth > avg.High*1.5 {
			return ClassHigh
		}
		if a.Wealth < avg.Middle*0.6 {
			return ClassLow
		}
	case ClassHigh:
		if a.Wealth < avg.High*0.6 {
			return ClassMiddle
		}
	}
	return a.Class
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
