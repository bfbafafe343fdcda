// Agent spawning — creates members with sampled skills, wealth, and ideology.
package agents

import (
	"github.com/google/uuid"

	"github.com/talgya/micro-society/internal/entropy"
)

// SkillParams controls the gender-specific skill distributions.
type SkillParams struct {
	MaleCareMean          float64
	MaleCompetitionMean   float64
	FemaleCareMean        float64
	FemaleCompetitionMean float64
	StdDev                float64
}

// wealthBand is the class-specific wealth distribution: normal sample clipped
// to a [min, max] band.
type wealthBand struct {
	mean, std, min, max float64
}

var wealthBands = map[Class]wealthBand{
	ClassLow:    {mean: 0.2, std: 0.1, min: 0.05, max: 0.35},
	ClassMiddle: {mean: 0.5, std: 0.15, min: 0.2, max: 0.8},
	ClassHigh:   {mean: 0.8, std: 0.1, min: 0.6, max: 1.0},
}

// Spawner creates agents for the simulation.
type Spawner struct {
	rng          *entropy.Source
	skills       SkillParams
	trackHistory bool
}

// NewSpawner creates an agent spawner drawing from the shared source.
func NewSpawner(rng *entropy.Source, skills SkillParams, trackHistory bool) *Spawner {
	return &Spawner{rng: rng, skills: skills, trackHistory: trackHistory}
}

// Spawn creates one agent of the given gender and class.
//
// Skills are sampled from gender-specific normals and clipped asymmetrically:
// the skill favored by a gender gets the wider [0.2, 1.0] band, the disfavored
// one the narrower [0.1, 0.9].
func (s *Spawner) Spawn(gender Gender, class Class) *Agent {
	a := &Agent{
		ID:           uuid.NewString(),
		Gender:       gender,
		Class:        class,
		trackHistory: s.trackHistory,
	}

	careMean, compMean := s.skills.FemaleCareMean, s.skills.FemaleCompetitionMean
	if gender == GenderMale {
		careMean, compMean = s.skills.MaleCareMean, s.skills.MaleCompetitionMean
	}

	careLo, careHi := 0.2, 1.0
	compLo, compHi := 0.1, 0.9
	if gender == GenderMale {
		careLo, careHi = 0.1, 0.9
		compLo, compHi = 0.2, 1.0
	}

	a.CareSkill = clip(s.rng.Normal(careMean, s.skills.StdDev), careLo, careHi)
	a.CompetitionSkill = clip(s.rng.Normal(compMean, s.skills.StdDev), compLo, compHi)

	band := wealthBands[class]
	a.Wealth = clip(s.rng.Normal(band.mean, band.std), band.min, band.max)

	a.Power = a.CalculatePower()

	a.Ideology = Ideologies[s.rng.Intn(len(Ideologies))]
	a.IdeologyValue = a.Ideology.Value()

	if s.trackHistory {
		a.WealthHistory = []float64{a.Wealth}
		a.PowerHistory = []float64{a.Power}
		a.IdeologyHistory = []Ideology{a.Ideology}
	}

	return a
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
