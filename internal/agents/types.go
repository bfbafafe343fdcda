// Package agents provides the individual entity model: attributes, sanction
// effects, ideology state, and per-member behaviors.
package agents

import "fmt"

// Gender is immutable for the lifetime of an agent.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Class is the social tier of an agent. Mutable via mobility checks.
type Class string

const (
	ClassLow    Class = "low"
	ClassMiddle Class = "middle"
	ClassHigh   Class = "high"
)

// Ideology is one of three mutually exclusive stances.
type Ideology string

const (
	IdeologyP Ideology = "P" // paternalist
	IdeologyF Ideology = "F" // feminist
	IdeologyU Ideology = "U" // utilitarian
)

// Ideologies lists all stances in draw order.
var Ideologies = []Ideology{IdeologyP, IdeologyF, IdeologyU}

// Value returns the numeric mapping P=1, F=-1, U=0.
func (i Ideology) Value() float64 {
	switch i {
	case IdeologyP:
		return 1
	case IdeologyF:
		return -1
	default:
		return 0
	}
}

// ParseIdeology converts an ideology code, failing loudly on unknown codes.
func ParseIdeology(code string) (Ideology, error) {
	switch Ideology(code) {
	case IdeologyP, IdeologyF, IdeologyU:
		return Ideology(code), nil
	}
	return "", fmt.Errorf("unsupported ideology code %q", code)
}

// SanctionDuration is how many rounds a sanction effect stays active.
const SanctionDuration = 3

// SanctionEffect is a decaying power/wealth penalty. Losses halve each round
// after the start round and the effect is dropped once the duration elapses.
type SanctionEffect struct {
	Intensity  float64 `json:"intensity"`
	StartRound int     `json:"start_round"`
	Duration   int     `json:"duration"`

	// Base losses fixed at creation.
	PowerLoss  float64 `json:"power_loss"`
	WealthLoss float64 `json:"wealth_loss"`

	// Decayed losses as of the last UpdateSanctionEffects call.
	CurrentPowerLoss  float64 `json:"current_power_loss"`
	CurrentWealthLoss float64 `json:"current_wealth_loss"`
}

// Agent is one member of the population.
type Agent struct {
	ID     string `json:"id"`
	Gender Gender `json:"gender"`
	Class  Class  `json:"class"`

	Wealth           float64 `json:"wealth"` // floored at MinWealth
	Power            float64 `json:"power"`  // derived, never set independently
	CareSkill        float64 `json:"care_skill"`
	CompetitionSkill float64 `json:"competition_skill"`

	Ideology      Ideology `json:"ideology"`
	IdeologyValue float64  `json:"ideology_value"`

	SanctionEffects    []SanctionEffect `json:"sanction_effects"`
	LastIdeologyChange int              `json:"last_ideology_change"`

	// Optional audit trails, enabled by the spawner's TrackHistory flag.
	// Nil slices mean tracking is off.
	WealthHistory   []float64  `json:"-"`
	PowerHistory    []float64  `json:"-"`
	IdeologyHistory []Ideology `json:"-"`

	trackHistory bool
}

// MinWealth is the hard wealth floor for every agent.
const MinWealth = 0.01

// IdeologyCooldown is the minimum number of rounds between ideology changes.
const IdeologyCooldown = 3

// Record is the flat per-member view exposed in snapshots.
type Record struct {
	ID                   string   `json:"id"`
	Gender               Gender   `json:"gender"`
	Class                Class    `json:"class"`
	Wealth               float64  `json:"wealth"`
	Power                float64  `json:"power"`
	CareSkill            float64  `json:"care_skill"`
	CompetitionSkill     float64  `json:"competition_skill"`
	Ideology             Ideology `json:"ideology"`
	IdeologyValue        float64  `json:"ideology_value"`
	SanctionEffectsCount int      `json:"sanction_effects_count"`
	LastIdeologyChange   int      `json:"last_ideology_change"`
}

// Snapshot returns the agent's flat attribute record.
func (a *Agent) Snapshot() Record {
	return Record{
		ID:                   a.ID,
		Gender:               a.Gender,
		Class:                a.Class,
		Wealth:               a.Wealth,
		Power:                a.Power,
		CareSkill:            a.CareSkill,
		CompetitionSkill:     a.CompetitionSkill,
		Ideology:             a.Ideology,
		IdeologyValue:        a.IdeologyValue,
		SanctionEffectsCount: len(a.SanctionEffects),
		LastIdeologyChange:   a.LastIdeologyChange,
	}
}
