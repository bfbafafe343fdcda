// Package engine drives the round-by-round simulation: it owns the society,
// sequences every mechanism in a fixed order, and accumulates the snapshot
// history that presentation layers consume.
package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/talgya/micro-society/internal/agents"
	"github.com/talgya/micro-society/internal/config"
	"github.com/talgya/micro-society/internal/entropy"
	"github.com/talgya/micro-society/internal/society"
)

// Simulation holds the complete run state.
type Simulation struct {
	Config  config.Config
	Society *society.Society

	// Snapshots grows by one per completed round; index 0 is the initial
	// state. Together with Config it is the sole output contract.
	Snapshots []society.Snapshot

	// mu guards Society and Snapshots against observers reading while a
	// round is in flight. Step writes; the accessor methods read.
	mu sync.RWMutex

	rng *entropy.Source
}

// NewSimulation validates the config, creates the population, and captures
// the initial snapshot. Validation failures stop the run before it starts.
func NewSimulation(cfg config.Config) (*Simulation, error) {
	if failures := cfg.Validate(); len(failures) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(failures, "; "))
	}

	rng := entropy.NewSource(cfg.RandomSeed)
	spawner := agents.NewSpawner(rng, agents.SkillParams{
		MaleCareMean:          cfg.MaleCareSkillMean,
		MaleCompetitionMean:   cfg.MaleCompetitionSkillMean,
		FemaleCareMean:        cfg.FemaleCareSkillMean,
		FemaleCompetitionMean: cfg.FemaleCompetitionSkillMean,
		StdDev:                cfg.SkillStdDev,
	}, cfg.TrackHistory)

	members := spawnPopulation(cfg, rng, spawner)

	sim := &Simulation{
		Config:  cfg,
		Society: society.New(members, cfg.Levers),
		rng:     rng,
	}
	sim.Snapshots = append(sim.Snapshots, sim.Society.Capture())

	slog.Info("society initialized",
		"population", len(members),
		"elite", len(sim.Society.Elite),
		"equality", fmt.Sprintf("%.3f", sim.Society.Equality),
		"seed", cfg.RandomSeed,
	)
	return sim, nil
}

// spawnPopulation builds the member list: class counts from the distribution
// ratios, gender split within each class, then a shuffle so creation order
// carries no structure.
func spawnPopulation(cfg config.Config, rng *entropy.Source, spawner *agents.Spawner) []*agents.Agent {
	total := cfg.TotalPopulation
	lowCount := int(float64(total) * cfg.ClassDistribution.Low)
	middleCount := int(float64(total) * cfg.ClassDistribution.Middle)
	highCount := total - lowCount - middleCount

	type slot struct {
		gender agents.Gender
		class  agents.Class
	}
	var slots []slot
	classes := []struct {
		class agents.Class
		count int
	}{
		{agents.ClassLow, lowCount},
		{agents.ClassMiddle, middleCount},
		{agents.ClassHigh, highCount},
	}
	for _, c := range classes {
		males := int(float64(c.count) * cfg.GenderRatio)
		for i := 0; i < males; i++ {
			slots = append(slots, slot{agents.GenderMale, c.class})
		}
		for i := males; i < c.count; i++ {
			slots = append(slots, slot{agents.GenderFemale, c.class})
		}
	}

	rng.Shuffle(len(slots), func(i, j int) {
		slots[i], slots[j] = slots[j], slots[i]
	})

	members := make([]*agents.Agent, 0, len(slots))
	for _, sl := range slots {
		members = append(members, spawner.Spawn(sl.gender, sl.class))
	}
	return members
}

// Step advances the simulation by one round: the seven-step sequence, the
// snapshot, then the slow-cadence mechanisms when the round hits the
// configured interval.
func (s *Simulation) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.Society.Round + 1
	s.Society.Round = round

	if err := s.runRound(round); err != nil {
		return fmt.Errorf("round %d: %w", round, err)
	}

	s.Snapshots = append(s.Snapshots, s.Society.Capture())

	if round%s.Config.PeriodicInterval == 0 {
		s.runPeriodic(round)
	}
	return nil
}

// Latest returns the most recent snapshot.
func (s *Simulation) Latest() society.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Snapshots[len(s.Snapshots)-1]
}

// History returns the snapshot sequence. Snapshots are append-only values,
// so the returned slice stays valid while rounds keep running.
func (s *Simulation) History() []society.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Snapshots
}

// EventLog returns the society's full event log, including entries from the
// current round that no snapshot has captured yet.
func (s *Simulation) EventLog() []society.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Society.Events
}

// CurrentRound returns the society's round counter.
func (s *Simulation) CurrentRound() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Society.Round
}

// CurrentRecords returns a consistent view of every member's live state.
func (s *Simulation) CurrentRecords() []agents.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]agents.Record, len(s.Society.Agents))
	for i, a := range s.Society.Agents {
		records[i] = a.Snapshot()
	}
	return records
}

// AdjustLever sets a policy lever from outside the vote cycle. The value is
// clamped to the lever's bounds and the change is logged as a policy_change
// event, picked up by the next round's capture.
func (s *Simulation) AdjustLever(name society.LeverName, value float64) (old, applied float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err = s.Society.Levers.Get(name)
	if err != nil {
		return 0, 0, err
	}
	bounds, err := society.BoundsFor(name)
	if err != nil {
		return 0, 0, err
	}
	applied = value
	if applied < bounds.Min {
		applied = bounds.Min
	} else if applied > bounds.Max {
		applied = bounds.Max
	}
	if err := s.Society.Levers.Set(name, applied); err != nil {
		return 0, 0, err
	}

	s.Society.AddEvent(society.Event{
		Type:        "policy_change",
		Description: "external adjustment of " + string(name),
		Meta: map[string]any{
			"policy":    string(name),
			"old_value": old,
			"new_value": applied,
			"change":    applied - old,
		},
	})
	return old, applied, nil
}

// Run advances the simulation to MaxRounds. progress may be nil.
func (s *Simulation) Run(progress func(round, max int)) error {
	max := s.Config.MaxRounds
	for s.Society.Round < max {
		if err := s.Step(); err != nil {
			return err
		}
		if progress != nil {
			progress(s.Society.Round, max)
		}
		if s.Society.Round%s.Config.PeriodicInterval == 0 {
			slog.Info("round report",
				"round", s.Society.Round,
				"equality", fmt.Sprintf("%.3f", s.Society.Equality),
				"avg_wealth", fmt.Sprintf("%.3f", s.Society.AverageWealth),
				"avg_power", fmt.Sprintf("%.3f", s.Society.AveragePower),
				"power_gap", fmt.Sprintf("%.3f", s.Society.Gender.PowerGap),
				"events", len(s.Society.Events),
			)
		}
	}
	return nil
}

// RunSummary condenses a finished run for reporting.
type RunSummary struct {
	TotalRounds      int                   `json:"total_rounds"`
	InitialEquality  float64               `json:"initial_equality"`
	FinalEquality    float64               `json:"final_equality"`
	EqualityChange   float64               `json:"equality_change"`
	InitialPowerGap  float64               `json:"initial_gender_power_gap"`
	FinalPowerGap    float64               `json:"final_gender_power_gap"`
	InitialWealthGap float64               `json:"initial_gender_wealth_gap"`
	FinalWealthGap   float64               `json:"final_gender_wealth_gap"`
	TotalEvents      int                   `json:"total_events"`
	FinalIdeology    society.IdeologyStats `json:"final_ideology_distribution"`
}

// Summary reports initial-versus-final aggregates for the run so far.
func (s *Simulation) Summary() RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Snapshots) == 0 {
		return RunSummary{}
	}
	first := s.Snapshots[0]
	last := s.Snapshots[len(s.Snapshots)-1]
	return RunSummary{
		TotalRounds:      len(s.Snapshots) - 1,
		InitialEquality:  first.Equality,
		FinalEquality:    last.Equality,
		EqualityChange:   last.Equality - first.Equality,
		InitialPowerGap:  first.Gender.PowerGap,
		FinalPowerGap:    last.Gender.PowerGap,
		InitialWealthGap: first.Gender.WealthGap,
		FinalWealthGap:   last.Gender.WealthGap,
		TotalEvents:      len(s.Society.Events),
		FinalIdeology:    last.Ideology,
	}
}
