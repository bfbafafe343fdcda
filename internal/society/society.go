// Package society provides the population aggregator: the member collection,
// policy levers, elite decision circle, event log, and all derived statistics.
package society

import (
	"github.com/talgya/micro-society/internal/agents"
)

// Event is a notable occurrence, stamped with the round it happened in.
type Event struct {
	Round       int            `json:"round"`
	Type        string         `json:"type"` // "social", "economic", "policy_change", "class_mobility"
	Description string         `json:"description,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Society owns the member list and everything derived from it.
type Society struct {
	Agents []*agents.Agent
	Round  int

	Levers PolicyLevers

	// Elite is a derived, non-owning view over Agents: the top 5% by power,
	// rebuilt on a fixed cadence.
	Elite []*agents.Agent

	// Events is append-only for the duration of the run.
	Events []Event

	// captureCursor marks how far into Events the last Capture read, so the
	// next capture picks up entries logged after it. Slow-cadence mechanisms
	// run after the round's capture, so their events surface one round late.
	captureCursor int

	// Derived aggregates, fully recomputed by UpdateStatistics each round.
	Equality        float64
	AverageWealth   float64
	AveragePower    float64
	AverageIdeology float64
	Gender          GenderStats
	Ideology        IdeologyStats
	Class           ClassStats
}

// New creates a society over the given members with the initial lever values,
// builds the first elite circle, and computes initial statistics.
func New(members []*agents.Agent, levers PolicyLevers) *Society {
	s := &Society{
		Agents: members,
		Levers: levers,
	}
	s.UpdateEliteCircle()
	s.UpdateStatistics()
	return s
}

// AddEvent stamps the event with the current round and appends it to the log.
func (s *Society) AddEvent(e Event) {
	e.Round = s.Round
	s.Events = append(s.Events, e)
}

// RoundEvents returns the log entries stamped with the given round.
func (s *Society) RoundEvents(round int) []Event {
	var out []Event
	for _, e := range s.Events {
		if e.Round == round {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot is the per-round read contract consumed by persistence and
// presentation layers.
type Snapshot struct {
	Round           int              `json:"round"`
	Equality        float64          `json:"equality"`
	AverageWealth   float64          `json:"average_wealth"`
	AveragePower    float64          `json:"average_power"`
	AverageIdeology float64          `json:"average_ideology"`
	Levers          PolicyLevers     `json:"policy_levers"`
	Gender          GenderStats      `json:"gender_stats"`
	Ideology        IdeologyStats    `json:"ideology_stats"`
	Class           ClassStats       `json:"class_stats"`
	EliteComposition EliteComposition `json:"elite_composition"`
	Elite           []agents.Record  `json:"elite"`
	Events          []Event          `json:"events"`
	Agents          []agents.Record  `json:"agents"`
}

// Snapshot captures the society's current state as a flat, self-contained
// record.
func (s *Society) Snapshot() Snapshot {
	elite := make([]agents.Record, len(s.Elite))
	for i, a := range s.Elite {
		elite[i] = a.Snapshot()
	}
	members := make([]agents.Record, len(s.Agents))
	for i, a := range s.Agents {
		members[i] = a.Snapshot()
	}
	return Snapshot{
		Round:            s.Round,
		Equality:         s.Equality,
		AverageWealth:    s.AverageWealth,
		AveragePower:     s.AveragePower,
		AverageIdeology:  s.AverageIdeology,
		Levers:           s.Levers,
		Gender:           s.Gender,
		Ideology:         s.Ideology,
		Class:            s.Class,
		EliteComposition: s.CurrentEliteComposition(),
		Elite:            elite,
		Events:           s.RoundEvents(s.Round),
		Agents:           members,
	}
}

// Capture is the engine's once-per-round snapshot. Unlike Snapshot, its
// Events field carries everything logged since the previous Capture, so
// entries stamped after a round's capture still reach the record.
func (s *Society) Capture() Snapshot {
	snap := s.Snapshot()
	var pending []Event
	if s.captureCursor < len(s.Events) {
		pending = append(pending, s.Events[s.captureCursor:]...)
	}
	s.captureCursor = len(s.Events)
	snap.Events = pending
	return snap
}
