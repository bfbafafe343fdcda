package persistence

import (
	"path/filepath"
	"testing"

	"github.com/talgya/micro-society/internal/agents"
	"github.com/talgya/micro-society/internal/society"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "run.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveMeta("seed", "42"); err != nil {
		t.Fatalf("SaveMeta() error = %v", err)
	}
	if err := db.SaveMeta("seed", "7"); err != nil {
		t.Fatalf("SaveMeta() overwrite error = %v", err)
	}

	got, err := db.GetMeta("seed")
	if err != nil {
		t.Fatalf("GetMeta() error = %v", err)
	}
	if got != "7" {
		t.Errorf("GetMeta(seed) = %q, want %q", got, "7")
	}
}

func TestAgentsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	records := []agents.Record{
		{
			ID: "a", Gender: agents.GenderFemale, Class: agents.ClassMiddle,
			Wealth: 0.45, Power: 0.38, CareSkill: 0.7, CompetitionSkill: 0.3,
			Ideology: agents.IdeologyF, IdeologyValue: -1,
			SanctionEffectsCount: 1, LastIdeologyChange: 12,
		},
		{
			ID: "b", Gender: agents.GenderMale, Class: agents.ClassLow,
			Wealth: 0.2, Power: 0.25, CareSkill: 0.4, CompetitionSkill: 0.6,
			Ideology: agents.IdeologyU,
		},
	}
	if err := db.SaveAgents(records); err != nil {
		t.Fatalf("SaveAgents() error = %v", err)
	}

	got, err := db.LoadAgents()
	if err != nil {
		t.Fatalf("LoadAgents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadAgents() returned %d records, want 2", len(got))
	}
	if got[0] != records[0] || got[1] != records[1] {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, records)
	}

	// Full replace on re-save.
	if err := db.SaveAgents(records[:1]); err != nil {
		t.Fatalf("SaveAgents() replace error = %v", err)
	}
	got, err = db.LoadAgents()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("after replace: %d records, want 1", len(got))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)

	snaps := []society.Snapshot{
		{Round: 0, Equality: 0.8, AverageWealth: 0.4},
		{Round: 1, Equality: 0.75, AverageWealth: 0.42,
			Agents: []agents.Record{{ID: "a", Wealth: 0.42}}},
	}
	if err := db.SaveSnapshots(snaps); err != nil {
		t.Fatalf("SaveSnapshots() error = %v", err)
	}

	snap, err := db.LoadSnapshot(1)
	if err != nil {
		t.Fatalf("LoadSnapshot(1) error = %v", err)
	}
	if snap.Round != 1 || snap.Equality != 0.75 || len(snap.Agents) != 1 {
		t.Errorf("LoadSnapshot(1) = %+v", snap)
	}

	latest, err := db.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot() error = %v", err)
	}
	if latest.Round != 1 {
		t.Errorf("LatestSnapshot().Round = %d, want 1", latest.Round)
	}

	if _, err := db.LoadSnapshot(99); err == nil {
		t.Error("LoadSnapshot(99) succeeded for a missing round")
	}
}

func TestEventsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	events := []society.Event{
		{Round: 1, Type: "economic", Description: "economic competition event",
			Meta: map[string]any{"winners_count": float64(12)}},
		{Round: 2, Type: "policy_change", Description: "elite circle adjusted tax_redistribution"},
	}
	if err := db.SaveEvents(events); err != nil {
		t.Fatalf("SaveEvents() error = %v", err)
	}

	got, err := db.RecentEvents(10)
	if err != nil {
		t.Fatalf("RecentEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentEvents() returned %d events, want 2", len(got))
	}
	// Newest first.
	if got[0].Round != 2 || got[1].Round != 1 {
		t.Errorf("event order: got rounds %d, %d", got[0].Round, got[1].Round)
	}
	if got[1].Meta["winners_count"] != float64(12) {
		t.Errorf("event meta = %v", got[1].Meta)
	}

	if err := db.SaveEvents(nil); err != nil {
		t.Errorf("SaveEvents(nil) error = %v", err)
	}
}
