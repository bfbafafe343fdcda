// Package persistence provides SQLite-based run storage.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/micro-society/internal/agents"
	"github.com/talgya/micro-society/internal/engine"
	"github.com/talgya/micro-society/internal/society"
)

// DB wraps a SQLite connection for run persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	// modernc.org/sqlite takes pragmas as _pragma=name(value) query
	// parameters.
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		gender TEXT NOT NULL,
		class TEXT NOT NULL,
		wealth REAL NOT NULL,
		power REAL NOT NULL,
		care_skill REAL NOT NULL,
		competition_skill REAL NOT NULL,
		ideology TEXT NOT NULL,
		ideology_value REAL NOT NULL,
		sanction_effects_count INTEGER NOT NULL,
		last_ideology_change INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		round INTEGER PRIMARY KEY,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round INTEGER NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		meta_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_round ON events(round);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	CREATE INDEX IF NOT EXISTS idx_agents_class ON agents(class);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveAgents writes the final member records to the database (full replace).
func (db *DB) SaveAgents(records []agents.Record) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM agents"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO agents
		(id, gender, class, wealth, power, care_skill, competition_skill,
		 ideology, ideology_value, sanction_effects_count, last_ideology_change)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(
			r.ID, string(r.Gender), string(r.Class),
			r.Wealth, r.Power, r.CareSkill, r.CompetitionSkill,
			string(r.Ideology), r.IdeologyValue,
			r.SanctionEffectsCount, r.LastIdeologyChange,
		)
		if err != nil {
			return fmt.Errorf("insert agent %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// SaveSnapshots writes the full per-round snapshot history (full replace).
// Each snapshot is stored as one JSON document keyed by round.
func (db *DB) SaveSnapshots(snapshots []society.Snapshot) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM snapshots"); err != nil {
		return err
	}

	stmt, err := tx.Preparex("INSERT INTO snapshots (round, data) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, snap := range snapshots {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot %d: %w", snap.Round, err)
		}
		if _, err := stmt.Exec(snap.Round, string(data)); err != nil {
			return fmt.Errorf("insert snapshot %d: %w", snap.Round, err)
		}
	}

	return tx.Commit()
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []society.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		metaJSON, err := json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("marshal event meta: %w", err)
		}
		_, err = tx.Exec(
			"INSERT INTO events (round, type, description, meta_json) VALUES (?, ?, ?, ?)",
			e.Round, e.Type, e.Description, string(metaJSON),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in run metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}

// SaveRun performs a full save of a finished (or in-progress) run: final
// member records, the complete snapshot history, the event log, and run
// metadata including the config and summary.
func (db *DB) SaveRun(sim *engine.Simulation) error {
	round := sim.CurrentRound()
	snapshots := sim.History()
	events := sim.EventLog()
	slog.Info("saving run",
		"rounds", round,
		"snapshots", len(snapshots),
		"events", len(events),
	)

	if err := db.SaveAgents(sim.CurrentRecords()); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := db.SaveSnapshots(snapshots); err != nil {
		return fmt.Errorf("save snapshots: %w", err)
	}
	if err := db.SaveEvents(events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	cfgJSON, err := json.Marshal(sim.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	summaryJSON, err := json.Marshal(sim.Summary())
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	meta := map[string]string{
		"last_round": fmt.Sprintf("%d", round),
		"seed":       fmt.Sprintf("%d", sim.Config.RandomSeed),
		"config":     string(cfgJSON),
		"summary":    string(summaryJSON),
	}
	for k, v := range meta {
		if err := db.SaveMeta(k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	slog.Info("run saved")
	return nil
}

// LoadSnapshot returns the snapshot stored for the given round.
func (db *DB) LoadSnapshot(round int) (society.Snapshot, error) {
	var data string
	if err := db.conn.Get(&data, "SELECT data FROM snapshots WHERE round = ?", round); err != nil {
		return society.Snapshot{}, fmt.Errorf("load snapshot %d: %w", round, err)
	}
	var snap society.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return society.Snapshot{}, fmt.Errorf("decode snapshot %d: %w", round, err)
	}
	return snap, nil
}

// LatestSnapshot returns the highest-round snapshot.
func (db *DB) LatestSnapshot() (society.Snapshot, error) {
	var round int
	if err := db.conn.Get(&round, "SELECT MAX(round) FROM snapshots"); err != nil {
		return society.Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return db.LoadSnapshot(round)
}

// LoadAgents returns the stored final member records.
func (db *DB) LoadAgents() ([]agents.Record, error) {
	var records []agents.Record
	err := db.conn.Select(&records, `SELECT
		id, gender, class, wealth, power,
		care_skill AS careskill,
		competition_skill AS competitionskill,
		ideology,
		ideology_value AS ideologyvalue,
		sanction_effects_count AS sanctioneffectscount,
		last_ideology_change AS lastideologychange
		FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	return records, nil
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]society.Event, error) {
	rows, err := db.conn.Queryx(
		"SELECT round, type, description, meta_json FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var events []society.Event
	for rows.Next() {
		var (
			e        society.Event
			metaJSON string
		)
		if err := rows.Scan(&e.Round, &e.Type, &e.Description, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if metaJSON != "" && metaJSON != "null" {
			if err := json.Unmarshal([]byte(metaJSON), &e.Meta); err != nil {
				return nil, fmt.Errorf("decode event meta: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
