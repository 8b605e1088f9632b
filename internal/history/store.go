// Package history persists execution results to SQLite for diagnostics
// and per-ability aggregates across runs.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"arkengard.com/ability-bot-go/internal/executor"
)

// Store wraps the SQLite database connection
type Store struct {
	conn *sql.DB
	path string
}

// Open opens or creates a SQLite database at the specified path. The
// special path ":memory:" creates an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite works best with a single connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	store := &Store{conn: conn, path: dbPath}
	if err := store.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ability TEXT NOT NULL,
			success INTEGER NOT NULL,
			verified INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL,
			input_ms INTEGER NOT NULL,
			verify_ms INTEGER NOT NULL,
			reason TEXT,
			executed_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_executions_ability ON executions(ability);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return nil
}

// RecordExecution inserts one completed result. Implements the engine's
// history sink.
func (s *Store) RecordExecution(result executor.Result) error {
	_, err := s.conn.Exec(`
		INSERT INTO executions (
			ability, success, verified,
			latency_ms, input_ms, verify_ms,
			reason, executed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.Ability,
		boolToInt(result.Success),
		boolToInt(result.Verified),
		result.Latency.Milliseconds(),
		result.InputTime.Milliseconds(),
		result.VerifyTime.Milliseconds(),
		result.Reason,
		result.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// AbilityStats summarizes persisted executions for one ability.
type AbilityStats struct {
	Ability      string
	Total        int64
	Succeeded    int64
	Verified     int64
	AvgLatencyMS float64
}

// StatsFor returns aggregates for one ability.
func (s *Store) StatsFor(abilityName string) (AbilityStats, error) {
	stats := AbilityStats{Ability: abilityName}

	err := s.conn.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(success), 0),
			COALESCE(SUM(verified), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM executions
		WHERE ability = ?
	`, abilityName).Scan(&stats.Total, &stats.Succeeded, &stats.Verified, &stats.AvgLatencyMS)

	if err != nil {
		return stats, fmt.Errorf("failed to query stats for %s: %w", abilityName, err)
	}
	return stats, nil
}

// Recent returns the most recent persisted results, newest first.
func (s *Store) Recent(limit int) ([]executor.Result, error) {
	rows, err := s.conn.Query(`
		SELECT ability, success, verified, latency_ms, input_ms, verify_ms, reason, executed_at
		FROM executions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent executions: %w", err)
	}
	defer rows.Close()

	var results []executor.Result
	for rows.Next() {
		var (
			r                            executor.Result
			success, verified            int
			latencyMS, inputMS, verifyMS int64
			executedAt                   string
		)
		if err := rows.Scan(&r.Ability, &success, &verified, &latencyMS, &inputMS, &verifyMS, &r.Reason, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}

		r.Success = success != 0
		r.Verified = verified != 0
		r.Latency = time.Duration(latencyMS) * time.Millisecond
		r.InputTime = time.Duration(inputMS) * time.Millisecond
		r.VerifyTime = time.Duration(verifyMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, executedAt); err == nil {
			r.At = t
		}

		results = append(results, r)
	}

	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
