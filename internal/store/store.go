package store

import (
	"database/sql"

	_ "github.com/glebarez/go-sqlite"
)

type RunStore struct {
	DB *sql.DB
}

func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			prompt TEXT,
			status TEXT DEFAULT 'running',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			position INTEGER,
			agent TEXT,
			action TEXT,
			status TEXT,
			result TEXT,
			finished_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS schedules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			prompt TEXT,
			interval_seconds INTEGER,
			last_run DATETIME,
			status TEXT DEFAULT 'active'
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &RunStore{DB: db}, nil
}

func (s *RunStore) CreateRun(id string, prompt string) error {
	query := `INSERT INTO runs (id, prompt, status) VALUES (?, ?, 'running')`
	_, err := s.DB.Exec(query, id, prompt)
	return err
}

func (s *RunStore) FinishRun(id string, status string) error {
	query := `UPDATE runs SET status = ?, finished_at = datetime('now') WHERE id = ?`
	_, err := s.DB.Exec(query, status, id)
	return err
}

func (s *RunStore) RecordStep(runID string, position int, agent, action, status, result string) error {
	query := `INSERT INTO steps (run_id, position, agent, action, status, result) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.DB.Exec(query, runID, position, agent, action, status, result)
	return err
}

func (s *RunStore) GetRun(id string) (*RunRecord, []StepRecord, error) {
	row := s.DB.QueryRow(`SELECT id, prompt, status, created_at, COALESCE(finished_at, '') FROM runs WHERE id = ?`, id)
	var run RunRecord
	if err := row.Scan(&run.ID, &run.Prompt, &run.Status, &run.CreatedAt, &run.FinishedAt); err != nil {
		return nil, nil, err
	}

	rows, err := s.DB.Query(`SELECT id, run_id, position, agent, action, status, result FROM steps WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var st StepRecord
		if err := rows.Scan(&st.ID, &st.RunID, &st.Position, &st.Agent, &st.Action, &st.Status, &st.Result); err != nil {
			return nil, nil, err
		}
		steps = append(steps, st)
	}
	return &run, steps, rows.Err()
}

func (s *RunStore) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, prompt, status, created_at, COALESCE(finished_at, '')
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`
	rows, err := s.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		if err := rows.Scan(&run.ID, &run.Prompt, &run.Status, &run.CreatedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *RunStore) AddSchedule(prompt string, intervalSeconds int) error {
	query := `INSERT INTO schedules (prompt, interval_seconds, last_run) VALUES (?, ?, datetime('now', '-365 days'))`
	_, err := s.DB.Exec(query, prompt, intervalSeconds)
	return err
}

func (s *RunStore) ListSchedules() ([]Schedule, error) {
	rows, err := s.DB.Query(`SELECT id, prompt, interval_seconds, status FROM schedules WHERE status = 'active'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		var sc Schedule
		if err := rows.Scan(&sc.ID, &sc.Prompt, &sc.IntervalSeconds, &sc.Status); err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

func (s *RunStore) DueSchedules() ([]Schedule, error) {
	query := `
		SELECT id, prompt, interval_seconds
		FROM schedules
		WHERE status = 'active'
		AND (last_run IS NULL OR (julianday('now') - julianday(last_run)) * 86400 >= interval_seconds)`
	rows, err := s.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []Schedule
	for rows.Next() {
		var sc Schedule
		if err := rows.Scan(&sc.ID, &sc.Prompt, &sc.IntervalSeconds); err != nil {
			return nil, err
		}
		due = append(due, sc)
	}
	return due, rows.Err()
}

func (s *RunStore) UpdateScheduleLastRun(id int) error {
	query := `UPDATE schedules SET last_run = datetime('now') WHERE id = ?`
	_, err := s.DB.Exec(query, id)
	return err
}

func (s *RunStore) DeleteSchedule(id int) error {
	query := `DELETE FROM schedules WHERE id = ?`
	_, err := s.DB.Exec(query, id)
	return err
}
