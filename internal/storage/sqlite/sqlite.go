package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"sandglass/internal/storage"
	"sandglass/internal/timer"
)

// DefaultHistoryCap bounds the input history when no cap is configured.
const DefaultHistoryCap = 50

type SQLiteStore struct {
	db         *sql.DB
	dbPath     string
	historyCap int
}

// NewSQLiteStore returns a store backed by the SQLite file at dbPath.
// historyCap bounds the input history; values below 1 fall back to
// DefaultHistoryCap.
func NewSQLiteStore(dbPath string, historyCap int) storage.Store {
	if historyCap < 1 {
		historyCap = DefaultHistoryCap
	}
	return &SQLiteStore{dbPath: dbPath, historyCap: historyCap}
}

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS timers (
	id TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	state TEXT NOT NULL,
	start_json TEXT NOT NULL,
	options_json TEXT NOT NULL,
	start_time DATETIME,
	end_time DATETIME,
	time_left_ns INTEGER,
	total_ns INTEGER,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS inputs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL UNIQUE,
	used_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_inputs_used_at ON inputs (used_at);
`

func (s *SQLiteStore) Init(ctx context.Context) error {
	dir := filepath.Dir(s.dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create db directory %s: %w", dir, err)
	}

	log.Printf("Initializing SQLite database at: %s", s.dbPath)
	db, err := sql.Open("sqlite3", s.dbPath+"?_journal=WAL&_timeout=5000&_fk=true")
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	s.db = db

	// SQLite is best with a single writer connection.
	s.db.SetMaxOpenConns(1)
	s.db.SetMaxIdleConns(1)
	s.db.SetConnMaxLifetime(time.Minute * 5)

	if err := s.db.PingContext(ctx); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createTablesSQL); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveTimer(ctx context.Context, snap timer.Snapshot) error {
	startJSON, err := json.Marshal(snap.Start)
	if err != nil {
		return fmt.Errorf("failed to encode timer start: %w", err)
	}
	optionsJSON, err := json.Marshal(snap.Options)
	if err != nil {
		return fmt.Errorf("failed to encode timer options: %w", err)
	}

	// Durations only mean something while a run exists.
	var leftNS, totalNS interface{}
	if snap.State != timer.StateStopped {
		leftNS = int64(snap.TimeLeft)
		totalNS = int64(snap.Total)
	}

	query := `INSERT INTO timers (id, created_at, state, start_json, options_json,
	                              start_time, end_time, time_left_ns, total_ns, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(id) DO UPDATE SET
	            state = excluded.state,
	            start_json = excluded.start_json,
	            options_json = excluded.options_json,
	            start_time = excluded.start_time,
	            end_time = excluded.end_time,
	            time_left_ns = excluded.time_left_ns,
	            total_ns = excluded.total_ns,
	            updated_at = excluded.updated_at`
	_, err = s.db.ExecContext(ctx, query,
		snap.ID.String(), snap.CreatedAt, string(snap.State), string(startJSON), string(optionsJSON),
		snap.StartTime, snap.EndTime, leftNS, totalNS, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save timer %s: %w", snap.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetTimers(ctx context.Context) ([]timer.Snapshot, error) {
	query := `SELECT id, created_at, state, start_json, options_json,
	                 start_time, end_time, time_left_ns, total_ns
	          FROM timers ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query timers: %w", err)
	}
	defer rows.Close()

	var snaps []timer.Snapshot
	for rows.Next() {
		var (
			idStr       string
			snap        timer.Snapshot
			state       string
			startJSON   string
			optionsJSON string
			startTime   sql.NullTime
			endTime     sql.NullTime
			leftNS      sql.NullInt64
			totalNS     sql.NullInt64
		)
		if err := rows.Scan(&idStr, &snap.CreatedAt, &state, &startJSON, &optionsJSON,
			&startTime, &endTime, &leftNS, &totalNS); err != nil {
			return nil, fmt.Errorf("failed to scan timer row: %w", err)
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			log.Printf("Skipping timer row with bad id %q: %v", idStr, err)
			continue
		}
		snap.ID = id
		snap.State = timer.State(state)

		var start timer.TimerStart
		if err := json.Unmarshal([]byte(startJSON), &start); err != nil {
			log.Printf("Skipping timer %s with undecodable start: %v", idStr, err)
			continue
		}
		snap.Start = &start
		if err := json.Unmarshal([]byte(optionsJSON), &snap.Options); err != nil {
			log.Printf("Skipping timer %s with undecodable options: %v", idStr, err)
			continue
		}

		if startTime.Valid {
			v := startTime.Time
			snap.StartTime = &v
		}
		if endTime.Valid {
			v := endTime.Time
			snap.EndTime = &v
		}
		if leftNS.Valid {
			snap.TimeLeft = time.Duration(leftNS.Int64)
		}
		if totalNS.Valid {
			snap.Total = time.Duration(totalNS.Int64)
		}
		snaps = append(snaps, snap)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timer rows: %w", err)
	}
	return snaps, nil
}

func (s *SQLiteStore) DeleteTimer(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM timers WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete timer %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) SaveInput(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	query := `INSERT INTO inputs (text, used_at) VALUES (?, ?)
	          ON CONFLICT(text) DO UPDATE SET used_at = excluded.used_at`
	if _, err := s.db.ExecContext(ctx, query, text, time.Now()); err != nil {
		return fmt.Errorf("failed to save input: %w", err)
	}

	prune := `DELETE FROM inputs WHERE id NOT IN (
	            SELECT id FROM inputs ORDER BY used_at DESC, id DESC LIMIT ?)`
	if _, err := s.db.ExecContext(ctx, prune, s.historyCap); err != nil {
		return fmt.Errorf("failed to prune input history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentInputs(ctx context.Context, limit int) ([]string, error) {
	if limit < 1 || limit > s.historyCap {
		limit = s.historyCap
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT text FROM inputs ORDER BY used_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query inputs: %w", err)
	}
	defer rows.Close()

	var inputs []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan input row: %w", err)
		}
		inputs = append(inputs, text)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating input rows: %w", err)
	}
	return inputs, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		log.Println("Closing database connection.")
		return s.db.Close()
	}
	return nil
}
