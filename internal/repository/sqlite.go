package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/s0ngyang/catai/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			thread_id TEXT NOT NULL,
			run_id TEXT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at, seq)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			status TEXT NOT NULL,
			required_action TEXT,
			last_error TEXT,
			prompt TEXT NOT NULL DEFAULT '',
			tool_outputs TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_thread_status ON runs(thread_id, status)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateThread creates a new thread.
func (s *SQLiteStore) CreateThread(ctx context.Context, thread *domain.Thread) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (thread_id, created_at) VALUES (?, ?)`,
		thread.ID, thread.CreatedAt)
	return err
}

// GetThread retrieves a thread by ID.
func (s *SQLiteStore) GetThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	var thread domain.Thread
	err := s.db.QueryRowContext(ctx,
		`SELECT thread_id, created_at FROM threads WHERE thread_id = ?`,
		threadID).Scan(&thread.ID, &thread.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// CreateMessage creates a new message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	content, err := json.Marshal(message.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}
	var metadata sql.NullString
	if len(message.Metadata) > 0 {
		raw, err := json.Marshal(message.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, thread_id, run_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		message.ID, message.ThreadID, nullString(message.RunID), message.Role, string(content), metadata, message.CreatedAt)
	return err
}

// ListMessages retrieves all messages of a thread ordered by creation time.
func (s *SQLiteStore) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, thread_id, run_id, role, content, metadata, created_at FROM messages WHERE thread_id = ? ORDER BY created_at ASC, seq ASC`,
		threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var runID, metadata sql.NullString
		var content string
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &runID, &msg.Role, &content, &metadata, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if runID.Valid {
			msg.RunID = runID.String
		}
		if err := json.Unmarshal([]byte(content), &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to decode content of %s: %w", msg.ID, err)
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata of %s: %w", msg.ID, err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateRun creates a new run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *RunRecord) error {
	now := time.Now().Unix()
	if run.CreatedAt == 0 {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	action, lastErr, outputs, err := encodeRun(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, thread_id, status, required_action, last_error, prompt, tool_outputs, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ThreadID, run.Status, action, lastErr, run.Prompt, outputs, run.CreatedAt, run.UpdatedAt)
	return err
}

// GetRun retrieves a run of a thread by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, threadID, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, thread_id, status, required_action, last_error, prompt, tool_outputs, created_at, updated_at FROM runs WHERE thread_id = ? AND run_id = ?`,
		threadID, runID)
	return scanRun(row)
}

// GetActiveRun returns the run of a thread that has not reached a terminal status.
func (s *SQLiteStore) GetActiveRun(ctx context.Context, threadID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, thread_id, status, required_action, last_error, prompt, tool_outputs, created_at, updated_at FROM runs
		WHERE thread_id = ? AND status IN (?, ?, ?, ?) ORDER BY created_at DESC LIMIT 1`,
		threadID, domain.RunStatusQueued, domain.RunStatusInProgress, domain.RunStatusRequiresAction, domain.RunStatusCancelling)
	return scanRun(row)
}

// UpdateRun persists the mutable fields of a run.
func (s *SQLiteStore) UpdateRun(ctx context.Context, run *RunRecord) error {
	run.UpdatedAt = time.Now().Unix()
	action, lastErr, outputs, err := encodeRun(run)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, required_action = ?, last_error = ?, tool_outputs = ?, updated_at = ? WHERE run_id = ?`,
		run.Status, action, lastErr, outputs, run.UpdatedAt, run.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var run RunRecord
	var action, lastErr, outputs sql.NullString
	err := row.Scan(&run.ID, &run.ThreadID, &run.Status, &action, &lastErr, &run.Prompt, &outputs, &run.CreatedAt, &run.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if action.Valid {
		if err := json.Unmarshal([]byte(action.String), &run.RequiredAction); err != nil {
			return nil, fmt.Errorf("failed to decode required action: %w", err)
		}
	}
	if lastErr.Valid {
		if err := json.Unmarshal([]byte(lastErr.String), &run.LastError); err != nil {
			return nil, fmt.Errorf("failed to decode last error: %w", err)
		}
	}
	if outputs.Valid {
		if err := json.Unmarshal([]byte(outputs.String), &run.ToolOutputs); err != nil {
			return nil, fmt.Errorf("failed to decode tool outputs: %w", err)
		}
	}
	return &run, nil
}

func encodeRun(run *RunRecord) (action, lastErr, outputs sql.NullString, err error) {
	if action, err = encodeJSON(run.RequiredAction, run.RequiredAction == nil); err != nil {
		return
	}
	if lastErr, err = encodeJSON(run.LastError, run.LastError == nil); err != nil {
		return
	}
	outputs, err = encodeJSON(run.ToolOutputs, run.ToolOutputs == nil)
	return
}

func encodeJSON(v any, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
